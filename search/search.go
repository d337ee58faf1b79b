package search

import (
	"github.com/zugzwang-chess/zugzwang/chess"
	"github.com/zugzwang-chess/zugzwang/tt"
)

// search is the recursive negamax. nt selects root/PV/non-PV behaviour;
// a non-nil sp means this call re-enters an existing split point: steps
// 1-10 are skipped and the move loop runs off the shared state.
func (w *worker) search(nt nodeType, sp *SplitPoint, b *chess.Board, ply, alpha, beta, depth int) int {
	e := w.e
	pvNode := nt == nodePV || nt == nodeRoot
	rootNode := nt == nodeRoot
	spNode := sp != nil

	ss := &w.stack[ply]
	parent := &w.stack[ply-1]
	ss.Ply = ply

	if pvNode && w.maxPly < ply {
		w.maxPly = ply
	}

	var (
		movesSearched   [chess.MaxMoves]chess.Move
		playedMoveCount int
		threatMove      chess.Move
		ttMove          chess.Move
		excludedMove    chess.Move
		ttEntry         tt.Entry
		ttHit           bool
		posKey          uint64
		moveCount       int
		mp              *MovePicker
		singularNode    bool
	)

	bestValue := -ValueInfinite
	refinedValue := -ValueInfinite
	oldAlpha := alpha
	pos := b.Pos()
	inCheck := pos.InCheck()

	// Step 1. Initialize node and poll. Polling can abort the search.
	if !spNode {
		ss.CurrentMove = chess.MoveNone
		ss.BestMove = chess.MoveNone
		w.stack[ply+1].ExcludedMove = chess.MoveNone
		w.stack[ply+1].SkipNullMove = false
		w.stack[ply+1].Reduction = 0
		w.stack[ply+2].Killers[0] = chess.MoveNone
		w.stack[ply+2].Killers[1] = chess.MoveNone

		if w.id == 0 {
			w.nodesSincePoll++
			if w.nodesSincePoll > e.nodesBetweenPolls {
				w.nodesSincePoll = 0
				e.poll()
			}
		}

		// Step 2. Aborted search and immediate draw.
		if (e.searchAborted() || b.IsDraw() || ply > PlyMax) && !rootNode {
			return ValueDraw
		}

		// Step 3. Mate distance pruning.
		if !rootNode {
			alpha = maxInt(matedIn(ply), alpha)
			beta = minInt(mateIn(ply+1), beta)
			if alpha >= beta {
				return alpha
			}
		}
	} else {
		threatMove = sp.threatMove
		goto splitPointStart
	}

	// Step 4. Transposition table lookup. An excluded move gets its own
	// key so a partial search cannot overwrite the full-width entry.
	excludedMove = ss.ExcludedMove
	posKey = pos.Key()
	if excludedMove != chess.MoveNone {
		posKey = pos.ExclusionKey()
	}
	ttEntry, ttHit = e.TT.Probe(posKey)
	if rootNode {
		ttMove = e.rml.Moves[e.multiPVIdx].PV[0]
	} else if ttHit {
		ttMove = ttEntry.Move()
	}

	if !rootNode && ttHit {
		usable := false
		if pvNode {
			usable = ttEntry.Depth() >= depth && ttEntry.Bound() == tt.BoundExact
		} else {
			usable = canReturnTT(&ttEntry, depth, beta, ply)
		}
		if usable {
			e.TT.Refresh(posKey)
			ss.BestMove = ttMove
			value := valueFromTT(ttEntry.Value(), ply)

			if value >= beta && ttMove != chess.MoveNone &&
				!ttMove.IsCaptureOrPromo() && ttMove != ss.Killers[0] {
				ss.Killers[1] = ss.Killers[0]
				ss.Killers[0] = ttMove
			}
			return value
		}
	}

	// Step 5. Static evaluation and parent gain update.
	if inCheck {
		ss.Eval = ValueNone
		ss.EvalMargin = ValueNone
	} else if ttHit {
		ss.Eval = ttEntry.StaticEval()
		ss.EvalMargin = ttEntry.StaticMargin()
		refinedValue = refineEval(&ttEntry, ss.Eval, ply)
	} else {
		ss.Eval, ss.EvalMargin = staticEval(b)
		refinedValue = ss.Eval
		e.TT.Store(posKey, ValueNone, tt.BoundNone, DepthNone, chess.MoveNone, ss.Eval, ss.EvalMargin)
	}

	if move := parent.CurrentMove; move != chess.MoveNull && move != chess.MoveNone &&
		parent.Eval != ValueNone && ss.Eval != ValueNone &&
		pos.CapturedPiece() == chess.NoPieceType && !move.IsSpecial() {
		to := move.To()
		e.Hist.UpdateGain(pos.PieceOn(to), to, -parent.Eval-ss.Eval)
	}

	// Step 6. Razoring (omitted at PV nodes).
	if !pvNode && !inCheck &&
		depth < razorDepth &&
		refinedValue+razorMargin(depth) < beta &&
		ttMove == chess.MoveNone &&
		abs(beta) < ValueMateInPlyMax &&
		!pos.HasPawnOn7th(pos.SideToMove()) {
		rbeta := beta - razorMargin(depth)
		v := w.qsearch(false, b, ply, rbeta-1, rbeta, DepthZero)
		if v < rbeta {
			// Logically this should return v + razorMargin(depth), but
			// that tested slightly weaker.
			return v
		}
	}

	// Step 7. Static null move pruning (omitted at PV nodes).
	if !pvNode && !ss.SkipNullMove && !inCheck &&
		depth < razorDepth &&
		refinedValue-futilityMargin(depth, 0) >= beta &&
		abs(beta) < ValueMateInPlyMax &&
		pos.NonPawnMaterial(pos.SideToMove()) > 0 {
		return refinedValue - futilityMargin(depth, 0)
	}

	// Step 8. Null move search with verification (omitted at PV nodes).
	if !pvNode && !ss.SkipNullMove && !inCheck &&
		depth > OnePly &&
		refinedValue >= beta &&
		abs(beta) < ValueMateInPlyMax &&
		pos.NonPawnMaterial(pos.SideToMove()) > 0 {

		ss.CurrentMove = chess.MoveNull

		r := 3
		if depth >= 5*OnePly {
			r += depth / 8
		}
		if refinedValue-chess.PawnValueMidgame > beta {
			r++
		}

		b.DoNullMove()
		w.stack[ply+1].SkipNullMove = true
		var nullValue int
		if depth-r*OnePly < OnePly {
			nullValue = -w.qsearch(false, b, ply+1, -beta, -alpha, DepthZero)
		} else {
			nullValue = -w.search(nodeNonPV, nil, b, ply+1, -beta, -alpha, depth-r*OnePly)
		}
		w.stack[ply+1].SkipNullMove = false
		b.UndoMove()

		if nullValue >= beta {
			// Never return unproven mate scores.
			if nullValue >= ValueMateInPlyMax {
				nullValue = beta
			}
			if depth < 6*OnePly {
				return nullValue
			}

			ss.SkipNullMove = true
			v := w.search(nodeNonPV, nil, b, ply, alpha, beta, depth-r*OnePly)
			ss.SkipNullMove = false
			if v >= beta {
				return nullValue
			}
		} else {
			// The null move failed low: the refutation is a threat. If the
			// parent move was reduced and is connected to the threat, fail
			// low here so the parent re-searches at full depth.
			threatMove = w.stack[ply+1].BestMove

			if depth < threatDepth &&
				parent.Reduction != 0 &&
				threatMove != chess.MoveNone &&
				connectedMoves(pos, parent.CurrentMove, threatMove) {
				return beta - 1
			}
		}
	}

	// Step 9. ProbCut (omitted at PV nodes): a good capture plus a
	// reduced search well above beta prunes the node.
	if !pvNode && !inCheck && !ss.SkipNullMove &&
		depth >= razorDepth+OnePly &&
		excludedMove == chess.MoveNone &&
		abs(beta) < ValueMateInPlyMax {

		rbeta := beta + probCutMargin
		rdepth := depth - OnePly - 3*OnePly
		pcPicker := NewProbCutPicker(pos, ttMove, e.Hist, chess.PieceValueMidgame[pos.CapturedPiece()])

		for m := pcPicker.NextMove(); m != chess.MoveNone; m = pcPicker.NextMove() {
			if !pos.IsLegal(m) {
				continue
			}
			ss.CurrentMove = m
			b.DoMove(m)
			e.nodes.Add(1)
			value := -w.search(nodeNonPV, nil, b, ply+1, -rbeta, -rbeta+1, rdepth)
			b.UndoMove()
			if value >= rbeta {
				return value
			}
		}
	}

	// Step 10. Internal iterative deepening.
	if depth >= iidDepth[b2i(pvNode)] && ttMove == chess.MoveNone &&
		(pvNode || (!inCheck && ss.Eval+iidMargin >= beta)) {
		d := depth / 2
		childNT := nodeNonPV
		if pvNode {
			d = depth - 2*OnePly
			childNT = nodePV
		}
		ss.SkipNullMove = true
		w.search(childNT, nil, b, ply, alpha, beta, d)
		ss.SkipNullMove = false

		ttEntry, ttHit = e.TT.Probe(posKey)
		ttMove = chess.MoveNone
		if ttHit {
			ttMove = ttEntry.Move()
		}
	}

splitPointStart:

	if spNode {
		pos = b.Pos()
		inCheck = pos.InCheck()
		excludedMove = chess.MoveNone
		mp = nil // moves come from sp.mp under the split lock
	} else {
		mp = NewMovePicker(pos, ttMove, depth, e.Hist, ss.Killers)
	}
	ss.BestMove = chess.MoveNone
	futilityBase := ss.Eval + ss.EvalMargin

	singularNode = !rootNode && !spNode &&
		depth >= singularDepth[b2i(pvNode)] &&
		ttMove != chess.MoveNone &&
		excludedMove == chess.MoveNone &&
		ttHit && ttEntry.Bound()&tt.BoundLower != 0 &&
		ttEntry.Depth() >= depth-3*OnePly

	if spNode {
		sp.mu.Lock()
		bestValue = sp.bestValue
	}

	// Step 11. Loop through the moves until none remain, a beta cutoff
	// occurs, or an ancestor split point already failed high.
	// At split points the lock is held whenever shared state is touched:
	// at the loop head, and re-grabbed after each searched move.
	for {
		if spNode {
			bestValue = sp.bestValue
		}
		if bestValue >= beta || w.cutoffOccurred() {
			break
		}
		var move chess.Move
		if spNode {
			move = sp.mp.NextMove()
		} else {
			move = mp.NextMove()
		}
		if move == chess.MoveNone {
			break
		}

		if move == excludedMove {
			continue
		}
		// At root obey searchmoves and skip PV lines already searched in
		// MultiPV mode.
		if rootNode && e.rml.Find(move, e.multiPVIdx) == nil {
			continue
		}
		// PV and split-point nodes want fully legal moves from the start.
		if (pvNode || spNode) && !pos.IsLegal(move) {
			continue
		}

		if spNode {
			sp.moveCount++
			moveCount = sp.moveCount
			alpha = sp.alpha
			sp.mu.Unlock()
		} else {
			moveCount++
		}

		var nodesBefore int64
		if rootNode {
			e.firstRootMove.Store(moveCount == 1)
			nodesBefore = e.nodes.Load()

			if w.id == 0 && elapsedMS(e.startTime) > 2000 {
				e.emitCurrmove(depth/OnePly, move, moveCount+e.multiPVIdx)
			}
		}

		// At the root of iteration one every move is searched as a PV
		// move so all root moves receive a proper score.
		isPvMove := pvNode && moveCount <= 1
		if rootNode && depth <= OnePly {
			isPvMove = pvNode
		}
		givesCheck := pos.GivesCheck(move)
		captureOrPromotion := move.IsCaptureOrPromo()

		// Step 12. Extensions.
		ext, dangerous := extension(pos, move, captureOrPromotion, givesCheck, pvNode)

		// Singular extension: if every alternative fails well below the
		// TT value, the TT move is the only good try and gets a full ply.
		if singularNode && move == ttMove && ext < OnePly && pos.IsLegal(move) {
			ttValue := valueFromTT(ttEntry.Value(), ply)
			if abs(ttValue) < ValueKnownWin {
				rBeta := ttValue - depth
				ss.ExcludedMove = move
				ss.SkipNullMove = true
				v := w.search(nodeNonPV, nil, b, ply, rBeta-1, rBeta, depth/2)
				ss.SkipNullMove = false
				ss.ExcludedMove = chess.MoveNone
				ss.BestMove = chess.MoveNone
				if v < rBeta {
					ext = OnePly
				}
			}
		}

		newDepth := depth - OnePly + ext

		// Step 13. Futility pruning (omitted at PV nodes).
		if !pvNode && !captureOrPromotion && !inCheck && !dangerous &&
			move != ttMove && !move.IsCastle() {

			// Move count based pruning. bestValue is racy at split
			// points; preserved as a known benign race.
			if moveCount >= futilityMoveCountLimit(depth) &&
				(threatMove == chess.MoveNone || !connectedThreat(pos, move, threatMove)) &&
				bestValue > ValueMatedInPlyMax {
				if spNode {
					sp.mu.Lock()
				}
				continue
			}

			// Value based pruning. The reduction is applied to newDepth
			// even below the LMR depth floor; fixing that tested weaker.
			predictedDepth := newDepth - reduction(pvNode, depth, moveCount)
			futilityValue := futilityBase + futilityMargin(predictedDepth, moveCount) +
				e.Hist.Gain(move.Piece(), move.To())

			if futilityValue < beta {
				if spNode {
					sp.mu.Lock()
					if futilityValue > sp.bestValue {
						sp.bestValue = futilityValue
						bestValue = futilityValue
					}
				} else if futilityValue > bestValue {
					bestValue = futilityValue
				}
				continue
			}

			// Negative SEE pruning at low predicted depth.
			if predictedDepth < 2*OnePly &&
				bestValue > ValueMatedInPlyMax &&
				pos.SeeSign(move) < 0 {
				if spNode {
					sp.mu.Lock()
				}
				continue
			}
		}

		// Step 13b. Legality gate for the remaining moves.
		if !pvNode && !spNode && !pos.IsLegal(move) {
			moveCount--
			continue
		}

		ss.CurrentMove = move
		if !spNode && !captureOrPromotion {
			movesSearched[playedMoveCount] = move
			playedMoveCount++
		}

		// Step 14. Make the move.
		b.DoMove(move)
		e.nodes.Add(1)

		var value int
		if isPvMove {
			if newDepth < OnePly {
				value = -w.qsearch(true, b, ply+1, -beta, -alpha, DepthZero)
			} else {
				value = -w.search(nodePV, nil, b, ply+1, -beta, -alpha, newDepth)
			}
		} else {
			// Step 15. Late move reduction; a fail high re-searches at
			// full depth.
			doFullDepthSearch := true

			if depth > 3*OnePly && !captureOrPromotion && !dangerous &&
				!move.IsCastle() &&
				ss.Killers[0] != move && ss.Killers[1] != move {
				if r := reduction(pvNode, depth, moveCount); r > 0 {
					ss.Reduction = r
					if spNode {
						sp.mu.Lock()
						alpha = sp.alpha
						sp.mu.Unlock()
					}
					d := newDepth - r
					if d < OnePly {
						value = -w.qsearch(false, b, ply+1, -(alpha + 1), -alpha, DepthZero)
					} else {
						value = -w.search(nodeNonPV, nil, b, ply+1, -(alpha + 1), -alpha, d)
					}
					ss.Reduction = 0
					doFullDepthSearch = value > alpha
				}
			}

			// Step 16. Full depth zero-window search, then a PV
			// re-search when a new best line shows up.
			if doFullDepthSearch {
				if spNode {
					sp.mu.Lock()
					alpha = sp.alpha
					sp.mu.Unlock()
				}
				if newDepth < OnePly {
					value = -w.qsearch(false, b, ply+1, -(alpha + 1), -alpha, DepthZero)
				} else {
					value = -w.search(nodeNonPV, nil, b, ply+1, -(alpha + 1), -alpha, newDepth)
				}

				if pvNode && value > alpha && (rootNode || value < beta) {
					if newDepth < OnePly {
						value = -w.qsearch(true, b, ply+1, -beta, -alpha, DepthZero)
					} else {
						value = -w.search(nodePV, nil, b, ply+1, -beta, -alpha, newDepth)
					}
				}
			}
		}

		// Step 17. Undo move.
		b.UndoMove()

		// Step 18. New best move bookkeeping; at split points under the
		// re-grabbed lock.
		if spNode {
			sp.mu.Lock()
			bestValue = sp.bestValue
			alpha = sp.alpha
		}

		if rootNode && !e.searchAborted() {
			rm := e.rml.Find(move, 0)
			rm.Nodes += e.nodes.Load() - nodesBefore

			if isPvMove || value > alpha {
				rm.Score = value
				rm.ExtractPVFromTT(b, e.TT)
				if !isPvMove && e.MultiPV == 1 {
					e.rml.BestMoveChanges++
				}
			} else {
				// Failed low: park at -∞ and let the stable sort keep
				// the previous order.
				rm.Score = -ValueInfinite
			}
		}

		if value > bestValue {
			bestValue = value
			ss.BestMove = move

			if pvNode && value > alpha && value < beta {
				alpha = value
			}

			if spNode && !w.cutoffOccurred() {
				sp.bestValue = value
				sp.bestMove = move
				sp.alpha = alpha
				if value >= beta {
					sp.betaCutoff.Store(true)
				}
			}
		}

		// Step 19. Split the remainder of the move loop across idle
		// workers.
		if !spNode && depth >= e.MinSplitDepth && bestValue < beta &&
			len(e.workers) > 1 && e.availableSlaveExists(w.id) &&
			!e.searchAborted() && !w.cutoffOccurred() {
			var spBest chess.Move
			bestValue, spBest = e.split(w, nt, b, ply, alpha, beta, bestValue,
				ss.BestMove, depth, moveCount, threatMove, mp)
			if spBest != chess.MoveNone {
				ss.BestMove = spBest
			}
		}
	}

	if spNode {
		sp.mu.Unlock()
		return bestValue
	}

	// Step 20. Mate and stalemate detection: no legal moves were found.
	// False positives under an abort are harmless, the value is discarded.
	if moveCount == 0 {
		if excludedMove != chess.MoveNone {
			return oldAlpha
		}
		if inCheck {
			return matedIn(ply)
		}
		return ValueDraw
	}

	// Step 21. Store the node and update killers/history, unless the
	// search is unwinding from an abort.
	if !e.searchAborted() && !w.cutoffOccurred() {
		move := ss.BestMove
		var bound uint8
		switch {
		case bestValue <= oldAlpha:
			move = chess.MoveNone
			bound = tt.BoundUpper
		case bestValue >= beta:
			bound = tt.BoundLower
		default:
			bound = tt.BoundExact
		}
		e.TT.Store(posKey, valueToTT(bestValue, ply), bound, depth, move, ss.Eval, ss.EvalMargin)

		if bestValue >= beta && move != chess.MoveNone && !move.IsCaptureOrPromo() {
			if move != ss.Killers[0] {
				ss.Killers[1] = ss.Killers[0]
				ss.Killers[0] = move
			}
			updateHistory(e.Hist, pos, move, depth, movesSearched[:playedMoveCount])
		}
	}

	return bestValue
}

// qsearch resolves tactical noise at depth <= 0: captures, queen
// promotions and, right at the boundary, quiet checks.
func (w *worker) qsearch(pvNode bool, b *chess.Board, ply, alpha, beta, depth int) int {
	e := w.e
	ss := &w.stack[ply]
	ss.Ply = ply
	ss.BestMove = chess.MoveNone
	ss.CurrentMove = chess.MoveNone
	oldAlpha := alpha

	if b.IsDraw() || ply > PlyMax {
		return ValueDraw
	}

	pos := b.Pos()
	inCheck := pos.InCheck()

	ttDepth := DepthQSNoChecks
	if inCheck || depth >= DepthQSChecks {
		ttDepth = DepthQSChecks
	}

	posKey := pos.Key()
	ttEntry, ttHit := e.TT.Probe(posKey)
	var ttMove chess.Move
	if ttHit {
		ttMove = ttEntry.Move()
	}

	if !pvNode && ttHit && canReturnTT(&ttEntry, ttDepth, beta, ply) {
		ss.BestMove = ttMove
		return valueFromTT(ttEntry.Value(), ply)
	}

	var bestValue, futilityBase, evalMargin int
	enoughMaterial := false
	if inCheck {
		bestValue = -ValueInfinite
		futilityBase = -ValueInfinite
		ss.Eval = ValueNone
		evalMargin = ValueNone
	} else {
		if ttHit {
			ss.Eval = ttEntry.StaticEval()
			evalMargin = ttEntry.StaticMargin()
			bestValue = ss.Eval
		} else {
			ss.Eval, evalMargin = staticEval(b)
			bestValue = ss.Eval
		}

		// Stand pat.
		if bestValue >= beta {
			if !ttHit {
				e.TT.Store(posKey, valueToTT(bestValue, ply), tt.BoundLower, DepthNone,
					chess.MoveNone, ss.Eval, evalMargin)
			}
			return bestValue
		}
		if pvNode && bestValue > alpha {
			alpha = bestValue
		}

		futilityBase = ss.Eval + evalMargin + futilityMarginQS
		enoughMaterial = pos.NonPawnMaterial(pos.SideToMove()) > chess.RookValueMidgame
	}
	ss.EvalMargin = evalMargin

	mp := NewQSPicker(pos, ttMove, depth, e.Hist)

	for move := mp.NextMove(); bestValue < beta && move != chess.MoveNone; move = mp.NextMove() {
		givesCheck := pos.GivesCheck(move)

		// Futility pruning on the expected material balance.
		if !pvNode && !inCheck && !givesCheck && move != ttMove &&
			enoughMaterial && !move.IsPromotion() && !pos.IsPassedPawnPush(move) {
			futilityValue := futilityBase + chess.PieceValueEndgame[move.Captured()]
			if move.IsEnPassant() {
				futilityValue += chess.PawnValueEndgame
			}
			if futilityValue < beta {
				if futilityValue > bestValue {
					bestValue = futilityValue
				}
				continue
			}
			// Even or losing exchanges cannot rescue a failing node.
			if futilityBase < beta && depth < DepthZero && pos.See(move) <= 0 {
				continue
			}
		}

		// Non-capture check evasions late in a lost position are futile.
		evasionPrunable := !pvNode && inCheck &&
			bestValue > ValueMatedInPlyMax &&
			!move.IsCapture() &&
			!pos.CanCastle(pos.SideToMove())

		if !pvNode && (!inCheck || evasionPrunable) && move != ttMove &&
			!move.IsPromotion() && pos.SeeSign(move) < 0 {
			continue
		}

		// Quiet checks that neither trap the king nor create a real
		// double threat are skipped.
		if !pvNode && !inCheck && givesCheck && move != ttMove &&
			!move.IsCaptureOrPromo() &&
			ss.Eval+chess.PawnValueMidgame/4 < beta &&
			!checkIsDangerous(pos, move, futilityBase, beta, &bestValue) {
			if ss.Eval+chess.PawnValueMidgame/4 > bestValue {
				bestValue = ss.Eval + chess.PawnValueMidgame/4
			}
			continue
		}

		if !pos.IsLegal(move) {
			continue
		}

		ss.CurrentMove = move
		b.DoMove(move)
		e.nodes.Add(1)
		value := -w.qsearch(pvNode, b, ply+1, -beta, -alpha, depth-OnePly)
		b.UndoMove()

		if value > bestValue {
			bestValue = value
			ss.BestMove = move
			if pvNode && value > alpha && value < beta {
				alpha = value
			}
		}
	}

	// In check with no legal moves: checkmated here.
	if inCheck && bestValue == -ValueInfinite {
		return matedIn(ply)
	}

	move := ss.BestMove
	var bound uint8
	switch {
	case bestValue <= oldAlpha:
		move = chess.MoveNone
		bound = tt.BoundUpper
	case bestValue >= beta:
		bound = tt.BoundLower
	default:
		bound = tt.BoundExact
	}
	e.TT.Store(posKey, valueToTT(bestValue, ply), bound, ttDepth, move, ss.Eval, evalMargin)

	return bestValue
}

// extension decides how much deeper a move is searched and whether it is
// too dangerous to forward prune even without an extension.
func extension(pos *chess.Position, m chess.Move, captureOrPromotion, givesCheck, pvNode bool) (int, bool) {
	result := DepthZero
	dangerous := givesCheck
	pv := b2i(pvNode)

	if givesCheck && pos.SeeSign(m) >= 0 {
		result += checkExtension[pv]
	}

	if m.Piece().Type() == chess.Pawn {
		us := pos.SideToMove()
		if m.To().RelativeRank(us) == 6 {
			result += pawnPushTo7thExtension[pv]
			dangerous = true
		}
		if pos.IsPassedPawnPush(m) {
			result += passedPawnExtension[pv]
			dangerous = true
		}
	}

	if captureOrPromotion &&
		pos.PieceOn(m.To()).Type() != chess.Pawn &&
		!m.IsSpecial() &&
		pos.NonPawnMaterial(chess.White)+pos.NonPawnMaterial(chess.Black)-
			chess.PieceValueMidgame[pos.PieceOn(m.To()).Type()] == 0 {
		result += pawnEndgameExtension[pv]
		dangerous = true
	}

	return minInt(result, OnePly), dangerous
}

// canReturnTT applies the cutoff rule for transposition entries: deep
// enough or already decisive, and the bound must point the right way.
func canReturnTT(e *tt.Entry, depth, beta, ply int) bool {
	v := valueFromTT(e.Value(), ply)

	return (e.Depth() >= depth ||
		v >= maxInt(ValueMateInPlyMax, beta) ||
		v < minInt(ValueMatedInPlyMax, beta)) &&
		((e.Bound()&tt.BoundLower != 0 && v >= beta) ||
			(e.Bound()&tt.BoundUpper != 0 && v < beta))
}

// refineEval tightens the static eval with the stored bound when the
// entry points past it.
func refineEval(e *tt.Entry, defaultEval, ply int) int {
	v := valueFromTT(e.Value(), ply)

	if (e.Bound()&tt.BoundLower != 0 && v >= defaultEval) ||
		(e.Bound()&tt.BoundUpper != 0 && v < defaultEval) {
		return v
	}
	return defaultEval
}

// updateHistory credits the cutoff move and debits every other quiet
// move searched at this node.
func updateHistory(h *History, pos *chess.Position, move chess.Move, depth int, searched []chess.Move) {
	bonus := (depth / OnePly) * (depth / OnePly)
	h.Update(move.Piece(), move.To(), bonus)
	for _, m := range searched {
		if m == move {
			continue
		}
		h.Update(m.Piece(), m.To(), -bonus)
	}
}

// connectedMoves tests whether m1 somehow made m2 possible: same piece
// moved twice, m1 vacated m2's path or destination, m1's piece defends
// m2's target, or m1 opened a discovered attack line on the king.
func connectedMoves(pos *chess.Position, m1, m2 chess.Move) bool {
	f1, t1 := m1.From(), m1.To()
	f2, t2 := m2.From(), m2.To()

	// Case 1: the moving piece is the same in both moves.
	if f2 == t1 {
		return true
	}
	// Case 2: m1 vacated m2's destination square.
	if t2 == f1 {
		return true
	}
	// Case 3: m2 slides through the vacated square.
	p2 := pos.PieceOn(f2)
	if p2.IsSlider() && chess.SquaresBetween(f2, t2).Has(f1) {
		return true
	}
	// Case 4: m2's destination is defended by the piece m1 moved.
	p1 := pos.PieceOn(t1)
	if chess.AttacksFrom(p1, t1, pos.Occupied()).Has(t2) {
		return true
	}
	// Case 5: m2 unblocks a discovered check by m1's piece.
	ksq := pos.KingSquare(pos.SideToMove())
	if p1.IsSlider() && chess.SquaresBetween(t1, ksq).Has(f2) {
		occ := pos.Occupied() &^ f2.Bitboard()
		if chess.AttacksFrom(p1, t1, occ).Has(ksq) {
			return true
		}
	}
	return false
}

// connectedThreat reports whether pruning m is unsafe against the threat
// found by a failed null search: m moves the threatened piece, defends
// it, or safely blocks a threatening slider.
func connectedThreat(pos *chess.Position, m, threat chess.Move) bool {
	mfrom, mto := m.From(), m.To()
	tfrom, tto := threat.From(), threat.To()

	// Case 1: m moves the threatened piece out of danger.
	if mfrom == tto {
		return true
	}

	// Case 2: m defends a threatened piece that is worth defending.
	if threat.IsCapture() &&
		(chess.PieceValueMidgame[pos.PieceOn(tfrom).Type()] >= chess.PieceValueMidgame[pos.PieceOn(tto).Type()] ||
			pos.PieceOn(tfrom).Type() == chess.King) &&
		moveAttacksSquare(pos, m, tto) {
		return true
	}

	// Case 3: m safely interposes on a threatening slider's ray.
	if pos.PieceOn(tfrom).IsSlider() &&
		chess.SquaresBetween(tfrom, tto).Has(mto) &&
		pos.SeeSign(m) >= 0 {
		return true
	}
	return false
}

// moveAttacksSquare tests whether m, once played, attacks sq.
func moveAttacksSquare(pos *chess.Position, m chess.Move, sq chess.Square) bool {
	pc := m.Piece()
	if promo := m.Promotion(); promo != chess.NoPieceType {
		pc = chess.MakePiece(pc.Color(), promo)
	}
	occ := pos.Occupied()&^m.From().Bitboard() | m.To().Bitboard()
	return chess.AttacksFrom(pc, m.To(), occ).Has(sq)
}

// checkIsDangerous keeps quiet checks that trap the king, give queen
// contact check, or fork a piece worth at least beta. bestValue is only
// advanced when the check will be pruned.
func checkIsDangerous(pos *chess.Position, m chess.Move, futilityBase, beta int, bestValue *int) bool {
	from, to := m.From(), m.To()
	them := pos.SideToMove().Other()
	ksq := pos.KingSquare(them)
	kingAtt := chess.KingAttacks(ksq)
	pc := pos.PieceOn(from)

	occ := pos.Occupied() &^ from.Bitboard() &^ ksq.Bitboard()
	oldAtt := chess.AttacksFrom(pc, from, occ)
	newAtt := chess.AttacksFrom(pc, to, occ)

	// Rule 1: checks leaving the king at most one escape square.
	b := kingAtt &^ pos.PiecesByColor(them) &^ newAtt &^ to.Bitboard()
	if !b.MoreThanOne() {
		return true
	}

	// Rule 2: queen contact checks.
	if pc.Type() == chess.Queen && kingAtt.Has(to) {
		return true
	}

	// Rule 3: the check uncovers a new threat on a big piece.
	bv := *bestValue
	for b = pos.PiecesByColor(them) & newAtt &^ oldAtt &^ ksq.Bitboard(); b != 0; {
		victimSq := b.Pop()
		futilityValue := futilityBase + chess.PieceValueEndgame[pos.PieceOn(victimSq).Type()]

		if futilityValue >= beta &&
			pos.SeeSign(chess.MakeMove(from, victimSq, pc, pos.PieceOn(victimSq).Type(), chess.NoPieceType)) >= 0 {
			return true
		}
		if futilityValue > bv {
			bv = futilityValue
		}
	}
	*bestValue = bv
	return false
}
