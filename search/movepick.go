package search

import "github.com/zugzwang-chess/zugzwang/chess"

// MovePicker hands out pseudo-legal moves one at a time, best candidate
// first, generating each stage only when the previous one runs dry:
// TT move, winning captures, killers, history-ordered quiets, losing
// captures. In check it serves evasions; quiescence and ProbCut use
// restricted stages. At split points the master's picker is shared and
// callers serialise NextMove with the split-point lock.
type MovePicker struct {
	pos  *chess.Position
	hist *History

	ttMove  chess.Move
	killers [2]chess.Move
	depth   int

	// ProbCut: only captures with SEE above this value are returned.
	captureThreshold int
	probCut          bool
	qs               bool
	qsChecks         bool

	stage       int
	moves       []chess.Move
	scores      []int
	idx         int
	badCaptures []chess.Move

	buf [chess.MaxMoves]chess.Move
}

const (
	stageTT = iota
	stageGenCaptures
	stageGoodCaptures
	stageKillers
	stageGenQuiets
	stageQuiets
	stageBadCaptures
	stageGenEvasions
	stageEvasions
	stageGenQSChecks
	stageQSChecks
	stageDone
)

// NewMovePicker builds the main-search picker.
func NewMovePicker(pos *chess.Position, ttMove chess.Move, depth int, hist *History, killers [2]chess.Move) *MovePicker {
	mp := &MovePicker{pos: pos, hist: hist, depth: depth, killers: killers}
	mp.initTT(ttMove)
	return mp
}

// NewQSPicker builds the quiescence picker: captures and queen promotions,
// plus quiet checks at the checks depth, evasions when in check.
func NewQSPicker(pos *chess.Position, ttMove chess.Move, depth int, hist *History) *MovePicker {
	mp := &MovePicker{pos: pos, hist: hist, depth: depth, qs: true,
		qsChecks: !pos.InCheck() && depth >= DepthQSChecks}
	if ttMove != chess.MoveNone && !pos.IsPseudoLegal(ttMove) {
		ttMove = chess.MoveNone
	}
	if !pos.InCheck() && ttMove != chess.MoveNone &&
		!ttMove.IsCaptureOrPromo() && (!mp.qsChecks || !pos.GivesCheck(ttMove)) {
		ttMove = chess.MoveNone
	}
	mp.initTT(ttMove)
	return mp
}

// NewProbCutPicker returns captures whose static exchange wins more than
// the given threshold.
func NewProbCutPicker(pos *chess.Position, ttMove chess.Move, hist *History, threshold int) *MovePicker {
	mp := &MovePicker{pos: pos, hist: hist, probCut: true, captureThreshold: threshold}
	if ttMove != chess.MoveNone && (!ttMove.IsCapture() || pos.See(ttMove) <= threshold) {
		ttMove = chess.MoveNone
	}
	mp.initTT(ttMove)
	return mp
}

func (mp *MovePicker) initTT(ttMove chess.Move) {
	if ttMove != chess.MoveNone && mp.pos.IsPseudoLegal(ttMove) {
		mp.ttMove = ttMove
	}
	mp.stage = stageTT
}

// NextMove returns MoveNone when the picker is exhausted.
func (mp *MovePicker) NextMove() chess.Move {
	for {
		switch mp.stage {
		case stageTT:
			if mp.pos.InCheck() {
				mp.stage = stageGenEvasions
			} else {
				mp.stage = stageGenCaptures
			}
			if mp.ttMove != chess.MoveNone {
				return mp.ttMove
			}

		case stageGenCaptures:
			mp.moves = mp.pos.GenerateCaptures(mp.buf[:0])
			mp.scoreCaptures()
			mp.idx = 0
			mp.stage = stageGoodCaptures

		case stageGoodCaptures:
			for m := mp.pickBest(); m != chess.MoveNone; m = mp.pickBest() {
				if m == mp.ttMove {
					continue
				}
				if mp.qs && m.Promotion() != chess.NoPieceType && m.Promotion() != chess.Queen {
					continue
				}
				if mp.probCut {
					if mp.pos.See(m) > mp.captureThreshold {
						return m
					}
					continue
				}
				if !mp.qs && mp.pos.SeeSign(m) < 0 {
					mp.badCaptures = append(mp.badCaptures, m)
					continue
				}
				return m
			}
			switch {
			case mp.probCut:
				mp.stage = stageDone
			case mp.qs && mp.qsChecks:
				mp.stage = stageGenQSChecks
			case mp.qs:
				mp.stage = stageDone
			default:
				mp.stage = stageKillers
				mp.idx = 0
			}

		case stageKillers:
			for mp.idx < 2 {
				k := mp.killers[mp.idx]
				mp.idx++
				if k != chess.MoveNone && k != mp.ttMove &&
					!k.IsCaptureOrPromo() && mp.pos.IsPseudoLegal(k) {
					return k
				}
			}
			mp.stage = stageGenQuiets

		case stageGenQuiets:
			mp.moves = mp.pos.GenerateQuiets(mp.buf[:0])
			mp.scoreQuiets()
			mp.idx = 0
			mp.stage = stageQuiets

		case stageQuiets:
			for m := mp.pickBest(); m != chess.MoveNone; m = mp.pickBest() {
				if m == mp.ttMove || m == mp.killers[0] || m == mp.killers[1] {
					continue
				}
				return m
			}
			mp.moves = mp.badCaptures
			mp.scores = nil
			mp.idx = 0
			mp.stage = stageBadCaptures

		case stageBadCaptures:
			if mp.idx < len(mp.moves) {
				m := mp.moves[mp.idx]
				mp.idx++
				return m
			}
			mp.stage = stageDone

		case stageGenEvasions:
			mp.moves = mp.pos.GenerateEvasions(mp.buf[:0])
			mp.scoreEvasions()
			mp.idx = 0
			mp.stage = stageEvasions

		case stageEvasions:
			for m := mp.pickBest(); m != chess.MoveNone; m = mp.pickBest() {
				if m == mp.ttMove {
					continue
				}
				return m
			}
			mp.stage = stageDone

		case stageGenQSChecks:
			n := len(mp.moves)
			quiets := mp.pos.GenerateQuiets(mp.buf[n:n])
			checks := quiets[:0]
			for _, m := range quiets {
				if mp.pos.GivesCheck(m) {
					checks = append(checks, m)
				}
			}
			mp.moves = checks
			mp.scores = nil
			mp.idx = 0
			mp.stage = stageQSChecks

		case stageQSChecks:
			for mp.idx < len(mp.moves) {
				m := mp.moves[mp.idx]
				mp.idx++
				if m != mp.ttMove {
					return m
				}
			}
			mp.stage = stageDone

		default:
			return chess.MoveNone
		}
	}
}

// pickBest selection-scans the remaining moves for the highest score.
func (mp *MovePicker) pickBest() chess.Move {
	if mp.idx >= len(mp.moves) {
		return chess.MoveNone
	}
	if mp.scores != nil {
		best := mp.idx
		for i := mp.idx + 1; i < len(mp.moves); i++ {
			if mp.scores[i] > mp.scores[best] {
				best = i
			}
		}
		mp.moves[mp.idx], mp.moves[best] = mp.moves[best], mp.moves[mp.idx]
		mp.scores[mp.idx], mp.scores[best] = mp.scores[best], mp.scores[mp.idx]
	}
	m := mp.moves[mp.idx]
	mp.idx++
	return m
}

func (mp *MovePicker) scoreCaptures() {
	mp.scores = make([]int, len(mp.moves))
	for i, m := range mp.moves {
		// MVV/LVA with a nudge for promotions.
		mp.scores[i] = chess.PieceValueMidgame[m.Captured()] -
			int(m.Piece().Type()) +
			8*chess.PieceValueMidgame[m.Promotion()]
	}
}

func (mp *MovePicker) scoreQuiets() {
	mp.scores = make([]int, len(mp.moves))
	for i, m := range mp.moves {
		mp.scores[i] = mp.hist.Value(m.Piece(), m.To())
	}
}

func (mp *MovePicker) scoreEvasions() {
	mp.scores = make([]int, len(mp.moves))
	for i, m := range mp.moves {
		if m.IsCapture() {
			mp.scores[i] = chess.PieceValueMidgame[m.Captured()] -
				int(m.Piece().Type()) + 100000
		} else if mp.hist != nil {
			mp.scores[i] = mp.hist.Value(m.Piece(), m.To())
		}
	}
}
