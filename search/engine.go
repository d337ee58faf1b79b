package search

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/zugzwang-chess/zugzwang/book"
	"github.com/zugzwang-chess/zugzwang/chess"
	"github.com/zugzwang-chess/zugzwang/eval"
	"github.com/zugzwang-chess/zugzwang/tt"
)

// Engine bundles the process-wide search state: transposition table,
// history, worker pool, time manager and the option set. One engine
// serves one UCI session.
type Engine struct {
	TT      *tt.Table
	Hist    *History
	TimeMan TimeManager
	Book    *book.Book

	// Options, written between searches only.
	MultiPV           int
	SkillLevel        int
	Chess960          bool
	OwnBook           bool
	BestBookMove      bool
	UseSearchLog      bool
	SearchLogFilename string
	FakeSplit         bool
	MinSplitDepth     int

	Out io.Writer // UCI responses; never the logger

	limits      Limits
	rml         RootMoveList
	multiPVIdx  int
	uciMultiPV  int
	skillActive bool
	bestValues  [PlyMaxPlus2]int

	startTime         time.Time
	nodesBetweenPolls int
	nodes             atomic.Int64

	stopRequest       atomic.Bool
	quitRequest       atomic.Bool
	ponder            atomic.Bool
	stopOnPonderhit   atomic.Bool
	firstRootMove     atomic.Bool
	aspirationFailLow atomic.Bool

	workers []*worker
	poolMu  sync.Mutex

	waitCh   chan struct{}
	waitOnce *sync.Once
}

// NewEngine builds an engine with the given transposition table size in
// MB and thread count.
func NewEngine(hashMB, threads int) *Engine {
	e := &Engine{
		TT:            tt.New(hashMB),
		Hist:          &History{},
		MultiPV:       1,
		SkillLevel:    20,
		MinSplitDepth: defaultMinSplitDepth,
		Out:           os.Stdout,
	}
	e.SetThreads(threads)
	return e
}

// Stop aborts the current search; the best move found so far is still
// reported.
func (e *Engine) Stop() {
	e.ponder.Store(false)
	e.stopRequest.Store(true)
	e.signalWait()
}

// Quit aborts the search and marks the session as finished.
func (e *Engine) Quit() {
	e.quitRequest.Store(true)
	e.Stop()
}

// PonderHit flips a pondering search into a normal one; when the search
// already decided to stop, it stops now.
func (e *Engine) PonderHit() {
	e.ponder.Store(false)
	if e.stopOnPonderhit.Load() {
		e.stopRequest.Store(true)
	}
	e.signalWait()
}

func (e *Engine) signalWait() {
	if e.waitOnce != nil {
		e.waitOnce.Do(func() { close(e.waitCh) })
	}
}

// waitForStopOrPonderhit blocks until stop, quit or ponderhit arrives;
// the UCI contract forbids printing bestmove while still pondering.
func (e *Engine) waitForStopOrPonderhit() {
	if e.waitCh != nil {
		<-e.waitCh
	}
}

func (e *Engine) Nodes() int64 { return e.nodes.Load() }

func (e *Engine) searchAborted() bool { return e.stopRequest.Load() }

// Think runs a full search on b under the given limits and emits info
// lines and the final bestmove to e.Out. It returns false when a quit
// arrived while searching.
func (e *Engine) Think(b *chess.Board, limits Limits, searchMoves []chess.Move) bool {
	e.stopRequest.Store(false)
	e.quitRequest.Store(false)
	e.stopOnPonderhit.Store(false)
	e.aspirationFailLow.Store(false)
	e.ponder.Store(limits.Ponder)
	e.startTime = time.Now()
	e.limits = limits
	e.nodes.Store(0)
	e.waitCh = make(chan struct{})
	e.waitOnce = &sync.Once{}
	e.TimeMan.Init(limits, b.Pos().GamePly())

	switch {
	case limits.MaxNodes > 0:
		e.nodesBetweenPolls = int(minInt64(limits.MaxNodes, 30000))
	case limits.Time > 0 && limits.Time < 1000:
		e.nodesBetweenPolls = 1000
	case limits.Time > 0 && limits.Time < 5000:
		e.nodesBetweenPolls = 5000
	default:
		e.nodesBetweenPolls = 30000
	}

	if e.OwnBook && e.Book != nil && !limits.Infinite {
		if bm := e.Book.Probe(b.Pos(), e.BestBookMove); bm != chess.MoveNone {
			if limits.Ponder {
				e.waitForStopOrPonderhit()
			}
			fmt.Fprintf(e.Out, "bestmove %s\n", bm.UCI(e.Chess960))
			return !e.quitRequest.Load()
		}
	}

	e.uciMultiPV = e.MultiPV
	e.skillActive = e.SkillLevel < 20
	if e.skillActive && e.MultiPV < 4 {
		e.MultiPV = 4
	}
	defer func() { e.MultiPV = e.uciMultiPV }()

	var searchLog *os.File
	if e.UseSearchLog && e.SearchLogFilename != "" {
		f, err := os.OpenFile(e.SearchLogFilename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			log.Error().Err(err).Str("file", e.SearchLogFilename).Msg("cannot-open-search-log")
		} else {
			searchLog = f
			fmt.Fprintf(f, "\nSearching: %s\ninfinite: %v ponder: %v time: %d increment: %d moves to go: %d\n",
				b.Pos().FEN(), limits.Infinite, limits.Ponder, limits.Time, limits.Increment, limits.MovesToGo)
			defer f.Close()
		}
	}

	e.wakeWorkers()
	for _, w := range e.workers {
		w.maxPly = 0
	}

	g := errgroup.Group{}
	done := make(chan struct{})
	g.Go(func() error {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		var lastNodes int64
		for {
			select {
			case <-done:
				return nil
			case <-ticker.C:
				nodes := e.nodes.Load()
				log.Debug().Int64("nps", nodes-lastNodes).Msg("nodes-per-second")
				lastNodes = nodes
			}
		}
	})

	var bestMove, ponderMove chess.Move
	g.Go(func() error {
		bestMove, ponderMove = e.idLoop(b, searchMoves, searchLog)
		close(done)
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Err(err).Msg("search-group")
	}

	if searchLog != nil {
		t := elapsedMS(e.startTime)
		nps := int64(0)
		if t > 0 {
			nps = e.nodes.Load() * 1000 / int64(t)
		}
		fmt.Fprintf(searchLog, "Nodes: %d\nNodes/second: %d\nBest move: %s\n",
			e.nodes.Load(), nps, bestMove.UCI(e.Chess960))
	}

	lookups, hits, stores := e.TT.Stats()
	log.Debug().
		Uint64("ttable-lookups", lookups).
		Uint64("ttable-hits", hits).
		Uint64("ttable-stores", stores).
		Float64("time-elapsed-sec", time.Since(e.startTime).Seconds()).
		Msg("search-returning")

	e.sleepWorkers()

	if !e.stopRequest.Load() && (e.ponder.Load() || limits.Infinite) {
		e.waitForStopOrPonderhit()
	}

	if bestMove == chess.MoveNone {
		fmt.Fprintln(e.Out, "bestmove (none)")
	} else if ponderMove == chess.MoveNone {
		fmt.Fprintf(e.Out, "bestmove %s\n", bestMove.UCI(e.Chess960))
	} else {
		fmt.Fprintf(e.Out, "bestmove %s ponder %s\n", bestMove.UCI(e.Chess960), ponderMove.UCI(e.Chess960))
	}
	return !e.quitRequest.Load()
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// idLoop is the iterative deepening driver.
func (e *Engine) idLoop(b *chess.Board, searchMoves []chess.Move, searchLog io.Writer) (chess.Move, chess.Move) {
	w := e.workers[0]
	for i := range w.stack {
		w.stack[i] = Frame{}
	}
	// Hack to skip the gain update right below the root.
	w.stack[0].CurrentMove = chess.MoveNull

	e.TT.NewSearch()
	e.Hist.Clear()
	e.rml.Init(b, searchMoves)
	e.bestValues = [PlyMaxPlus2]int{}

	var bestMove, easyMove, ponderMove, skillBest, skillPonder chess.Move
	var bestMoveChanges [PlyMaxPlus2]int
	aspirationDelta := 0
	value := -ValueInfinite

	if len(e.rml.Moves) == 0 {
		score := ValueDraw
		if b.Pos().InCheck() {
			score = -ValueMate
		}
		fmt.Fprintf(e.Out, "info depth 0 seldepth 0%s\n", e.scoreToUCI(score, -ValueInfinite, ValueInfinite))
		return chess.MoveNone, chess.MoveNone
	}

	for depth := 1; !e.stopRequest.Load() && depth <= PlyMax &&
		(e.limits.MaxDepth == 0 || depth <= e.limits.MaxDepth); depth++ {

		for _, rm := range e.rml.Moves {
			rm.PrevScore = rm.Score
		}
		e.rml.BestMoveChanges = 0

		for e.multiPVIdx = 0; e.multiPVIdx < minInt(e.MultiPV, len(e.rml.Moves)); e.multiPVIdx++ {
			alpha, beta := -ValueInfinite, ValueInfinite
			prevScore := e.rml.Moves[e.multiPVIdx].PrevScore

			if depth >= 5 && abs(prevScore) < ValueKnownWin {
				delta1 := e.bestValues[depth-1] - e.bestValues[depth-2]
				delta2 := e.bestValues[depth-2] - e.bestValues[depth-3]
				aspirationDelta = clampInt(abs(delta1)+abs(delta2)/2, 16, 24)
				aspirationDelta = (aspirationDelta + 7) / 8 * 8
				alpha = maxInt(prevScore-aspirationDelta, -ValueInfinite)
				beta = minInt(prevScore+aspirationDelta, ValueInfinite)
			}

			for {
				value = w.search(nodeRoot, nil, b, 1, alpha, beta, depth*OnePly)

				// The stable sort keeps the -∞-scored tail in its previous
				// order while the fresh best rises to multiPVIdx.
				e.rml.SortRange(e.multiPVIdx, len(e.rml.Moves))
				if e.multiPVIdx > 0 && value > alpha && value < beta {
					e.rml.SortRange(0, e.multiPVIdx)
				}
				for i := 0; i <= e.multiPVIdx; i++ {
					e.rml.Moves[i].InsertPVInTT(b, e.TT)
				}
				if e.stopRequest.Load() {
					break
				}

				if (value > alpha && value < beta) || elapsedMS(e.startTime) > 2000 {
					e.emitPVLines(depth, alpha, beta)
				}

				if value >= beta {
					beta = minInt(beta+aspirationDelta, ValueInfinite)
					aspirationDelta += aspirationDelta / 2
				} else if value <= alpha {
					e.aspirationFailLow.Store(true)
					e.stopOnPonderhit.Store(false)
					alpha = maxInt(alpha-aspirationDelta, -ValueInfinite)
					aspirationDelta += aspirationDelta / 2
				} else {
					break
				}
				if abs(value) >= ValueKnownWin {
					break
				}
			}
		}

		bestMove = e.rml.Moves[0].PV[0]
		ponderMove = chess.MoveNone
		if len(e.rml.Moves[0].PV) > 1 {
			ponderMove = e.rml.Moves[0].PV[1]
		}
		e.bestValues[depth] = value
		bestMoveChanges[depth] = e.rml.BestMoveChanges

		if e.skillActive && depth == 1+e.SkillLevel {
			skillBest, skillPonder = e.doSkillLevel()
		}

		if searchLog != nil {
			fmt.Fprintln(searchLog, e.prettyPV(depth, value))
		}

		if depth == 1 && (len(e.rml.Moves) == 1 ||
			e.rml.Moves[0].Score > e.rml.Moves[1].Score+easyMoveMargin) {
			easyMove = bestMove
		} else if bestMove != easyMove {
			easyMove = chess.MoveNone
		}

		if !e.stopRequest.Load() && e.limits.UseTimeManagement() {
			t := elapsedMS(e.startTime)
			if depth >= 7 && easyMove == bestMove {
				nodes := e.nodes.Load()
				if len(e.rml.Moves) == 1 ||
					(e.rml.Moves[0].Nodes > nodes*85/100 && t > e.TimeMan.AvailableTime()/16) ||
					(e.rml.Moves[0].Nodes > nodes*98/100 && t > e.TimeMan.AvailableTime()/32) {
					e.stopRequest.Store(true)
				}
			}

			if depth > 4 && depth < 50 {
				e.TimeMan.PVInstability(bestMoveChanges[depth], bestMoveChanges[depth-1])
			}

			if t > e.TimeMan.AvailableTime()*62/100 {
				e.stopRequest.Store(true)
			}

			if e.stopRequest.Load() && e.ponder.Load() {
				e.stopRequest.Store(false)
				e.stopOnPonderhit.Store(true)
			}
		}
	}

	if e.skillActive {
		if skillBest == chess.MoveNone {
			skillBest, skillPonder = e.doSkillLevel()
		}
		bestMove, ponderMove = skillBest, skillPonder
	}

	return bestMove, ponderMove
}

// doSkillLevel picks a sub-optimal move from the MultiPV set with a
// weighted random rule: weaker skill weighs the gap to the best move more
// and adds more noise.
func (e *Engine) doSkillLevel() (best, ponder chess.Move) {
	size := minInt(e.MultiPV, len(e.rml.Moves))
	if size == 1 {
		best = e.rml.Moves[0].PV[0]
		if len(e.rml.Moves[0].PV) > 1 {
			ponder = e.rml.Moves[0].PV[1]
		}
		return best, ponder
	}

	maxScore := e.rml.Moves[0].Score
	variance := minInt(maxScore-e.rml.Moves[size-1].Score, chess.PawnValueMidgame)
	wk := 120 - 2*e.SkillLevel
	maxS := -ValueInfinite

	for i := 0; i < size; i++ {
		s := e.rml.Moves[i].Score

		// Don't allow crazy blunders even at very low skills.
		if i > 0 && e.rml.Moves[i-1].Score > s+easyMoveMargin {
			break
		}

		s += ((maxScore-s)*wk + variance*int(frand.Uint64n(uint64(wk)))) / 128
		if s > maxS {
			maxS = s
			best = e.rml.Moves[i].PV[0]
			ponder = chess.MoveNone
			if len(e.rml.Moves[i].PV) > 1 {
				ponder = e.rml.Moves[i].PV[1]
			}
		}
	}
	return best, ponder
}

// poll runs on the main worker every nodesBetweenPolls nodes and decides
// whether the search has to stop on time or node limits.
func (e *Engine) poll() {
	t := elapsedMS(e.startTime)

	if e.ponder.Load() {
		return
	}

	stillAtFirstMove := e.firstRootMove.Load() &&
		!e.aspirationFailLow.Load() &&
		t > e.TimeMan.AvailableTime()

	noMoreTime := t > e.TimeMan.MaximumTime() || stillAtFirstMove

	if (e.limits.UseTimeManagement() && noMoreTime) ||
		(e.limits.MaxTime > 0 && t >= e.limits.MaxTime) ||
		(e.limits.MaxNodes > 0 && e.nodes.Load() >= e.limits.MaxNodes) {
		e.stopRequest.Store(true)
	}
}

func (e *Engine) selDepth() int {
	sel := 0
	for _, w := range e.workers {
		if w.maxPly > sel {
			sel = w.maxPly
		}
	}
	return sel
}

// scoreToUCI renders " score cp <x>" or " score mate <y>" with an
// optional bound marker.
func (e *Engine) scoreToUCI(v, alpha, beta int) string {
	var sb strings.Builder
	if abs(v) < ValueMate-PlyMax*OnePly {
		fmt.Fprintf(&sb, " score cp %d", v*100/chess.PawnValueMidgame)
	} else if v > 0 {
		fmt.Fprintf(&sb, " score mate %d", (ValueMate-v+1)/2)
	} else {
		fmt.Fprintf(&sb, " score mate %d", (-ValueMate-v)/2)
	}
	if v >= beta {
		sb.WriteString(" lowerbound")
	} else if v <= alpha {
		sb.WriteString(" upperbound")
	}
	return sb.String()
}

func (e *Engine) speedToUCI() string {
	t := elapsedMS(e.startTime)
	nodes := e.nodes.Load()
	nps := int64(0)
	if t > 0 {
		nps = nodes * 1000 / int64(t)
	}
	return fmt.Sprintf(" nodes %d nps %d time %d", nodes, nps, t)
}

// emitPVLines prints one info line per MultiPV slot, marking stale slots
// with the previous iteration's depth and score.
func (e *Engine) emitPVLines(depth, alpha, beta int) {
	for i := 0; i < minInt(e.uciMultiPV, len(e.rml.Moves)); i++ {
		updated := i <= e.multiPVIdx
		if depth == 1 && !updated {
			continue
		}
		d := depth
		s := e.rml.Moves[i].Score
		if !updated {
			d = depth - 1
			s = e.rml.Moves[i].PrevScore
		}
		score := e.scoreToUCI(s, -ValueInfinite, ValueInfinite)
		if i == e.multiPVIdx {
			score = e.scoreToUCI(s, alpha, beta)
		}
		pv := strings.Join(lo.Map(e.rml.Moves[i].PV, func(m chess.Move, _ int) string {
			return m.UCI(e.Chess960)
		}), " ")
		fmt.Fprintf(e.Out, "info depth %d seldepth %d multipv %d%s%s pv %s\n",
			d, e.selDepth(), i+1, score, e.speedToUCI(), pv)
	}
}

// emitCurrmove reports long-search progress on the root move under
// examination.
func (e *Engine) emitCurrmove(depth int, m chess.Move, number int) {
	fmt.Fprintf(e.Out, "info depth %d currmove %s currmovenumber %d\n",
		depth, m.UCI(e.Chess960), number)
}

// prettyPV formats the human-readable log line for the search log file.
func (e *Engine) prettyPV(depth, value int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%2d  %8s  %8dms  %10d  ", depth, e.scoreString(value),
		elapsedMS(e.startTime), e.nodes.Load())
	for _, m := range e.rml.Moves[0].PV {
		sb.WriteString(m.UCI(e.Chess960))
		sb.WriteByte(' ')
	}
	return sb.String()
}

func (e *Engine) scoreString(v int) string {
	switch {
	case v >= ValueMateInPlyMax:
		return fmt.Sprintf("#%d", (ValueMate-v+1)/2)
	case v <= ValueMatedInPlyMax:
		return fmt.Sprintf("-#%d", (ValueMate+v)/2)
	default:
		return fmt.Sprintf("%+.2f", float64(v)/chess.PawnValueMidgame)
	}
}

// staticEval is the evaluator hook used by the searchers.
func staticEval(b *chess.Board) (int, int) {
	return eval.Evaluate(b.Pos())
}
