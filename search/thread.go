package search

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/zugzwang-chess/zugzwang/chess"
)

const (
	// MaxThreads bounds the worker pool; slave bitmaps are 32 bits wide.
	MaxThreads               = 32
	maxActiveSplitPoints     = 8
	defaultMinSplitDepth     = 4 * OnePly
	maxSlavesPerSplitPoint   = 4
)

// SplitPoint is the shared record a master publishes when it parallelises
// the tail of a move loop. Slaves draw moves from the master's picker and
// fold results back, all under mu. slavesMask and betaCutoff are atomics
// so the hot cutoff/termination checks stay lock-free.
type SplitPoint struct {
	parent *SplitPoint
	master int

	// board is an immutable snapshot of the master's line at the split
	// node; every participant searches on its own clone of it.
	board      *chess.Board
	pvNode     bool
	rootNode   bool
	depth      int
	ply        int
	threatMove chess.Move

	mu        sync.Mutex
	mp        *MovePicker
	alpha     int
	beta      int
	bestValue int
	bestMove  chess.Move
	moveCount int
	nodes     int64

	// parentFrame and frame snapshot the master's stack around the split
	// ply so slaves can seed their own stacks.
	parentFrame Frame
	frame       Frame

	slavesMask atomic.Uint32
	betaCutoff atomic.Bool
}

func (sp *SplitPoint) cutoffOccurred() bool {
	for s := sp; s != nil; s = s.parent {
		if s.betaCutoff.Load() {
			return true
		}
	}
	return false
}

type worker struct {
	e  *Engine
	id int

	stack [PlyMaxPlus2 + 2]Frame

	splitPoints       [maxActiveSplitPoints]SplitPoint
	activeSplitPoints int

	mu          sync.Mutex
	cond        *sync.Cond
	assignedSP  *SplitPoint
	isSearching bool
	doSleep     bool
	terminate   bool

	// activeSP is the split point this worker is currently searching
	// under, for ancestor cutoff checks. Only the worker itself writes it.
	activeSP *SplitPoint

	maxPly         int
	nodesSincePoll int
}

func newWorker(e *Engine, id int) *worker {
	w := &worker{e: e, id: id, doSleep: true}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// cutoffOccurred reports whether any split point on this worker's chain
// has already failed high.
func (w *worker) cutoffOccurred() bool {
	return w.activeSP != nil && w.activeSP.cutoffOccurred()
}

// loop is a helper worker's idle loop: park on the condition variable
// until a master assigns a split point, search it, go back to sleep.
func (w *worker) loop() {
	for {
		w.mu.Lock()
		for !w.isSearching && !w.terminate {
			w.cond.Wait()
		}
		if w.terminate {
			w.mu.Unlock()
			return
		}
		sp := w.assignedSP
		w.mu.Unlock()

		if sp != nil {
			w.searchSplitPoint(sp)
		}

		w.mu.Lock()
		w.isSearching = false
		w.assignedSP = nil
		w.mu.Unlock()
	}
}

// searchSplitPoint re-enters the search at sp as a slave, on a private
// clone of the master's board.
func (w *worker) searchSplitPoint(sp *SplitPoint) {
	b := sp.board.Clone()

	prevSP := w.activeSP
	w.activeSP = sp
	ply := sp.ply
	w.stack[ply] = sp.parentFrame
	w.stack[ply+1] = sp.frame
	w.stack[ply+1].sp = sp

	nt := nodeNonPV
	if sp.rootNode {
		nt = nodeRoot
	} else if sp.pvNode {
		nt = nodePV
	}
	sp.mu.Lock()
	alpha, beta := sp.alpha, sp.beta
	sp.mu.Unlock()

	w.search(nt, sp, b, ply+1, alpha, beta, sp.depth)

	w.activeSP = prevSP

	sp.slavesMask.And(^(uint32(1) << w.id))

	// Wake the master in case we were the last slave it was waiting on.
	master := w.e.workers[sp.master]
	if master != w {
		master.mu.Lock()
		master.cond.Signal()
		master.mu.Unlock()
	}
}

// SetThreads resizes the worker pool. Thread 0 is the caller's own
// context and runs no goroutine.
func (e *Engine) SetThreads(n int) {
	n = clampInt(n, 1, MaxThreads)
	e.poolMu.Lock()
	defer e.poolMu.Unlock()
	if len(e.workers) == n {
		return
	}
	if len(e.workers) > 0 {
		for _, w := range e.workers[1:] {
			w.mu.Lock()
			w.terminate = true
			w.cond.Signal()
			w.mu.Unlock()
		}
	}
	e.workers = e.workers[:0]
	for i := 0; i < n; i++ {
		w := newWorker(e, i)
		e.workers = append(e.workers, w)
		if i > 0 {
			go w.loop()
		}
	}
	log.Debug().Int("threads", n).Msg("thread-pool-size")
}

func (e *Engine) wakeWorkers() {
	for _, w := range e.workers[1:] {
		w.mu.Lock()
		w.doSleep = false
		w.cond.Signal()
		w.mu.Unlock()
	}
}

func (e *Engine) sleepWorkers() {
	for _, w := range e.workers[1:] {
		w.mu.Lock()
		w.doSleep = true
		w.mu.Unlock()
	}
}

// availableSlaveExists reports whether some helper could join a split
// owned by master right now. Racy by nature; split re-checks under locks.
func (e *Engine) availableSlaveExists(master int) bool {
	for _, w := range e.workers {
		if w.id == master {
			continue
		}
		w.mu.Lock()
		ok := !w.isSearching && !w.doSleep && w.assignedSP == nil
		w.mu.Unlock()
		if ok {
			return true
		}
	}
	return false
}

// split parallelises the remainder of the current move loop. The master
// publishes a split point, recruits idle slaves, searches its own share,
// then sleeps until the slaves drain the shared picker. Returns the
// updated best value and best move. When no split point is free or no
// helper could be recruited, the values come back unchanged and the
// caller's picker is left untouched; otherwise it is exhausted afterwards.
func (e *Engine) split(w *worker, nt nodeType, b *chess.Board, ply int,
	alpha, beta, bestValue int, bestMove chess.Move, depth, moveCount int,
	threatMove chess.Move, mp *MovePicker) (int, chess.Move) {

	e.poolMu.Lock()
	if w.activeSplitPoints >= maxActiveSplitPoints {
		e.poolMu.Unlock()
		return bestValue, bestMove
	}

	sp := &w.splitPoints[w.activeSplitPoints]
	*sp = SplitPoint{
		parent:      w.activeSP,
		master:      w.id,
		board:       b.Clone(),
		pvNode:      nt == nodePV || nt == nodeRoot,
		rootNode:    nt == nodeRoot,
		depth:       depth,
		ply:         ply - 1,
		threatMove:  threatMove,
		mp:          mp,
		alpha:       alpha,
		beta:        beta,
		bestValue:   bestValue,
		bestMove:    bestMove,
		moveCount:   moveCount,
		parentFrame: w.stack[ply-1],
		frame:       w.stack[ply],
	}
	sp.frame.sp = nil
	sp.slavesMask.Store(1 << w.id)

	recruited := 0
	if !e.FakeSplit {
		for _, s := range e.workers {
			if s.id == w.id || recruited >= maxSlavesPerSplitPoint {
				continue
			}
			s.mu.Lock()
			if !s.isSearching && !s.doSleep && s.assignedSP == nil && !s.terminate {
				sp.slavesMask.Or(1 << s.id)
				s.assignedSP = sp
				s.isSearching = true
				s.cond.Signal()
				recruited++
			}
			s.mu.Unlock()
		}
	}
	w.activeSplitPoints++
	e.poolMu.Unlock()

	if recruited == 0 && !e.FakeSplit {
		// Nobody was free after all; abandon the split.
		e.poolMu.Lock()
		w.activeSplitPoints--
		e.poolMu.Unlock()
		return bestValue, bestMove
	}

	// The master works its own split point too.
	w.searchSplitPoint(sp)

	// Wait for the slaves to clear their bits.
	w.mu.Lock()
	for sp.slavesMask.Load() != 0 {
		w.cond.Wait()
	}
	w.mu.Unlock()

	e.poolMu.Lock()
	w.activeSplitPoints--
	e.poolMu.Unlock()

	sp.mu.Lock()
	bestValue = sp.bestValue
	bestMove = sp.bestMove
	sp.mu.Unlock()
	return bestValue, bestMove
}
