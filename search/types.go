package search

import (
	"time"

	"github.com/zugzwang-chess/zugzwang/chess"
)

// Values are integer scores in centipawn-like units. The bands near
// ±ValueMate encode mate distances in plies.
const (
	ValueDraw     = 0
	ValueMate     = 30000
	ValueInfinite = 30001
	ValueNone     = 30002
	ValueKnownWin = 15000

	PlyMax      = 100
	PlyMaxPlus2 = PlyMax + 2

	ValueMateInPlyMax  = ValueMate - PlyMax
	ValueMatedInPlyMax = -ValueMate + PlyMax
)

// Depth is counted in half-ply units so fractional extensions are
// representable.
const (
	OnePly = 2

	DepthZero       = 0
	DepthQSChecks   = 0
	DepthQSNoChecks = -OnePly
	DepthNone       = -120
)

func mateIn(ply int) int  { return ValueMate - ply }
func matedIn(ply int) int { return -ValueMate + ply }

// valueToTT rebases a mate score from "plies from the root" to "plies from
// this node" before it is stored; valueFromTT is the inverse. Distances
// stored this way stay valid when the entry is reached along a different
// path.
func valueToTT(v, ply int) int {
	if v >= ValueMateInPlyMax {
		return v + ply
	}
	if v <= ValueMatedInPlyMax {
		return v - ply
	}
	return v
}

func valueFromTT(v, ply int) int {
	if v >= ValueMateInPlyMax {
		return v - ply
	}
	if v <= ValueMatedInPlyMax {
		return v + ply
	}
	return v
}

// Limits carries the "go" command arguments that bound a search.
type Limits struct {
	Time      int // remaining clock for the side to move, ms
	Increment int
	MovesToGo int
	MaxDepth  int
	MaxNodes  int64
	MaxTime   int // movetime, ms
	Infinite  bool
	Ponder    bool
}

// UseTimeManagement reports whether the clock drives the stop decision.
func (l Limits) UseTimeManagement() bool {
	return l.MaxTime == 0 && l.MaxDepth == 0 && l.MaxNodes == 0 && !l.Infinite
}

// Frame is the per-ply scratch record of the search stack.
type Frame struct {
	Ply          int
	CurrentMove  chess.Move
	BestMove     chess.Move
	ExcludedMove chess.Move
	Killers      [2]chess.Move
	Eval         int
	EvalMargin   int
	SkipNullMove bool
	Reduction    int
	sp           *SplitPoint
}

type nodeType int

const (
	nodeRoot nodeType = iota
	nodePV
	nodeNonPV
)

const (
	// Search constants mirrored from the tuned original.
	razorDepth       = 4 * OnePly
	threatDepth      = 5 * OnePly
	iidMargin        = 256
	futilityMarginQS = 128
	easyMoveMargin   = 512
	probCutMargin    = 200
)

var iidDepth = [2]int{8 * OnePly, 5 * OnePly} // [pvNode]

var (
	checkExtension         = [2]int{OnePly / 2, OnePly}
	pawnEndgameExtension   = [2]int{OnePly, OnePly}
	pawnPushTo7thExtension = [2]int{OnePly / 2, OnePly / 2}
	passedPawnExtension    = [2]int{DepthZero, OnePly / 2}
	singularDepth          = [2]int{8 * OnePly, 6 * OnePly}
)

func razorMargin(d int) int { return 512 + 16*d }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func elapsedMS(since time.Time) int { return int(time.Since(since) / time.Millisecond) }
