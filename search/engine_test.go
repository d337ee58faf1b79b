package search

import (
	"bytes"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zugzwang-chess/zugzwang/chess"
)

// syncBuffer guards concurrent writes from the search goroutine against
// reads in the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func newTestEngine(out *syncBuffer) *Engine {
	e := NewEngine(16, 1)
	e.Out = out
	return e
}

func bestMoveFrom(t *testing.T, output string) string {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, "bestmove ") {
			return strings.Fields(line)[1]
		}
	}
	t.Fatalf("no bestmove in output:\n%s", output)
	return ""
}

func TestDepthOneReturnsALegalOpeningMove(t *testing.T) {
	out := &syncBuffer{}
	e := newTestEngine(out)
	b := chess.NewBoardStartPos()

	require.True(t, e.Think(b, Limits{MaxDepth: 1}, nil))
	bm := bestMoveFrom(t, out.String())

	legal := map[string]bool{}
	for _, m := range b.Pos().LegalMoves() {
		legal[m.UCI(false)] = true
	}
	assert.True(t, legal[bm], "bestmove %s not legal from startpos", bm)
	assert.Len(t, legal, 20)
}

func TestDetectsBeingMated(t *testing.T) {
	out := &syncBuffer{}
	e := newTestEngine(out)
	// Black to move is forced into the corner and mated by Qf8.
	b, err := chess.NewBoard("6k1/8/6K1/8/8/8/5Q2/8 b - - 0 1")
	require.NoError(t, err)

	require.True(t, e.Think(b, Limits{MaxDepth: 8}, nil))
	output := out.String()
	bm := bestMoveFrom(t, output)

	assert.Equal(t, "g8h8", bm)
	assert.Contains(t, output, "score mate -1")
}

func TestCheckedKingMustMove(t *testing.T) {
	out := &syncBuffer{}
	e := newTestEngine(out)
	// Qf7 checks the king; f7 is guarded by Bc4 and e7 is covered, so Kd8
	// is the only escape.
	b, err := chess.NewBoard("r1b1kb1r/pppp1Qpp/2n2n2/4p3/2B1P3/8/PPPP1PPP/RNB1K1NR b KQkq - 0 4")
	require.NoError(t, err)

	require.True(t, e.Think(b, Limits{MaxDepth: 6}, nil))
	bm := bestMoveFrom(t, out.String())
	assert.Equal(t, "e8d8", bm)
}

func TestQuietOpeningScoreIsBalanced(t *testing.T) {
	out := &syncBuffer{}
	e := newTestEngine(out)
	b := chess.NewBoardStartPos()
	for _, uci := range []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6"} {
		require.NoError(t, b.PlayRootMove(b.Pos().MoveFromUCI(uci)))
	}

	require.True(t, e.Think(b, Limits{MaxDepth: 6}, nil))
	output := out.String()
	bm := bestMoveFrom(t, output)

	legal := map[string]bool{}
	for _, m := range b.Pos().LegalMoves() {
		legal[m.UCI(false)] = true
	}
	assert.True(t, legal[bm])

	// A quiet opening should not read as a decisive advantage.
	score := lastScoreCP(t, output)
	assert.Less(t, abs(score), 300)
}

func lastScoreCP(t *testing.T, output string) int {
	t.Helper()
	score := 0
	found := false
	for _, line := range strings.Split(output, "\n") {
		if i := strings.Index(line, "score cp "); i >= 0 {
			fields := strings.Fields(line[i+len("score cp "):])
			if len(fields) > 0 {
				if n, err := strconv.Atoi(fields[0]); err == nil {
					score = n
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatalf("no cp score in output:\n%s", output)
	}
	return score
}

func TestSingleThreadedDeterminism(t *testing.T) {
	run := func() (string, int64) {
		out := &syncBuffer{}
		e := newTestEngine(out)
		b, err := chess.NewBoard("r2qkbnr/ppp2ppp/2np4/4p3/2B1P1b1/2N2N2/PPPP1PPP/R1BQK2R w KQkq - 2 5")
		require.NoError(t, err)
		require.True(t, e.Think(b, Limits{MaxDepth: 6}, nil))
		return bestMoveFrom(t, out.String()), e.Nodes()
	}

	bm1, nodes1 := run()
	bm2, nodes2 := run()
	assert.Equal(t, bm1, bm2)
	assert.Equal(t, nodes1, nodes2)
}

func TestStopEmitsExactlyOneBestmove(t *testing.T) {
	out := &syncBuffer{}
	e := newTestEngine(out)
	b := chess.NewBoardStartPos()

	done := make(chan struct{})
	go func() {
		e.Think(b, Limits{Infinite: true}, nil)
		close(done)
	}()

	time.Sleep(200 * time.Millisecond)
	e.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("search did not stop")
	}

	output := out.String()
	assert.Equal(t, 1, strings.Count(output, "bestmove "), output)
}

func TestPonderHoldsBestmove(t *testing.T) {
	out := &syncBuffer{}
	e := newTestEngine(out)
	b := chess.NewBoardStartPos()

	done := make(chan struct{})
	go func() {
		e.Think(b, Limits{Ponder: true, MaxDepth: 4}, nil)
		close(done)
	}()

	// The shallow search finishes quickly but must hold the bestmove
	// until ponderhit or stop arrives.
	time.Sleep(400 * time.Millisecond)
	assert.NotContains(t, out.String(), "bestmove")

	e.PonderHit()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("search did not finish after ponderhit")
	}
	assert.Contains(t, out.String(), "bestmove")
}

func TestSearchMovesRestriction(t *testing.T) {
	out := &syncBuffer{}
	e := newTestEngine(out)
	b := chess.NewBoardStartPos()

	only := b.Pos().MoveFromUCI("a2a3")
	require.NotEqual(t, chess.MoveNone, only)
	require.True(t, e.Think(b, Limits{MaxDepth: 4}, []chess.Move{only}))
	assert.Equal(t, "a2a3", bestMoveFrom(t, out.String()))
}

func TestMateInOneIsFound(t *testing.T) {
	out := &syncBuffer{}
	e := newTestEngine(out)
	// Back rank: Ra8 is mate.
	b, err := chess.NewBoard("6k1/5ppp/8/8/8/8/8/R3K3 w - - 0 1")
	require.NoError(t, err)

	require.True(t, e.Think(b, Limits{MaxDepth: 4}, nil))
	output := out.String()
	assert.Equal(t, "a1a8", bestMoveFrom(t, output))
	assert.Contains(t, output, "score mate 1")
}

func TestStalemateReturnsNoMove(t *testing.T) {
	out := &syncBuffer{}
	e := newTestEngine(out)
	// Classic stalemate: black to move has no legal moves, not in check.
	b, err := chess.NewBoard("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	require.NoError(t, err)

	require.True(t, e.Think(b, Limits{MaxDepth: 3}, nil))
	output := out.String()
	assert.Contains(t, output, "bestmove (none)")
	assert.Contains(t, output, "score cp 0")
}

func TestMultiPVEmitsAllLines(t *testing.T) {
	out := &syncBuffer{}
	e := newTestEngine(out)
	e.MultiPV = 3
	b := chess.NewBoardStartPos()

	require.True(t, e.Think(b, Limits{MaxDepth: 4}, nil))
	output := out.String()
	assert.Contains(t, output, "multipv 1")
	assert.Contains(t, output, "multipv 2")
	assert.Contains(t, output, "multipv 3")
}

func TestSkillLevelStillReturnsLegalMove(t *testing.T) {
	out := &syncBuffer{}
	e := newTestEngine(out)
	e.SkillLevel = 5
	b := chess.NewBoardStartPos()

	require.True(t, e.Think(b, Limits{MaxDepth: 7}, nil))
	bm := bestMoveFrom(t, out.String())
	legal := map[string]bool{}
	for _, m := range b.Pos().LegalMoves() {
		legal[m.UCI(false)] = true
	}
	assert.True(t, legal[bm], "skill pick %s must stay legal", bm)
}

func TestParallelSearchAgreesOnObviousMove(t *testing.T) {
	if testing.Short() {
		t.Skip("multi-threaded search in short mode")
	}
	out := &syncBuffer{}
	e := NewEngine(16, 4)
	e.Out = out
	// Hanging queen: every sensible search takes it.
	b, err := chess.NewBoard("6k1/8/8/3qR3/8/8/8/6K1 w - - 0 1")
	require.NoError(t, err)

	require.True(t, e.Think(b, Limits{MaxDepth: 8}, nil))
	assert.Equal(t, "e5d5", bestMoveFrom(t, out.String()))
	e.SetThreads(1)
}

func TestNodeLimitStops(t *testing.T) {
	out := &syncBuffer{}
	e := newTestEngine(out)
	b := chess.NewBoardStartPos()

	require.True(t, e.Think(b, Limits{MaxNodes: 5000}, nil))
	// Polling granularity allows some overshoot, not runaway.
	assert.Less(t, e.Nodes(), int64(200000))
}
