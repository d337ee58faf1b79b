package chess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Published reference counts; any mismatch is a move generator bug.
func TestPerftStartPos(t *testing.T) {
	p, err := PositionFromFEN(StartFEN)
	require.NoError(t, err)

	expected := []int64{20, 400, 8902, 197281}
	for d, want := range expected {
		assert.Equal(t, want, Perft(p, d+1), "startpos depth %d", d+1)
	}
}

func TestPerftStartPosDeep(t *testing.T) {
	if testing.Short() {
		t.Skip("deep perft in short mode")
	}
	p, err := PositionFromFEN(StartFEN)
	require.NoError(t, err)
	assert.Equal(t, int64(4865609), Perft(p, 5))
}

func TestPerftKiwipete(t *testing.T) {
	p, err := PositionFromFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	require.NoError(t, err)

	expected := []int64{48, 2039, 97862}
	for d, want := range expected {
		assert.Equal(t, want, Perft(p, d+1), "kiwipete depth %d", d+1)
	}
}

func TestPerftKiwipeteDepth4(t *testing.T) {
	if testing.Short() {
		t.Skip("deep perft in short mode")
	}
	p, err := PositionFromFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	require.NoError(t, err)
	assert.Equal(t, int64(4085603), Perft(p, 4))
}

// A quiet middlegame with long diagonals and both kings castled.
func TestPerftPosition6(t *testing.T) {
	p, err := PositionFromFEN("r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10")
	require.NoError(t, err)

	expected := []int64{46, 2079, 89890}
	for d, want := range expected {
		assert.Equal(t, want, Perft(p, d+1), "position6 depth %d", d+1)
	}
}

// En passant must be refused when it exposes the king along the rank.
func TestEnPassantPin(t *testing.T) {
	pinned, err := PositionFromFEN("8/8/8/8/k2Pp2Q/8/8/4K3 b - d3 0 1")
	require.NoError(t, err)
	assert.Equal(t, MoveNone, pinned.MoveFromUCI("e4d3"))
	assert.Equal(t, int64(857), Perft(pinned, 3))

	free, err := PositionFromFEN("8/8/8/8/k2Pp3/8/8/4K3 b - d3 0 1")
	require.NoError(t, err)
	assert.NotEqual(t, MoveNone, free.MoveFromUCI("e4d3"))
	assert.Equal(t, int64(265), Perft(free, 3))
}

// Position 4 exercises promotions, including under-promotions with check.
func TestPerftPosition4(t *testing.T) {
	p, err := PositionFromFEN("r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1")
	require.NoError(t, err)

	expected := []int64{6, 264, 9467, 422333}
	for d, want := range expected {
		assert.Equal(t, want, Perft(p, d+1), "position4 depth %d", d+1)
	}
}

// Position 5 caught a castling-rights bug in many engines.
func TestPerftPosition5(t *testing.T) {
	p, err := PositionFromFEN("rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8")
	require.NoError(t, err)

	expected := []int64{44, 1486, 62379, 2103487}
	for d, want := range expected {
		assert.Equal(t, want, Perft(p, d+1), "position5 depth %d", d+1)
	}
}

func TestDivideSumsToPerft(t *testing.T) {
	p, err := PositionFromFEN(StartFEN)
	require.NoError(t, err)
	counts := Divide(p, 3)
	var sum int64
	for _, n := range counts {
		sum += n
	}
	assert.Equal(t, Perft(p, 3), sum)
	assert.Len(t, counts, 20)
}
