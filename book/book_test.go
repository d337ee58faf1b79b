package book

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/zugzwang-chess/zugzwang/chess"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

func writeBook(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.txt")
	if err := os.WriteFile(path, []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProbeBestMove(t *testing.T) {
	is := is.New(t)
	pos, err := chess.PositionFromFEN(chess.StartFEN)
	is.NoErr(err)
	key := KeyFor(pos)

	path := writeBook(t, fmt.Sprintf(
		"# test book\n%016x e2e4 10\n%016x d2d4 90\n", key, key))
	b, err := Open(path)
	is.NoErr(err)

	m := b.Probe(pos, true)
	is.Equal(m.UCI(false), "d2d4")
}

func TestProbeWeightedPickStaysInBook(t *testing.T) {
	is := is.New(t)
	pos, err := chess.PositionFromFEN(chess.StartFEN)
	is.NoErr(err)
	key := KeyFor(pos)

	path := writeBook(t, fmt.Sprintf("%016x e2e4 1\n%016x d2d4 1\n", key, key))
	b, err := Open(path)
	is.NoErr(err)

	for i := 0; i < 32; i++ {
		m := b.Probe(pos, false)
		uci := m.UCI(false)
		is.True(uci == "e2e4" || uci == "d2d4")
	}
}

func TestProbeOutOfBook(t *testing.T) {
	is := is.New(t)
	pos, err := chess.PositionFromFEN("8/8/8/8/8/5k2/8/4K3 w - - 0 1")
	is.NoErr(err)

	path := writeBook(t, "")
	b, err := Open(path)
	is.NoErr(err)
	is.Equal(b.Probe(pos, true), chess.MoveNone)
}

func TestIllegalBookMoveIsRejected(t *testing.T) {
	is := is.New(t)
	pos, err := chess.PositionFromFEN(chess.StartFEN)
	is.NoErr(err)
	key := KeyFor(pos)

	path := writeBook(t, fmt.Sprintf("%016x e2e5 1\n", key))
	b, err := Open(path)
	is.NoErr(err)
	is.Equal(b.Probe(pos, true), chess.MoveNone)
}

func TestMalformedBook(t *testing.T) {
	is := is.New(t)
	path := writeBook(t, "zzzz e2e4\n")
	_, err := Open(path)
	is.True(err != nil)
}

func TestKeyIgnoresMoveCounters(t *testing.T) {
	is := is.New(t)
	p1, err := chess.PositionFromFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	is.NoErr(err)
	p2, err := chess.PositionFromFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 5 23")
	is.NoErr(err)
	is.Equal(KeyFor(p1), KeyFor(p2))
}
