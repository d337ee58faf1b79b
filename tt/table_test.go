package tt

import (
	"os"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/zugzwang-chess/zugzwang/chess"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	os.Exit(m.Run())
}

func TestStoreProbe(t *testing.T) {
	is := is.New(t)
	tab := New(1)
	tab.NewSearch()

	key := uint64(0xDEADBEEFCAFEBABE)
	m := chess.MakeMove(chess.SqE1, chess.SqG1, chess.MakePiece(chess.White, chess.King), chess.NoPieceType, chess.NoPieceType)
	tab.Store(key, 123, BoundExact, 10, m, 55, 7)

	e, ok := tab.Probe(key)
	is.True(ok)
	is.Equal(e.Value(), 123)
	is.Equal(e.Bound(), BoundExact)
	is.Equal(e.Depth(), 10)
	is.Equal(e.Move(), m)
	is.Equal(e.StaticEval(), 55)
	is.Equal(e.StaticMargin(), 7)

	_, ok = tab.Probe(key ^ 0xFFFF0000FFFF0000)
	is.True(!ok)
}

func TestMoveNoneKeepsOldMove(t *testing.T) {
	is := is.New(t)
	tab := New(1)
	tab.NewSearch()

	key := uint64(0x1234567890ABCDEF)
	m := chess.MakeMove(chess.SqE1, chess.SqD1, chess.MakePiece(chess.White, chess.King), chess.NoPieceType, chess.NoPieceType)
	tab.Store(key, 10, BoundLower, 6, m, 0, 0)
	tab.Store(key, 20, BoundUpper, 8, chess.MoveNone, 0, 0)

	e, ok := tab.Probe(key)
	is.True(ok)
	is.Equal(e.Value(), 20)
	is.Equal(e.Move(), m)
}

func TestShallowSameGenerationDoesNotEvict(t *testing.T) {
	is := is.New(t)
	tab := New(1)
	tab.NewSearch()

	// Two keys that collide in a 1MB table but differ in the upper bits.
	k1 := uint64(0x0100000000000001)
	k2 := uint64(0x0200000000000001)

	tab.Store(k1, 1, BoundExact, 20, chess.MoveNone, 0, 0)
	tab.Store(k2, 2, BoundExact, 2, chess.MoveNone, 0, 0)

	e, ok := tab.Probe(k1)
	is.True(ok)
	is.Equal(e.Value(), 1)

	// A later generation may take the slot regardless of depth.
	tab.NewSearch()
	tab.Store(k2, 2, BoundExact, 2, chess.MoveNone, 0, 0)
	_, ok = tab.Probe(k2)
	is.True(ok)
}

func TestClear(t *testing.T) {
	is := is.New(t)
	tab := New(1)
	tab.NewSearch()
	key := uint64(0xABCDEF)
	tab.Store(key, 5, BoundExact, 4, chess.MoveNone, 0, 0)
	tab.Clear()
	tab.NewSearch()
	_, ok := tab.Probe(key)
	is.True(!ok)
}
