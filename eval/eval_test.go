package eval

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

func TestStartPosIsNearBalanced(t *testing.T) {
	is := is.New(t)
	p, err := chess.PositionFromFEN(chess.StartFEN)
	is.NoErr(err)
	v, margin := Evaluate(p)
	is.Equal(margin, 0)
	is.True(v > -50 && v < 50)
}

// Symmetric positions must evaluate identically for both sides: the
// side-to-move flip plus tempo is the only asymmetry.
func TestSymmetry(t *testing.T) {
	is := is.New(t)
	white, err := chess.PositionFromFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	is.NoErr(err)
	black, err := chess.PositionFromFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1")
	is.NoErr(err)

	vw, _ := Evaluate(white)
	vb, _ := Evaluate(black)
	is.Equal(vw, vb)
}

func TestMaterialAdvantageShows(t *testing.T) {
	is := is.New(t)
	// White is a queen up.
	p, err := chess.PositionFromFEN("rnb1kbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	is.NoErr(err)
	v, _ := Evaluate(p)
	is.True(v > chess.PieceValueEndgame[chess.Queen]/2)

	// And from black's point of view it is negative.
	p, err = chess.PositionFromFEN("rnb1kbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1")
	is.NoErr(err)
	v, _ = Evaluate(p)
	is.True(v < -chess.PieceValueEndgame[chess.Queen]/2)
}

func TestCentralisedKnightBeatsRimKnight(t *testing.T) {
	is := is.New(t)
	central, err := chess.PositionFromFEN("4k3/8/8/4N3/8/8/8/4K3 w - - 0 1")
	is.NoErr(err)
	rim, err := chess.PositionFromFEN("4k3/8/8/8/8/8/8/N3K3 w - - 0 1")
	is.NoErr(err)

	vc, _ := Evaluate(central)
	vr, _ := Evaluate(rim)
	is.True(vc > vr)
}
