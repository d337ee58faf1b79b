package search

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

// The transposition table round trip must be exact for every value class:
// normal scores unchanged, mate scores rebased by ply.
func TestValueTTRoundTrip(t *testing.T) {
	is := is.New(t)
	values := []int{
		0, 1, -1, 100, -250, ValueKnownWin - 1, -(ValueKnownWin - 1),
		mateIn(3), matedIn(3), mateIn(40), matedIn(40), ValueMate - 1, -ValueMate + 1,
	}
	for _, v := range values {
		for _, ply := range []int{0, 1, 5, 42, PlyMax - 1} {
			is.Equal(valueFromTT(valueToTT(v, ply), ply), v)
		}
	}
}

func TestMateValueBands(t *testing.T) {
	is := is.New(t)
	is.True(mateIn(1) > ValueMateInPlyMax)
	is.True(matedIn(1) < ValueMatedInPlyMax)
	is.True(mateIn(PlyMax) >= ValueMateInPlyMax)
	is.True(abs(mateIn(5)) <= ValueMate)
}

func TestReductionTables(t *testing.T) {
	is := is.New(t)
	// No reduction for the first move or at minimal depth.
	is.Equal(reduction(true, OnePly, 1), 0)
	// Later moves at higher depth get reduced, non-PV more than PV.
	is.True(reduction(false, 16*OnePly, 32) > 0)
	is.True(reduction(false, 16*OnePly, 32) >= reduction(true, 16*OnePly, 32))
	// Monotone in move count.
	is.True(reduction(false, 16*OnePly, 60) >= reduction(false, 16*OnePly, 10))
}

func TestFutilityTables(t *testing.T) {
	is := is.New(t)
	// Margins grow with depth and shrink with move count.
	is.True(futilityMargin(2*OnePly, 0) >= futilityMargin(OnePly, 0))
	is.True(futilityMargin(3*OnePly, 0) > futilityMargin(3*OnePly, 30))
	// Past the table the margin is effectively infinite.
	is.Equal(futilityMargin(7*OnePly, 0), 2*ValueInfinite)

	is.True(futilityMoveCountLimit(8*OnePly) > futilityMoveCountLimit(OnePly))
}

func TestLimitsUseTimeManagement(t *testing.T) {
	is := is.New(t)
	is.True(Limits{Time: 60000}.UseTimeManagement())
	is.True(!Limits{MaxDepth: 5}.UseTimeManagement())
	is.True(!Limits{MaxNodes: 1000}.UseTimeManagement())
	is.True(!Limits{MaxTime: 100}.UseTimeManagement())
	is.True(!Limits{Infinite: true}.UseTimeManagement())
}

func TestTimeManager(t *testing.T) {
	is := is.New(t)
	var tm TimeManager
	tm.Init(Limits{Time: 60000, Increment: 1000, MovesToGo: 20}, 10)
	is.True(tm.AvailableTime() > 0)
	is.True(tm.MaximumTime() >= tm.AvailableTime())

	base := tm.AvailableTime()
	tm.PVInstability(1, 0)
	extended := tm.AvailableTime()
	is.True(extended >= base)
	tm.PVInstability(4, 2)
	is.True(tm.AvailableTime() >= extended)

	// Calm iterations shrink the extension again.
	tm.PVInstability(0, 0)
	is.Equal(tm.AvailableTime(), base)
}

func TestHistory(t *testing.T) {
	is := is.New(t)
	h := &History{}
	pc := chess.MakePiece(chess.White, chess.Knight)
	sq := chess.Square(20)
	h.Update(pc, sq, 9)
	is.Equal(h.Value(pc, sq), 9)
	h.Update(pc, sq, -4)
	is.Equal(h.Value(pc, sq), 5)

	h.UpdateGain(pc, sq, 50)
	is.Equal(h.Gain(pc, sq), 50)
	h.UpdateGain(pc, sq, 10)
	is.Equal(h.Gain(pc, sq), 49) // decays toward the smaller observation

	h.Clear()
	is.Equal(h.Value(pc, sq), 0)
	is.Equal(h.Gain(pc, sq), 0)
}
