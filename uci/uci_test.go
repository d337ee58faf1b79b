package uci

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zugzwang-chess/zugzwang/config"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.Set("hash", 16)
	return cfg
}

func runScript(t *testing.T, script string) string {
	t.Helper()
	out := &lockedBuffer{}
	p := New(testConfig(), out)
	p.Run(strings.NewReader(script))
	return out.String()
}

func TestUCIHandshake(t *testing.T) {
	out := runScript(t, "uci\nquit\n")
	assert.Contains(t, out, "id name zugzwang")
	assert.Contains(t, out, "option name Hash type spin")
	assert.Contains(t, out, "option name MultiPV type spin")
	assert.Contains(t, out, "option name Skill Level type spin")
	assert.Contains(t, out, "uciok")
}

func TestIsReady(t *testing.T) {
	out := runScript(t, "isready\nquit\n")
	assert.Contains(t, out, "readyok")
}

func TestUnknownCommand(t *testing.T) {
	out := runScript(t, "flarp\nquit\n")
	assert.Contains(t, out, "Unknown command: flarp")
}

func TestUnknownOption(t *testing.T) {
	out := runScript(t, "setoption name Bogus value 1\nquit\n")
	assert.Contains(t, out, "No such option: Bogus")
}

func TestGoDepthEmitsBestmove(t *testing.T) {
	// The perft command syncs on search completion before quit races it.
	out := runScript(t, "position startpos\ngo depth 2\nperft 1\nquit\n")
	assert.Contains(t, out, "bestmove ")
	assert.Contains(t, out, "info depth 1")
}

func TestPositionWithMoves(t *testing.T) {
	out := runScript(t, "position startpos moves e2e4 e7e5\nd\nquit\n")
	assert.Contains(t, out, "fen: rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2")
}

func TestPositionFen(t *testing.T) {
	fen := "8/2p5/3p4/KP5r/1R3p1k/8/6P1/8 w - - 0 1"
	out := runScript(t, "position fen "+fen+"\nd\nquit\n")
	assert.Contains(t, out, "fen: "+fen)
}

func TestSearchMovesRestrictsRoot(t *testing.T) {
	out := runScript(t, "position startpos\ngo depth 3 searchmoves h2h3\nperft 1\nquit\n")
	require.Contains(t, out, "bestmove h2h3")
}

func TestPerftCommand(t *testing.T) {
	out := runScript(t, "position startpos\nperft 3\nquit\n")
	assert.Contains(t, out, "Nodes 8902")
}

func TestEOFActsAsQuit(t *testing.T) {
	// No explicit quit: the reader just ends.
	out := runScript(t, "isready\n")
	assert.Contains(t, out, "readyok")
}

func TestStopAfterGoInfinite(t *testing.T) {
	out := runScript(t, "position startpos\ngo infinite\nstop\nquit\n")
	assert.Equal(t, 1, strings.Count(out, "bestmove "), out)
}

func TestClearHashButton(t *testing.T) {
	// Button options come without a value and must not error.
	out := runScript(t, "setoption name Clear Hash\nquit\n")
	assert.NotContains(t, out, "No such option")
}
