package search

import "github.com/zugzwang-chess/zugzwang/chess"

const historyMax = 2000

// History records how often quiet moves, indexed by moving piece and
// destination square, caused or failed to cause cutoffs, plus a "gain"
// statistic: the largest static-eval swing each quiet move has produced.
// Workers share one instance and update it without locks; the bonus
// arithmetic tolerates lost updates.
type History struct {
	history [16][64]int
	gains   [16][64]int
}

func (h *History) Clear() {
	*h = History{}
}

func (h *History) Value(pc chess.Piece, to chess.Square) int {
	return h.history[pc][to]
}

// Update adds a cutoff bonus (or failure malus), saturating at
// historyMax so old statistics stay comparable with new ones.
func (h *History) Update(pc chess.Piece, to chess.Square, bonus int) {
	if abs(h.history[pc][to]+bonus) < historyMax {
		h.history[pc][to] += bonus
	}
}

func (h *History) Gain(pc chess.Piece, to chess.Square) int {
	return h.gains[pc][to]
}

// UpdateGain tracks the maximum eval gain seen for a quiet move, decaying
// by one when the latest observation is smaller.
func (h *History) UpdateGain(pc chess.Piece, to chess.Square, gain int) {
	h.gains[pc][to] = maxInt(gain, h.gains[pc][to]-1)
}
