// Package eval is the static evaluator: tapered material and piece-square
// scores from the side to move's point of view.
package eval

import (
	"github.com/zugzwang-chess/zugzwang/chess"
)

// Margin is the evaluator's uncertainty estimate, carried through the
// transposition table and the futility margins. The base evaluator is
// exact about what it measures, so it reports zero.
type Margin = int

const tempoBonus = 10

// phaseWeights drive the midgame/endgame blend.
var phaseWeights = [8]int{0, 0, 1, 1, 2, 4, 0, 0}

const maxPhase = 4*1 + 4*1 + 4*2 + 2*4 // all minors, rooks and queens on board

var pstMid = [7][64]int{
	chess.Pawn: {
		0, 0, 0, 0, 0, 0, 0, 0,
		-10, 0, 0, -8, -8, 0, 0, -10,
		-8, 0, 4, 2, 2, 4, 0, -8,
		-6, 2, 8, 16, 16, 8, 2, -6,
		-4, 4, 12, 20, 20, 12, 4, -4,
		0, 8, 16, 24, 24, 16, 8, 0,
		6, 12, 20, 28, 28, 20, 12, 6,
		0, 0, 0, 0, 0, 0, 0, 0,
	},
	chess.Knight: {
		-50, -36, -26, -20, -20, -26, -36, -50,
		-34, -18, -6, 2, 2, -6, -18, -34,
		-22, -4, 10, 16, 16, 10, -4, -22,
		-14, 4, 18, 26, 26, 18, 4, -14,
		-10, 8, 22, 30, 30, 22, 8, -10,
		-12, 6, 20, 28, 28, 20, 6, -12,
		-24, -8, 6, 14, 14, 6, -8, -24,
		-44, -28, -18, -12, -12, -18, -28, -44,
	},
	chess.Bishop: {
		-18, -12, -10, -8, -8, -10, -12, -18,
		-8, 4, 2, 0, 0, 2, 4, -8,
		-6, 2, 8, 6, 6, 8, 2, -6,
		-4, 0, 6, 12, 12, 6, 0, -4,
		-4, 0, 6, 12, 12, 6, 0, -4,
		-6, 2, 8, 6, 6, 8, 2, -6,
		-8, 4, 2, 0, 0, 2, 4, -8,
		-14, -8, -6, -4, -4, -6, -8, -14,
	},
	chess.Rook: {
		-4, -2, 2, 6, 6, 2, -2, -4,
		-4, -2, 2, 6, 6, 2, -2, -4,
		-4, -2, 2, 6, 6, 2, -2, -4,
		-4, -2, 2, 6, 6, 2, -2, -4,
		-4, -2, 2, 6, 6, 2, -2, -4,
		-4, -2, 2, 6, 6, 2, -2, -4,
		4, 6, 10, 14, 14, 10, 6, 4,
		-2, 0, 4, 8, 8, 4, 0, -2,
	},
	chess.Queen: {
		-12, -8, -6, -4, -4, -6, -8, -12,
		-8, -2, 0, 2, 2, 0, -2, -8,
		-6, 0, 4, 6, 6, 4, 0, -6,
		-4, 2, 6, 10, 10, 6, 2, -4,
		-4, 2, 6, 10, 10, 6, 2, -4,
		-6, 0, 4, 6, 6, 4, 0, -6,
		-8, -2, 0, 2, 2, 0, -2, -8,
		-12, -8, -6, -4, -4, -6, -8, -12,
	},
	chess.King: {
		24, 32, 16, 0, 0, 20, 34, 26,
		22, 24, 6, -8, -8, 6, 24, 22,
		-8, -12, -20, -30, -30, -20, -12, -8,
		-24, -30, -38, -46, -46, -38, -30, -24,
		-34, -42, -50, -58, -58, -50, -42, -34,
		-38, -46, -54, -62, -62, -54, -46, -38,
		-40, -48, -56, -64, -64, -56, -48, -40,
		-44, -52, -60, -66, -66, -60, -52, -44,
	},
}

var pstEnd = [7][64]int{
	chess.Pawn: {
		0, 0, 0, 0, 0, 0, 0, 0,
		-6, -4, -2, -2, -2, -2, -4, -6,
		-4, -2, 0, 0, 0, 0, -2, -4,
		0, 2, 4, 4, 4, 4, 2, 0,
		8, 10, 12, 12, 12, 12, 10, 8,
		20, 24, 28, 28, 28, 28, 24, 20,
		40, 46, 52, 52, 52, 52, 46, 40,
		0, 0, 0, 0, 0, 0, 0, 0,
	},
	chess.Knight: {
		-40, -28, -20, -16, -16, -20, -28, -40,
		-26, -14, -6, -2, -2, -6, -14, -26,
		-18, -6, 4, 8, 8, 4, -6, -18,
		-12, 0, 10, 16, 16, 10, 0, -12,
		-12, 0, 10, 16, 16, 10, 0, -12,
		-18, -6, 4, 8, 8, 4, -6, -18,
		-26, -14, -6, -2, -2, -6, -14, -26,
		-40, -28, -20, -16, -16, -20, -28, -40,
	},
	chess.Bishop: {
		-16, -10, -8, -6, -6, -8, -10, -16,
		-10, -2, 0, 2, 2, 0, -2, -10,
		-8, 0, 6, 8, 8, 6, 0, -8,
		-6, 2, 8, 12, 12, 8, 2, -6,
		-6, 2, 8, 12, 12, 8, 2, -6,
		-8, 0, 6, 8, 8, 6, 0, -8,
		-10, -2, 0, 2, 2, 0, -2, -10,
		-16, -10, -8, -6, -6, -8, -10, -16,
	},
	chess.Rook: {
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		2, 2, 2, 2, 2, 2, 2, 2,
		0, 0, 0, 0, 0, 0, 0, 0,
	},
	chess.Queen: {
		-12, -8, -6, -4, -4, -6, -8, -12,
		-8, -2, 0, 2, 2, 0, -2, -8,
		-6, 0, 6, 8, 8, 6, 0, -6,
		-4, 2, 8, 14, 14, 8, 2, -4,
		-4, 2, 8, 14, 14, 8, 2, -4,
		-6, 0, 6, 8, 8, 6, 0, -6,
		-8, -2, 0, 2, 2, 0, -2, -8,
		-12, -8, -6, -4, -4, -6, -8, -12,
	},
	chess.King: {
		-48, -30, -20, -14, -14, -20, -30, -48,
		-28, -12, -4, 2, 2, -4, -12, -28,
		-18, -2, 8, 14, 14, 8, -2, -18,
		-12, 4, 14, 22, 22, 14, 4, -12,
		-12, 4, 14, 22, 22, 14, 4, -12,
		-18, -2, 8, 14, 14, 8, -2, -18,
		-28, -12, -4, 2, 2, -4, -12, -28,
		-48, -30, -20, -14, -14, -20, -30, -48,
	},
}

// Evaluate scores the position for the side to move. The second return is
// the evaluation margin.
func Evaluate(p *chess.Position) (int, Margin) {
	var mid, end, phase int

	for c := chess.White; c <= chess.Black; c++ {
		sign := 1
		if c == chess.Black {
			sign = -1
		}
		for pt := chess.Pawn; pt <= chess.King; pt++ {
			for b := p.Pieces(c, pt); b != 0; {
				sq := b.Pop()
				psq := sq
				if c == chess.Black {
					psq = chess.MakeSquare(sq.File(), 7-sq.Rank())
				}
				mid += sign * (chess.PieceValueMidgame[pt] + pstMid[pt][psq])
				end += sign * (chess.PieceValueEndgame[pt] + pstEnd[pt][psq])
				phase += phaseWeights[pt]
			}
		}
	}

	if phase > maxPhase {
		phase = maxPhase
	}
	v := (mid*phase + end*(maxPhase-phase)) / maxPhase

	if p.SideToMove() == chess.Black {
		v = -v
	}
	return v + tempoBonus, 0
}
