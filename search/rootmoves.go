package search

import (
	"sort"

	"github.com/zugzwang-chess/zugzwang/chess"
	"github.com/zugzwang-chess/zugzwang/eval"
	"github.com/zugzwang-chess/zugzwang/tt"
)

// RootMove is one candidate at the root: its running score, the score of
// the previous completed iteration, the nodes spent below it, and its PV.
type RootMove struct {
	PV        []chess.Move
	Score     int
	PrevScore int
	Nodes     int64
}

// RootMoveList is the ordered root candidate set. BestMoveChanges counts
// how often a new best move surfaced during the current iteration; the
// time manager extends the budget on instability.
type RootMoveList struct {
	Moves           []*RootMove
	BestMoveChanges int
}

// Init fills the list with the legal root moves, keeping only those in
// searchMoves when the list is non-empty.
func (rml *RootMoveList) Init(b *chess.Board, searchMoves []chess.Move) {
	rml.Moves = rml.Moves[:0]
	rml.BestMoveChanges = 0
	for _, m := range b.Pos().LegalMoves() {
		if len(searchMoves) > 0 {
			found := false
			for _, sm := range searchMoves {
				if sm == m {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		rml.Moves = append(rml.Moves, &RootMove{
			PV:        []chess.Move{m},
			Score:     -ValueInfinite,
			PrevScore: -ValueInfinite,
		})
	}
}

// Find locates the root move whose first PV move is m, searching from
// startIndex on. Nil when absent.
func (rml *RootMoveList) Find(m chess.Move, startIndex int) *RootMove {
	for i := startIndex; i < len(rml.Moves); i++ {
		if rml.Moves[i].PV[0] == m {
			return rml.Moves[i]
		}
	}
	return nil
}

// SortRange stable-sorts [from, to) descending by score. Stability is
// load-bearing: all moves except the fresh best carry -ValueInfinite and
// must keep their relative order while the new best rises to the front.
func (rml *RootMoveList) SortRange(from, to int) {
	s := rml.Moves[from:to]
	sort.SliceStable(s, func(i, j int) bool { return s[i].Score > s[j].Score })
}

// ExtractPVFromTT rebuilds the root move's PV by walking transposition
// table moves from its first move, stopping on the first cycle, illegal
// hint or table miss.
func (rm *RootMove) ExtractPVFromTT(b *chess.Board, table *tt.Table) {
	m := rm.PV[0]
	rm.PV = rm.PV[:0]
	rm.PV = append(rm.PV, m)
	if !b.DoMove(m) {
		panic("root pv move is illegal")
	}
	played := 1

	for ply := 1; ply < PlyMax; ply++ {
		entry, ok := table.Probe(b.Pos().Key())
		if !ok {
			break
		}
		next := entry.Move()
		if next == chess.MoveNone || !b.Pos().IsPseudoLegal(next) || !b.Pos().IsLegal(next) {
			break
		}
		if b.IsDraw() && ply >= 2 {
			break
		}
		rm.PV = append(rm.PV, next)
		b.DoMove(next)
		played++
	}
	for ; played > 0; played-- {
		b.UndoMove()
	}
}

// InsertPVInTT re-seeds the transposition table with the PV so its moves
// are searched first next iteration even after their entries were
// overwritten.
func (rm *RootMove) InsertPVInTT(b *chess.Board, table *tt.Table) {
	played := 0
	for _, m := range rm.PV {
		entry, ok := table.Probe(b.Pos().Key())
		if !ok || entry.Move() != m {
			v, margin := ValueNone, 0
			if !b.Pos().InCheck() {
				v, margin = eval.Evaluate(b.Pos())
			}
			table.Store(b.Pos().Key(), ValueNone, tt.BoundNone, DepthNone, m, v, margin)
		}
		if !b.DoMove(m) {
			break
		}
		played++
	}
	for ; played > 0; played-- {
		b.UndoMove()
	}
}
