package chess

import "fmt"

// Board is the mutable search view of a game: a current Position plus the
// undo stack and the key history needed for repetition detection. Each
// worker thread owns its own clone; clones share nothing.
type Board struct {
	stack []Position
	sp    int

	// historyKeys holds the zobrist keys of positions played before the
	// search root, most recent last. Repetition checks walk the stack
	// first, then this list.
	historyKeys []uint64

	chess960 bool
}

// NewBoard builds a board from a FEN record.
func NewBoard(fen string) (*Board, error) {
	p, err := PositionFromFEN(fen)
	if err != nil {
		return nil, err
	}
	b := &Board{stack: make([]Position, 1, 128)}
	b.stack[0] = *p
	return b, nil
}

// NewBoardStartPos returns a board at the standard initial position.
func NewBoardStartPos() *Board {
	b, err := NewBoard(StartFEN)
	if err != nil {
		panic(fmt.Sprintf("start position did not parse: %v", err))
	}
	return b
}

// Pos returns the current position. The pointer is invalidated by the next
// DoMove/UndoMove.
func (b *Board) Pos() *Position { return &b.stack[b.sp] }

func (b *Board) SetChess960(on bool) { b.chess960 = on }
func (b *Board) Chess960() bool      { return b.chess960 }

// Clone returns an independent copy for a helper thread: the full line
// from the search root to the current position plus the pre-root history,
// so repetition detection sees the same past the clone point.
func (b *Board) Clone() *Board {
	nb := &Board{
		stack:       make([]Position, b.sp+1, cap(b.stack)),
		sp:          b.sp,
		historyKeys: append([]uint64(nil), b.historyKeys...),
		chess960:    b.chess960,
	}
	copy(nb.stack, b.stack[:b.sp+1])
	return nb
}

func (b *Board) push(child Position) {
	b.sp++
	if b.sp == len(b.stack) {
		b.stack = append(b.stack, child)
	} else {
		b.stack[b.sp] = child
	}
}

// DoMove plays a pseudo-legal move. It reports false, leaving the board
// untouched, when the move is illegal.
func (b *Board) DoMove(m Move) bool {
	child := b.stack[b.sp]
	child.apply(m)
	if !child.legalAfter() {
		return false
	}
	b.push(child)
	return true
}

// UndoMove takes back the last move played through DoMove or DoNullMove.
func (b *Board) UndoMove() {
	if b.sp == 0 {
		panic("undo past the root")
	}
	b.sp--
}

// DoNullMove passes the turn. Never called in check.
func (b *Board) DoNullMove() {
	child := b.stack[b.sp]
	child.applyNull()
	b.push(child)
}

// PlayRootMove commits a move permanently: the old position drops into the
// key history and the stack is rebased. Used while applying "position ...
// moves" setup lines.
func (b *Board) PlayRootMove(m Move) error {
	pos := b.Pos()
	if !pos.IsPseudoLegal(m) || !b.DoMove(m) {
		return fmt.Errorf("illegal move %v in position %v", m, pos.FEN())
	}
	b.historyKeys = append(b.historyKeys, b.stack[b.sp-1].key)
	b.stack[0] = b.stack[b.sp]
	b.sp = 0
	// A capture or pawn move makes everything before it unrepeatable.
	if b.stack[0].rule50 == 0 {
		b.historyKeys = b.historyKeys[:0]
	}
	return nil
}

// IsDraw reports 50-move, repetition and insufficient-material draws at
// the current node. A single repetition inside the search stack counts,
// as does a single repetition of any pre-root position.
func (b *Board) IsDraw() bool {
	pos := &b.stack[b.sp]
	if pos.rule50 >= 100 && (!pos.InCheck() || len(pos.LegalMoves()) > 0) {
		return true
	}
	if pos.InsufficientMaterial() {
		return true
	}
	// Walk back through positions with the same pawn structure epoch:
	// a rule50 reset cuts off any earlier repetition.
	limit := b.sp - pos.rule50
	if limit < 0 {
		limit = 0
	}
	// The key hashes the side to move, so comparing every frame is safe
	// and stays correct when null moves break ply parity.
	for i := b.sp - 2; i >= limit; i-- {
		if b.stack[i].key == pos.key {
			return true
		}
	}
	if b.sp-pos.rule50 <= 0 {
		remaining := pos.rule50 - b.sp
		n := len(b.historyKeys)
		for i := 1; i <= remaining && i <= n; i++ {
			if b.historyKeys[n-i] == pos.key {
				return true
			}
		}
	}
	return false
}
