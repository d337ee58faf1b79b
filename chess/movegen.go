package chess

// MaxMoves bounds the number of pseudo-legal moves in any position.
const MaxMoves = 256

// GenerateCaptures appends every pseudo-legal capture and promotion,
// including en passant and under-promotions. Together with GenerateQuiets
// it produces each pseudo-legal move exactly once.
func (p *Position) GenerateCaptures(ml []Move) []Move {
	us := p.side
	them := us.Other()
	occ := p.Occupied()
	enemies := p.byColor[them]
	push := pawnPush(us)
	lastRank := Rank8BB
	if us == Black {
		lastRank = Rank1BB
	}

	for b := p.Pieces(us, Pawn); b != 0; {
		from := b.Pop()
		pc := p.board[from]
		for att := pawnAttacksBB[us][from] & enemies; att != 0; {
			to := att.Pop()
			captured := p.board[to].Type()
			if lastRank.Has(to) {
				for promo := Queen; promo >= Knight; promo-- {
					ml = append(ml, MakeMove(from, to, pc, captured, promo))
				}
			} else {
				ml = append(ml, MakeMove(from, to, pc, captured, NoPieceType))
			}
		}
		if to := from + push; !occ.Has(to) && lastRank.Has(to) {
			for promo := Queen; promo >= Knight; promo-- {
				ml = append(ml, MakeMove(from, to, pc, NoPieceType, promo))
			}
		}
		if p.ep != SquareNone && pawnAttacksBB[us][from].Has(p.ep) {
			ml = append(ml, makeEnPassant(from, p.ep, pc))
		}
	}

	for pt := Knight; pt <= King; pt++ {
		for b := p.Pieces(us, pt); b != 0; {
			from := b.Pop()
			pc := p.board[from]
			for att := AttacksFrom(pc, from, occ) & enemies; att != 0; {
				to := att.Pop()
				ml = append(ml, MakeMove(from, to, pc, p.board[to].Type(), NoPieceType))
			}
		}
	}
	return ml
}

// GenerateQuiets appends every pseudo-legal non-capture, non-promotion
// move, castling included.
func (p *Position) GenerateQuiets(ml []Move) []Move {
	us := p.side
	occ := p.Occupied()
	push := pawnPush(us)
	lastRank := Rank8BB
	doubleRank := 1
	if us == Black {
		lastRank = Rank1BB
		doubleRank = 6
	}

	for b := p.Pieces(us, Pawn); b != 0; {
		from := b.Pop()
		pc := p.board[from]
		to := from + push
		if occ.Has(to) || lastRank.Has(to) {
			continue
		}
		ml = append(ml, MakeMove(from, to, pc, NoPieceType, NoPieceType))
		if from.Rank() == doubleRank {
			if to2 := to + push; !occ.Has(to2) {
				ml = append(ml, MakeMove(from, to2, pc, NoPieceType, NoPieceType))
			}
		}
	}

	for pt := Knight; pt <= King; pt++ {
		for b := p.Pieces(us, pt); b != 0; {
			from := b.Pop()
			pc := p.board[from]
			for att := AttacksFrom(pc, from, occ) &^ occ; att != 0; {
				to := att.Pop()
				ml = append(ml, MakeMove(from, to, pc, NoPieceType, NoPieceType))
			}
		}
	}

	return p.generateCastles(ml)
}

func (p *Position) generateCastles(ml []Move) []Move {
	us := p.side
	if p.InCheck() {
		return ml
	}
	them := us.Other()
	occ := p.Occupied()
	base := Square(0)
	ooRight, oooRight := WhiteOO, WhiteOOO
	if us == Black {
		base = 56
		ooRight, oooRight = BlackOO, BlackOOO
	}
	kingFrom := base + 4
	pc := p.board[kingFrom]

	if p.castle&ooRight != 0 &&
		occ&(SquaresBetween(kingFrom, base+7)) == 0 &&
		!p.isAttackedBy(base+5, them, occ) &&
		!p.isAttackedBy(base+6, them, occ) {
		ml = append(ml, makeCastle(kingFrom, base+6, pc))
	}
	if p.castle&oooRight != 0 &&
		occ&(SquaresBetween(kingFrom, base)) == 0 &&
		!p.isAttackedBy(base+3, them, occ) &&
		!p.isAttackedBy(base+2, them, occ) {
		ml = append(ml, makeCastle(kingFrom, base+2, pc))
	}
	return ml
}

// GenerateEvasions appends pseudo-legal replies to a check: king moves,
// and against a single checker also captures of it and interpositions.
// Pins are left to the legality gate.
func (p *Position) GenerateEvasions(ml []Move) []Move {
	us := p.side
	them := us.Other()
	occ := p.Occupied()
	ksq := p.KingSquare(us)
	kingPc := p.board[ksq]

	for att := kingAttacks[ksq] &^ p.byColor[us]; att != 0; {
		to := att.Pop()
		ml = append(ml, MakeMove(ksq, to, kingPc, p.board[to].Type(), NoPieceType))
	}
	if p.checkers.MoreThanOne() {
		return ml
	}

	checkSq := p.checkers.LSB()
	target := SquaresBetween(ksq, checkSq) | checkSq.Bitboard()
	push := pawnPush(us)
	lastRank := Rank8BB
	doubleRank := 1
	if us == Black {
		lastRank = Rank1BB
		doubleRank = 6
	}

	for b := p.Pieces(us, Pawn); b != 0; {
		from := b.Pop()
		pc := p.board[from]
		for att := pawnAttacksBB[us][from] & target & p.byColor[them]; att != 0; {
			to := att.Pop()
			captured := p.board[to].Type()
			if lastRank.Has(to) {
				for promo := Queen; promo >= Knight; promo-- {
					ml = append(ml, MakeMove(from, to, pc, captured, promo))
				}
			} else {
				ml = append(ml, MakeMove(from, to, pc, captured, NoPieceType))
			}
		}
		if to := from + push; !occ.Has(to) {
			if target.Has(to) {
				if lastRank.Has(to) {
					for promo := Queen; promo >= Knight; promo-- {
						ml = append(ml, MakeMove(from, to, pc, NoPieceType, promo))
					}
				} else {
					ml = append(ml, MakeMove(from, to, pc, NoPieceType, NoPieceType))
				}
			}
			if to2 := to + push; from.Rank() == doubleRank && !occ.Has(to2) && target.Has(to2) {
				ml = append(ml, MakeMove(from, to2, pc, NoPieceType, NoPieceType))
			}
		}
		// The checking pawn may be capturable en passant, and in rare
		// slider checks the en passant square itself interposes.
		if p.ep != SquareNone && (checkSq == p.ep-push || target.Has(p.ep)) &&
			pawnAttacksBB[us][from].Has(p.ep) {
			ml = append(ml, makeEnPassant(from, p.ep, pc))
		}
	}

	for pt := Knight; pt <= Queen; pt++ {
		for b := p.Pieces(us, pt); b != 0; {
			from := b.Pop()
			pc := p.board[from]
			for att := AttacksFrom(pc, from, occ) & target; att != 0; {
				to := att.Pop()
				ml = append(ml, MakeMove(from, to, pc, p.board[to].Type(), NoPieceType))
			}
		}
	}
	return ml
}

// GenerateAll appends every pseudo-legal move for the side to move.
func (p *Position) GenerateAll(ml []Move) []Move {
	if p.InCheck() {
		return p.GenerateEvasions(ml)
	}
	ml = p.GenerateCaptures(ml)
	return p.GenerateQuiets(ml)
}

// LegalMoves returns the fully legal moves.
func (p *Position) LegalMoves() []Move {
	var buf [MaxMoves]Move
	var out []Move
	for _, m := range p.GenerateAll(buf[:0]) {
		if p.IsLegal(m) {
			out = append(out, m)
		}
	}
	return out
}
