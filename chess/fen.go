package chess

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zugzwang-chess/zugzwang/zobrist"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// PositionFromFEN parses a six-field FEN record. The last two fields
// (halfmove clock, fullmove number) may be omitted.
func PositionFromFEN(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return nil, fmt.Errorf("malformed fen %q: expected at least 4 fields, got %d", fen, len(fields))
	}

	p := &Position{ep: SquareNone}

	rank, file := 7, 0
	for _, ch := range []byte(fields[0]) {
		switch {
		case ch == '/':
			rank--
			file = 0
			if rank < 0 {
				return nil, fmt.Errorf("malformed fen %q: too many ranks", fen)
			}
		case ch >= '1' && ch <= '8':
			file += int(ch - '0')
		default:
			pc := PieceFromChar(ch)
			if pc == NoPiece || file > 7 {
				return nil, fmt.Errorf("malformed fen %q: bad piece placement", fen)
			}
			p.putPiece(MakeSquare(file, rank), pc)
			file++
		}
	}
	if p.Pieces(White, King).Count() != 1 || p.Pieces(Black, King).Count() != 1 {
		return nil, fmt.Errorf("malformed fen %q: each side needs exactly one king", fen)
	}

	switch fields[1] {
	case "w":
		p.side = White
	case "b":
		p.side = Black
		p.key ^= zobrist.Side()
	default:
		return nil, fmt.Errorf("malformed fen %q: bad side to move", fen)
	}

	if fields[2] != "-" {
		for _, ch := range fields[2] {
			switch ch {
			case 'K':
				p.castle |= WhiteOO
			case 'Q':
				p.castle |= WhiteOOO
			case 'k':
				p.castle |= BlackOO
			case 'q':
				p.castle |= BlackOOO
			default:
				return nil, fmt.Errorf("malformed fen %q: bad castling field", fen)
			}
		}
	}
	p.key ^= zobrist.Castling(p.castle)

	if fields[3] != "-" {
		sq := SquareFromString(fields[3])
		if sq == SquareNone {
			return nil, fmt.Errorf("malformed fen %q: bad en passant square", fen)
		}
		p.ep = sq
		p.key ^= zobrist.EpFile(sq.File())
	}

	if len(fields) > 4 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("malformed fen %q: bad halfmove clock", fen)
		}
		p.rule50 = n
	}
	if len(fields) > 5 {
		n, err := strconv.Atoi(fields[5])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("malformed fen %q: bad fullmove number", fen)
		}
		p.gamePly = 2 * (n - 1)
		if p.side == Black {
			p.gamePly++
		}
	}

	us := p.side
	p.checkers = p.AttackersTo(p.KingSquare(us), p.Occupied()) & p.byColor[us.Other()]
	if p.isAttackedBy(p.KingSquare(us.Other()), us, p.Occupied()) {
		return nil, fmt.Errorf("malformed fen %q: side not to move is in check", fen)
	}
	return p, nil
}

// FEN renders the position as a six-field FEN record.
func (p *Position) FEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			pc := p.board[MakeSquare(file, rank)]
			if pc == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(pc.Char())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	sb.WriteString(p.side.String())
	sb.WriteByte(' ')
	if p.castle == 0 {
		sb.WriteByte('-')
	} else {
		for i, r := range []uint8{WhiteOO, WhiteOOO, BlackOO, BlackOOO} {
			if p.castle&r != 0 {
				sb.WriteByte("KQkq"[i])
			}
		}
	}
	sb.WriteByte(' ')
	sb.WriteString(p.ep.String())
	fullmove := p.gamePly/2 + 1
	sb.WriteString(fmt.Sprintf(" %d %d", p.rule50, fullmove))
	return sb.String()
}

// String renders an ASCII diagram plus the FEN, for the "d" debug command.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteString("  +---+---+---+---+---+---+---+---+\n")
	for rank := 7; rank >= 0; rank-- {
		sb.WriteString(fmt.Sprintf("%d |", rank+1))
		for file := 0; file < 8; file++ {
			pc := p.board[MakeSquare(file, rank)]
			ch := byte(' ')
			if pc != NoPiece {
				ch = pc.Char()
			}
			sb.WriteString(fmt.Sprintf(" %c |", ch))
		}
		sb.WriteString("\n  +---+---+---+---+---+---+---+---+\n")
	}
	sb.WriteString("    a   b   c   d   e   f   g   h\n")
	sb.WriteString("fen: " + p.FEN() + "\n")
	sb.WriteString(fmt.Sprintf("key: %016x\n", p.key))
	return sb.String()
}

// MoveFromUCI resolves coordinate notation against the current position,
// returning MoveNone when the string is not a legal move. Castling is
// accepted both as the standard king move and as king-takes-own-rook.
func (p *Position) MoveFromUCI(s string) Move {
	for _, m := range p.LegalMoves() {
		if m.UCI(false) == s || m.UCI(true) == s {
			return m
		}
	}
	return MoveNone
}
