// Package book reads a plain-text opening book. Each line holds the
// xxhash digest of a position, a move in coordinate notation, and a
// weight:
//
//	<16-hex-digit key> <uci move> <weight>
//
// Lines starting with '#' are comments. Keys hash the first four FEN
// fields, so the same position reached by any move order matches.
package book

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/zugzwang-chess/zugzwang/chess"
)

type entry struct {
	move   string
	weight int
}

type Book struct {
	name    string
	entries map[uint64][]entry
}

// KeyFor digests the position identity fields of a FEN record.
func KeyFor(pos *chess.Position) uint64 {
	fields := strings.Fields(pos.FEN())
	return xxhash.Sum64String(strings.Join(fields[:4], " "))
}

// Open loads the book file. An unreadable file yields an empty book and
// an error; probing an empty book is fine and finds nothing.
func Open(path string) (*Book, error) {
	b := &Book{name: path, entries: make(map[uint64][]entry)}
	f, err := os.Open(path)
	if err != nil {
		return b, err
	}
	defer f.Close()

	lineNo := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return b, fmt.Errorf("book %s line %d: expected 3 fields", path, lineNo)
		}
		key, err := strconv.ParseUint(fields[0], 16, 64)
		if err != nil {
			return b, fmt.Errorf("book %s line %d: bad key: %w", path, lineNo, err)
		}
		weight, err := strconv.Atoi(fields[2])
		if err != nil || weight < 1 {
			return b, fmt.Errorf("book %s line %d: bad weight", path, lineNo)
		}
		b.entries[key] = append(b.entries[key], entry{move: fields[1], weight: weight})
	}
	if err := sc.Err(); err != nil {
		return b, err
	}
	log.Info().Str("file", path).Int("positions", len(b.entries)).Msg("opening-book-loaded")
	return b, sc.Err()
}

func (b *Book) Name() string { return b.name }

// Probe returns a legal book move for the position, MoveNone when out of
// book. best picks the heaviest entry, otherwise the pick is random,
// weighted by the entry weights.
func (b *Book) Probe(pos *chess.Position, best bool) chess.Move {
	entries := b.entries[KeyFor(pos)]
	if len(entries) == 0 {
		return chess.MoveNone
	}

	if best {
		var top entry
		for _, e := range entries {
			if e.weight > top.weight {
				top = e
			}
		}
		return pos.MoveFromUCI(top.move)
	}

	total := 0
	for _, e := range entries {
		total += e.weight
	}
	pick := int(frand.Uint64n(uint64(total)))
	for _, e := range entries {
		pick -= e.weight
		if pick < 0 {
			return pos.MoveFromUCI(e.move)
		}
	}
	return chess.MoveNone
}
