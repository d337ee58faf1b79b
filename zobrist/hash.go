// Package zobrist holds the random tables used to key chess positions.
// https://en.wikipedia.org/wiki/Zobrist_hashing
package zobrist

import "lukechampine.com/frand"

const bignum = 1<<63 - 2

var (
	// psq[piece][square]; piece uses the packed 16-slot encoding.
	psq      [16][64]uint64
	castling [16]uint64
	epFile   [8]uint64
	side     uint64
	// exclusion distinguishes singular-extension probes from the regular
	// key of the same position.
	exclusion uint64
)

func init() {
	// Deterministic seed so keys are stable across runs; determinism of
	// single-threaded searches depends on it.
	rng := frand.NewCustom(make([]byte, 32), 1024, 12)
	for p := 0; p < 16; p++ {
		for s := 0; s < 64; s++ {
			psq[p][s] = rng.Uint64n(bignum) + 1
		}
	}
	for i := range castling {
		castling[i] = rng.Uint64n(bignum) + 1
	}
	for i := range epFile {
		epFile[i] = rng.Uint64n(bignum) + 1
	}
	side = rng.Uint64n(bignum) + 1
	exclusion = rng.Uint64n(bignum) + 1
}

func Piece(piece, sq int) uint64   { return psq[piece][sq] }
func Castling(rights uint8) uint64 { return castling[rights] }
func EpFile(file int) uint64       { return epFile[file] }
func Side() uint64                 { return side }
func Exclusion() uint64            { return exclusion }
