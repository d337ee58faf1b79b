// Package tt is the shared transposition table. Entries are hints: reads
// and writes are deliberately unsynchronised across workers, and a probe
// can lose the race with a concurrent store. Callers verify the move
// before trusting it.
package tt

import (
	"math"
	"sync/atomic"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/zugzwang-chess/zugzwang/chess"
)

// Bound bits; Exact carries both.
const (
	BoundNone  uint8 = 0
	BoundUpper uint8 = 1
	BoundLower uint8 = 2
	BoundExact uint8 = BoundUpper | BoundLower
)

const entrySize = 20

// Entry is one table slot.
type Entry struct {
	key32    uint32
	move     chess.Move
	value    int16
	eval     int16
	margin   int16
	depth    int16
	genBound uint8
}

func (e *Entry) Move() chess.Move { return e.move }
func (e *Entry) Value() int       { return int(e.value) }
func (e *Entry) StaticEval() int  { return int(e.eval) }
func (e *Entry) StaticMargin() int { return int(e.margin) }
func (e *Entry) Bound() uint8     { return e.genBound & 3 }
func (e *Entry) Depth() int       { return int(e.depth) }
func (e *Entry) generation() uint8 { return e.genBound >> 2 }

type Table struct {
	table      []Entry
	sizeMask   uint64
	generation uint8

	lookups atomic.Uint64
	hits    atomic.Uint64
	stores  atomic.Uint64
}

// New allocates a table of about mb megabytes, rounded down to a power of
// two entries.
func New(mb int) *Table {
	t := &Table{}
	t.Resize(mb)
	return t
}

// DefaultMB sizes the table off total system memory: a sixteenth of RAM,
// clamped to [16, 1024] MB.
func DefaultMB() int {
	mb := int(memory.TotalMemory() / uint64(16) / (1 << 20))
	if mb < 16 {
		mb = 16
	}
	if mb > 1024 {
		mb = 1024
	}
	return mb
}

func (t *Table) Resize(mb int) {
	if mb < 1 {
		mb = 1
	}
	desired := float64(mb) * (1 << 20) / entrySize
	power := int(math.Log2(desired))
	numElems := 1 << power
	t.sizeMask = uint64(numElems - 1)
	t.table = make([]Entry, numElems)
	t.generation = 0
	t.lookups.Store(0)
	t.hits.Store(0)
	t.stores.Store(0)
	log.Info().Int("mb", mb).
		Int("num-elems", numElems).
		Int("entry-bytes", entrySize).
		Msg("transposition-table-size")
}

// Clear wipes all entries, keeping the allocation.
func (t *Table) Clear() {
	clear(t.table)
	t.generation = 0
}

// NewSearch bumps the generation tag; older entries become preferred
// replacement victims.
func (t *Table) NewSearch() { t.generation++ }

// Probe returns the entry for key, if one is present.
func (t *Table) Probe(key uint64) (Entry, bool) {
	t.lookups.Add(1)
	e := t.table[key&t.sizeMask]
	if e.key32 != uint32(key>>32) || e.genBound == 0 {
		return Entry{}, false
	}
	t.hits.Add(1)
	return e, true
}

// Refresh re-stamps the slot for key with the current generation so it
// survives replacement a while longer.
func (t *Table) Refresh(key uint64) {
	e := &t.table[key&t.sizeMask]
	if e.key32 == uint32(key>>32) {
		e.genBound = t.generation<<2 | e.Bound()
	}
}

// Store writes an entry. Same-key writes win; otherwise older generations
// and shallower depths are evicted first. A MoveNone store against a
// matching key preserves the previously stored move.
func (t *Table) Store(key uint64, value int, bound uint8, depth int, move chess.Move, eval, margin int) {
	slot := &t.table[key&t.sizeMask]
	sameKey := slot.key32 == uint32(key>>32)

	if !sameKey && slot.genBound != 0 &&
		slot.generation() == t.generation && slot.Depth() > depth {
		return
	}
	if sameKey && move == chess.MoveNone {
		move = slot.move
	}
	*slot = Entry{
		key32:    uint32(key >> 32),
		move:     move,
		value:    int16(value),
		eval:     int16(eval),
		margin:   int16(margin),
		genBound: t.generation<<2 | bound&3,
		depth:    int16(depth),
	}
	t.stores.Add(1)
}

// Stats returns cumulative lookup, hit and store counts.
func (t *Table) Stats() (lookups, hits, stores uint64) {
	return t.lookups.Load(), t.hits.Load(), t.stores.Load()
}

// Hashfull estimates table saturation in permille, sampled from the first
// thousand slots.
func (t *Table) Hashfull() int {
	n := 0
	sample := 1000
	if len(t.table) < sample {
		sample = len(t.table)
	}
	for i := 0; i < sample; i++ {
		if t.table[i].genBound != 0 && t.table[i].generation() == t.generation {
			n++
		}
	}
	return n * 1000 / sample
}
