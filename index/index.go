package index

import "errors"

// ErrFull is returned (via panic, per spec — see Insert) when every slot in
// an open-addressing table has been probed without finding room. Kept as a
// sentinel so tests can assert on it with errors.Is against the recovered
// panic value.
var ErrFull = errors.New("index: table is full")

// Index is a fixed-capacity key directory. Capacity and collision strategy
// are set at construction and never change: there is no resize, no
// load-factor tracking, and no eviction. Callers choosing an open-addressing
// strategy must oversize the table for their expected key count.
type Index struct {
	size     uint64
	strategy Strategy

	// buckets backs the open-addressing strategies (Linear, Quadratic,
	// DoubleHashing). It is left empty when strategy == Chaining.
	buckets []*entry

	// chains backs the Chaining strategy: each bucket owns an ordered slice
	// of entries scanned linearly. Left empty for open-addressing strategies.
	chains [][]entry
}

// New creates an Index with the given fixed capacity and collision
// resolution strategy.
func New(capacity uint64, strategy Strategy) *Index {
	idx := &Index{size: capacity, strategy: strategy}

	switch strategy {
	case Chaining:
		idx.chains = make([][]entry, capacity)
	default:
		idx.buckets = make([]*entry, capacity)
	}

	return idx
}

// Capacity reports the fixed number of buckets the index was created with.
func (idx *Index) Capacity() uint64 { return idx.size }

// Strategy reports the collision-resolution method this index uses.
func (idx *Index) Strategy() Strategy { return idx.strategy }

// Insert records or overwrites the location for key. Open-addressing
// variants probe until an empty slot or a matching key is found; if every
// slot has been probed without success, Insert panics — the table is
// considered full and there is no automatic resizing.
func (idx *Index) Insert(key string, location FileLocation) {
	if idx.strategy == Chaining {
		idx.insertChaining(key, location)
		return
	}
	idx.insertOpenAddressing(key, location)
}

// Get returns the location for key and whether it was present.
func (idx *Index) Get(key string) (FileLocation, bool) {
	if idx.strategy == Chaining {
		return idx.getChaining(key)
	}
	return idx.getOpenAddressing(key)
}

// Delete removes key from the index, returning whether it was present.
func (idx *Index) Delete(key string) bool {
	if idx.strategy == Chaining {
		return idx.deleteChaining(key)
	}
	return idx.deleteOpenAddressing(key)
}

// probeIndex computes the slot visited on the i-th probe (i is 0-based) for
// the configured strategy, given the key's home slot.
func (idx *Index) probeIndex(home uint64, attempt uint64, key string) uint64 {
	switch idx.strategy {
	case Linear:
		return (home + attempt) % idx.size
	case Quadratic:
		return (home + attempt*attempt) % idx.size
	case DoubleHashing:
		return (home + attempt*hashStep(key)) % idx.size
	default:
		// Chaining never probes; callers must not reach here.
		return home
	}
}
