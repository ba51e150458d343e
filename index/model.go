// Package index provides the in-memory key directory that maps each live key
// to the on-disk location of its most recent record. It supports four
// interchangeable collision-resolution strategies chosen at construction and
// immutable thereafter.
package index

import "fmt"

// FileLocation is the address of a single record's value within a segment.
// Keys map to exactly one FileLocation at a time; a new write or delete
// supersedes the previous one.
type FileLocation struct {
	Segment     string // segment file name, e.g. "data_003.dat"
	ValueOffset uint64 // absolute byte offset of the first value byte
	ValueSize   uint32 // length of the value in bytes
	ValueCRC    uint16 // CRC-16/IBM-SDLC (X-25) of the value bytes
	TimestampNs uint64 // wall-clock nanoseconds when this entry was created
}

func (l FileLocation) String() string {
	return fmt.Sprintf("%s@%d(+%d)", l.Segment, l.ValueOffset, l.ValueSize)
}

// entry is a single key/location pair, used by both the open-addressing
// slot array and the chaining buckets.
type entry struct {
	key      string
	location FileLocation
}

// Strategy selects the collision-resolution method a Index uses.
type Strategy int

const (
	// Linear probes slot h(k)+i.
	Linear Strategy = iota
	// Quadratic probes slot h(k)+i².
	Quadratic
	// DoubleHashing probes slot h(k)+i·h2(k).
	DoubleHashing
	// Chaining stores every colliding entry in its bucket's list.
	Chaining
)

func (s Strategy) String() string {
	switch s {
	case Linear:
		return "linear"
	case Quadratic:
		return "quadratic"
	case DoubleHashing:
		return "double-hashing"
	case Chaining:
		return "chaining"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}
