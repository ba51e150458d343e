// Package store composes the record engine and the key directory into the
// single handle application code actually uses: every operation here keeps
// the two in lockstep so callers never see one without the other.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/epokhe/bitvault/core"
	"github.com/epokhe/bitvault/index"
)

// defaultIndexCapacity is the bucket count used when no WithIndexCapacity
// option is supplied. It's prime, which spreads out the low-order-bit bias
// that tends to show up in short string keys under a ×31 polynomial hash.
const defaultIndexCapacity = 1031

// Store is the opened database: a record engine for the on-disk log plus an
// in-memory index resolving keys to record coordinates.
type Store struct {
	engine *core.Engine
	idx    *index.Index
}

// Option configures a Store at Open time.
type Option func(*options)

type options struct {
	maxSegmentSize int64
	indexCapacity  uint64
	indexStrategy  index.Strategy
}

// WithMaxSegmentSize overrides the per-segment size cap (default 16 MiB).
func WithMaxSegmentSize(bytes int64) Option {
	return func(o *options) { o.maxSegmentSize = bytes }
}

// WithIndexCapacity overrides the index's bucket count.
func WithIndexCapacity(capacity uint64) Option {
	return func(o *options) { o.indexCapacity = capacity }
}

// WithIndexStrategy selects the collision-resolution strategy the index
// uses. Default is index.Linear.
func WithIndexStrategy(strategy index.Strategy) Option {
	return func(o *options) { o.indexStrategy = strategy }
}

// Open prepares a Store backed by dir, replaying no prior index — the index
// starts empty and is populated solely by whatever Set/Delete calls happen
// in this process. There is no index-rebuild-from-log path yet; see
// DESIGN.md for why that's an accepted gap rather than a silent one.
func Open(dir string, opts ...Option) (*Store, error) {
	o := options{
		maxSegmentSize: 16 << 20,
		indexCapacity:  defaultIndexCapacity,
		indexStrategy:  index.Linear,
	}
	for _, opt := range opts {
		opt(&o)
	}

	engine, err := core.Open(dir, o.maxSegmentSize)
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}

	return &Store{
		engine: engine,
		idx:    index.New(o.indexCapacity, o.indexStrategy),
	}, nil
}

// Close releases the underlying engine's file handle.
func (s *Store) Close() error {
	return s.engine.Close()
}

// Set writes key/value and installs the resulting coordinates in the index.
func (s *Store) Set(key, value string) error {
	segName, off, size, crc, err := s.engine.Write(key, value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	s.idx.Insert(key, index.FileLocation{
		Segment:     segName,
		ValueOffset: off,
		ValueSize:   size,
		ValueCRC:    crc,
		TimestampNs: uint64(time.Now().UnixNano()),
	})
	return nil
}

// Delete writes a tombstone for key and installs its coordinates, so the
// index keeps remembering "deleted" rather than falling back to a miss
// that a concurrent reader might misread as "never existed".
func (s *Store) Delete(key string) error {
	segName, off, size, crc, err := s.engine.Delete(key)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	s.idx.Insert(key, index.FileLocation{
		Segment:     segName,
		ValueOffset: off,
		ValueSize:   size,
		ValueCRC:    crc,
		TimestampNs: uint64(time.Now().UnixNano()),
	})
	return nil
}

// Get resolves key through the index and, if present, reads its value back
// from the engine. A key whose last write was a delete returns
// core.ErrKeyDeleted (matchable with errors.Is) until a merge evicts it from
// the index; a key never seen, or evicted that way, returns ok == false with
// no error.
func (s *Store) Get(key string) (value string, ok bool, err error) {
	loc, found := s.idx.Get(key)
	if !found {
		return "", false, nil
	}

	value, err = s.engine.ReadValue(loc.Segment, loc.ValueOffset, loc.ValueSize, loc.ValueCRC, key)
	if err != nil {
		var deleted *core.KeyDeletedError
		if errors.As(err, &deleted) {
			return "", false, err
		}
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}

	return value, true, nil
}

// Merge compacts the engine's inactive segments, updating the index in
// lockstep, and returns a summary of what it did.
func (s *Store) Merge() (core.MergeStats, error) {
	stats, err := s.engine.Merge(s.idx)
	if err != nil {
		return stats, fmt.Errorf("merge: %w", err)
	}
	return stats, nil
}

// Stats reports the current segment-file layout.
func (s *Store) Stats() (core.StatsReport, error) {
	report, err := s.engine.Stats()
	if err != nil {
		return core.StatsReport{}, fmt.Errorf("stats: %w", err)
	}
	return report, nil
}
