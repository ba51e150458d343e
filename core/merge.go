package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/epokhe/bitvault/index"
)

// Indexer is the narrow capability merge needs from an index: installing a
// new coordinate for a live key, and evicting one for a tombstoned key. It
// lets merge be tested against a fake without dragging in the full Index
// type, and keeps this package from caring which collision strategy the
// caller chose.
type Indexer interface {
	Insert(key string, location index.FileLocation)
	Delete(key string) bool
}

// MergeStats summarizes one merge pass.
type MergeStats struct {
	RecordsRead       int
	UniqueKeys        int
	TombstonesSkipped int
	RecordsRewritten  int
	SegmentsRemoved   int
}

// Merge compacts every segment except the active one: it replays them in
// creation order to resolve each key to its last-written value (tombstones
// included), then for every live key re-appends the value to the active
// segment and installs the new coordinates in idx, and finally unlinks the
// drained segment files. A key that also has a record in the segment that was
// active when the merge began is left to that newer record: it is not
// re-appended, and if that record is a tombstone the key is evicted from idx.
// The index is fully updated before any file is
// removed, so a crash mid-merge leaves the data on disk still reconcilable
// — a process that restarts just sees those old segments again and the next
// merge redoes the same work harmlessly.
func (e *Engine) Merge(idx Indexer) (MergeStats, error) {
	var stats MergeStats

	names, err := e.inactiveSegmentNames()
	if err != nil {
		return stats, fmt.Errorf("list inactive segments: %w", err)
	}
	if len(names) == 0 {
		return stats, nil
	}

	latest := make(map[string]string)
	for _, name := range names {
		n, err := e.scanSegmentInto(name, latest)
		if err != nil {
			return stats, fmt.Errorf("scan segment %q: %w", name, err)
		}
		stats.RecordsRead += n
	}
	stats.UniqueKeys = len(latest)

	// Records already in the active segment are newer than anything drained.
	newer := make(map[string]string)
	if _, err := e.scanSegmentInto(e.active.name, newer); err != nil {
		return stats, fmt.Errorf("scan active segment %q: %w", e.active.name, err)
	}

	keys := make([]string, 0, len(latest))
	for k := range latest {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rewrittenInto := mapset.NewSet[string](e.active.name)
	for _, key := range keys {
		if v, ok := newer[key]; ok {
			if v == tombstone {
				idx.Delete(key)
			}
			continue
		}

		value := latest[key]
		if value == tombstone {
			idx.Delete(key)
			stats.TombstonesSkipped++
			continue
		}

		segName, off, size, crc, err := e.Write(key, value)
		if err != nil {
			return stats, fmt.Errorf("rewrite key %q: %w", key, err)
		}
		idx.Insert(key, index.FileLocation{
			Segment:     segName,
			ValueOffset: off,
			ValueSize:   size,
			ValueCRC:    crc,
			TimestampNs: uint64(time.Now().UnixNano()),
		})
		rewrittenInto.Add(segName)
		stats.RecordsRewritten++
	}

	for _, name := range names {
		if err := os.Remove(filepath.Join(e.dir, name)); err != nil {
			return stats, fmt.Errorf("remove drained segment %q: %w", name, err)
		}
		stats.SegmentsRemoved++
	}

	rewrittenInto.Add(e.active.name)
	if err := e.warnUnexpectedSegments(rewrittenInto.ToSlice()); err != nil {
		return stats, fmt.Errorf("post-merge sanity check: %w", err)
	}

	return stats, nil
}

// inactiveSegmentNames lists every data_*.dat file except the active
// segment, sorted lexicographically (== creation order, since counters are
// zero-padded).
func (e *Engine) inactiveSegmentNames() ([]string, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !isSegmentFileName(entry.Name()) {
			continue
		}
		if entry.Name() == e.active.name {
			continue
		}
		names = append(names, entry.Name())
	}

	sort.Strings(names)
	return names, nil
}

// scanSegmentInto reads every record in the named segment and folds it into
// latest, last write wins. It returns the number of records scanned.
func (e *Engine) scanSegmentInto(name string, latest map[string]string) (int, error) {
	f, err := os.Open(filepath.Join(e.dir, name))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := newRecordScanner(f)
	n := 0
	for scanner.scan() {
		latest[scanner.record.key] = scanner.record.value
		n++
	}
	if scanner.err != nil {
		return n, scanner.err
	}

	return n, nil
}
