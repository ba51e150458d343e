// Package core implements the Bitcask-style storage engine: the on-disk
// record format, segment-rotation discipline, and the merge/compaction
// algorithm that reconciles live data with an external index. It is the
// façade described as the core's integration point — it owns the codec and
// segment state but never owns the index; callers insert the coordinates
// Write/Delete return into whatever index they're using.
package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sigurn/crc16"
)

// crcTable is the CRC-16/IBM-SDLC (a.k.a. X-25) table used for every value
// checksum. It has no per-engine state, so one package-level table suffices.
var crcTable = crc16.MakeTable(crc16.CRC16_X_25)

// Engine owns the segment directory and the active segment handle. It is
// single-threaded: callers wanting concurrent access must add their own
// synchronization.
type Engine struct {
	dir            string
	maxSegmentSize int64
	active         *segment
	counter        int
}

// Open ensures dir exists and prepares the active segment. If the directory
// already holds data_NNN.dat files from a previous run, the
// highest-numbered one is reopened and kept active — rather than blindly
// reopening data_000.dat, which would let a later rotation clobber an
// existing inactive segment (see SPEC_FULL.md's resolution of the
// file-counter-on-reopen open question).
func Open(dir string, maxSegmentSize int64) (*Engine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %q: %w", dir, err)
	}

	counters, err := existingSegmentCounters(dir)
	if err != nil {
		return nil, fmt.Errorf("scan segment directory: %w", err)
	}

	counter := 0
	if len(counters) > 0 {
		counter = counters[len(counters)-1]
	}

	active, err := openSegment(dir, counter)
	if err != nil {
		return nil, fmt.Errorf("open active segment: %w", err)
	}

	return &Engine{dir: dir, maxSegmentSize: maxSegmentSize, active: active, counter: counter}, nil
}

// Close flushes and closes the active segment handle.
func (e *Engine) Close() error {
	if err := e.active.file.Sync(); err != nil {
		return fmt.Errorf("sync active segment %q: %w", e.active.name, err)
	}
	if err := e.active.file.Close(); err != nil {
		return fmt.Errorf("close active segment %q: %w", e.active.name, err)
	}
	return nil
}

// Write appends key/value as a record to the active segment, rotating first
// if the record would overflow max_file_size, and returns the coordinates of
// the value. The caller is responsible for installing those coordinates into
// whatever index they're using — Write never touches an index itself.
func (e *Engine) Write(key, value string) (segName string, valueOffset uint64, valueSize uint32, valueCRC uint16, err error) {
	width := int64(hdrLen + len(key) + len(value))
	if e.active.size+width > e.maxSegmentSize {
		if err := e.rotate(); err != nil {
			return "", 0, 0, 0, fmt.Errorf("rotate before write: %w", err)
		}
	}

	off, err := e.active.write(key, value)
	if err != nil {
		return "", 0, 0, 0, err
	}

	return e.active.name, uint64(off), uint32(len(value)), crc16.Checksum([]byte(value), crcTable), nil
}

// Delete marks key as removed by writing a tombstone record. The returned
// coordinates point at the tombstone; callers must still install them in
// the index so lookups stop seeing the prior live value.
func (e *Engine) Delete(key string) (segName string, valueOffset uint64, valueSize uint32, valueCRC uint16, err error) {
	return e.Write(key, tombstone)
}

// rotate closes the active segment and opens the next one, resetting the
// in-memory size counter. There is no minimum-fill requirement: a single
// oversize record can land alone in a segment that still exceeds
// max_file_size — accepted per spec rather than guarded against.
func (e *Engine) rotate() error {
	if err := e.active.file.Close(); err != nil {
		return fmt.Errorf("close segment %q before rotation: %w", e.active.name, err)
	}

	e.counter++
	next, err := openSegment(e.dir, e.counter)
	if err != nil {
		return err
	}

	e.active = next
	return nil
}

// ReadValue opens the named segment read-only, reads exactly valueSize bytes
// at valueOffset, verifies the CRC, decodes UTF-8, and rejects a value equal
// to the tombstone sentinel as KeyDeletedError.
func (e *Engine) ReadValue(segName string, valueOffset uint64, valueSize uint32, expectedCRC uint16, key string) (string, error) {
	f, err := os.Open(filepath.Join(e.dir, segName))
	if err != nil {
		return "", fmt.Errorf("open segment %q: %w", segName, err)
	}
	defer f.Close()

	buf, err := readValueAt(f, int64(valueOffset), valueSize)
	if err != nil {
		return "", err
	}

	if got := crc16.Checksum(buf, crcTable); got != expectedCRC {
		return "", &CorruptedError{Key: key, Msg: fmt.Sprintf("crc mismatch: expected %04x, got %04x", expectedCRC, got)}
	}
	if !utf8.Valid(buf) {
		return "", &CorruptedError{Key: key, Msg: "value is not valid utf-8"}
	}

	value := string(buf)
	if value == tombstone {
		return "", &KeyDeletedError{Key: key}
	}
	return value, nil
}

// Read reads the full record starting at recordOffset in the named segment.
// It exists for merge-style scanning and any future index-rebuild path; it
// shares ReadValue's error set except that it has no expected CRC to check
// against (no caller currently has one available at a bare record offset).
func (e *Engine) Read(segName string, recordOffset uint64) (key, value string, err error) {
	f, err := os.Open(filepath.Join(e.dir, segName))
	if err != nil {
		return "", "", fmt.Errorf("open segment %q: %w", segName, err)
	}
	defer f.Close()

	k, v, err := readRecordAt(f, int64(recordOffset))
	if err != nil {
		return "", "", err
	}
	if !utf8.Valid(v) {
		return "", "", &CorruptedError{Key: string(k), Msg: "value is not valid utf-8"}
	}

	value = string(v)
	if value == tombstone {
		return "", "", &KeyDeletedError{Key: string(k)}
	}
	return string(k), value, nil
}

// FileStat describes one segment file for Stats.
type FileStat struct {
	Name   string
	Size   int64
	Active bool
}

// StatsReport is the observational summary Stats returns.
type StatsReport struct {
	Files      []FileStat
	TotalBytes int64
}

// Stats enumerates the segment directory and reports per-file size and
// whether each file is the active segment.
func (e *Engine) Stats() (StatsReport, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return StatsReport{}, fmt.Errorf("read segment directory: %w", err)
	}

	var report StatsReport
	for _, entry := range entries {
		if entry.IsDir() || !isSegmentFileName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return StatsReport{}, fmt.Errorf("stat %q: %w", entry.Name(), err)
		}
		report.Files = append(report.Files, FileStat{
			Name:   entry.Name(),
			Size:   info.Size(),
			Active: entry.Name() == e.active.name,
		})
		report.TotalBytes += info.Size()
	}

	return report, nil
}

// isSegmentFileName reports whether name matches "data_NNN.dat".
func isSegmentFileName(name string) bool {
	const prefix, suffix = "data_", ".dat"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return false
	}
	counter := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
	_, err := strconv.Atoi(counter)
	return err == nil && len(counter) == 3
}

// existingSegmentCounters scans dir for data_NNN.dat files and returns their
// counters sorted ascending.
func existingSegmentCounters(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var counters []int
	for _, entry := range entries {
		if entry.IsDir() || !isSegmentFileName(entry.Name()) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(entry.Name(), "data_"), ".dat"))
		if err != nil {
			continue
		}
		counters = append(counters, n)
	}

	sort.Ints(counters)
	return counters, nil
}

// warnUnexpectedSegments diffs the directory's actual data_*.dat files
// against the set we expect to remain, logging anything extra. This mirrors
// the teacher's manifest-vs-disk orphan check, repurposed for a design with
// no manifest: the only files we can still vouch for after an operation are
// the ones we just touched, so anything else is worth a warning rather than
// silent acceptance.
func (e *Engine) warnUnexpectedSegments(expected []string) error {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return fmt.Errorf("read segment directory: %w", err)
	}

	expectedSet := mapset.NewSet[string]()
	for _, name := range expected {
		expectedSet.Add(name)
	}

	actualSet := mapset.NewSet[string]()
	for _, entry := range entries {
		if !entry.IsDir() && isSegmentFileName(entry.Name()) {
			actualSet.Add(entry.Name())
		}
	}

	if extra := actualSet.Difference(expectedSet); extra.Cardinality() > 0 {
		log.Printf("warning: unexpected segment files found: %v", extra.ToSlice())
	}

	return nil
}
