package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestEngineWriteAndReadValue(t *testing.T) {
	e, err := Open(t.TempDir(), 16<<20)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	seg, off, size, crc, err := e.Write("foo", "bar")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := e.ReadValue(seg, off, size, crc, "foo")
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	if got != "bar" {
		t.Errorf("got %q, want %q", got, "bar")
	}
}

func TestEngineDeleteReadsAsKeyDeleted(t *testing.T) {
	e, err := Open(t.TempDir(), 16<<20)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	seg, off, size, crc, err := e.Delete("foo")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, err = e.ReadValue(seg, off, size, crc, "foo")
	if !errors.Is(err, ErrKeyDeleted) {
		t.Errorf("expected ErrKeyDeleted, got %v", err)
	}
}

func TestEngineReadValueDetectsCorruption(t *testing.T) {
	e, err := Open(t.TempDir(), 16<<20)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	seg, off, size, crc, err := e.Write("foo", "bar")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := e.ReadValue(seg, off, size, crc^0xFFFF, "foo"); !errors.Is(err, ErrCorrupted) {
		t.Errorf("expected ErrCorrupted on CRC mismatch, got %v", err)
	}
}

func TestEngineRotatesBeforeOverflowingWrite(t *testing.T) {
	dir := t.TempDir()
	// Small enough that the second write can't fit alongside the first.
	e, err := Open(dir, 20)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	seg1, _, _, _, err := e.Write("k1", "v1")
	if err != nil {
		t.Fatalf("Write 1: %v", err)
	}
	seg2, _, _, _, err := e.Write("k2", "v2")
	if err != nil {
		t.Fatalf("Write 2: %v", err)
	}

	if seg1 == seg2 {
		t.Errorf("expected rotation to a new segment, both writes landed in %q", seg1)
	}
}

func TestEngineReopenContinuesHighestSegment(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, 30)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, _, _, _, err := e.Write("k1", "v1"); err != nil {
		t.Fatalf("Write 1: %v", err)
	}
	if _, _, _, _, err := e.Write("k2", "v2"); err != nil {
		t.Fatalf("Write 2: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	e2, err := Open(dir, 30)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer e2.Close()

	seg3, _, _, _, err := e2.Write("k3", "v3")
	if err != nil {
		t.Fatalf("Write 3: %v", err)
	}
	if seg3 == segmentName(0) {
		t.Errorf("reopen should have resumed past data_000.dat, wrote into %q", seg3)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	names := map[string]bool{}
	for _, entry := range entries {
		names[entry.Name()] = true
	}
	if !names[segmentName(0)] {
		t.Errorf("expected data_000.dat to survive reopen untouched")
	}
}

func TestEngineStatsReportsAllSegments(t *testing.T) {
	dir := t.TempDir()
	e, err := Open(dir, 30)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	for i := 0; i < 5; i++ {
		if _, _, _, _, err := e.Write(fmt.Sprintf("k%d", i), fmt.Sprintf("v%d", i)); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	report, err := e.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(report.Files) < 2 {
		t.Fatalf("expected rotation to have produced multiple segments, got %d", len(report.Files))
	}

	activeCount := 0
	for _, f := range report.Files {
		if f.Active {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Errorf("expected exactly one active segment, got %d", activeCount)
	}
}

func TestStatsIgnoresNonSegmentFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "not-a-segment.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("seed stray file: %v", err)
	}

	e, err := Open(dir, 16<<20)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()

	report, err := e.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	for _, f := range report.Files {
		if f.Name == "not-a-segment.txt" {
			t.Errorf("Stats should ignore non-segment files, saw %q", f.Name)
		}
	}
}
