package store

import (
	"errors"
	"testing"

	"github.com/epokhe/bitvault/core"
	"github.com/epokhe/bitvault/index"
)

func TestSetGetRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Set("foo", "bar"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	val, ok, err := s.Get("foo")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected key to be found")
	}
	if val != "bar" {
		t.Errorf("got %q, want %q", val, "bar")
	}
}

func TestGetMissingKey(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	_, ok, err := s.Get("nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Errorf("expected miss for absent key")
	}
}

func TestDeleteThenGetReturnsKeyDeleted(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Set("foo", "bar"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Delete("foo"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, ok, err := s.Get("foo")
	if ok {
		t.Errorf("expected deleted key to report a miss-shaped result")
	}
	if !errors.Is(err, core.ErrKeyDeleted) {
		t.Errorf("expected ErrKeyDeleted, got %v", err)
	}
}

func TestMergeReconcilesIndexAcrossSegments(t *testing.T) {
	s, err := Open(t.TempDir(), WithMaxSegmentSize(1))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	_ = s.Set("a", "1")
	_ = s.Set("a", "2")
	_ = s.Set("b", "x")
	_ = s.Delete("b")

	stats, err := s.Merge()
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if stats.RecordsRewritten != 1 {
		t.Errorf("RecordsRewritten = %d, want 1", stats.RecordsRewritten)
	}

	val, ok, err := s.Get("a")
	if err != nil || !ok || val != "2" {
		t.Errorf("Get(a) after merge = %q, %v, %v; want \"2\", true, nil", val, ok, err)
	}

	// Merge evicts tombstoned keys from the index outright rather than
	// re-appending them, so a post-merge lookup is an ordinary miss, not
	// ErrKeyDeleted.
	_, ok, err = s.Get("b")
	if ok {
		t.Errorf("expected b to remain deleted after merge")
	}
	if err != nil {
		t.Errorf("expected plain miss for evicted tombstone after merge, got %v", err)
	}
}

func TestWithIndexStrategyOption(t *testing.T) {
	s, err := Open(t.TempDir(), WithIndexStrategy(index.Chaining), WithIndexCapacity(4))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	for i := 0; i < 20; i++ {
		key := string(rune('a' + i%20))
		if err := s.Set(key, key); err != nil {
			t.Fatalf("Set(%q): %v", key, err)
		}
	}
}
