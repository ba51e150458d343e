package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/epokhe/bitvault/core"
	"github.com/epokhe/bitvault/store"
)

// repl drives the interactive shell. Input is read on its own goroutine and
// delivered over a channel so the main loop can select between a new line
// and the idle-merge timer — the Go equivalent of the original event loop's
// single-threaded poll over stdin and a timeout, without needing a raw file
// descriptor registered with a poller.
type repl struct {
	db            *store.Store
	mergeInterval time.Duration
	opsSinceMerge int
	liner         *liner.State
}

func newREPL(db *store.Store, mergeIntervalSeconds int64) *repl {
	return &repl{db: db, mergeInterval: time.Duration(mergeIntervalSeconds) * time.Second}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".bitvault_history")
}

func (r *repl) run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()
	r.liner.SetCtrlCAborts(true)

	if path := historyPath(); path != "" {
		if f, err := os.Open(path); err == nil {
			r.liner.ReadHistory(f)
			f.Close()
		}
	}
	defer r.saveHistory()

	lines := make(chan string)
	promptErrs := make(chan error, 1)
	go func() {
		for {
			line, err := r.liner.Prompt("bitvault> ")
			if err != nil {
				promptErrs <- err
				return
			}
			lines <- line
		}
	}()

	timer := time.NewTimer(r.mergeInterval)
	defer timer.Stop()

	for {
		select {
		case line := <-lines:
			input := strings.TrimSpace(line)
			if input != "" {
				r.liner.AppendHistory(line)
				if r.handle(input) {
					return nil
				}
			}
			resetTimer(timer, r.mergeInterval)

		case err := <-promptErrs:
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return fmt.Errorf("read input: %w", err)

		case <-timer.C:
			if r.opsSinceMerge > 0 {
				fmt.Println("\nAuto-merge triggered due to inactivity...")
				r.performMerge()
				r.opsSinceMerge = 0
			}
			resetTimer(timer, r.mergeInterval)
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func (r *repl) saveHistory() {
	path := historyPath()
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	r.liner.WriteHistory(f)
}

// handle dispatches one command line. It returns true when the REPL should
// exit.
func (r *repl) handle(input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false
	}

	switch strings.ToLower(parts[0]) {
	case "exit", "quit":
		fmt.Println("Goodbye!")
		return true
	case "help":
		r.showHelp()
	case "stats":
		r.showStats()
	case "merge":
		r.performMerge()
		r.opsSinceMerge = 0
	case "insert":
		if len(parts) < 3 {
			fmt.Println("usage: insert <key> <value>")
			break
		}
		r.cmdInsert(parts[1], strings.Join(parts[2:], " "))
		r.opsSinceMerge++
	case "delete":
		if len(parts) != 2 {
			fmt.Println("usage: delete <key>")
			break
		}
		r.cmdDelete(parts[1])
		r.opsSinceMerge++
	case "get":
		if len(parts) != 2 {
			fmt.Println("usage: get <key>")
			break
		}
		r.cmdGet(parts[1])
	default:
		fmt.Printf("unknown command: %s. Type 'help' for available commands.\n", parts[0])
	}

	return false
}

func (r *repl) showHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  insert <key> <value>  - Insert or update a key-value pair")
	fmt.Println("  delete <key>          - Delete a key")
	fmt.Println("  get <key>             - Retrieve a value by key")
	fmt.Println("  stats                 - Show storage statistics")
	fmt.Println("  merge                 - Manually trigger merge operation")
	fmt.Println("  help                  - Show this help message")
	fmt.Println("  exit                  - Exit the program")
	fmt.Printf("\nAuto-merge triggers after %s of inactivity.\n", r.mergeInterval)
}

func (r *repl) showStats() {
	fmt.Println("=== Storage Statistics ===")
	report, err := r.db.Stats()
	if err != nil {
		fmt.Printf("error getting storage stats: %v\n", err)
		return
	}
	for _, f := range report.Files {
		marker := ""
		if f.Active {
			marker = " (ACTIVE)"
		}
		fmt.Printf("    %s: %d bytes%s\n", f.Name, f.Size, marker)
	}
	fmt.Printf("  Total: %d files, %d bytes\n", len(report.Files), report.TotalBytes)
	fmt.Printf("operations since last merge: %d\n", r.opsSinceMerge)
}

func (r *repl) performMerge() {
	fmt.Println("Performing merge operation...")
	stats, err := r.db.Merge()
	if err != nil {
		fmt.Printf("merge failed: %v\n", err)
		return
	}
	fmt.Printf("merge complete: %d records read, %d unique keys, %d tombstones dropped, %d rewritten, %d files removed\n",
		stats.RecordsRead, stats.UniqueKeys, stats.TombstonesSkipped, stats.RecordsRewritten, stats.SegmentsRemoved)
}

func (r *repl) cmdInsert(key, value string) {
	if err := r.db.Set(key, value); err != nil {
		fmt.Printf("failed to insert %s: %v\n", key, err)
		return
	}
	fmt.Printf("inserted %s: %s\n", key, value)
}

func (r *repl) cmdDelete(key string) {
	if err := r.db.Delete(key); err != nil {
		fmt.Printf("failed to delete %s: %v\n", key, err)
		return
	}
	fmt.Printf("deleted %s\n", key)
}

func (r *repl) cmdGet(key string) {
	value, ok, err := r.db.Get(key)
	if err != nil {
		var deleted *core.KeyDeletedError
		if errors.As(err, &deleted) {
			fmt.Printf("key %q has been deleted\n", key)
			return
		}
		fmt.Printf("error reading %s: %v\n", key, err)
		return
	}
	if !ok {
		fmt.Printf("key %q not found\n", key)
		return
	}
	fmt.Printf("%s: %s\n", key, value)
}
