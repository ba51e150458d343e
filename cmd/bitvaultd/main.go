// Command bitvaultd is an interactive shell over a bitvault store: insert,
// delete, get, inspect stats, and trigger a merge by hand, or let it happen
// on its own after the configured idle interval.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/epokhe/bitvault/internal/config"
	"github.com/epokhe/bitvault/store"
)

func main() {
	configPath := flag.String("config", "bitvault.jsonc", "path to JSONC config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := store.Open(cfg.Storage.Directory, store.WithMaxSegmentSize(cfg.Storage.MaxFileSize))
	if err != nil {
		log.Fatalf("open store at %q: %v", cfg.Storage.Directory, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	fmt.Printf("bitvaultd — data dir %q, max segment size %d bytes, merge interval %ds\n",
		cfg.Storage.Directory, cfg.Storage.MaxFileSize, cfg.Storage.MergeIntervalSeconds)
	fmt.Println("Type 'help' for available commands.")

	repl := newREPL(db, cfg.Storage.MergeIntervalSeconds)
	if err := repl.run(); err != nil {
		fmt.Fprintf(os.Stderr, "repl: %v\n", err)
		os.Exit(1)
	}
}
