// Package catalog holds the curated fallback positions used when a user's
// own mistakes cannot fill a puzzle set.
package catalog

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/pawnsposes/puzzlegen/internal/puzzle"
)

//go:embed data/catalog.tsv
var defaultCatalog []byte

// Entry is one curated position.
type Entry struct {
	ID       string
	Position puzzle.Position
	Theme    string
}

// Catalog is an ordered, deduplicated set of curated positions.
type Catalog struct {
	entries []Entry
	seen    map[string]bool
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{seen: make(map[string]bool)}
}

// Default loads the catalog bundled with the binary.
func Default() (*Catalog, error) {
	c := New()
	if err := c.load(bytes.NewReader(defaultCatalog)); err != nil {
		return nil, fmt.Errorf("embedded catalog: %w", err)
	}
	return c, nil
}

// LoadFile appends entries from a .tsv or .tsv.zst file.
func (c *Catalog) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("open zstd %s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	}
	if err := c.load(r); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// load parses TSV rows of id, fen, theme. Invalid rows are skipped.
func (c *Catalog) load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Skip header
		if lineNum == 1 && strings.HasPrefix(line, "id\t") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}

		pos, err := puzzle.NewPosition(parts[1])
		if err != nil {
			continue
		}
		key := pos.Key().String()
		if c.seen[key] {
			continue
		}
		c.seen[key] = true
		c.entries = append(c.entries, Entry{ID: parts[0], Position: pos, Theme: parts[2]})
	}
	return scanner.Err()
}

// Entries returns the catalog in load order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }
