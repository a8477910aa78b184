// Package cache loads the local reputation tables used during enrichment:
// journal JCR quartiles and institution average citations. Both are read from
// line-delimited JSON once at startup and are read-only afterwards.
package cache

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// maxLineSize bounds a single record; institution dumps carry large nested objects.
const maxLineSize = 16 << 20

// Default file names inside the data directory.
const (
	JournalFile     = "journal_cache.jsonl"
	InstitutionFile = "affiliation_cache.jsonl"
)

// Fold returns the case-insensitive lookup key for a name.
func Fold(name string) string {
	return cases.Fold().String(name)
}

// Stats describes the outcome of a load.
type Stats struct {
	Path    string `json:"path"`
	Found   bool   `json:"found"`
	Lines   int    `json:"lines"`
	Loaded  int    `json:"loaded"`
	Skipped int    `json:"skipped"`
}

// table is the shared read-only map behind both caches.
type table[V any] struct {
	entries map[string]V
	stats   Stats
}

func (t *table[V]) lookup(name string) (V, bool) {
	if t == nil {
		var zero V
		return zero, false
	}
	v, ok := t.entries[Fold(name)]
	return v, ok
}

func (t *table[V]) names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// parseFunc decodes one line into a key and value; an error skips the line.
type parseFunc[V any] func(line []byte) (key string, value V, err error)

// load reads path line by line. Unreadable files yield an empty table.
func load[V any](path string, logger *zap.Logger, kind string, parse parseFunc[V]) *table[V] {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	t := &table[V]{entries: make(map[string]V), stats: Stats{Path: abs}}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("cache file not found, continuing with empty cache",
				zap.String("cache", kind), zap.String("path", abs))
		} else {
			logger.Warn("cannot open cache file, continuing with empty cache",
				zap.String("cache", kind), zap.String("path", abs), zap.Error(err))
		}
		return t
	}
	defer f.Close()
	t.stats.Found = true

	t.read(f, logger.With(zap.String("cache", kind), zap.String("path", abs)), parse)
	return t
}

func (t *table[V]) read(r io.Reader, logger *zap.Logger, parse parseFunc[V]) {
	br := bufio.NewReaderSize(r, 64*1024)
	var buf []byte
	n := 0
	for {
		raw, tooLong, err := nextLine(br, buf[:0])
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn("cache read stopped early", zap.Int("line", n), zap.Error(err))
			}
			break
		}
		buf = raw
		n++
		if tooLong {
			t.stats.Lines++
			t.stats.Skipped++
			logger.Warn("skipping cache line", zap.Int("line", n),
				zap.Error(fmt.Errorf("line exceeds %d bytes", maxLineSize)))
			continue
		}
		line := bytes.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}
		t.stats.Lines++
		key, value, err := parse(line)
		if err != nil {
			t.stats.Skipped++
			logger.Warn("skipping cache line", zap.Int("line", n), zap.Error(err))
			continue
		}
		t.entries[Fold(key)] = value
	}
	t.stats.Loaded = len(t.entries)
}

// nextLine appends the next line, without its terminator, to buf. A line
// longer than maxLineSize is consumed but not kept, and tooLong is set. The
// error is io.EOF only when no line remains.
func nextLine(br *bufio.Reader, buf []byte) (line []byte, tooLong bool, err error) {
	read := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && read {
				return buf, tooLong, nil
			}
			return nil, false, err
		}
		read = true
		if !tooLong {
			if len(buf)+len(chunk) > maxLineSize {
				tooLong = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return buf, tooLong, nil
		}
	}
}
