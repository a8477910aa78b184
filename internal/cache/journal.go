package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// JournalCache maps journal names to JCR quartile codes ("Q1".."Q4").
type JournalCache struct {
	t *table[string]
}

type journalRecord struct {
	Journal *string `json:"journal"`
	JCR     *string `json:"jcr"`
}

// LoadJournalCache reads a journal cache file. Each line is a JSON array whose
// first element holds "journal" and "jcr". Bad lines are skipped; a missing
// file yields an empty cache.
func LoadJournalCache(path string, logger *zap.Logger) *JournalCache {
	return &JournalCache{t: load[string](path, logger, "journal", parseJournalLine)}
}

// NewJournalCache builds a cache from an in-memory map, folding its keys.
func NewJournalCache(entries map[string]string) *JournalCache {
	t := &table[string]{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		t.entries[Fold(k)] = v
	}
	t.stats.Loaded = len(t.entries)
	return &JournalCache{t: t}
}

func parseJournalLine(line []byte) (string, string, error) {
	var records []journalRecord
	if err := json.Unmarshal(line, &records); err != nil {
		return "", "", fmt.Errorf("parsing journal record: %w", err)
	}
	if len(records) == 0 {
		return "", "", errors.New("empty journal record")
	}
	rec := records[0]
	if rec.Journal == nil {
		return "", "", errors.New(`journal record has no "journal" field`)
	}
	if rec.JCR == nil {
		return "", "", fmt.Errorf(`journal %q has no "jcr" field`, *rec.Journal)
	}
	return *rec.Journal, *rec.JCR, nil
}

// Lookup returns the quartile recorded for a journal name, case-insensitively.
func (c *JournalCache) Lookup(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.t.lookup(name)
}

// Len returns the number of distinct journals.
func (c *JournalCache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.t.entries)
}

// Names returns the folded journal names in sorted order.
func (c *JournalCache) Names() []string {
	if c == nil {
		return nil
	}
	return c.t.names()
}

// Stats reports how the cache was loaded.
func (c *JournalCache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return c.t.stats
}
