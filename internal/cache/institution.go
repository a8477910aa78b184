package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// InstitutionCache maps institution names to their average citations per work.
type InstitutionCache struct {
	t *table[float64]
}

type institutionRecord struct {
	Name         *string  `json:"name"`
	WorksCount   *float64 `json:"works_count"`
	CitedByCount *float64 `json:"cited_by_count"`
}

// LoadInstitutionCache reads an institution cache file with one object per
// line carrying "name", "works_count" and "cited_by_count".
func LoadInstitutionCache(path string, logger *zap.Logger) *InstitutionCache {
	return &InstitutionCache{t: load[float64](path, logger, "institution", parseInstitutionLine)}
}

// NewInstitutionCache builds a cache from precomputed averages.
func NewInstitutionCache(entries map[string]float64) *InstitutionCache {
	t := &table[float64]{entries: make(map[string]float64, len(entries))}
	for k, v := range entries {
		t.entries[Fold(k)] = v
	}
	t.stats.Loaded = len(t.entries)
	return &InstitutionCache{t: t}
}

func parseInstitutionLine(line []byte) (string, float64, error) {
	var rec institutionRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return "", 0, fmt.Errorf("parsing institution record: %w", err)
	}
	if rec.Name == nil {
		return "", 0, errors.New(`institution record has no "name" field`)
	}
	if rec.WorksCount == nil || rec.CitedByCount == nil {
		return "", 0, fmt.Errorf("institution %q is missing works_count or cited_by_count", *rec.Name)
	}
	return *rec.Name, AverageCitation(*rec.CitedByCount, *rec.WorksCount), nil
}

// AverageCitation divides citations by works; zero works yields zero.
func AverageCitation(citedBy, works float64) float64 {
	if works == 0 {
		return 0
	}
	return citedBy / works
}

// Lookup returns the average citations for an institution name.
func (c *InstitutionCache) Lookup(name string) (float64, bool) {
	if c == nil {
		return 0, false
	}
	return c.t.lookup(name)
}

// Len returns the number of distinct institutions.
func (c *InstitutionCache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.t.entries)
}

// Names returns the folded institution names in sorted order.
func (c *InstitutionCache) Names() []string {
	if c == nil {
		return nil
	}
	return c.t.names()
}

// Stats reports how the cache was loaded.
func (c *InstitutionCache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return c.t.stats
}
