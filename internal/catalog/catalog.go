// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package catalog

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Catalog is an in-memory book index keyed by identity key. It is
// read-mostly: loaded once at startup, optionally enriched afterwards.
// Safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	byKey  map[string]*BookRecord
	keys   []string // insertion order for deterministic iteration
	logger zerolog.Logger
}

// New creates an empty catalog.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(logger zerolog.Logger) *Catalog {
	return &Catalog{
		byKey:  make(map[string]*BookRecord),
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// LoadFile reads a JSON array of BookRecords into the catalog.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	var records []BookRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}

	added := 0
	for i := range records {
		if c.Put(records[i]) {
			added++
		}
	}

	c.logger.Info().
		Int("records", len(records)).
		Int("added", added).
		Str("path", path).
		Msg("catalog loaded")
	return nil
}

// Put inserts or merges a record. Records without an identity key are
// dropped (they cannot be looked up or deduplicated). Reports whether
// the record was stored.
func (c *Catalog) Put(b BookRecord) bool {
	key := b.IdentityKey()
	if key == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.byKey[key]; ok {
		merged := Merge(*existing, b)
		c.byKey[key] = &merged
		return true
	}
	c.byKey[key] = &b
	c.keys = append(c.keys, key)
	return true
}

// Get returns the record for an identity key.
func (c *Catalog) Get(key string) (BookRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if b, ok := c.byKey[key]; ok {
		return *b, true
	}
	return BookRecord{}, false
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKey)
}

// All returns all records in insertion order.
func (c *Catalog) All() []BookRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]BookRecord, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, *c.byKey[k])
	}
	return out
}

// Categories returns the distinct primary categories, sorted.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, b := range c.byKey {
		seen[b.PrimaryCategory()] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}
