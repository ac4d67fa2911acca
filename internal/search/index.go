// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/shelfscout/shelfscout/internal/catalog"
)

// Match is one index hit. Score is cosine similarity mapped to [0, 1].
type Match struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
}

// Index is an in-memory vector index over catalog records. Vectors are
// expected to be unit length (the embedders normalize), so cosine
// similarity reduces to a dot product. Safe for concurrent use;
// read-mostly after the initial build.
type Index struct {
	mu       sync.RWMutex
	embedder Embedder
	keys     []string
	vectors  map[string][]float32
	logger   zerolog.Logger
}

// NewIndex creates an empty index over the given embedder.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewIndex(embedder Embedder, logger zerolog.Logger) *Index {
	return &Index{
		embedder: embedder,
		vectors:  make(map[string][]float32),
		logger:   logger.With().Str("component", "search_index").Logger(),
	}
}

// Upsert stores a vector for a key, replacing any previous one.
func (ix *Index) Upsert(key string, vector []float32) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, ok := ix.vectors[key]; !ok {
		ix.keys = append(ix.keys, key)
	}
	ix.vectors[key] = vector
}

// Len returns the number of indexed keys.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.keys)
}

// Build embeds every catalog record and indexes it. Records are
// embedded in batches; the embedded text is title, authors and
// description joined, which is what queries are matched against.
func (ix *Index) Build(ctx context.Context, c *catalog.Catalog) error {
	const batchSize = 64

	books := c.All()
	for start := 0; start < len(books); start += batchSize {
		end := start + batchSize
		if end > len(books) {
			end = len(books)
		}
		batch := books[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = embedText(&batch[i])
		}

		vectors, err := ix.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch at %d: %w", start, err)
		}
		for i := range batch {
			ix.Upsert(batch[i].IdentityKey(), vectors[i])
		}
	}

	ix.logger.Info().Int("indexed", ix.Len()).Msg("search index built")
	return nil
}

// Query embeds the query text and returns the top k matches.
func (ix *Index) Query(ctx context.Context, query string, k int) ([]Match, error) {
	vectors, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return ix.TopK(vectors[0], k), nil
}

// TopK returns the k nearest keys to the query vector, scored by cosine
// similarity mapped to [0, 1]. Ordering is deterministic: score
// descending, then key ascending.
func (ix *Index) TopK(query []float32, k int) []Match {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	matches := make([]Match, 0, len(ix.keys))
	for _, key := range ix.keys {
		cos := dot(query, ix.vectors[key])
		matches = append(matches, Match{Key: key, Score: (cos + 1) / 2})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Key < matches[j].Key
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// embedText builds the text representation of a record for indexing.
func embedText(b *catalog.BookRecord) string {
	parts := []string{b.Title}
	parts = append(parts, b.Authors...)
	parts = append(parts, b.Categories...)
	if b.Description != "" {
		parts = append(parts, b.Description)
	}
	return strings.Join(parts, " ")
}
