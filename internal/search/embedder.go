// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

// Package search implements semantic retrieval over the catalog: an
// embedding backend behind the Embedder interface, an in-memory cosine
// index, and the hub agent answering semantic_search messages.
package search

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder turns texts into fixed-size vectors. Implementations must be
// safe for concurrent use.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector size this embedder produces.
	Dimensions() int
}

// HashEmbedder is a deterministic local embedder: token hashes are
// folded into a fixed-size signed bag-of-words vector, L2-normalized.
// It needs no network and always returns the same vector for the same
// text, which makes it the test and offline-mode backend.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder. Dimensions below 8 are
// raised to 64.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims < 8 {
		dims = 64
	}
	return &HashEmbedder{dims: dims}
}

// Dimensions implements Embedder.
func (h *HashEmbedder) Dimensions() int { return h.dims }

// Embed implements Embedder. It never fails.
func (h *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.embedOne(text)
	}
	return out, nil
}

func (h *HashEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, h.dims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?\"'()[]")
		if token == "" {
			continue
		}
		hasher := fnv.New64a()
		_, _ = hasher.Write([]byte(token))
		sum := hasher.Sum64()

		idx := int(sum % uint64(h.dims)) //nolint:gosec // dims is small and positive
		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		vec[idx] += sign
	}
	return normalize(vec)
}

// normalize scales a vector to unit length. Zero vectors pass through
// unchanged.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
