// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package search

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// OpenAIConfig configures the remote embedding backend. Any
// OpenAI-compatible endpoint works via BaseURL.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string

	// Model is the embedding model name. Default: text-embedding-3-small.
	Model string

	// Dimensions is the vector size the model produces. Default: 1536.
	Dimensions int

	// RequestsPerSecond caps outbound calls. Default: 10.
	RequestsPerSecond float64
}

// OpenAIEmbedder embeds text through an OpenAI-compatible embeddings
// endpoint. Calls go through a rate limiter and a circuit breaker so a
// degraded backend fails fast instead of queueing requests.
type OpenAIEmbedder struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	dims    int
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[][]float32]
	logger  zerolog.Logger
}

// NewOpenAIEmbedder creates a remote embedder.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewOpenAIEmbedder(cfg OpenAIConfig, logger zerolog.Logger) *OpenAIEmbedder {
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1536
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	settings := gobreaker.Settings{
		Name:    "embeddings",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &OpenAIEmbedder{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   openai.EmbeddingModel(cfg.Model),
		dims:    cfg.Dimensions,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: gobreaker.NewCircuitBreaker[[][]float32](settings),
		logger:  logger.With().Str("component", "embedder").Logger(),
	}
}

// Dimensions implements Embedder.
func (e *OpenAIEmbedder) Dimensions() int { return e.dims }

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	return e.breaker.Execute(func() ([][]float32, error) {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: e.model,
		})
		if err != nil {
			return nil, fmt.Errorf("create embeddings: %w", err)
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(resp.Data), len(texts))
		}

		out := make([][]float32, len(resp.Data))
		for i, d := range resp.Data {
			out[i] = normalize(d.Embedding)
		}
		return out, nil
	})
}
