// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

// Package config provides layered configuration for Shelfscout using Koanf v2.
// Precedence: environment variables > config file > built-in defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Shelfscout server.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Auth       AuthConfig       `koanf:"auth"`
	Storage    StorageConfig    `koanf:"storage"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Adapters   AdaptersConfig   `koanf:"adapters"`
	Scoring    ScoringConfig    `koanf:"scoring"`
	Fairness   FairnessConfig   `koanf:"fairness"`
	Plans      PlansConfig      `koanf:"plans"`
	Google     GoogleConfig     `koanf:"google_books"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address. Default: 0.0.0.0.
	Host string `koanf:"host"`

	// Port is the listen port. Default: 8642.
	Port int `koanf:"port"`

	// Timeout is the per-request read/write timeout. Default: 30s.
	Timeout time.Duration `koanf:"timeout"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the per-IP request limit per window. Default: 100.
	RateLimitReqs int `koanf:"rate_limit_reqs"`

	// RateLimitWindow is the rate limiting window. Default: 1m.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AuthConfig holds JWT authentication settings.
type AuthConfig struct {
	// JWTSecret signs and verifies bearer tokens. Required in production.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL is the lifetime of issued tokens. Default: 24h.
	TokenTTL time.Duration `koanf:"token_ttl"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// Dir is the BadgerDB data directory. Default: /data/shelfscout.
	Dir string `koanf:"dir"`

	// InMemory runs Badger without disk persistence. Default: false.
	InMemory bool `koanf:"in_memory"`
}

// CatalogConfig holds the book catalog source.
type CatalogConfig struct {
	// Path is the JSON catalog dataset path.
	Path string `koanf:"path"`
}

// EmbeddingsConfig holds the embeddings backend settings for semantic search.
type EmbeddingsConfig struct {
	// BaseURL is an OpenAI-compatible endpoint. Empty selects the
	// deterministic local embedder (development and tests).
	BaseURL string `koanf:"base_url"`

	// APIKey authenticates against the embeddings backend.
	APIKey string `koanf:"api_key"`

	// Model is the embedding model name. Default: text-embedding-3-small.
	Model string `koanf:"model"`

	// RequestsPerSecond caps outbound embedding calls. Default: 10.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// AdaptersConfig holds fan-out settings for the analysis adapters.
type AdaptersConfig struct {
	// Timeout is the fan-in join deadline. Adapters that miss it are
	// treated as degraded for the request. Default: 3s.
	Timeout time.Duration `koanf:"timeout"`

	// SearchMultiplier oversamples semantic search relative to the
	// requested count so filtering and dedup have slack. Default: 2.
	SearchMultiplier int `koanf:"search_multiplier"`
}

// ScoringConfig holds the signal weights for the combined score.
// Weights are normalized at runtime, so they don't need to sum to 1.0.
type ScoringConfig struct {
	// Semantic is the weight for semantic similarity. Default: 0.5.
	Semantic float64 `koanf:"semantic"`

	// Classification is the weight for category/emotion match. Default: 0.2.
	Classification float64 `koanf:"classification"`

	// Popularity is the weight for popularity. Default: 0.3.
	Popularity float64 `koanf:"popularity"`

	// Affinity is the additional weight for user genre affinity in
	// personalized mode. Default: 0.2.
	Affinity float64 `koanf:"affinity"`
}

// FairnessConfig holds fairness audit settings.
type FairnessConfig struct {
	// DominanceThreshold flags a result set when a single category's
	// share exceeds it. Default: 0.5 (the original flagged >50%).
	DominanceThreshold float64 `koanf:"dominance_threshold"`
}

// PlansConfig holds the per-plan usage limits.
type PlansConfig struct {
	Free PlanLimits `koanf:"free"`
	Pro  PlanLimits `koanf:"pro"`
}

// PlanLimits defines the usage allowance of a subscription plan.
type PlanLimits struct {
	// DailySearches is the per-day recommendation request limit.
	DailySearches int `koanf:"daily_searches"`

	// MonthlySearches is the per-month recommendation request limit.
	MonthlySearches int `koanf:"monthly_searches"`

	// LibraryBooks caps the user's saved library size.
	LibraryBooks int `koanf:"library_books"`
}

// GoogleConfig holds Google Books enrichment settings.
type GoogleConfig struct {
	// Enabled turns on catalog enrichment via the Google Books API.
	Enabled bool `koanf:"enabled"`

	// APIKey is the Google Books API key.
	APIKey string `koanf:"api_key"`

	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string `koanf:"base_url"`

	// RequestsPerSecond caps outbound volume lookups. Default: 5.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// Default returns a Config with production defaults. Plan limits follow
// the published free/pro tiers.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8642,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Auth: AuthConfig{
			JWTSecret: "",
			TokenTTL:  24 * time.Hour,
		},
		Storage: StorageConfig{
			Dir:      "/data/shelfscout",
			InMemory: false,
		},
		Catalog: CatalogConfig{
			Path: "books.json",
		},
		Embeddings: EmbeddingsConfig{
			BaseURL:           "",
			Model:             "text-embedding-3-small",
			RequestsPerSecond: 10,
		},
		Adapters: AdaptersConfig{
			Timeout:          3 * time.Second,
			SearchMultiplier: 2,
		},
		Scoring: ScoringConfig{
			Semantic:       0.5,
			Classification: 0.2,
			Popularity:     0.3,
			Affinity:       0.2,
		},
		Fairness: FairnessConfig{
			DominanceThreshold: 0.5,
		},
		Plans: PlansConfig{
			Free: PlanLimits{DailySearches: 20, MonthlySearches: 200, LibraryBooks: 50},
			Pro:  PlanLimits{DailySearches: 500, MonthlySearches: 5000, LibraryBooks: 1000},
		},
		Google: GoogleConfig{
			Enabled:           false,
			BaseURL:           "https://www.googleapis.com/books/v1",
			RequestsPerSecond: 5,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}
	if c.Adapters.Timeout <= 0 {
		return fmt.Errorf("adapters.timeout must be positive, got %v", c.Adapters.Timeout)
	}
	if c.Adapters.SearchMultiplier < 1 {
		return fmt.Errorf("adapters.search_multiplier must be >= 1, got %d", c.Adapters.SearchMultiplier)
	}
	if c.Scoring.Semantic < 0 || c.Scoring.Classification < 0 || c.Scoring.Popularity < 0 || c.Scoring.Affinity < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if c.Scoring.Semantic+c.Scoring.Classification+c.Scoring.Popularity == 0 {
		return fmt.Errorf("at least one scoring weight must be positive")
	}
	if c.Fairness.DominanceThreshold <= 0 || c.Fairness.DominanceThreshold > 1 {
		return fmt.Errorf("fairness.dominance_threshold must be in (0, 1], got %f", c.Fairness.DominanceThreshold)
	}
	for name, p := range map[string]PlanLimits{"free": c.Plans.Free, "pro": c.Plans.Pro} {
		if p.DailySearches < 1 {
			return fmt.Errorf("plans.%s.daily_searches must be positive, got %d", name, p.DailySearches)
		}
		if p.MonthlySearches < p.DailySearches {
			return fmt.Errorf("plans.%s.monthly_searches must be >= daily_searches, got %d < %d",
				name, p.MonthlySearches, p.DailySearches)
		}
	}
	return nil
}

// Limits returns the plan limits for a plan name, defaulting to free for
// unknown plans.
func (c *Config) Limits(plan string) PlanLimits {
	if plan == "pro" {
		return c.Plans.Pro
	}
	return c.Plans.Free
}
