// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

// Package main is the entry point for the Shelfscout server.
//
// Shelfscout is a multi-agent book recommendation engine. A central
// communication hub routes typed messages between capability agents
// (semantic search, text classification, popularity analysis) and an
// orchestrator that synthesizes their signals into ranked, fairness
// audited recommendation lists.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered Koanf v2 (env > config file > defaults)
//  2. Storage: BadgerDB for quota usage and user libraries
//  3. Catalog: JSON book dataset, optional Google Books enrichment
//  4. Search index: embeddings via an OpenAI-compatible backend, or a
//     deterministic local embedder when none is configured
//  5. Agents: hub registration of the capability adapters and the
//     orchestrator
//  6. HTTP server: chi REST API under Suture supervision
//
// Shutdown is graceful on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfscout/shelfscout/internal/agent"
	"github.com/shelfscout/shelfscout/internal/api"
	"github.com/shelfscout/shelfscout/internal/catalog"
	"github.com/shelfscout/shelfscout/internal/classify"
	"github.com/shelfscout/shelfscout/internal/config"
	"github.com/shelfscout/shelfscout/internal/fairness"
	"github.com/shelfscout/shelfscout/internal/library"
	"github.com/shelfscout/shelfscout/internal/logging"
	"github.com/shelfscout/shelfscout/internal/middleware"
	"github.com/shelfscout/shelfscout/internal/popularity"
	"github.com/shelfscout/shelfscout/internal/quota"
	"github.com/shelfscout/shelfscout/internal/recommend"
	"github.com/shelfscout/shelfscout/internal/search"
	"github.com/shelfscout/shelfscout/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger := logging.Logger()

	if cfg.Auth.JWTSecret == "" {
		logging.Fatal().Msg("auth.jwt_secret is required (SHELFSCOUT_AUTH_JWT_SECRET)")
	}

	logging.Info().
		Str("catalog_path", cfg.Catalog.Path).
		Str("storage_dir", cfg.Storage.Dir).
		Bool("google_books", cfg.Google.Enabled).
		Msg("Configuration loaded")

	db, err := openBadger(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()

	cat := catalog.New(logger)
	if err := cat.LoadFile(cfg.Catalog.Path); err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Catalog.Path).Msg("Failed to load catalog")
	}
	logging.Info().Int("books", cat.Len()).Msg("Catalog loaded")

	if cfg.Google.Enabled {
		gb := catalog.NewGoogleBooks(catalog.GoogleBooksConfig{
			BaseURL:           cfg.Google.BaseURL,
			APIKey:            cfg.Google.APIKey,
			RequestsPerSecond: cfg.Google.RequestsPerSecond,
		}, logger)
		enriched := gb.Enrich(context.Background(), cat)
		logging.Info().Int("enriched", enriched).Msg("Google Books enrichment complete")
	}

	index := search.NewIndex(newEmbedder(cfg), logger)
	if err := index.Build(context.Background(), cat); err != nil {
		logging.Fatal().Err(err).Msg("Failed to build search index")
	}
	logging.Info().Int("vectors", index.Len()).Msg("Search index built")

	qm := quota.NewManager(quota.NewBadgerStore(db), cfg.Limits, logger)
	lib := library.NewService(library.NewBadgerStore(db), cfg.Limits, logger)
	auditor := fairness.NewAuditor(cfg.Fairness.DominanceThreshold, logger)

	hub := agent.NewHub(logger)
	orch := recommend.NewOrchestrator(cfg, hub, cat, qm, lib, auditor, logger)
	for _, a := range []agent.Agent{
		search.NewAgent(index, logger),
		classify.NewAgent(logger),
		popularity.NewAgent(logger),
		orch,
	} {
		if err := hub.Register(a); err != nil {
			logging.Fatal().Err(err).Str("agent", a.ID()).Msg("Failed to register agent")
		}
	}

	auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)
	handlers := api.NewHandlers(cfg, orch, qm, lib, cat, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(cfg, auth, handlers),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(logger), supervisor.DefaultTreeConfig())
	tree.Add(supervisor.NewHTTPService(server, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Shelfscout listening")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	logging.Info().Msg("Shelfscout stopped gracefully")
}

// openBadger opens the shared BadgerDB instance for quota and library
// state.
func openBadger(cfg *config.Config) (*badger.DB, error) {
	var opts badger.Options
	if cfg.Storage.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Storage.Dir)
	}
	return badger.Open(opts.WithLogger(nil))
}

// newEmbedder selects the embeddings backend: remote when a base URL or
// API key is configured, the deterministic local embedder otherwise.
func newEmbedder(cfg *config.Config) search.Embedder {
	if cfg.Embeddings.BaseURL == "" && cfg.Embeddings.APIKey == "" {
		logging.Info().Msg("No embeddings backend configured, using local hash embedder")
		return search.NewHashEmbedder(256)
	}
	return search.NewOpenAIEmbedder(search.OpenAIConfig{
		BaseURL:           cfg.Embeddings.BaseURL,
		APIKey:            cfg.Embeddings.APIKey,
		Model:             cfg.Embeddings.Model,
		RequestsPerSecond: cfg.Embeddings.RequestsPerSecond,
	}, logging.Logger())
}
