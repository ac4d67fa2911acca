// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package recommend

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscout/shelfscout/internal/agent"
	"github.com/shelfscout/shelfscout/internal/catalog"
	"github.com/shelfscout/shelfscout/internal/classify"
	"github.com/shelfscout/shelfscout/internal/config"
	"github.com/shelfscout/shelfscout/internal/fairness"
	"github.com/shelfscout/shelfscout/internal/library"
	"github.com/shelfscout/shelfscout/internal/logging"
	"github.com/shelfscout/shelfscout/internal/popularity"
	"github.com/shelfscout/shelfscout/internal/quota"
	"github.com/shelfscout/shelfscout/internal/search"
)

// countingAgent wraps an agent and counts deliveries, to verify that
// rejected requests dispatch nothing.
type countingAgent struct {
	inner agent.Agent
	calls atomic.Int64
}

func (c *countingAgent) ID() string             { return c.inner.ID() }
func (c *countingAgent) Capabilities() []string { return c.inner.Capabilities() }
func (c *countingAgent) Handle(ctx context.Context, msg agent.Message) (agent.Message, error) {
	c.calls.Add(1)
	return c.inner.Handle(ctx, msg)
}

// brokenAgent fails every delivery, simulating a dead adapter.
type brokenAgent struct {
	id string
}

func (b *brokenAgent) ID() string             { return b.id }
func (b *brokenAgent) Capabilities() []string { return nil }
func (b *brokenAgent) Handle(context.Context, agent.Message) (agent.Message, error) {
	return agent.Message{}, agent.ErrAdapterUnavailable
}

// testFixture wires a full orchestrator over in-memory stores and the
// deterministic local embedder.
type testFixture struct {
	orch    *Orchestrator
	hub     *agent.Hub
	catalog *catalog.Catalog
	library *library.Service
	cfg     *config.Config
}

func testBooks() []catalog.BookRecord {
	return []catalog.BookRecord{
		{
			ISBN13: "9780000000001", Title: "Galactic Voyage",
			Authors:     []string{"Ada Vance"},
			Description: "A space adventure across distant planets and alien ships.",
			Categories:  []string{"Fiction"}, SimpleCategory: "Fiction",
			AverageRating: 4.4, RatingsCount: 900,
			Emotions: map[string]float64{"joy": 0.6, "fear": 0.2},
		},
		{
			ISBN13: "9780000000002", Title: "Starship Tactics",
			Authors:     []string{"Brin Okafor"},
			Description: "Space battles, adventure and exploration among the stars.",
			Categories:  []string{"Fiction"}, SimpleCategory: "Fiction",
			AverageRating: 4.1, RatingsCount: 400,
			Emotions: map[string]float64{"fear": 0.7, "surprise": 0.2},
		},
		{
			ISBN13: "9780000000003", Title: "Garden Soil Basics",
			Authors:     []string{"Cleo Marsh"},
			Description: "Practical gardening advice for compost and vegetables.",
			Categories:  []string{"Science"}, SimpleCategory: "Nonfiction",
			AverageRating: 3.9, RatingsCount: 150,
			Emotions: map[string]float64{"joy": 0.8},
		},
		{
			ISBN13: "9780000000004", Title: "The Silent Comet",
			Authors:     []string{"Ada Vance"},
			Description: "A grief-stricken astronomer mourns a loss while a comet nears.",
			Categories:  []string{"Fiction"}, SimpleCategory: "Fiction",
			AverageRating: 4.7, RatingsCount: 2000,
			Emotions: map[string]float64{"sadness": 0.9},
		},
	}
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	logger := logging.NewTestLogger(io.Discard)

	cfg := config.Default()
	cfg.Adapters.Timeout = 2 * time.Second
	cfg.Plans.Free = config.PlanLimits{DailySearches: 3, MonthlySearches: 10, LibraryBooks: 50}

	cat := catalog.New(logger)
	for _, b := range testBooks() {
		cat.Put(b)
	}

	index := search.NewIndex(search.NewHashEmbedder(256), logger)
	require.NoError(t, index.Build(context.Background(), cat))

	hub := agent.NewHub(logger)
	require.NoError(t, hub.Register(search.NewAgent(index, logger)))
	require.NoError(t, hub.Register(classify.NewAgent(logger)))
	require.NoError(t, hub.Register(popularity.NewAgent(logger)))

	qm := quota.NewManager(quota.NewMemoryStore(), cfg.Limits, logger)
	lib := library.NewService(library.NewMemoryStore(), cfg.Limits, logger)
	auditor := fairness.NewAuditor(cfg.Fairness.DominanceThreshold, logger)

	return &testFixture{
		orch:    NewOrchestrator(cfg, hub, cat, qm, lib, auditor, logger),
		hub:     hub,
		catalog: cat,
		library: lib,
		cfg:     cfg,
	}
}

func TestRecommendHappyPath(t *testing.T) {
	f := newFixture(t)

	result, err := f.orch.Recommend(context.Background(), Request{
		UserID: "u1", Plan: "free", Query: "space adventure", Count: 3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)
	assert.LessOrEqual(t, len(result.Candidates), 3)
	assert.Empty(t, result.Degraded)
	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, ModeGeneral, result.Metadata.Mode)
	assert.NotEmpty(t, result.Fairness.Explanation)
}

func TestRecommendEmptyQuery(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Recommend(context.Background(), Request{UserID: "u1", Plan: "free", Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRecommendDedupInvariant(t *testing.T) {
	f := newFixture(t)

	result, err := f.orch.Recommend(context.Background(), Request{
		UserID: "u1", Plan: "free", Query: "space adventure", Count: 10,
	})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, c := range result.Candidates {
		key := c.Book.IdentityKey()
		require.NotEmpty(t, key)
		assert.False(t, seen[key], "duplicate identity key %s", key)
		seen[key] = true
	}
}

func TestRecommendDeterministicOrdering(t *testing.T) {
	f := newFixture(t)
	req := Request{UserID: "u1", Plan: "free", Query: "space adventure", Count: 4}

	first, err := f.orch.Recommend(context.Background(), req)
	require.NoError(t, err)
	second, err := f.orch.Recommend(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, len(first.Candidates), len(second.Candidates))
	for i := range first.Candidates {
		assert.Equal(t, first.Candidates[i].Book.IdentityKey(), second.Candidates[i].Book.IdentityKey())
		assert.Equal(t, first.Candidates[i].CombinedScore, second.Candidates[i].CombinedScore)
	}

	// Scores strictly ordered per the sort contract.
	for i := 1; i < len(first.Candidates); i++ {
		assert.GreaterOrEqual(t, first.Candidates[i-1].CombinedScore, first.Candidates[i].CombinedScore)
	}
}

func TestQuotaRejectionDispatchesNothing(t *testing.T) {
	logger := logging.NewTestLogger(io.Discard)
	f := newFixture(t)

	// Re-register the search agent behind a delivery counter.
	f.hub.Deregister(search.AgentID)
	index := search.NewIndex(search.NewHashEmbedder(64), logger)
	require.NoError(t, index.Build(context.Background(), f.catalog))
	counter := &countingAgent{inner: search.NewAgent(index, logger)}
	require.NoError(t, f.hub.Register(counter))

	ctx := context.Background()
	req := Request{UserID: "u1", Plan: "free", Query: "space adventure"}
	for i := 0; i < 3; i++ {
		_, err := f.orch.Recommend(ctx, req)
		require.NoError(t, err)
	}
	delivered := counter.calls.Load()

	_, err := f.orch.Recommend(ctx, req)
	var qerr *QuotaExceededError
	require.ErrorAs(t, err, &qerr)
	assert.ErrorIs(t, err, quota.ErrExceeded)
	assert.Equal(t, quota.ReasonDailyLimit, qerr.Admission.Reason)
	assert.Greater(t, qerr.Admission.RetryAfter, time.Duration(0))

	// No adapter saw the rejected request.
	assert.Equal(t, delivered, counter.calls.Load())
}

func TestPartialFailureDegradesClassification(t *testing.T) {
	f := newFixture(t)

	f.hub.Deregister(classify.AgentID)
	require.NoError(t, f.hub.Register(&brokenAgent{id: classify.AgentID}))

	result, err := f.orch.Recommend(context.Background(), Request{
		UserID: "u1", Plan: "free", Query: "space adventure", Count: 4,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)
	assert.Equal(t, []string{"classification"}, result.Degraded)

	for _, c := range result.Candidates {
		assert.Zero(t, c.ClassificationScore)
	}
}

func TestAllSignalsDegradedStillReturns(t *testing.T) {
	f := newFixture(t)

	for _, id := range []string{search.AgentID, classify.AgentID, popularity.AgentID} {
		f.hub.Deregister(id)
		require.NoError(t, f.hub.Register(&brokenAgent{id: id}))
	}

	result, err := f.orch.Recommend(context.Background(), Request{
		UserID: "u1", Plan: "free", Query: "anything at all",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
	assert.Equal(t, []string{"classification", "popularity", "search"}, result.Degraded)
}

func TestMergeCandidatesKeepsBestScoresAndRicherRecord(t *testing.T) {
	sparse := ScoredCandidate{
		Book:          catalog.BookRecord{ISBN13: "9780000000009", Title: "Orbit"},
		SemanticScore: 0.9,
	}
	rich := ScoredCandidate{
		Book: catalog.BookRecord{
			ISBN13: "9780000000009", Title: "Orbit",
			Description:   "The richer record with a full description.",
			AverageRating: 4.2, RatingsCount: 300,
		},
		PopularityScore: 0.8,
	}

	merged := mergeCandidates(sparse, rich)
	assert.Equal(t, 0.9, merged.SemanticScore)
	assert.Equal(t, 0.8, merged.PopularityScore)
	assert.Equal(t, "The richer record with a full description.", merged.Book.Description)

	// Symmetric in argument order.
	assert.Equal(t, merged, mergeCandidates(rich, sparse))
}

func TestCategoryFilter(t *testing.T) {
	f := newFixture(t)

	result, err := f.orch.Recommend(context.Background(), Request{
		UserID: "u1", Plan: "free", Query: "space adventure", Count: 10,
		Filters: Filters{Category: "Nonfiction"},
	})
	require.NoError(t, err)
	for _, c := range result.Candidates {
		assert.Equal(t, "Nonfiction", c.Book.PrimaryCategory())
	}
}

func TestMinRatingFilter(t *testing.T) {
	f := newFixture(t)

	result, err := f.orch.Recommend(context.Background(), Request{
		UserID: "u1", Plan: "free", Query: "space adventure", Count: 10,
		Filters: Filters{MinRating: 4.3},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)
	for _, c := range result.Candidates {
		assert.GreaterOrEqual(t, c.Book.AverageRating, 4.3)
	}
}

func TestToneFilter(t *testing.T) {
	f := newFixture(t)

	result, err := f.orch.Recommend(context.Background(), Request{
		UserID: "u1", Plan: "free", Query: "space adventure", Count: 10,
		Filters: Filters{Tone: "Sad"},
	})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "The Silent Comet", result.Candidates[0].Book.Title)
}

func TestPersonalizedModeUsesAffinity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A library full of nonfiction should lift the gardening book.
	require.NoError(t, f.library.Add(ctx, "u1", "free", library.Entry{Key: "x1", Category: "Nonfiction"}))
	require.NoError(t, f.library.Add(ctx, "u1", "free", library.Entry{Key: "x2", Category: "Nonfiction"}))

	result, err := f.orch.Recommend(ctx, Request{
		UserID: "u1", Plan: "free", Query: "space adventure", Count: 10,
		Mode: ModePersonalized,
	})
	require.NoError(t, err)

	var garden *ScoredCandidate
	for i := range result.Candidates {
		if result.Candidates[i].Book.ISBN13 == "9780000000003" {
			garden = &result.Candidates[i]
		}
	}
	require.NotNil(t, garden)
	assert.InDelta(t, 1.0, garden.AffinityScore, 1e-9)
}

func TestRecommendRecordsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.Recommend(ctx, Request{UserID: "u1", Plan: "free", Query: "space adventure"})
	require.NoError(t, err)

	records, err := f.library.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "space adventure", records[0].Query)
}

func TestHandleGetRecommendations(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.hub.Register(f.orch))

	msg := agent.NewMessage("cli-1", AgentID, agent.TypeGetRecommendation,
		Request{UserID: "u1", Plan: "free", Query: "space adventure"}, agent.PriorityHigh)

	reply, err := f.hub.Send(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, agent.TypeRecommendationResult, reply.Type)

	result, ok := reply.Content.(*Result)
	require.True(t, ok)
	assert.NotEmpty(t, result.Candidates)
}

func TestHandleRejectsUnsupported(t *testing.T) {
	f := newFixture(t)

	msg := agent.NewMessage("x", AgentID, agent.TypeSemanticSearch, Request{}, agent.PriorityLow)
	_, err := f.orch.Handle(context.Background(), msg)
	assert.ErrorIs(t, err, agent.ErrUnsupportedMessage)
}

func TestCountDefaultsAndCaps(t *testing.T) {
	f := newFixture(t)

	prepared := f.orch.prepareRequest(Request{Query: "q"})
	assert.Equal(t, defaultCount, prepared.Count)
	assert.Equal(t, ModeGeneral, prepared.Mode)
	assert.NotEmpty(t, prepared.RequestID)

	prepared = f.orch.prepareRequest(Request{Query: "q", Count: 500})
	assert.Equal(t, maxCount, prepared.Count)
}

func TestFairnessFlagOnDominatedResult(t *testing.T) {
	f := newFixture(t)

	// Fiction-only query pool: three of four books are Fiction.
	result, err := f.orch.Recommend(context.Background(), Request{
		UserID: "u1", Plan: "free", Query: "space adventure", Count: 10,
		Filters: Filters{Category: "Fiction"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)
	assert.True(t, result.Fairness.Flagged)
	assert.Equal(t, "Fiction", result.Fairness.DominantCategory)
}

func TestErrorsHierarchy(t *testing.T) {
	qerr := &QuotaExceededError{Admission: quota.Admission{Reason: quota.ReasonDailyLimit}}
	assert.ErrorIs(t, qerr, quota.ErrExceeded)
	assert.Contains(t, qerr.Error(), quota.ReasonDailyLimit)
	assert.False(t, errors.Is(qerr, ErrEmptyQuery))
}
