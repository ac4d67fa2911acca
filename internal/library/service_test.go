// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package library

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscout/shelfscout/internal/config"
	"github.com/shelfscout/shelfscout/internal/logging"
)

func testLimits(plan string) config.PlanLimits {
	if plan == "pro" {
		return config.PlanLimits{DailySearches: 500, MonthlySearches: 5000, LibraryBooks: 1000}
	}
	return config.PlanLimits{DailySearches: 20, MonthlySearches: 200, LibraryBooks: 3}
}

func newTestService() *Service {
	return NewService(NewMemoryStore(), testLimits, logging.NewTestLogger(io.Discard))
}

func TestAddAndList(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "u1", "free", Entry{Key: "9780000000001", Title: "One", Category: "Fiction"}))
	require.NoError(t, s.Add(ctx, "u1", "free", Entry{Key: "9780000000002", Title: "Two", Category: "Nonfiction"}))

	entries, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "One", entries[0].Title)
	assert.False(t, entries[0].AddedAt.IsZero())
}

func TestAddRejectsDuplicate(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "u1", "free", Entry{Key: "k1"}))
	err := s.Add(ctx, "u1", "free", Entry{Key: "k1"})
	assert.ErrorIs(t, err, ErrAlreadySaved)
}

func TestAddEnforcesPlanCap(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Add(ctx, "u1", "free", Entry{Key: fmt.Sprintf("k%d", i)}))
	}
	err := s.Add(ctx, "u1", "free", Entry{Key: "k3"})
	assert.ErrorIs(t, err, ErrLibraryFull)

	entries, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// A pro user has headroom.
	require.NoError(t, s.Add(ctx, "u2", "pro", Entry{Key: "k3"}))
}

func TestRemove(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "u1", "free", Entry{Key: "k1"}))
	require.NoError(t, s.Remove(ctx, "u1", "k1"))

	entries, err := s.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.ErrorIs(t, s.Remove(ctx, "u1", "k1"), ErrNotFound)
}

func TestRecordSearchCapsHistory(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	for i := 0; i < historyCap+10; i++ {
		require.NoError(t, s.RecordSearch(ctx, "u1", fmt.Sprintf("query %d", i)))
	}

	records, err := s.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, historyCap)
	assert.Equal(t, "query 10", records[0].Query)
	assert.Equal(t, fmt.Sprintf("query %d", historyCap+9), records[historyCap-1].Query)
}

func TestGenreAffinity(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "u1", "pro", Entry{Key: "k1", Category: "Fiction"}))
	require.NoError(t, s.Add(ctx, "u1", "pro", Entry{Key: "k2", Category: "Fiction"}))
	require.NoError(t, s.Add(ctx, "u1", "pro", Entry{Key: "k3", Category: "Nonfiction"}))
	require.NoError(t, s.Add(ctx, "u1", "pro", Entry{Key: "k4"}))

	affinity, err := s.GenreAffinity(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, affinity["Fiction"], 1e-9)
	assert.InDelta(t, 0.25, affinity["Nonfiction"], 1e-9)
	assert.InDelta(t, 0.25, affinity["Other"], 1e-9)
}

func TestGenreAffinityEmptyLibrary(t *testing.T) {
	affinity, err := newTestService().GenreAffinity(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, affinity)
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewService(NewBadgerStore(db), testLimits, logging.NewTestLogger(io.Discard))
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "u1", "free", Entry{Key: "k1", Title: "One", Category: "Fiction"}))
	require.NoError(t, s.RecordSearch(ctx, "u1", "space adventure"))

	entries, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "One", entries[0].Title)

	records, err := s.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "space adventure", records[0].Query)
}
