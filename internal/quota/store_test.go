// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package quota

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscout/shelfscout/internal/logging"
)

func openTestBadger(t *testing.T) *badger.DB {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	store := NewBadgerStore(openTestBadger(t))
	ctx := context.Background()

	_, found, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found)

	usage := Usage{
		UserID:         "u1",
		DailyUsed:      2,
		MonthlyUsed:    7,
		DailyResetAt:   time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
		MonthlyResetAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Put(ctx, usage))

	got, found, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, usage, got)
}

func TestManagerWithBadgerStore(t *testing.T) {
	store := NewBadgerStore(openTestBadger(t))
	m := NewManager(store, testLimits, logging.NewTestLogger(io.Discard))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		adm, err := m.Admit(ctx, "u1", "free")
		require.NoError(t, err)
		assert.True(t, adm.Admitted)
	}
	_, err := m.Admit(ctx, "u1", "free")
	assert.ErrorIs(t, err, ErrExceeded)
}
