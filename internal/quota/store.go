// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// usageKeyPrefix namespaces quota state in BadgerDB.
const usageKeyPrefix = "quota:"

// Usage is the persisted per-user counter state. Reset times are the
// NEXT boundary at which the corresponding counter zeroes.
type Usage struct {
	UserID         string    `json:"user_id"`
	DailyUsed      int       `json:"daily_used"`
	MonthlyUsed    int       `json:"monthly_used"`
	DailyResetAt   time.Time `json:"daily_reset_at"`
	MonthlyResetAt time.Time `json:"monthly_reset_at"`
}

// Store persists per-user usage. Implementations need not be
// transactional across users: the manager serializes access per user.
type Store interface {
	// Get returns the usage for a user. found is false for users with
	// no recorded usage yet.
	Get(ctx context.Context, userID string) (usage Usage, found bool, err error)

	// Put stores the usage for usage.UserID.
	Put(ctx context.Context, usage Usage) error
}

// MemoryStore is an in-memory Store for tests and ephemeral deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	usage map[string]Usage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{usage: make(map[string]Usage)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, userID string) (Usage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.usage[userID]
	return u, ok, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, usage Usage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.usage[usage.UserID] = usage
	return nil
}

// BadgerStore persists usage in BadgerDB so quota state survives
// restarts.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates a BadgerDB-backed store.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Get implements Store.
func (s *BadgerStore) Get(_ context.Context, userID string) (Usage, bool, error) {
	var usage Usage
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(usageKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get usage: %w", err)
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &usage)
		})
	})
	if err != nil {
		return Usage{}, false, err
	}
	return usage, found, nil
}

// Put implements Store.
func (s *BadgerStore) Put(_ context.Context, usage Usage) error {
	data, err := json.Marshal(usage)
	if err != nil {
		return fmt.Errorf("marshal usage: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(usageKeyPrefix+usage.UserID), data)
	})
}
