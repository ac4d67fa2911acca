// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package library

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes for BadgerDB storage.
const (
	libraryKeyPrefix = "library:"
	historyKeyPrefix = "history:"
)

// Entry is one saved book in a user's library.
type Entry struct {
	// Key is the catalog identity key of the saved book.
	Key      string    `json:"key"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	AddedAt  time.Time `json:"added_at"`
}

// SearchRecord is one recommendation query a user ran.
type SearchRecord struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// Store persists per-user library and search history. Each user's
// library and history are stored as whole lists; plan caps keep them
// small.
type Store interface {
	GetLibrary(ctx context.Context, userID string) ([]Entry, error)
	PutLibrary(ctx context.Context, userID string, entries []Entry) error
	GetHistory(ctx context.Context, userID string) ([]SearchRecord, error)
	PutHistory(ctx context.Context, userID string, records []SearchRecord) error
}

// MemoryStore is an in-memory Store for tests and ephemeral deployments.
type MemoryStore struct {
	mu        sync.RWMutex
	libraries map[string][]Entry
	histories map[string][]SearchRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		libraries: make(map[string][]Entry),
		histories: make(map[string][]SearchRecord),
	}
}

// GetLibrary implements Store.
func (s *MemoryStore) GetLibrary(_ context.Context, userID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.libraries[userID]...), nil
}

// PutLibrary implements Store.
func (s *MemoryStore) PutLibrary(_ context.Context, userID string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.libraries[userID] = append([]Entry(nil), entries...)
	return nil
}

// GetHistory implements Store.
func (s *MemoryStore) GetHistory(_ context.Context, userID string) ([]SearchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SearchRecord(nil), s.histories[userID]...), nil
}

// PutHistory implements Store.
func (s *MemoryStore) PutHistory(_ context.Context, userID string, records []SearchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[userID] = append([]SearchRecord(nil), records...)
	return nil
}

// BadgerStore persists libraries and histories in BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates a BadgerDB-backed store.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// GetLibrary implements Store.
func (s *BadgerStore) GetLibrary(_ context.Context, userID string) ([]Entry, error) {
	var entries []Entry
	if err := s.getJSON(libraryKeyPrefix+userID, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// PutLibrary implements Store.
func (s *BadgerStore) PutLibrary(_ context.Context, userID string, entries []Entry) error {
	return s.putJSON(libraryKeyPrefix+userID, entries)
}

// GetHistory implements Store.
func (s *BadgerStore) GetHistory(_ context.Context, userID string) ([]SearchRecord, error) {
	var records []SearchRecord
	if err := s.getJSON(historyKeyPrefix+userID, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// PutHistory implements Store.
func (s *BadgerStore) PutHistory(_ context.Context, userID string, records []SearchRecord) error {
	return s.putJSON(historyKeyPrefix+userID, records)
}

func (s *BadgerStore) getJSON(key string, out any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}

func (s *BadgerStore) putJSON(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}
