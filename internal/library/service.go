// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

// Package library manages each user's saved books and search history.
// The library feeds personalized scoring: genre affinity is derived
// from what a user has saved.
package library

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shelfscout/shelfscout/internal/config"
)

// Sentinel errors for library operations.
var (
	// ErrLibraryFull is returned when a plan's library cap is reached.
	ErrLibraryFull = errors.New("library full")

	// ErrNotFound is returned when removing a book that is not saved.
	ErrNotFound = errors.New("book not in library")

	// ErrAlreadySaved is returned when saving a book twice.
	ErrAlreadySaved = errors.New("book already in library")
)

// historyCap bounds the retained search history per user.
const historyCap = 100

const lockStripes = 64

// Service implements library and history operations over a Store.
// Per-user mutations are serialized through striped locks.
type Service struct {
	store  Store
	limits func(plan string) config.PlanLimits
	locks  [lockStripes]sync.Mutex
	now    func() time.Time
	logger zerolog.Logger
}

// NewService creates a library service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewService(store Store, limits func(plan string) config.PlanLimits, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		limits: limits,
		now:    time.Now,
		logger: logger.With().Str("component", "library").Logger(),
	}
}

// Add saves a book to the user's library. Duplicates and saves past the
// plan cap are rejected without modifying the library.
func (s *Service) Add(ctx context.Context, userID, plan string, entry Entry) error {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	entries, err := s.store.GetLibrary(ctx, userID)
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}

	for i := range entries {
		if entries[i].Key == entry.Key {
			return fmt.Errorf("%w: %s", ErrAlreadySaved, entry.Key)
		}
	}
	if limit := s.limits(plan).LibraryBooks; len(entries) >= limit {
		return fmt.Errorf("%w: plan allows %d books", ErrLibraryFull, limit)
	}

	entry.AddedAt = s.now().UTC()
	entries = append(entries, entry)
	if err := s.store.PutLibrary(ctx, userID, entries); err != nil {
		return fmt.Errorf("persist library: %w", err)
	}

	s.logger.Debug().Str("user_id", userID).Str("key", entry.Key).Msg("book saved")
	return nil
}

// Remove deletes a saved book by catalog key.
func (s *Service) Remove(ctx context.Context, userID, key string) error {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	entries, err := s.store.GetLibrary(ctx, userID)
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}

	for i := range entries {
		if entries[i].Key == key {
			entries = append(entries[:i], entries[i+1:]...)
			if err := s.store.PutLibrary(ctx, userID, entries); err != nil {
				return fmt.Errorf("persist library: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}

// List returns the user's saved books in save order.
func (s *Service) List(ctx context.Context, userID string) ([]Entry, error) {
	entries, err := s.store.GetLibrary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	return entries, nil
}

// RecordSearch appends a query to the user's history, keeping the most
// recent historyCap records.
func (s *Service) RecordSearch(ctx context.Context, userID, query string) error {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	records, err := s.store.GetHistory(ctx, userID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	records = append(records, SearchRecord{Query: query, Timestamp: s.now().UTC()})
	if len(records) > historyCap {
		records = records[len(records)-historyCap:]
	}
	if err := s.store.PutHistory(ctx, userID, records); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}

// History returns the user's recent searches, oldest first.
func (s *Service) History(ctx context.Context, userID string) ([]SearchRecord, error) {
	records, err := s.store.GetHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return records, nil
}

// GenreAffinity returns the share of each category in the user's
// library. An empty library yields an empty map, which personalized
// scoring treats as zero affinity everywhere.
func (s *Service) GenreAffinity(ctx context.Context, userID string) (map[string]float64, error) {
	entries, err := s.store.GetLibrary(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}

	affinity := make(map[string]float64)
	if len(entries) == 0 {
		return affinity, nil
	}
	for i := range entries {
		category := entries[i].Category
		if category == "" {
			category = "Other"
		}
		affinity[category]++
	}
	total := float64(len(entries))
	for category := range affinity {
		affinity[category] /= total
	}
	return affinity, nil
}

func (s *Service) lockFor(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.locks[h.Sum32()%lockStripes]
}
