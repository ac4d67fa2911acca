// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

// Package quota gates recommendation requests against per-plan daily
// and monthly limits. Admission is the only operation that consumes
// quota, and a rejected admission never mutates state.
package quota

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shelfscout/shelfscout/internal/config"
	"github.com/shelfscout/shelfscout/internal/metrics"
)

// ErrExceeded is returned by Admit when a usage limit is reached.
var ErrExceeded = errors.New("quota exceeded")

// Rejection reasons carried on a denied Admission.
const (
	ReasonDailyLimit   = "daily_limit_exceeded"
	ReasonMonthlyLimit = "monthly_limit_exceeded"
)

// lockStripes sizes the per-user lock table. Users hashing to the same
// stripe serialize against each other, which is harmless.
const lockStripes = 64

// Admission is the outcome of a quota check.
type Admission struct {
	// Admitted reports whether the request may proceed. Only an
	// admitted request consumes quota.
	Admitted bool `json:"admitted"`

	// Reason explains a denial (ReasonDailyLimit or ReasonMonthlyLimit).
	Reason string `json:"reason,omitempty"`

	// RetryAfter is the time until the limiting counter resets. Zero
	// when admitted.
	RetryAfter time.Duration `json:"retry_after,omitempty"`

	// DailyRemaining and MonthlyRemaining are the allowances left after
	// this decision.
	DailyRemaining   int `json:"daily_remaining"`
	MonthlyRemaining int `json:"monthly_remaining"`
}

// Manager tracks usage and admits or rejects requests. Per-user
// operations are serialized through striped locks, so concurrent
// requests from one user see a consistent counter sequence while
// distinct users proceed independently.
type Manager struct {
	store  Store
	limits func(plan string) config.PlanLimits
	locks  [lockStripes]sync.Mutex
	now    func() time.Time
	logger zerolog.Logger
}

// NewManager creates a quota manager.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewManager(store Store, limits func(plan string) config.PlanLimits, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		limits: limits,
		now:    time.Now,
		logger: logger.With().Str("component", "quota").Logger(),
	}
}

// Admit checks the user's usage against their plan limits and, when
// within limits, consumes one search. A rejected admission leaves the
// stored counters untouched and reports when to retry. Returns
// ErrExceeded (wrapped) on rejection; other errors indicate storage
// failure, in which case no decision was made.
func (m *Manager) Admit(ctx context.Context, userID, plan string) (Admission, error) {
	lock := m.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	usage, err := m.load(ctx, userID)
	if err != nil {
		return Admission{}, err
	}

	limits := m.limits(plan)
	now := m.now().UTC()
	advanceBoundaries(&usage, now)

	if usage.DailyUsed >= limits.DailySearches {
		adm := Admission{
			Admitted:         false,
			Reason:           ReasonDailyLimit,
			RetryAfter:       usage.DailyResetAt.Sub(now),
			MonthlyRemaining: limits.MonthlySearches - usage.MonthlyUsed,
		}
		metrics.QuotaDecisionsTotal.WithLabelValues(plan, "rejected_daily").Inc()
		m.logger.Debug().Str("user_id", userID).Str("plan", plan).Msg("daily quota exceeded")
		return adm, fmt.Errorf("%w: %s", ErrExceeded, ReasonDailyLimit)
	}
	if usage.MonthlyUsed >= limits.MonthlySearches {
		adm := Admission{
			Admitted:       false,
			Reason:         ReasonMonthlyLimit,
			RetryAfter:     usage.MonthlyResetAt.Sub(now),
			DailyRemaining: limits.DailySearches - usage.DailyUsed,
		}
		metrics.QuotaDecisionsTotal.WithLabelValues(plan, "rejected_monthly").Inc()
		m.logger.Debug().Str("user_id", userID).Str("plan", plan).Msg("monthly quota exceeded")
		return adm, fmt.Errorf("%w: %s", ErrExceeded, ReasonMonthlyLimit)
	}

	usage.DailyUsed++
	usage.MonthlyUsed++
	if err := m.store.Put(ctx, usage); err != nil {
		return Admission{}, fmt.Errorf("persist usage: %w", err)
	}

	metrics.QuotaDecisionsTotal.WithLabelValues(plan, "admitted").Inc()
	return Admission{
		Admitted:         true,
		DailyRemaining:   limits.DailySearches - usage.DailyUsed,
		MonthlyRemaining: limits.MonthlySearches - usage.MonthlyUsed,
	}, nil
}

// Remaining reports current allowances without consuming quota. Reset
// boundaries are applied to the reported numbers but not persisted.
func (m *Manager) Remaining(ctx context.Context, userID, plan string) (Admission, error) {
	lock := m.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	usage, err := m.load(ctx, userID)
	if err != nil {
		return Admission{}, err
	}

	limits := m.limits(plan)
	advanceBoundaries(&usage, m.now().UTC())

	return Admission{
		Admitted:         usage.DailyUsed < limits.DailySearches && usage.MonthlyUsed < limits.MonthlySearches,
		DailyRemaining:   limits.DailySearches - usage.DailyUsed,
		MonthlyRemaining: limits.MonthlySearches - usage.MonthlyUsed,
	}, nil
}

// load fetches usage, initializing boundaries for first-time users.
func (m *Manager) load(ctx context.Context, userID string) (Usage, error) {
	usage, found, err := m.store.Get(ctx, userID)
	if err != nil {
		return Usage{}, fmt.Errorf("load usage: %w", err)
	}
	if !found {
		now := m.now().UTC()
		usage = Usage{
			UserID:         userID,
			DailyResetAt:   nextDay(now),
			MonthlyResetAt: nextMonth(now),
		}
	}
	return usage, nil
}

func (m *Manager) lockFor(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &m.locks[h.Sum32()%lockStripes]
}

// advanceBoundaries walks reset boundaries forward one whole period at
// a time until they are in the future, zeroing the counter at each
// crossing. Walking rather than jumping keeps boundaries aligned to
// calendar days and months no matter how long the user was idle.
func advanceBoundaries(u *Usage, now time.Time) {
	for !now.Before(u.DailyResetAt) {
		u.DailyResetAt = u.DailyResetAt.AddDate(0, 0, 1)
		u.DailyUsed = 0
	}
	for !now.Before(u.MonthlyResetAt) {
		u.MonthlyResetAt = u.MonthlyResetAt.AddDate(0, 1, 0)
		u.MonthlyUsed = 0
	}
}

// nextDay returns the next UTC midnight after t.
func nextDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// nextMonth returns the first UTC midnight of the month after t.
func nextMonth(t time.Time) time.Time {
	year, month, _ := t.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
