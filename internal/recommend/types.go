// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package recommend

import (
	"errors"
	"fmt"
	"time"

	"github.com/shelfscout/shelfscout/internal/catalog"
	"github.com/shelfscout/shelfscout/internal/fairness"
	"github.com/shelfscout/shelfscout/internal/quota"
)

// ErrEmptyQuery is returned when a recommendation request has a blank
// query.
var ErrEmptyQuery = errors.New("empty query")

// QuotaExceededError wraps quota.ErrExceeded with the admission that
// denied the request, so callers can surface the retry-after hint.
type QuotaExceededError struct {
	Admission quota.Admission
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.Admission.Reason)
}

func (e *QuotaExceededError) Unwrap() error { return quota.ErrExceeded }

// Mode selects the scoring profile.
type Mode string

// Scoring modes.
const (
	// ModeGeneral scores on semantic, classification and popularity
	// signals only.
	ModeGeneral Mode = "general"

	// ModePersonalized adds a genre affinity term derived from the
	// user's library.
	ModePersonalized Mode = "personalized"
)

// Filters are hard constraints applied after deduplication. They never
// affect scores, only membership.
type Filters struct {
	// Category keeps only books whose primary category matches.
	Category string `json:"category,omitempty"`

	// MinRating keeps only books rated at or above the value.
	MinRating float64 `json:"min_rating,omitempty"`

	// Tone keeps only books whose dominant emotion matches the tone
	// (Happy, Sad, Angry, Suspenseful, Surprising). Books without
	// emotion data fail the filter.
	Tone string `json:"tone,omitempty"`
}

// Request is one recommendation request.
type Request struct {
	// RequestID is assigned when empty.
	RequestID string `json:"request_id,omitempty"`

	UserID string `json:"user_id"`
	Plan   string `json:"plan"`
	Query  string `json:"query"`

	// Count is the number of books requested. Defaults to 5, capped
	// at 50.
	Count int `json:"count,omitempty"`

	// Mode defaults to general.
	Mode Mode `json:"mode,omitempty"`

	Filters Filters `json:"filters,omitempty"`
}

// ScoredCandidate is one book with its per-signal and combined scores.
// A signal that was degraded or did not cover the book scores 0.
type ScoredCandidate struct {
	Book                catalog.BookRecord `json:"book"`
	SemanticScore       float64            `json:"semantic_score"`
	ClassificationScore float64            `json:"classification_score"`
	PopularityScore     float64            `json:"popularity_score"`
	AffinityScore       float64            `json:"affinity_score,omitempty"`
	CombinedScore       float64            `json:"combined_score"`
}

// Result is a synthesized recommendation list with its audit record.
type Result struct {
	RequestID  string            `json:"request_id"`
	Query      string            `json:"query"`
	Candidates []ScoredCandidate `json:"candidates"`
	Fairness   fairness.Report   `json:"fairness"`

	// Degraded lists the signals that failed or timed out for this
	// request (search, classification, popularity).
	Degraded []string `json:"degraded,omitempty"`

	Metadata ResultMetadata `json:"metadata"`
}

// ResultMetadata carries per-request diagnostics.
type ResultMetadata struct {
	Mode            Mode      `json:"mode"`
	TotalCandidates int       `json:"total_candidates"`
	LatencyMS       int64     `json:"latency_ms"`
	Timestamp       time.Time `json:"timestamp"`
}
