// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

// Package popularity scores books on rating strength, rating volume and
// category demand. All functions are pure: scoring the same record
// always yields the same value.
package popularity

import (
	"math"

	"github.com/shelfscout/shelfscout/internal/catalog"
)

// Component weights of the popularity score. They intentionally sum to
// under 1.0: a book needs strong showings across all components to
// approach the ceiling.
const (
	ratingWeight   = 0.3
	countWeight    = 0.25
	categoryWeight = 0.15
)

// categoryScores is the baseline demand per coarse category.
var categoryScores = map[string]float64{
	"Fiction":               0.8,
	"Nonfiction":            0.7,
	"Children's Fiction":    0.6,
	"Children's Nonfiction": 0.5,
	"Other":                 0.3,
}

// CategoryScore returns the baseline demand score for a category.
// Unknown categories score as "Other".
func CategoryScore(category string) float64 {
	if s, ok := categoryScores[category]; ok {
		return s
	}
	return 0.3
}

// Score computes the popularity score in [0, 1]. Rating volume is
// log-compressed so a million ratings does not drown out quality, and
// saturates at 10^5 ratings.
func Score(b catalog.BookRecord) float64 {
	score := 0.0

	if b.AverageRating > 0 {
		score += ratingWeight * (b.AverageRating / 5.0)
	}
	if b.RatingsCount > 0 {
		normalized := math.Min(math.Log10(float64(b.RatingsCount)+1)/5, 1.0)
		score += countWeight * normalized
	}
	score += categoryWeight * CategoryScore(b.PrimaryCategory())

	return math.Min(score, 1.0)
}

// TrendScore estimates momentum from rating volume and quality. Books
// with a strong rating over a meaningful sample are trending; everything
// else gets a floor score so trend never zeroes a candidate out.
func TrendScore(b catalog.BookRecord) float64 {
	switch {
	case b.RatingsCount > 100 && b.AverageRating > 4.0:
		return 0.8
	case b.RatingsCount > 50 && b.AverageRating > 3.5:
		return 0.6
	default:
		return 0.3
	}
}

// OverallScore blends popularity and trend equally.
func OverallScore(b catalog.BookRecord) float64 {
	return (Score(b) + TrendScore(b)) / 2
}
