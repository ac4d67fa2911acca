// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

// Package fairness audits synthesized recommendation lists for category
// concentration. The audit is observational: it annotates a result set
// and never mutates or reorders it.
package fairness

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shelfscout/shelfscout/internal/catalog"
	"github.com/shelfscout/shelfscout/internal/metrics"
)

// Report describes the diversity of one result set.
type Report struct {
	// DiversityScore is the normalized Shannon entropy of the category
	// distribution: 0 when every book shares one category, 1 when books
	// spread evenly over the observed categories.
	DiversityScore float64 `json:"diversity_score"`

	// CategoryDistribution maps each category to its share in [0, 1].
	CategoryDistribution map[string]float64 `json:"category_distribution"`

	// AuthorDiversity is distinct primary authors over total books.
	AuthorDiversity float64 `json:"author_diversity"`

	// Flagged is set when a single category's share exceeds the
	// dominance threshold.
	Flagged bool `json:"flagged"`

	// DominantCategory is the category that triggered the flag.
	DominantCategory string `json:"dominant_category,omitempty"`

	// Explanation is a human-readable audit summary.
	Explanation string `json:"explanation"`
}

// Auditor computes fairness reports.
type Auditor struct {
	// dominanceThreshold is the category share above which a result set
	// is flagged.
	dominanceThreshold float64
	logger             zerolog.Logger
}

// NewAuditor creates an auditor. Thresholds outside (0, 1] fall back
// to 0.5.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewAuditor(dominanceThreshold float64, logger zerolog.Logger) *Auditor {
	if dominanceThreshold <= 0 || dominanceThreshold > 1 {
		dominanceThreshold = 0.5
	}
	return &Auditor{
		dominanceThreshold: dominanceThreshold,
		logger:             logger.With().Str("component", "fairness").Logger(),
	}
}

// Audit computes the fairness report for a result set. The input is
// read only.
func (a *Auditor) Audit(books []catalog.BookRecord) Report {
	if len(books) == 0 {
		return Report{
			CategoryDistribution: map[string]float64{},
			Explanation:          "empty result set, nothing to audit",
		}
	}

	counts := make(map[string]int)
	authors := make(map[string]struct{})
	for i := range books {
		counts[books[i].PrimaryCategory()]++
		if len(books[i].Authors) > 0 {
			authors[books[i].Authors[0]] = struct{}{}
		}
	}

	total := float64(len(books))
	distribution := make(map[string]float64, len(counts))
	dominant, dominantShare := "", 0.0
	for category, n := range counts {
		share := float64(n) / total
		distribution[category] = share
		if share > dominantShare || (share == dominantShare && category < dominant) {
			dominant, dominantShare = category, share
		}
	}

	report := Report{
		DiversityScore:       entropy(distribution),
		CategoryDistribution: distribution,
		AuthorDiversity:      float64(len(authors)) / total,
		Explanation:          explain(distribution),
	}
	if dominantShare > a.dominanceThreshold {
		report.Flagged = true
		report.DominantCategory = dominant
		report.Explanation = fmt.Sprintf("%s dominates with %.0f%% of results (threshold %.0f%%); %s",
			dominant, dominantShare*100, a.dominanceThreshold*100, report.Explanation)
		metrics.FairnessFlagsTotal.Inc()
		a.logger.Debug().
			Str("category", dominant).
			Float64("share", dominantShare).
			Msg("result set flagged for category dominance")
	}
	return report
}

// entropy computes normalized Shannon entropy over the share values.
// A single observed category yields 0 by definition.
func entropy(distribution map[string]float64) float64 {
	if len(distribution) <= 1 {
		return 0
	}

	h := 0.0
	for _, p := range distribution {
		if p > 0 {
			h -= p * math.Log(p)
		}
	}
	return h / math.Log(float64(len(distribution)))
}

// explain renders the distribution as a stable, sorted summary line.
func explain(distribution map[string]float64) string {
	categories := make([]string, 0, len(distribution))
	for c := range distribution {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	parts := make([]string, 0, len(categories))
	for _, c := range categories {
		parts = append(parts, fmt.Sprintf("%s %.0f%%", c, distribution[c]*100))
	}
	return "category spread: " + strings.Join(parts, ", ")
}
