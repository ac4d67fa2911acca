// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package fairness

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shelfscout/shelfscout/internal/catalog"
	"github.com/shelfscout/shelfscout/internal/logging"
)

func newTestAuditor(threshold float64) *Auditor {
	return NewAuditor(threshold, logging.NewTestLogger(io.Discard))
}

func books(categories ...string) []catalog.BookRecord {
	out := make([]catalog.BookRecord, len(categories))
	for i, c := range categories {
		out[i] = catalog.BookRecord{ISBN13: string(rune('a' + i)), SimpleCategory: c}
	}
	return out
}

func TestEntropyBoundsSingleCategory(t *testing.T) {
	report := newTestAuditor(0.5).Audit(books("Fiction", "Fiction", "Fiction"))
	assert.Equal(t, 0.0, report.DiversityScore)
}

func TestEntropyBoundsUniformSpread(t *testing.T) {
	report := newTestAuditor(0.9).Audit(books("Fiction", "Nonfiction", "Children's Fiction", "Other"))
	assert.InDelta(t, 1.0, report.DiversityScore, 1e-9)
	assert.False(t, report.Flagged)
}

func TestSkewedSpreadBetweenBounds(t *testing.T) {
	report := newTestAuditor(0.9).Audit(books("Fiction", "Fiction", "Fiction", "Nonfiction"))
	assert.Greater(t, report.DiversityScore, 0.0)
	assert.Less(t, report.DiversityScore, 1.0)
}

func TestDominanceFlag(t *testing.T) {
	report := newTestAuditor(0.5).Audit(books("Fiction", "Fiction", "Fiction", "Nonfiction"))
	assert.True(t, report.Flagged)
	assert.Equal(t, "Fiction", report.DominantCategory)
	assert.Contains(t, report.Explanation, "Fiction dominates with 75%")
}

func TestDominanceThresholdNotExceededAtBoundary(t *testing.T) {
	// Exactly at the threshold is not over it.
	report := newTestAuditor(0.5).Audit(books("Fiction", "Fiction", "Nonfiction", "Nonfiction"))
	assert.False(t, report.Flagged)
	assert.Empty(t, report.DominantCategory)
}

func TestCategoryDistribution(t *testing.T) {
	report := newTestAuditor(0.9).Audit(books("Fiction", "Fiction", "Nonfiction"))
	assert.InDelta(t, 2.0/3.0, report.CategoryDistribution["Fiction"], 1e-9)
	assert.InDelta(t, 1.0/3.0, report.CategoryDistribution["Nonfiction"], 1e-9)
}

func TestAuthorDiversity(t *testing.T) {
	in := []catalog.BookRecord{
		{ISBN13: "1", SimpleCategory: "Fiction", Authors: []string{"A"}},
		{ISBN13: "2", SimpleCategory: "Fiction", Authors: []string{"A"}},
		{ISBN13: "3", SimpleCategory: "Fiction", Authors: []string{"B"}},
		{ISBN13: "4", SimpleCategory: "Fiction"},
	}
	report := newTestAuditor(0.9).Audit(in)
	assert.InDelta(t, 0.5, report.AuthorDiversity, 1e-9)
}

func TestAuditDoesNotMutateInput(t *testing.T) {
	in := books("Fiction", "Nonfiction", "Other")
	want := books("Fiction", "Nonfiction", "Other")

	_ = newTestAuditor(0.5).Audit(in)
	assert.Equal(t, want, in)
}

func TestEmptyInput(t *testing.T) {
	report := newTestAuditor(0.5).Audit(nil)
	assert.Equal(t, 0.0, report.DiversityScore)
	assert.False(t, report.Flagged)
	assert.NotEmpty(t, report.Explanation)
}

func TestInvalidThresholdFallsBack(t *testing.T) {
	// 75% Fiction exceeds the 0.5 fallback threshold.
	report := newTestAuditor(0).Audit(books("Fiction", "Fiction", "Fiction", "Nonfiction"))
	assert.True(t, report.Flagged)
}
