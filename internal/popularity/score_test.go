// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package popularity

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscout/shelfscout/internal/agent"
	"github.com/shelfscout/shelfscout/internal/catalog"
	"github.com/shelfscout/shelfscout/internal/logging"
)

func TestCategoryScore(t *testing.T) {
	tests := []struct {
		category string
		want     float64
	}{
		{"Fiction", 0.8},
		{"Nonfiction", 0.7},
		{"Children's Fiction", 0.6},
		{"Children's Nonfiction", 0.5},
		{"Other", 0.3},
		{"Unknown Shelf", 0.3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CategoryScore(tt.category), tt.category)
	}
}

func TestScoreComponents(t *testing.T) {
	b := catalog.BookRecord{
		ISBN13:         "9780000000001",
		AverageRating:  4.5,
		RatingsCount:   999,
		SimpleCategory: "Fiction",
	}

	want := 0.3*(4.5/5.0) + 0.25*(math.Log10(1000)/5) + 0.15*0.8
	assert.InDelta(t, want, Score(b), 1e-9)
}

func TestScoreSkipsMissingComponents(t *testing.T) {
	// Only the category baseline contributes for an unrated book.
	b := catalog.BookRecord{ISBN13: "x", SimpleCategory: "Other"}
	assert.InDelta(t, 0.15*0.3, Score(b), 1e-9)
}

func TestScoreBounded(t *testing.T) {
	b := catalog.BookRecord{
		ISBN13:         "x",
		AverageRating:  5.0,
		RatingsCount:   10_000_000,
		SimpleCategory: "Fiction",
	}
	s := Score(b)
	assert.LessOrEqual(t, s, 1.0)
	assert.Greater(t, s, 0.0)
}

func TestTrendScoreTiers(t *testing.T) {
	tests := []struct {
		name   string
		count  int
		rating float64
		want   float64
	}{
		{"hot", 150, 4.2, 0.8},
		{"warm", 60, 3.8, 0.6},
		{"high rating small sample", 10, 4.9, 0.3},
		{"big sample low rating", 5000, 3.0, 0.3},
		{"boundary count not exceeded", 100, 4.5, 0.6},
		{"boundary rating not exceeded", 200, 4.0, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := catalog.BookRecord{RatingsCount: tt.count, AverageRating: tt.rating}
			assert.Equal(t, tt.want, TrendScore(b))
		})
	}
}

func TestOverallScore(t *testing.T) {
	b := catalog.BookRecord{ISBN13: "x", AverageRating: 4.5, RatingsCount: 500, SimpleCategory: "Fiction"}
	assert.InDelta(t, (Score(b)+TrendScore(b))/2, OverallScore(b), 1e-9)
}

func TestAgentHandle(t *testing.T) {
	a := NewAgent(logging.NewTestLogger(io.Discard))

	books := []catalog.BookRecord{
		{ISBN13: "9780000000001", Title: "Hot", AverageRating: 4.5, RatingsCount: 500, SimpleCategory: "Fiction"},
		{ISBN13: "9780000000002", Title: "Quiet", AverageRating: 3.0, RatingsCount: 5, SimpleCategory: "Other"},
	}
	msg := agent.NewMessage("orchestrator-1", AgentID, agent.TypeAnalyzePopularity,
		Request{Books: books}, agent.PriorityMedium)

	reply, err := a.Handle(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, agent.TypePopularityResult, reply.Type)

	analysis, ok := reply.Content.(Analysis)
	require.True(t, ok)
	require.Equal(t, 2, analysis.BooksAnalyzed)

	// Order of the request is preserved.
	assert.Equal(t, "9780000000001", analysis.Results[0].Key)
	assert.Equal(t, "9780000000002", analysis.Results[1].Key)
	assert.Greater(t, analysis.Results[0].PopularityScore, analysis.Results[1].PopularityScore)
	assert.Equal(t, 0.8, analysis.Results[0].TrendScore)
	assert.Equal(t, 0.3, analysis.Results[1].TrendScore)
}

func TestAgentHandleRejectsUnsupported(t *testing.T) {
	a := NewAgent(logging.NewTestLogger(io.Discard))

	msg := agent.NewMessage("x", AgentID, agent.TypeClassifyText, Request{}, agent.PriorityLow)
	_, err := a.Handle(context.Background(), msg)
	assert.ErrorIs(t, err, agent.ErrUnsupportedMessage)
}
