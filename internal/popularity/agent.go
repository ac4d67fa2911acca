// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package popularity

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shelfscout/shelfscout/internal/agent"
	"github.com/shelfscout/shelfscout/internal/catalog"
)

// AgentID is the hub identity of the popularity agent.
const AgentID = "popularity-1"

// Request is the payload for analyze_popularity messages.
type Request struct {
	Books []catalog.BookRecord `json:"books_data"`
}

// BookScore is the per-book outcome of a popularity analysis.
type BookScore struct {
	Key             string  `json:"key"`
	Title           string  `json:"title"`
	PopularityScore float64 `json:"popularity_score"`
	TrendScore      float64 `json:"trend_score"`
	OverallScore    float64 `json:"overall_score"`
}

// Analysis is the payload of a popularity_analysis_result message.
// Results preserve the order of the requested books.
type Analysis struct {
	BooksAnalyzed int         `json:"books_analyzed"`
	Results       []BookScore `json:"results"`
}

// Agent exposes popularity scoring over the hub.
type Agent struct {
	logger zerolog.Logger
}

// NewAgent creates the popularity agent.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewAgent(logger zerolog.Logger) *Agent {
	return &Agent{logger: logger.With().Str("agent", AgentID).Logger()}
}

// ID implements agent.Agent.
func (a *Agent) ID() string { return AgentID }

// Capabilities implements agent.Agent.
func (a *Agent) Capabilities() []string {
	return []string{"popularity_analysis", "trend_detection", "recommendation_scoring"}
}

// Handle answers analyze_popularity messages.
func (a *Agent) Handle(ctx context.Context, msg agent.Message) (agent.Message, error) {
	if err := ctx.Err(); err != nil {
		return agent.Message{}, err
	}
	if msg.Type != agent.TypeAnalyzePopularity {
		return agent.Message{}, fmt.Errorf("%w: %s", agent.ErrUnsupportedMessage, msg.Type)
	}

	req, ok := msg.Content.(Request)
	if !ok {
		return agent.Message{}, fmt.Errorf("%w: %s payload %T", agent.ErrUnsupportedMessage, msg.Type, msg.Content)
	}

	results := make([]BookScore, 0, len(req.Books))
	for i := range req.Books {
		b := &req.Books[i]
		pop := Score(*b)
		trend := TrendScore(*b)
		results = append(results, BookScore{
			Key:             b.IdentityKey(),
			Title:           b.Title,
			PopularityScore: pop,
			TrendScore:      trend,
			OverallScore:    (pop + trend) / 2,
		})
	}

	return msg.Reply(agent.TypePopularityResult, Analysis{
		BooksAnalyzed: len(results),
		Results:       results,
	}), nil
}
