// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package search

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shelfscout/shelfscout/internal/agent"
)

// AgentID is the hub identity of the semantic search agent.
const AgentID = "semantic-search-1"

// Request is the payload for semantic_search messages.
type Request struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// Result is the payload of a semantic_search_result message. Degraded
// is set when the embedding backend failed and Matches is empty rather
// than meaningful.
type Result struct {
	Matches  []Match `json:"matches"`
	Degraded bool    `json:"degraded,omitempty"`
}

// Agent exposes the index over the hub. Backend failures degrade to an
// empty result instead of erroring: the orchestrator keeps working with
// partial signal.
type Agent struct {
	index  *Index
	logger zerolog.Logger
}

// NewAgent creates the semantic search agent over a built index.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewAgent(index *Index, logger zerolog.Logger) *Agent {
	return &Agent{
		index:  index,
		logger: logger.With().Str("agent", AgentID).Logger(),
	}
}

// ID implements agent.Agent.
func (a *Agent) ID() string { return AgentID }

// Capabilities implements agent.Agent.
func (a *Agent) Capabilities() []string {
	return []string{"semantic_search", "similarity_ranking"}
}

// Handle answers semantic_search messages.
func (a *Agent) Handle(ctx context.Context, msg agent.Message) (agent.Message, error) {
	if err := ctx.Err(); err != nil {
		return agent.Message{}, err
	}
	if msg.Type != agent.TypeSemanticSearch {
		return agent.Message{}, fmt.Errorf("%w: %s", agent.ErrUnsupportedMessage, msg.Type)
	}

	req, ok := msg.Content.(Request)
	if !ok {
		return agent.Message{}, fmt.Errorf("%w: %s payload %T", agent.ErrUnsupportedMessage, msg.Type, msg.Content)
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	matches, err := a.index.Query(ctx, req.Query, req.Limit)
	if err != nil {
		a.logger.Warn().Err(err).Str("query", req.Query).Msg("embedding backend failed, degrading")
		return msg.Reply(agent.TypeSearchResult, Result{Degraded: true}), nil
	}

	return msg.Reply(agent.TypeSearchResult, Result{Matches: matches}), nil
}
