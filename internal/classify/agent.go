// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package classify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shelfscout/shelfscout/internal/agent"
)

// AgentID is the hub identity of the classification agent.
const AgentID = "classifier-1"

// Request is the payload for classify_text and detect_emotion messages.
type Request struct {
	Text string `json:"text"`

	// Labels restricts classification to these candidate categories.
	// Empty means the full known raw category set. Ignored for emotion
	// detection.
	Labels []string `json:"labels,omitempty"`

	// RawCategory, when set on a classify_text request, is trusted and
	// mapped directly instead of scoring the text.
	RawCategory string `json:"raw_category,omitempty"`
}

// Agent exposes the classifier over the hub. Classification is pure
// computation, so the only failure modes are a cancelled context and a
// malformed payload.
type Agent struct {
	classifier *Classifier
	logger     zerolog.Logger
}

// NewAgent creates the classification agent.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewAgent(logger zerolog.Logger) *Agent {
	return &Agent{
		classifier: NewClassifier(logger),
		logger:     logger.With().Str("agent", AgentID).Logger(),
	}
}

// ID implements agent.Agent.
func (a *Agent) ID() string { return AgentID }

// Capabilities implements agent.Agent.
func (a *Agent) Capabilities() []string {
	return []string{"text_classification", "category_mapping", "emotion_detection"}
}

// Handle answers classify_text and detect_emotion messages.
func (a *Agent) Handle(ctx context.Context, msg agent.Message) (agent.Message, error) {
	if err := ctx.Err(); err != nil {
		return agent.Message{}, err
	}

	req, ok := msg.Content.(Request)
	if !ok {
		return agent.Message{}, fmt.Errorf("%w: %s payload %T", agent.ErrUnsupportedMessage, msg.Type, msg.Content)
	}

	switch msg.Type {
	case agent.TypeClassifyText:
		var result Classification
		if req.RawCategory != "" {
			result = a.classifier.CategorizeBook(req.RawCategory, req.Text)
		} else {
			result = a.classifier.Classify(req.Text, req.Labels)
		}
		return msg.Reply(agent.TypeClassificationResult, result), nil

	case agent.TypeDetectEmotion:
		return msg.Reply(agent.TypeEmotionResult, a.classifier.DetectEmotion(req.Text)), nil

	default:
		return agent.Message{}, fmt.Errorf("%w: %s", agent.ErrUnsupportedMessage, msg.Type)
	}
}
