// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package agent

import (
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the operation a message requests or the kind of
// result it carries. The set is closed: agents are strategy objects with
// known capabilities, not open-ended plugins.
type MessageType string

// Request message types.
const (
	TypeSemanticSearch    MessageType = "semantic_search"
	TypeClassifyText      MessageType = "classify_text"
	TypeDetectEmotion     MessageType = "detect_emotion"
	TypeAnalyzePopularity MessageType = "analyze_popularity"
	TypeGetRecommendation MessageType = "get_recommendations"
)

// Response message types.
const (
	TypeSearchResult         MessageType = "semantic_search_result"
	TypeClassificationResult MessageType = "classification_result"
	TypeEmotionResult        MessageType = "emotion_result"
	TypePopularityResult     MessageType = "popularity_analysis_result"
	TypeRecommendationResult MessageType = "recommendation_result"
	TypeErrorResponse        MessageType = "error_response"
)

// Priority orders message importance. Delivery is synchronous, so
// priority is carried for observability and echoed in responses.
type Priority int

// Message priorities.
const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

// Message is the unit of agent communication. A message is immutable
// once sent: it is created by a sender, delivered by the hub, and
// consumed exactly once by the receiver's handler.
type Message struct {
	// ID is unique for the hub's lifetime.
	ID string `json:"message_id"`

	// SenderID identifies the sending agent.
	SenderID string `json:"sender_id"`

	// ReceiverID identifies the target agent.
	ReceiverID string `json:"receiver_id"`

	// Type identifies the requested operation or result kind.
	Type MessageType `json:"message_type"`

	// Content is the opaque payload. Concrete payload types are defined
	// by the package owning the message type.
	Content any `json:"content"`

	// Timestamp is when the message was created.
	Timestamp time.Time `json:"timestamp"`

	// Priority is the message importance (1=low, 2=medium, 3=high).
	Priority Priority `json:"priority"`
}

// NewMessage creates a message with a fresh unique ID.
func NewMessage(sender, receiver string, t MessageType, content any, p Priority) Message {
	return Message{
		ID:         uuid.NewString(),
		SenderID:   sender,
		ReceiverID: receiver,
		Type:       t,
		Content:    content,
		Timestamp:  time.Now().UTC(),
		Priority:   p,
	}
}

// Reply creates a response message addressed to the sender of m,
// preserving its priority.
func (m Message) Reply(t MessageType, content any) Message {
	return NewMessage(m.ReceiverID, m.SenderID, t, content, m.Priority)
}
