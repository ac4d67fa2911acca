// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/shelfscout/shelfscout/internal/metrics"
)

// Hub routes messages between registered agents. It holds no business
// state and no message history beyond what routing needs.
//
// Registry mutations are mutually exclusive with lookup, but handler
// invocation happens outside the lock so deliveries to distinct agents
// proceed fully in parallel.
type Hub struct {
	mu     sync.RWMutex
	agents map[string]Agent
	logger zerolog.Logger
}

// NewHub creates an empty hub.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		agents: make(map[string]Agent),
		logger: logger.With().Str("component", "hub").Logger(),
	}
}

// Register adds an agent to the registry. Returns ErrDuplicateAgent if
// the ID is already taken.
func (h *Hub) Register(a Agent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.agents[a.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAgent, a.ID())
	}
	h.agents[a.ID()] = a

	h.logger.Info().
		Str("agent_id", a.ID()).
		Strs("capabilities", a.Capabilities()).
		Msg("registered agent")
	return nil
}

// Deregister removes an agent from the registry. Removing an unknown ID
// is a no-op.
func (h *Hub) Deregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.agents[id]; exists {
		delete(h.agents, id)
		h.logger.Info().Str("agent_id", id).Msg("deregistered agent")
	}
}

// Send delivers a message synchronously to the registered handler for
// msg.ReceiverID and returns the handler's response. Returns
// ErrUnknownReceiver if no such agent is registered. A failure is fatal
// to this call only; hub state is unaffected for concurrent calls.
func (h *Hub) Send(ctx context.Context, msg Message) (Message, error) {
	h.mu.RLock()
	receiver, ok := h.agents[msg.ReceiverID]
	h.mu.RUnlock()

	if !ok {
		metrics.HubDeliveryFailures.Inc()
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownReceiver, msg.ReceiverID)
	}

	metrics.HubMessagesTotal.WithLabelValues(string(msg.Type)).Inc()
	h.logger.Debug().
		Str("message_id", msg.ID).
		Str("from", msg.SenderID).
		Str("to", msg.ReceiverID).
		Str("type", string(msg.Type)).
		Msg("routing message")

	resp, err := h.dispatch(ctx, receiver, msg)
	if err != nil {
		metrics.HubDeliveryFailures.Inc()
		h.logger.Error().
			Err(err).
			Str("message_id", msg.ID).
			Str("to", msg.ReceiverID).
			Msg("delivery failed")
		return Message{}, err
	}
	return resp, nil
}

// dispatch invokes the handler, converting a panic into an error so a
// misbehaving handler cannot take down concurrent deliveries.
func (h *Hub) dispatch(ctx context.Context, receiver Agent, msg Message) (resp Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic in %s: %v", receiver.ID(), r)
		}
	}()
	return receiver.Handle(ctx, msg)
}

// Broadcast delivers a copy of the message to every registered agent
// except the sender. Per-recipient failures are collected without
// aborting delivery to the rest. Returns the number of successful
// deliveries and the joined failures, if any.
func (h *Hub) Broadcast(ctx context.Context, sender string, t MessageType, content any, p Priority) (int, error) {
	h.mu.RLock()
	recipients := make([]Agent, 0, len(h.agents))
	for id, a := range h.agents {
		if id != sender {
			recipients = append(recipients, a)
		}
	}
	h.mu.RUnlock()

	var (
		delivered int
		errs      []error
	)
	for _, a := range recipients {
		msg := NewMessage(sender, a.ID(), t, content, p)
		if _, err := h.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("broadcast to %s: %w", a.ID(), err))
			continue
		}
		delivered++
	}
	return delivered, errors.Join(errs...)
}

// AgentIDs returns the registered agent IDs in sorted order.
func (h *Hub) AgentIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.agents))
	for id := range h.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FindByCapability returns agents declaring the given capability tag.
func (h *Hub) FindByCapability(tag string) []Agent {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var found []Agent
	for _, a := range h.agents {
		for _, c := range a.Capabilities() {
			if c == tag {
				found = append(found, a)
				break
			}
		}
	}
	return found
}
