// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

// Package agent implements the in-process message protocol between the
// analysis agents and the communication hub that routes between them.
//
// The hub is a minimal in-process message bus, not a distributed
// protocol: delivery is synchronous, messages carry opaque typed
// payloads, and the registry is the only shared state.
package agent

import (
	"context"
	"errors"
)

// Sentinel errors for hub contract violations and adapter degradation.
var (
	// ErrDuplicateAgent is returned when registering an agent ID twice.
	ErrDuplicateAgent = errors.New("agent already registered")

	// ErrUnknownReceiver is returned when sending to an unregistered agent.
	ErrUnknownReceiver = errors.New("unknown receiver")

	// ErrUnsupportedMessage is returned by handlers for message types
	// outside their capability set.
	ErrUnsupportedMessage = errors.New("unsupported message type")

	// ErrAdapterUnavailable indicates a capability backend failed or
	// timed out. Adapters recover from it locally by returning a
	// degraded sentinel result instead of propagating it.
	ErrAdapterUnavailable = errors.New("adapter unavailable")
)

// Agent is a participant in hub communication. Implementations must be
// safe for concurrent Handle calls: the hub delivers messages for
// distinct requests in parallel.
type Agent interface {
	// ID returns the stable agent identifier.
	ID() string

	// Capabilities returns the capability tags used for discovery.
	Capabilities() []string

	// Handle processes one message and returns the response message.
	Handle(ctx context.Context, msg Message) (Message, error)
}
