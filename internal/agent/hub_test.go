// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package agent

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscout/shelfscout/internal/logging"
)

// echoAgent responds to every message with an echo of its content.
type echoAgent struct {
	id       string
	tags     []string
	handled  atomic.Int64
	handleFn func(ctx context.Context, msg Message) (Message, error)
}

func (a *echoAgent) ID() string             { return a.id }
func (a *echoAgent) Capabilities() []string { return a.tags }

func (a *echoAgent) Handle(ctx context.Context, msg Message) (Message, error) {
	a.handled.Add(1)
	if a.handleFn != nil {
		return a.handleFn(ctx, msg)
	}
	return msg.Reply(TypeRecommendationResult, msg.Content), nil
}

func newTestHub() *Hub {
	return NewHub(logging.NewTestLogger(io.Discard))
}

func TestRegisterDuplicateFails(t *testing.T) {
	hub := newTestHub()

	require.NoError(t, hub.Register(&echoAgent{id: "a1"}))
	err := hub.Register(&echoAgent{id: "a1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateAgent)
}

func TestSendDeliversToReceiver(t *testing.T) {
	hub := newTestHub()
	a := &echoAgent{id: "classifier"}
	require.NoError(t, hub.Register(a))

	msg := NewMessage("orchestrator", "classifier", TypeClassifyText, "space opera", PriorityMedium)
	resp, err := hub.Send(context.Background(), msg)

	require.NoError(t, err)
	assert.Equal(t, "space opera", resp.Content)
	assert.Equal(t, "classifier", resp.SenderID)
	assert.Equal(t, "orchestrator", resp.ReceiverID)
	assert.Equal(t, int64(1), a.handled.Load())
}

func TestSendUnknownReceiver(t *testing.T) {
	hub := newTestHub()

	msg := NewMessage("orchestrator", "ghost", TypeClassifyText, nil, PriorityLow)
	_, err := hub.Send(context.Background(), msg)

	assert.ErrorIs(t, err, ErrUnknownReceiver)
}

func TestSendRecoversHandlerPanic(t *testing.T) {
	hub := newTestHub()
	panicky := &echoAgent{
		id: "boom",
		handleFn: func(context.Context, Message) (Message, error) {
			panic("kaboom")
		},
	}
	healthy := &echoAgent{id: "ok"}
	require.NoError(t, hub.Register(panicky))
	require.NoError(t, hub.Register(healthy))

	_, err := hub.Send(context.Background(), NewMessage("x", "boom", TypeClassifyText, nil, PriorityLow))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic")

	// Hub state must be intact for other agents.
	_, err = hub.Send(context.Background(), NewMessage("x", "ok", TypeClassifyText, nil, PriorityLow))
	assert.NoError(t, err)
}

func TestBroadcastSkipsSenderAndCollectsFailures(t *testing.T) {
	hub := newTestHub()
	sender := &echoAgent{id: "sender"}
	good := &echoAgent{id: "good"}
	bad := &echoAgent{
		id: "bad",
		handleFn: func(context.Context, Message) (Message, error) {
			return Message{}, errors.New("backend down")
		},
	}
	require.NoError(t, hub.Register(sender))
	require.NoError(t, hub.Register(good))
	require.NoError(t, hub.Register(bad))

	delivered, err := hub.Broadcast(context.Background(), "sender", TypeAnalyzePopularity, nil, PriorityLow)

	assert.Equal(t, 1, delivered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broadcast to bad")
	assert.Equal(t, int64(0), sender.handled.Load(), "sender must not receive its own broadcast")
	assert.Equal(t, int64(1), good.handled.Load())
}

func TestDeregisterThenSendFails(t *testing.T) {
	hub := newTestHub()
	require.NoError(t, hub.Register(&echoAgent{id: "a1"}))

	hub.Deregister("a1")
	_, err := hub.Send(context.Background(), NewMessage("x", "a1", TypeClassifyText, nil, PriorityLow))
	assert.ErrorIs(t, err, ErrUnknownReceiver)

	// Deregistering an unknown ID is a no-op.
	hub.Deregister("a1")
}

func TestFindByCapability(t *testing.T) {
	hub := newTestHub()
	require.NoError(t, hub.Register(&echoAgent{id: "c", tags: []string{"text_classification", "genre_detection"}}))
	require.NoError(t, hub.Register(&echoAgent{id: "p", tags: []string{"popularity_analysis"}}))

	found := hub.FindByCapability("genre_detection")
	require.Len(t, found, 1)
	assert.Equal(t, "c", found[0].ID())

	assert.Empty(t, hub.FindByCapability("time_travel"))
	assert.Equal(t, []string{"c", "p"}, hub.AgentIDs())
}

func TestConcurrentSendAndRegistry(t *testing.T) {
	hub := newTestHub()
	require.NoError(t, hub.Register(&echoAgent{id: "stable"}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			msg := NewMessage("x", "stable", TypeClassifyText, n, PriorityLow)
			_, err := hub.Send(context.Background(), msg)
			assert.NoError(t, err)
		}(i)
	}
	// Interleave registry mutations with deliveries.
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			a := &echoAgent{id: string(rune('A' + n))}
			assert.NoError(t, hub.Register(a))
			hub.Deregister(a.ID())
		}(i)
	}
	wg.Wait()
}

func TestMessageIDsAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		m := NewMessage("a", "b", TypeClassifyText, nil, PriorityLow)
		_, dup := seen[m.ID]
		require.False(t, dup, "duplicate message ID %s", m.ID)
		seen[m.ID] = struct{}{}
	}
}
