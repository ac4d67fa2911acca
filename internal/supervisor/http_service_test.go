// Shelfscout - Multi-Agent Book Recommendation Engine
// Copyright 2026 Shelfscout Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfscout/shelfscout

package supervisor

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscout/shelfscout/internal/logging"
)

// mockServer blocks in ListenAndServe until Shutdown is called.
type mockServer struct {
	startErr error
	done     chan struct{}
	shutdown chan struct{}
}

func newMockServer() *mockServer {
	return &mockServer{done: make(chan struct{}), shutdown: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	if m.startErr != nil {
		return m.startErr
	}
	<-m.done
	return nil
}

func (m *mockServer) Shutdown(context.Context) error {
	close(m.done)
	close(m.shutdown)
	return nil
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	srv := newMockServer()
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}

	select {
	case <-srv.shutdown:
	default:
		t.Fatal("server was not shut down")
	}
}

func TestHTTPServiceStartFailure(t *testing.T) {
	srv := newMockServer()
	srv.startErr = errors.New("bind failed")
	svc := NewHTTPService(srv, time.Second)

	err := svc.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind failed")
}

func TestTreeRunsService(t *testing.T) {
	logger := logging.NewSlogLogger(logging.NewTestLogger(io.Discard))
	tree := NewTree(logger, DefaultTreeConfig())

	srv := newMockServer()
	tree.Add(NewHTTPService(srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- tree.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}
}
