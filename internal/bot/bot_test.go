package bot

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeGateway struct {
	openErr error
	opened  atomic.Int32
	closed  atomic.Int32
}

func (g *fakeGateway) Open() error {
	g.opened.Add(1)
	return g.openErr
}

func (g *fakeGateway) Close(context.Context) error {
	g.closed.Add(1)
	return nil
}

type fakeServer struct {
	err     error
	stopped atomic.Bool
}

func (s *fakeServer) Run(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	s.stopped.Store(true)
	return nil
}

func TestStartRunsUntilCancelled(t *testing.T) {
	gw := &fakeGateway{}
	srv := &fakeServer{}
	b, err := NewBot(&Dependencies{Gateway: gw, Server: srv, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("NewBot failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Start did not return after cancel")
	}
	if gw.opened.Load() != 1 || !srv.stopped.Load() {
		t.Fatalf("expected gateway opened and server stopped")
	}
}

func TestStartReturnsGatewayError(t *testing.T) {
	gw := &fakeGateway{openErr: errors.New("invalid token")}
	srv := &fakeServer{}
	b, _ := NewBot(&Dependencies{Gateway: gw, Server: srv})

	err := b.Start(context.Background())
	if err == nil || err.Error() != "invalid token" {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if !srv.stopped.Load() {
		t.Fatalf("server must stop when the gateway fails")
	}
}

func TestShutdownClosesInReverseOrderOnce(t *testing.T) {
	gw := &fakeGateway{}
	var order []string
	b, _ := NewBot(&Dependencies{
		Gateway: gw,
		Closers: []func() error{
			func() error { order = append(order, "first"); return nil },
			func() error { order = append(order, "second"); return errors.New("boom") },
		},
	})

	err := b.Shutdown(context.Background())
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected closer error, got %v", err)
	}
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Fatalf("unexpected close order %v", order)
	}
	if err := b.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown must be a no-op, got %v", err)
	}
	if gw.closed.Load() != 1 {
		t.Fatalf("gateway closed %d times", gw.closed.Load())
	}
}

func TestNewBotRequiresGateway(t *testing.T) {
	if _, err := NewBot(&Dependencies{}); err == nil {
		t.Fatalf("expected error without gateway")
	}
}
