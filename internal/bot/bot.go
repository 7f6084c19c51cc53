// Package bot runs the Discord gateway and the keep-alive server together.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Gateway is the Discord connection.
type Gateway interface {
	Open() error
	Close(ctx context.Context) error
}

// HTTPServer is the keep-alive server.
type HTTPServer interface {
	Run(ctx context.Context) error
}

type Dependencies struct {
	Gateway Gateway
	Server  HTTPServer
	Logger  *zap.Logger
	// Closers release infrastructure (cache connections) after the gateway
	// has stopped. They run in reverse order.
	Closers []func() error
}

type Bot struct {
	gateway Gateway
	server  HTTPServer
	logger  *zap.Logger
	closers []func() error

	mu      sync.Mutex
	running bool
	stopped bool
}

func NewBot(deps *Dependencies) (*Bot, error) {
	if deps == nil {
		return nil, fmt.Errorf("bot dependencies must not be nil")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("gateway must not be nil")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		gateway: deps.Gateway,
		server:  deps.Server,
		logger:  logger,
		closers: deps.Closers,
	}, nil
}

// Start connects to Discord and serves the keep-alive endpoint. It blocks
// until ctx is cancelled or one of them fails.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("bot already running")
	}
	b.running = true
	b.mu.Unlock()

	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError()

	if b.server != nil {
		p.Go(func(ctx context.Context) error {
			return b.server.Run(ctx)
		})
	}

	p.Go(func(ctx context.Context) error {
		if err := b.gateway.Open(); err != nil {
			return err
		}
		b.logger.Info("Discord gateway connected")
		<-ctx.Done()
		return nil
	})

	err := p.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown closes the gateway, waiting for in-flight interactions, then the
// infrastructure. Safe to call more than once.
func (b *Bot) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil
	}
	b.stopped = true
	b.mu.Unlock()

	var errs []error
	if err := b.gateway.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close gateway: %w", err))
	}

	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		b.logger.Info("Bot shutdown complete")
	}
	return errors.Join(errs...)
}
