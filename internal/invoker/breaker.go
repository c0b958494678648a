package invoker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerOptions configures WithBreaker
type BreakerOptions struct {
	Failures uint32        // consecutive failures that open the breaker
	Cooldown time.Duration // how long it stays open before one trial call
	Logger   *slog.Logger
}

// Breaker stops handing lookups to an app that keeps failing, e.g. one that
// is not installed. While open, calls fail immediately without a subprocess.
type Breaker struct {
	app App
	cb  *gobreaker.CircuitBreaker
}

// WithBreaker wraps app in a circuit breaker
func WithBreaker(app App, opts BreakerOptions) *Breaker {
	failures := opts.Failures
	if failures == 0 {
		failures = 3
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        "dictionary",
		MaxRequests: 1,
		Timeout:     opts.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Breaker{app: app, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) OpenLookup(ctx context.Context, text string) error {
	return b.do(func() error { return b.app.OpenLookup(ctx, text) })
}

func (b *Breaker) Activate(ctx context.Context) error {
	return b.do(func() error { return b.app.Activate(ctx) })
}

// State reports the breaker state ("closed", "half-open", "open")
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Close closes the wrapped app when it holds resources
func (b *Breaker) Close() error {
	if c, ok := b.app.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (b *Breaker) do(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("dictionary app disabled after repeated failures: %w", err)
	}
	return err
}
