package invoker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyApp struct {
	opens  int
	err    error
	closed bool
}

func (f *flakyApp) OpenLookup(ctx context.Context, text string) error {
	f.opens++
	return f.err
}

func (f *flakyApp) Activate(ctx context.Context) error { return f.err }

func (f *flakyApp) Close() error {
	f.closed = true
	return nil
}

func quietBreaker(app App, failures uint32, cooldown time.Duration) *Breaker {
	return WithBreaker(app, BreakerOptions{
		Failures: failures,
		Cooldown: cooldown,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestBreakerPassesThrough(t *testing.T) {
	app := &flakyApp{}
	b := quietBreaker(app, 2, time.Minute)

	require.NoError(t, b.OpenLookup(context.Background(), "hello"))
	require.NoError(t, b.Activate(context.Background()))
	assert.Equal(t, 1, app.opens)
	assert.Equal(t, "closed", b.State())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cause := errors.New("no application knows how to open URL")
	app := &flakyApp{err: cause}
	b := quietBreaker(app, 2, time.Minute)

	for range 2 {
		assert.ErrorIs(t, b.OpenLookup(context.Background(), "hello"), cause)
	}
	assert.Equal(t, "open", b.State())

	err := b.OpenLookup(context.Background(), "hello")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Contains(t, err.Error(), "disabled after repeated failures")
	assert.Equal(t, 2, app.opens, "open breaker must not reach the app")
}

func TestBreakerRecoversAfterCooldown(t *testing.T) {
	app := &flakyApp{err: errors.New("boom")}
	b := quietBreaker(app, 1, 10*time.Millisecond)

	require.Error(t, b.OpenLookup(context.Background(), "hello"))
	require.Equal(t, "open", b.State())

	app.err = nil
	require.Eventually(t, func() bool {
		return b.OpenLookup(context.Background(), "hello") == nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "closed", b.State())
}

func TestBreakerCloseForwards(t *testing.T) {
	app := &flakyApp{}
	require.NoError(t, quietBreaker(app, 1, time.Second).Close())
	assert.True(t, app.closed)

	u := NewURLScheme("", "", "", &fakeRunner{})
	assert.NoError(t, quietBreaker(u, 1, time.Second).Close())
}
