// Package sequencer runs the focus-preserving lookup protocol: remember the
// focused window and pointer, hand the text to the dictionary, wait for it
// to settle, then put focus and pointer back.
//
// The protocol has no readiness signal from the dictionary. Fixed delays are
// the only synchronization, and desktop focus is process-global, so at most
// one sequence runs at a time.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/v0xg/dictfocus/internal/desktop"
	"github.com/v0xg/dictfocus/internal/invoker"
)

var (
	// ErrEmptyText is returned for an empty lookup before any side effect
	ErrEmptyText = errors.New("lookup text is empty")
	// ErrBusy is returned when the sequence slot could not be acquired in time
	ErrBusy = errors.New("lookup queue busy")
)

// AutomationError reports the step at which a sequence failed. Steps that
// already ran are not undone.
type AutomationError struct {
	Step  Step
	State State // last state reached before the failure
	Err   error
}

func (e *AutomationError) Error() string {
	return fmt.Sprintf("lookup failed at %s: %v", e.Step, e.Err)
}

func (e *AutomationError) Unwrap() error {
	return e.Err
}

// Options configures sequence timing and key bindings
type Options struct {
	SettleDelay     time.Duration // after opening the lookup
	SpecialDelay    time.Duration // extra wait for multi-word lookups
	CallTimeout     time.Duration // bound on each automation call; 0 disables
	QueueTimeout    time.Duration // bound on waiting for a running sequence; 0 waits for the caller
	PreservePointer bool

	RecordHotkey  desktop.Hotkey // "remember the focused window"
	SpecialHotkey desktop.Hotkey // in-app search for multi-word text
	RestoreHotkey desktop.Hotkey // "switch back to the remembered window"

	Logger *slog.Logger
	Clock  clockwork.Clock // nil uses the real clock
}

// DefaultOptions returns the timings and bindings EasyDict setups use
func DefaultOptions() Options {
	return Options{
		SettleDelay:   1 * time.Second,
		SpecialDelay:  7 * time.Second,
		CallTimeout:   5 * time.Second,
		RecordHotkey:  desktop.MustParseHotkey("cmd+opt+ctrl+1"),
		SpecialHotkey: desktop.MustParseHotkey("cmd+opt+1"),
		RestoreHotkey: desktop.MustParseHotkey("cmd+opt+ctrl+15"),
	}
}

// Result describes one sequence execution
type Result struct {
	Text    string
	Special bool
	Pointer *desktop.CursorPosition // captured position, nil without pointer preservation
	Steps   []Step
	States  []State
	State   State
	Slept   time.Duration
	Elapsed time.Duration
}

func (r *Result) enter(s State) {
	r.State = s
	r.States = append(r.States, s)
}

// Sequencer executes lookups one at a time
type Sequencer struct {
	desk  desktop.Controller
	app   invoker.App
	opts  Options
	log   *slog.Logger
	clock clockwork.Clock
	slot  chan struct{}
}

// New creates a sequencer over the given desktop and app
func New(desk desktop.Controller, app invoker.App, opts Options) *Sequencer {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{
		desk:  desk,
		app:   app,
		opts:  opts,
		log:   logger.With("component", "sequencer"),
		clock: clock,
		slot:  make(chan struct{}, 1),
	}
}

// IsSpecial reports whether text needs the in-app search path
func IsSpecial(text string) bool {
	return len(strings.Fields(text)) >= 2
}

// Run performs the lookup sequence for text. Waiting for the slot honours
// ctx; once started the sequence runs to completion so focus is never left
// with the dictionary because a caller hung up.
//
// The returned Result is non-nil whenever the sequence started, including
// on AutomationError.
func (s *Sequencer) Run(ctx context.Context, text string) (*Result, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	res := &Result{Text: text, Special: IsSpecial(text)}
	res.enter(Idle)
	start := s.clock.Now()

	err := s.execute(context.WithoutCancel(ctx), res)
	res.Elapsed = s.clock.Since(start)

	if err != nil {
		var aerr *AutomationError
		if errors.As(err, &aerr) {
			// No rollback: the desktop stays wherever the completed steps left it.
			s.log.ErrorContext(ctx, "lookup sequence failed", "text", text, "step", string(aerr.Step), "reached", aerr.State.String(), "error", aerr.Err)
		}
		return res, err
	}
	s.log.DebugContext(ctx, "lookup sequence done", "text", text, "special", res.Special, "slept", res.Slept, "elapsed", res.Elapsed)
	return res, nil
}

func (s *Sequencer) acquire(ctx context.Context) error {
	if s.opts.QueueTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.QueueTimeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	select {
	case s.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrBusy, ctx.Err())
	}
}

func (s *Sequencer) release() {
	<-s.slot
}

func (s *Sequencer) execute(ctx context.Context, res *Result) error {
	var pos desktop.CursorPosition
	if s.opts.PreservePointer {
		err := s.call(ctx, res, StepCapturePointer, func(ctx context.Context) error {
			var err error
			pos, err = s.desk.CapturePointer(ctx)
			return err
		})
		if err != nil {
			return err
		}
		res.Pointer = &pos
		res.enter(PointerCaptured)
	}

	if err := s.hotkey(ctx, res, StepRecordPrevious, s.opts.RecordHotkey); err != nil {
		return err
	}
	res.enter(PreviousWindowRecorded)

	err := s.call(ctx, res, StepOpenLookup, func(ctx context.Context) error {
		return s.app.OpenLookup(ctx, res.Text)
	})
	if err != nil {
		return err
	}
	res.enter(AppInvoked)

	if err := s.wait(ctx, res, StepSettle, s.opts.SettleDelay); err != nil {
		return err
	}

	if res.Special {
		if err := s.call(ctx, res, StepActivateApp, s.app.Activate); err != nil {
			return err
		}
		if err := s.hotkey(ctx, res, StepSpecialHotkey, s.opts.SpecialHotkey); err != nil {
			return err
		}
		res.enter(SpecialCaseTriggered)
		if err := s.wait(ctx, res, StepSpecialWait, s.opts.SpecialDelay); err != nil {
			return err
		}
		res.enter(SpecialSettled)
	} else {
		res.enter(SimpleSettled)
	}

	if err := s.hotkey(ctx, res, StepRestoreFocus, s.opts.RestoreHotkey); err != nil {
		return err
	}
	res.enter(FocusRestored)

	if s.opts.PreservePointer {
		err := s.call(ctx, res, StepRestorePointer, func(ctx context.Context) error {
			return s.desk.MovePointer(ctx, pos)
		})
		if err != nil {
			return err
		}
		res.enter(PointerRestored)
	}

	res.enter(Done)
	return nil
}

func (s *Sequencer) hotkey(ctx context.Context, res *Result, step Step, hk desktop.Hotkey) error {
	return s.call(ctx, res, step, func(ctx context.Context) error {
		return s.desk.SendHotkey(ctx, hk)
	})
}

// call runs one automation primitive under the per-call timeout
func (s *Sequencer) call(ctx context.Context, res *Result, step Step, fn func(context.Context) error) error {
	res.Steps = append(res.Steps, step)
	if s.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.CallTimeout)
		defer cancel()
	}

	started := s.clock.Now()
	err := fn(ctx)
	s.log.DebugContext(ctx, "step", "step", string(step), "took", s.clock.Since(started), "ok", err == nil)
	if err != nil {
		return s.fail(res, step, err)
	}
	return nil
}

func (s *Sequencer) wait(ctx context.Context, res *Result, step Step, d time.Duration) error {
	res.Steps = append(res.Steps, step)
	if err := s.sleep(ctx, d); err != nil {
		return s.fail(res, step, err)
	}
	res.Slept += d
	return nil
}

func (s *Sequencer) fail(res *Result, step Step, err error) error {
	last := res.State
	res.enter(Failed)
	return &AutomationError{Step: step, State: last, Err: err}
}

func (s *Sequencer) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := s.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
