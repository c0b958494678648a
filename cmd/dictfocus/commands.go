package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/v0xg/dictfocus/internal/config"
	"github.com/v0xg/dictfocus/internal/desktop"
	"github.com/v0xg/dictfocus/internal/history"
	"github.com/v0xg/dictfocus/internal/invoker"
	"github.com/v0xg/dictfocus/internal/logging"
	"github.com/v0xg/dictfocus/internal/metrics"
	"github.com/v0xg/dictfocus/internal/sequencer"
	"github.com/v0xg/dictfocus/internal/server"
)

// components is everything a lookup needs, built from one config
type components struct {
	cfg     *config.Config
	log     *slog.Logger
	seq     *sequencer.Sequencer
	app     invoker.App
	history *history.Store
}

func (c *components) Close() {
	if closer, ok := c.app.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			c.log.Warn("failed to close dictionary backend", "error", err)
		}
	}
	if c.history != nil {
		c.history.Close()
	}
}

func build() (*components, error) {
	cfg, err := config.Load(flags.ConfigPath, flags)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(logging.Options{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Component: "dictfocus",
	})
	if err != nil {
		return nil, err
	}

	runner := desktop.ExecRunner{}
	var app invoker.App
	app, err = invoker.New(cfg.InvokerOptions(), runner)
	if err != nil {
		return nil, err
	}
	if cfg.Breaker.Enabled {
		app = invoker.WithBreaker(app, invoker.BreakerOptions{
			Failures: cfg.Breaker.Failures,
			Cooldown: cfg.Breaker.Cooldown,
			Logger:   logger,
		})
	}

	record, special, restore, err := cfg.ParsedHotkeys()
	if err != nil {
		return nil, err
	}
	opts := sequencer.Options{
		SettleDelay:     cfg.Delays.Settle,
		SpecialDelay:    cfg.Delays.Special,
		CallTimeout:     cfg.Delays.CallTimeout,
		QueueTimeout:    cfg.Delays.QueueTimeout,
		PreservePointer: cfg.Pointer.Preserve,
		RecordHotkey:    record,
		SpecialHotkey:   special,
		RestoreHotkey:   restore,
		Logger:          logger,
	}
	desk := desktop.NewOSAScript(runner, cfg.Pointer.Python)

	c := &components{
		cfg: cfg,
		log: logger,
		seq: sequencer.New(desk, app, opts),
		app: app,
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			// Lookups still work without history
			logger.Warn("history disabled", "path", cfg.History.Path, "error", err)
		} else {
			c.history = store
		}
	}
	return c, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := build()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var hist server.History
	if c.history != nil {
		hist = c.history
	}
	opts := server.Options{
		Logger:    c.log,
		RateLimit: c.cfg.Server.RateLimit,
		RateBurst: c.cfg.Server.RateBurst,
	}
	if c.cfg.Server.Metrics {
		opts.Registry = metrics.NewRegistry()
	}
	srv := server.New(c.seq, hist, opts)

	c.log.Info("starting dictfocus",
		"backend", c.cfg.App.Backend,
		"preserve_pointer", c.cfg.Pointer.Preserve,
		"settle", c.cfg.Delays.Settle,
		"special", c.cfg.Delays.Special,
		"history", c.history != nil,
		"breaker", c.cfg.Breaker.Enabled,
		"metrics", c.cfg.Server.Metrics,
	)
	return srv.Start(ctx, c.cfg.Listen)
}

func runLookup(cmd *cobra.Command, args []string) error {
	c, err := build()
	if err != nil {
		return err
	}
	defer c.Close()

	text := strings.Join(args, " ")
	mode := "quick lookup"
	if sequencer.IsSpecial(text) {
		mode = "in-app search"
	}

	fmt.Printf("→ Looking up %q (%s)... ", text, mode)
	started := time.Now()
	res, err := c.seq.Run(cmd.Context(), text)
	recordCLI(cmd.Context(), c, text, started, err)
	if err != nil {
		fmt.Println("failed")
		if res != nil {
			logSteps(res)
		}
		return err
	}
	fmt.Printf("done (%s)\n", res.Elapsed.Round(time.Millisecond))
	logSteps(res)
	return nil
}

func recordCLI(ctx context.Context, c *components, text string, started time.Time, runErr error) {
	if c.history == nil || errors.Is(runErr, sequencer.ErrBusy) {
		return
	}
	e := history.NewEntry("cli", text, started, time.Since(started), runErr)
	if err := c.history.Record(ctx, e); err != nil {
		c.log.Warn("failed to record lookup", "error", err)
	}
}

// logSteps prints the executed steps when --verbose is set
func logSteps(res *sequencer.Result) {
	if !verbose {
		return
	}
	for i, step := range res.Steps {
		fmt.Printf("  [%d/%d] %s\n", i+1, len(res.Steps), step)
	}
	if res.Pointer != nil {
		fmt.Printf("  pointer: %s\n", res.Pointer)
	}
	fmt.Printf("  final state: %s, slept %s\n", res.State, res.Slept)
}

func runHistory(cmd *cobra.Command, args []string) error {
	c, err := build()
	if err != nil {
		return err
	}
	defer c.Close()

	if c.history == nil {
		return errors.New("history is disabled")
	}
	entries, err := c.history.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No lookups recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTEXT\tOUTCOME\tDURATION")
	for _, e := range entries {
		outcome := e.Outcome
		if e.FailedStep != "" {
			outcome += " (" + e.FailedStep + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%dms\n", e.StartedAt.Local().Format(time.DateTime), e.Text, outcome, e.DurationMS)
	}
	return w.Flush()
}
