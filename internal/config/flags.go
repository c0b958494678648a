package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Flags holds the command-line overrides. Only flags the user set are
// applied, so an unset flag never masks the file or environment.
type Flags struct {
	fs *pflag.FlagSet

	ConfigPath string

	listen          string
	logLevel        string
	logFormat       string
	settle          string
	special         string
	callTimeout     string
	queueTimeout    string
	preservePointer bool
	python          string
	backend         string
	appName         string
	noHistory       bool
	historyPath     string
	rateLimit       string
	noMetrics       bool
	noBreaker       bool
}

// BindFlags registers the config flags on fs
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "Config file (default: "+DefaultPath()+")")
	fs.StringVar(&f.listen, "listen", "", "HTTP listen address (default 127.0.0.1:8080)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", "", "Log format: auto, text, json")
	fs.StringVar(&f.settle, "settle-delay", "", "Wait after opening a lookup (e.g. 1s)")
	fs.StringVar(&f.special, "special-delay", "", "Extra wait for multi-word lookups (e.g. 7s)")
	fs.StringVar(&f.callTimeout, "call-timeout", "", "Timeout for each automation call")
	fs.StringVar(&f.queueTimeout, "queue-timeout", "", "How long a request waits for a running lookup")
	fs.BoolVar(&f.preservePointer, "preserve-pointer", false, "Restore the pointer position after each lookup")
	fs.StringVar(&f.python, "python", "", "Python interpreter with Quartz bindings for pointer control")
	fs.StringVar(&f.backend, "backend", "", "Dictionary backend: url, browser")
	fs.StringVar(&f.appName, "app-name", "", "Dictionary application name")
	fs.BoolVar(&f.noHistory, "no-history", false, "Disable the lookup history store")
	fs.StringVar(&f.historyPath, "history-path", "", "Lookup history database path")
	fs.StringVar(&f.rateLimit, "rate-limit", "", "Lookups per second per client, 0 for unlimited")
	fs.BoolVar(&f.noMetrics, "no-metrics", false, "Disable the /metrics endpoint")
	fs.BoolVar(&f.noBreaker, "no-breaker", false, "Keep calling the dictionary app after repeated failures")
	return f
}

func (f *Flags) apply(cfg *Config) error {
	strs := []struct {
		name  string
		value string
		apply func(*Config, string) error
	}{
		{"listen", f.listen, setString(func(c *Config) *string { return &c.Listen })},
		{"log-level", f.logLevel, setString(func(c *Config) *string { return &c.Log.Level })},
		{"log-format", f.logFormat, setString(func(c *Config) *string { return &c.Log.Format })},
		{"settle-delay", f.settle, setDuration(func(c *Config) *time.Duration { return &c.Delays.Settle })},
		{"special-delay", f.special, setDuration(func(c *Config) *time.Duration { return &c.Delays.Special })},
		{"call-timeout", f.callTimeout, setDuration(func(c *Config) *time.Duration { return &c.Delays.CallTimeout })},
		{"queue-timeout", f.queueTimeout, setDuration(func(c *Config) *time.Duration { return &c.Delays.QueueTimeout })},
		{"python", f.python, setString(func(c *Config) *string { return &c.Pointer.Python })},
		{"backend", f.backend, setString(func(c *Config) *string { return &c.App.Backend })},
		{"app-name", f.appName, setString(func(c *Config) *string { return &c.App.Name })},
		{"history-path", f.historyPath, setString(func(c *Config) *string { return &c.History.Path })},
		{"rate-limit", f.rateLimit, setFloat(func(c *Config) *float64 { return &c.Server.RateLimit })},
	}
	for _, s := range strs {
		if !f.fs.Changed(s.name) {
			continue
		}
		if err := s.apply(cfg, s.value); err != nil {
			return fmt.Errorf("--%s: %w", s.name, err)
		}
	}

	if f.fs.Changed("preserve-pointer") {
		cfg.Pointer.Preserve = f.preservePointer
	}
	if f.fs.Changed("no-history") {
		cfg.History.Enabled = !f.noHistory
	}
	if f.fs.Changed("no-metrics") {
		cfg.Server.Metrics = !f.noMetrics
	}
	if f.fs.Changed("no-breaker") {
		cfg.Breaker.Enabled = !f.noBreaker
	}
	return nil
}
