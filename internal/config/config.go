// Package config loads dictfocus settings from defaults, an optional YAML
// file, DICTFOCUS_* environment variables and command-line flags, in that
// order of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/v0xg/dictfocus/internal/desktop"
	"github.com/v0xg/dictfocus/internal/invoker"
)

// Config is the full daemon configuration
type Config struct {
	Listen  string        `yaml:"listen"`
	Log     LogConfig     `yaml:"log"`
	Delays  DelayConfig   `yaml:"delays"`
	Pointer PointerConfig `yaml:"pointer"`
	Hotkeys HotkeyConfig  `yaml:"hotkeys"`
	App     AppConfig     `yaml:"app"`
	Browser BrowserConfig `yaml:"browser"`
	History HistoryConfig `yaml:"history"`
	Server  ServerConfig  `yaml:"server"`
	Breaker BreakerConfig `yaml:"breaker"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DelayConfig durations use Go syntax ("1s", "750ms") in YAML and env
type DelayConfig struct {
	Settle       time.Duration `yaml:"settle"`
	Special      time.Duration `yaml:"special"`
	CallTimeout  time.Duration `yaml:"call_timeout"`
	QueueTimeout time.Duration `yaml:"queue_timeout"`
}

type PointerConfig struct {
	Preserve bool   `yaml:"preserve"`
	Python   string `yaml:"python"`
}

// HotkeyConfig bindings are "mod+mod+keycode" strings, see desktop.ParseHotkey
type HotkeyConfig struct {
	Record  string `yaml:"record"`
	Special string `yaml:"special"`
	Restore string `yaml:"restore"`
}

type AppConfig struct {
	Backend     string `yaml:"backend"`
	Scheme      string `yaml:"scheme"`
	Name        string `yaml:"name"`
	OpenCommand string `yaml:"open_command"`
}

type BrowserConfig struct {
	URLTemplate string `yaml:"url_template"`
	Bin         string `yaml:"bin"`
	Profile     string `yaml:"profile"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ServerConfig RateLimit is lookups per second per client; 0 disables it
type ServerConfig struct {
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
	Metrics   bool    `yaml:"metrics"`
}

// BreakerConfig stops calling a dictionary app that keeps failing
type BreakerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Failures uint32        `yaml:"failures"`
	Cooldown time.Duration `yaml:"cooldown"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Listen: "127.0.0.1:8080",
		Log:    LogConfig{Level: "info", Format: "auto"},
		Delays: DelayConfig{
			Settle:       1 * time.Second,
			Special:      7 * time.Second,
			CallTimeout:  5 * time.Second,
			QueueTimeout: 30 * time.Second,
		},
		Pointer: PointerConfig{Preserve: false, Python: "python3"},
		Hotkeys: HotkeyConfig{
			Record:  "cmd+opt+ctrl+1",
			Special: "cmd+opt+1",
			Restore: "cmd+opt+ctrl+15",
		},
		App: AppConfig{
			Backend:     invoker.BackendURL,
			Scheme:      "easydict",
			Name:        "EasyDict",
			OpenCommand: "open",
		},
		Browser: BrowserConfig{URLTemplate: invoker.DefaultURLTemplate},
		History: HistoryConfig{Enabled: true, Path: defaultHistoryPath()},
		Server:  ServerConfig{RateLimit: 0, RateBurst: 5, Metrics: true},
		Breaker: BreakerConfig{Enabled: true, Failures: 3, Cooldown: 30 * time.Second},
	}
}

// DefaultPath is the config file read when --config is not given
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dictfocus", "config.yaml")
}

func defaultHistoryPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "dictfocus-history.db"
	}
	return filepath.Join(dir, "dictfocus", "history.db")
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	for name, d := range map[string]time.Duration{
		"delays.settle":        c.Delays.Settle,
		"delays.special":       c.Delays.Special,
		"delays.call_timeout":  c.Delays.CallTimeout,
		"delays.queue_timeout": c.Delays.QueueTimeout,
		"breaker.cooldown":     c.Breaker.Cooldown,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative (got %s)", name, d))
		}
	}
	for name, binding := range map[string]string{
		"hotkeys.record":  c.Hotkeys.Record,
		"hotkeys.special": c.Hotkeys.Special,
		"hotkeys.restore": c.Hotkeys.Restore,
	} {
		if _, err := desktop.ParseHotkey(binding); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	switch c.App.Backend {
	case invoker.BackendURL, invoker.BackendBrowser:
	default:
		errs = append(errs, fmt.Errorf("app.backend %q is not one of url, browser", c.App.Backend))
	}
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, errors.New("history.path is empty while history is enabled"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit must not be negative (got %g)", c.Server.RateLimit))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("server.rate_burst must be at least 1 when rate limiting (got %d)", c.Server.RateBurst))
	}
	if c.Breaker.Enabled && c.Breaker.Failures == 0 {
		errs = append(errs, errors.New("breaker.failures must be at least 1 while the breaker is enabled"))
	}
	return errors.Join(errs...)
}

// ParsedHotkeys parses the three bindings. Call after Validate.
func (c *Config) ParsedHotkeys() (record, special, restore desktop.Hotkey, err error) {
	if record, err = desktop.ParseHotkey(c.Hotkeys.Record); err != nil {
		return
	}
	if special, err = desktop.ParseHotkey(c.Hotkeys.Special); err != nil {
		return
	}
	restore, err = desktop.ParseHotkey(c.Hotkeys.Restore)
	return
}

// InvokerOptions maps the app and browser sections onto invoker.Options
func (c *Config) InvokerOptions() invoker.Options {
	return invoker.Options{
		Backend:     c.App.Backend,
		Scheme:      c.App.Scheme,
		AppName:     c.App.Name,
		OpenCommand: c.App.OpenCommand,
		URLTemplate: c.Browser.URLTemplate,
		BrowserBin:  c.Browser.Bin,
		ProfileDir:  c.Browser.Profile,
	}
}
