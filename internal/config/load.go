package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load builds the effective configuration. An explicit path must exist; the
// default path is skipped when missing. flags may be nil.
func Load(path string, flags *Flags) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if flags != nil {
		if err := flags.apply(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// An empty file decodes to io.EOF; keep defaults.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// envVars maps DICTFOCUS_* variables onto config fields
var envVars = []struct {
	name  string
	apply func(c *Config, v string) error
}{
	{"DICTFOCUS_LISTEN", setString(func(c *Config) *string { return &c.Listen })},
	{"DICTFOCUS_LOG_LEVEL", setString(func(c *Config) *string { return &c.Log.Level })},
	{"DICTFOCUS_LOG_FORMAT", setString(func(c *Config) *string { return &c.Log.Format })},
	{"DICTFOCUS_SETTLE_DELAY", setDuration(func(c *Config) *time.Duration { return &c.Delays.Settle })},
	{"DICTFOCUS_SPECIAL_DELAY", setDuration(func(c *Config) *time.Duration { return &c.Delays.Special })},
	{"DICTFOCUS_CALL_TIMEOUT", setDuration(func(c *Config) *time.Duration { return &c.Delays.CallTimeout })},
	{"DICTFOCUS_QUEUE_TIMEOUT", setDuration(func(c *Config) *time.Duration { return &c.Delays.QueueTimeout })},
	{"DICTFOCUS_PRESERVE_POINTER", setBool(func(c *Config) *bool { return &c.Pointer.Preserve })},
	{"DICTFOCUS_PYTHON", setString(func(c *Config) *string { return &c.Pointer.Python })},
	{"DICTFOCUS_HOTKEY_RECORD", setString(func(c *Config) *string { return &c.Hotkeys.Record })},
	{"DICTFOCUS_HOTKEY_SPECIAL", setString(func(c *Config) *string { return &c.Hotkeys.Special })},
	{"DICTFOCUS_HOTKEY_RESTORE", setString(func(c *Config) *string { return &c.Hotkeys.Restore })},
	{"DICTFOCUS_BACKEND", setString(func(c *Config) *string { return &c.App.Backend })},
	{"DICTFOCUS_SCHEME", setString(func(c *Config) *string { return &c.App.Scheme })},
	{"DICTFOCUS_APP_NAME", setString(func(c *Config) *string { return &c.App.Name })},
	{"DICTFOCUS_OPEN_COMMAND", setString(func(c *Config) *string { return &c.App.OpenCommand })},
	{"DICTFOCUS_BROWSER_URL", setString(func(c *Config) *string { return &c.Browser.URLTemplate })},
	{"DICTFOCUS_BROWSER_BIN", setString(func(c *Config) *string { return &c.Browser.Bin })},
	{"DICTFOCUS_BROWSER_PROFILE", setString(func(c *Config) *string { return &c.Browser.Profile })},
	{"DICTFOCUS_HISTORY", setBool(func(c *Config) *bool { return &c.History.Enabled })},
	{"DICTFOCUS_HISTORY_PATH", setString(func(c *Config) *string { return &c.History.Path })},
	{"DICTFOCUS_RATE_LIMIT", setFloat(func(c *Config) *float64 { return &c.Server.RateLimit })},
	{"DICTFOCUS_RATE_BURST", setInt(func(c *Config) *int { return &c.Server.RateBurst })},
	{"DICTFOCUS_METRICS", setBool(func(c *Config) *bool { return &c.Server.Metrics })},
	{"DICTFOCUS_BREAKER", setBool(func(c *Config) *bool { return &c.Breaker.Enabled })},
	{"DICTFOCUS_BREAKER_FAILURES", setUint32(func(c *Config) *uint32 { return &c.Breaker.Failures })},
	{"DICTFOCUS_BREAKER_COOLDOWN", setDuration(func(c *Config) *time.Duration { return &c.Breaker.Cooldown })},
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(ev.name)
		if !ok || v == "" {
			continue
		}
		if err := ev.apply(cfg, v); err != nil {
			return fmt.Errorf("%s: %w", ev.name, err)
		}
	}
	return nil
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setDuration(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

func setBool(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func setFloat(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func setInt(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func setUint32(field func(*Config) *uint32) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return err
		}
		*field(c) = uint32(n)
		return nil
	}
}
