package invoker

import (
	"context"
	"fmt"
	"strings"

	"github.com/v0xg/dictfocus/internal/desktop"
)

// URLScheme opens lookups through an app-registered URL scheme
type URLScheme struct {
	scheme      string
	appName     string
	openCommand string
	runner      desktop.Runner
}

// NewURLScheme creates the default backend. Empty values fall back to
// EasyDict's scheme and name and the macOS "open" command.
func NewURLScheme(scheme, appName, openCommand string, runner desktop.Runner) *URLScheme {
	if scheme == "" {
		scheme = "easydict"
	}
	if appName == "" {
		appName = "EasyDict"
	}
	if openCommand == "" {
		openCommand = "open"
	}
	if runner == nil {
		runner = desktop.ExecRunner{}
	}
	return &URLScheme{scheme: scheme, appName: appName, openCommand: openCommand, runner: runner}
}

// LookupURL returns the query URL for text
func (u *URLScheme) LookupURL(text string) string {
	return fmt.Sprintf("%s://query?text=%s", u.scheme, Escape(text))
}

// OpenLookup asks the OS to open the query URL. The open command returns as
// soon as the handler app has been signalled.
func (u *URLScheme) OpenLookup(ctx context.Context, text string) error {
	target := u.LookupURL(text)
	if _, err := u.runner.Run(ctx, u.openCommand, target); err != nil {
		return fmt.Errorf("open %s: %w", target, err)
	}
	return nil
}

// Activate brings the app to the foreground by name
func (u *URLScheme) Activate(ctx context.Context) error {
	script := fmt.Sprintf("tell application %s to activate", appleScriptString(u.appName))
	if _, err := u.runner.Run(ctx, "osascript", "-e", script); err != nil {
		return fmt.Errorf("activate %s: %w", u.appName, err)
	}
	return nil
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
