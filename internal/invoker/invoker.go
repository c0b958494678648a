// Package invoker hands lookups to the external dictionary application.
package invoker

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/v0xg/dictfocus/internal/desktop"
)

// App opens lookups in the dictionary and brings it forward.
// Neither call waits for the application to acknowledge.
type App interface {
	OpenLookup(ctx context.Context, text string) error
	Activate(ctx context.Context) error
}

// Backend names accepted by New
const (
	BackendURL     = "url"
	BackendBrowser = "browser"
)

// Options configures the invoker backends
type Options struct {
	Backend     string
	Scheme      string // URL scheme registered by the app, e.g. "easydict"
	AppName     string // Name used to activate the app
	OpenCommand string // OS command that opens URLs with their handler
	URLTemplate string // Web dictionary URL with a {text} placeholder (browser backend)
	BrowserBin  string
	ProfileDir  string
}

// New creates the backend selected by opts.Backend
func New(opts Options, runner desktop.Runner) (App, error) {
	switch opts.Backend {
	case "", BackendURL:
		return NewURLScheme(opts.Scheme, opts.AppName, opts.OpenCommand, runner), nil
	case BackendBrowser:
		return NewBrowser(opts.URLTemplate, opts.BrowserBin, opts.ProfileDir)
	default:
		return nil, fmt.Errorf("unknown backend: %s (supported: url, browser)", opts.Backend)
	}
}

// Escape percent-encodes text for use in a URL query value or path segment.
// Spaces become %20 rather than "+".
func Escape(text string) string {
	return strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
