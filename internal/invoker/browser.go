package invoker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultURLTemplate is the web dictionary used by the browser backend
const DefaultURLTemplate = "https://www.merriam-webster.com/dictionary/{text}"

// Browser shows lookups in a visible Chromium tab driven by Rod.
// The browser is launched on the first lookup and reused afterwards.
type Browser struct {
	urlTemplate string
	bin         string
	profileDir  string
	start       func() (*rod.Browser, *rod.Page, error)

	mu        sync.Mutex
	browser   *rod.Browser
	page      *rod.Page
	launching *launchAttempt
	closed    bool
}

// launchAttempt is one browser start; err is set before done is closed
type launchAttempt struct {
	done chan struct{}
	err  error
}

// NewBrowser creates the browser backend. The template must contain {text}.
func NewBrowser(urlTemplate, bin, profileDir string) (*Browser, error) {
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}
	if !strings.Contains(urlTemplate, "{text}") {
		return nil, fmt.Errorf("browser url template %q has no {text} placeholder", urlTemplate)
	}
	b := &Browser{urlTemplate: urlTemplate, bin: bin, profileDir: profileDir}
	b.start = b.launch
	return b, nil
}

// LookupURL returns the page URL for text
func (b *Browser) LookupURL(text string) string {
	return strings.ReplaceAll(b.urlTemplate, "{text}", Escape(text))
}

// OpenLookup navigates the lookup tab without waiting for the page to load
func (b *Browser) OpenLookup(ctx context.Context, text string) error {
	page, err := b.ensurePage(ctx)
	if err != nil {
		return err
	}
	target := b.LookupURL(text)
	if err := page.Context(ctx).Navigate(target); err != nil {
		return fmt.Errorf("navigate %s: %w", target, err)
	}
	return nil
}

// Activate brings the lookup tab to the front
func (b *Browser) Activate(ctx context.Context) error {
	page, err := b.ensurePage(ctx)
	if err != nil {
		return err
	}
	if _, err := page.Context(ctx).Activate(); err != nil {
		return fmt.Errorf("activate lookup tab: %w", err)
	}
	return nil
}

// Close cleans up browser resources. A launch still in progress is torn
// down when it finishes.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	return b.release()
}

// release closes the page and browser; b.mu must be held
func (b *Browser) release() error {
	if b.page != nil {
		b.page.Close()
		b.page = nil
	}
	if b.browser != nil {
		err := b.browser.Close()
		b.browser = nil
		return err
	}
	return nil
}

// ensurePage returns the lookup tab, launching the browser if needed. Only
// the wait is bound to ctx: a launch outlives an expired call and is reused
// by the next one.
func (b *Browser) ensurePage(ctx context.Context) (*rod.Page, error) {
	b.mu.Lock()
	if b.page != nil {
		page := b.page
		b.mu.Unlock()
		return page, nil
	}
	if b.closed {
		b.mu.Unlock()
		return nil, errors.New("browser backend is closed")
	}
	attempt := b.launching
	if attempt == nil {
		attempt = &launchAttempt{done: make(chan struct{})}
		b.launching = attempt
		go b.runLaunch(attempt)
	}
	b.mu.Unlock()

	select {
	case <-attempt.done:
	case <-ctx.Done():
		return nil, fmt.Errorf("launch browser: %w", ctx.Err())
	}
	if attempt.err != nil {
		return nil, attempt.err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.page == nil {
		return nil, errors.New("browser backend is closed")
	}
	return b.page, nil
}

func (b *Browser) runLaunch(attempt *launchAttempt) {
	browser, page, err := b.start()

	b.mu.Lock()
	defer b.mu.Unlock()

	// A failed launch is retried by the next lookup
	b.launching = nil
	attempt.err = err
	close(attempt.done)
	if err != nil {
		return
	}
	b.browser = browser
	b.page = page
	if b.closed {
		b.release()
	}
}

func (b *Browser) launch() (*rod.Browser, *rod.Page, error) {
	bin := b.bin
	if bin == "" {
		bin, _ = launcher.LookPath()
	}
	l := launcher.New().Bin(bin).Headless(false)
	if b.profileDir != "" {
		l = l.UserDataDir(b.profileDir)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		browser.Close()
		l.Kill()
		return nil, nil, fmt.Errorf("open lookup tab: %w", err)
	}
	return browser, page, nil
}
