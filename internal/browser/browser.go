// Package browser owns the headless Chrome session used to render the
// target page. Exactly one session exists at a time; the watcher tears it
// down and starts a fresh one when the current one stops producing.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// Matches the desktop Chrome the upstream site is known to render for.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	// ErrStart means Chrome could not be located or launched.
	ErrStart = errors.New("browser: session start failed")
	// ErrNavigationTimeout means the ready condition did not hold in time.
	ErrNavigationTimeout = errors.New("browser: navigation timeout")
	// ErrNavigation covers transport-level failures: crashed process, DNS
	// failure, dropped CDP connection.
	ErrNavigation = errors.New("browser: navigation failed")
	// ErrElementNotFound means fewer elements matched than requested.
	ErrElementNotFound = errors.New("browser: element not found")
)

type Config struct {
	// Headless disables the visible browser window. On by default in
	// containers; turn off locally when debugging selectors.
	Headless bool
	// ExecPath overrides the Chrome binary location (CHROME_BIN style).
	ExecPath string
	// UserAgent replaces the default desktop Chrome user agent.
	UserAgent string
	// NavTimeout bounds every navigation and DOM query.
	NavTimeout time.Duration
	WindowW    int
	WindowH    int
}

// Manager owns one Chrome child process and the DevTools connection to it.
// Methods are safe to call from a single goroutine; the watcher is the only
// intended caller.
type Manager struct {
	cfg     Config
	browser context.Context
	cancels []context.CancelFunc
	stop    sync.Once
}

// Start launches Chrome with flags suitable for containerized hosts:
// no sandbox, no GPU, no /dev/shm dependence, fixed viewport, realistic
// user agent. It fails with ErrStart when the process cannot come up.
func Start(ctx context.Context, cfg Config) (*Manager, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 15 * time.Second
	}
	if cfg.WindowW <= 0 || cfg.WindowH <= 0 {
		cfg.WindowW, cfg.WindowH = 1920, 1080
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(cfg.WindowW, cfg.WindowH),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	m := &Manager{
		cfg:     cfg,
		browser: browserCtx,
		cancels: []context.CancelFunc{cancelBrowser, cancelAlloc},
	}
	// Run with no actions forces the process to launch now, so a missing or
	// broken binary surfaces here instead of on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("%w: %v", ErrStart, err)
	}
	return m, nil
}

// Navigate loads url and blocks until an element matching waitSelector is
// present in the DOM, the session's navigation timeout elapses, or ctx is
// canceled.
func (m *Manager) Navigate(ctx context.Context, url, waitSelector string) error {
	tctx, cancel, release := m.bound(ctx)
	defer cancel()
	defer release()

	err := chromedp.Run(tctx,
		chromedp.Navigate(url),
		chromedp.WaitReady(waitSelector, chromedp.ByQuery),
	)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %q not ready within %s", ErrNavigationTimeout, waitSelector, m.cfg.NavTimeout)
	}
	return fmt.Errorf("%w: %v", ErrNavigation, err)
}

// Count returns how many elements currently match selector.
func (m *Manager) Count(ctx context.Context, selector string) (int, error) {
	tctx, cancel, release := m.bound(ctx)
	defer cancel()
	defer release()

	var nodes []*cdp.Node
	err := chromedp.Run(tctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%w: count %q: %v", ErrNavigation, selector, err)
	}
	return len(nodes), nil
}

// Text returns the rendered text of the nth (0-indexed) element matching
// selector, trimmed. It fails with ErrElementNotFound when fewer than nth+1
// elements match.
func (m *Manager) Text(ctx context.Context, selector string, nth int) (string, error) {
	tctx, cancel, release := m.bound(ctx)
	defer cancel()
	defer release()

	expr := fmt.Sprintf(
		`(() => { const el = document.querySelectorAll(%q)[%d]; return el ? el.innerText : null; })()`,
		selector, nth,
	)
	var out *string
	err := chromedp.Run(tctx, chromedp.Evaluate(expr, &out))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: text %q[%d]: %v", ErrNavigation, selector, nth, err)
	}
	if out == nil {
		return "", fmt.Errorf("%w: %q[%d]", ErrElementNotFound, selector, nth)
	}
	return strings.TrimSpace(*out), nil
}

// Close terminates the Chrome process. Idempotent and never fails; leaking
// the child process is the one thing this type must not do.
func (m *Manager) Close() error {
	m.stop.Do(func() {
		// Cancel waits for the browser to shut down cleanly before the
		// allocator reaps the process.
		_ = chromedp.Cancel(m.browser)
		for _, cancel := range m.cancels {
			cancel()
		}
	})
	return nil
}

// bound derives a run context from the browser context with the configured
// timeout, and ties it to the caller's ctx for cancellation. chromedp
// actions must run on a descendant of the browser context, not the caller's.
func (m *Manager) bound(ctx context.Context) (context.Context, context.CancelFunc, func() bool) {
	tctx, cancel := context.WithTimeout(m.browser, m.cfg.NavTimeout)
	release := context.AfterFunc(ctx, cancel)
	return tctx, cancel, release
}
