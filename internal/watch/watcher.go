// Package watch runs the scrape-and-publish loop: drive the browser session,
// extract quotes, tolerate failures, publish snapshots for readers.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"pricewatch/internal/browser"
	"pricewatch/internal/scrape"
	"pricewatch/internal/state"
)

// Session is the slice of a browser session the watcher manages: everything
// the extractor needs, plus teardown.
type Session interface {
	scrape.Pager
	Close() error
}

// SessionFunc starts a fresh browser session.
type SessionFunc func(ctx context.Context) (Session, error)

// Source performs one navigate-and-extract cycle against a live session.
type Source interface {
	Fetch(ctx context.Context, p scrape.Pager) (scrape.Reading, error)
}

// Notifier observes successful readings (threshold alerts).
type Notifier interface {
	Observe(r scrape.Reading)
}

type Config struct {
	// Interval between successful cycles. Default one minute.
	Interval time.Duration
	// BackoffBase is the first retry delay after a failure; it doubles per
	// consecutive failure up to BackoffCap. Defaults 5s, capped at Interval.
	BackoffBase time.Duration
	BackoffCap  time.Duration
	// RebuildThreshold is how many consecutive failures it takes to tear
	// down the browser session and start a fresh one. Default 3.
	RebuildThreshold int
	// StartAttempts bounds session construction retries; running out is
	// fatal to the loop. Default 3.
	StartAttempts int
	// StalenessCeiling is how old the last success may be while failures
	// still publish as stale rather than failed. Default 3x Interval.
	StalenessCeiling time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 5 * time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = c.Interval
	}
	if c.RebuildThreshold <= 0 {
		c.RebuildThreshold = 3
	}
	if c.StartAttempts <= 0 {
		c.StartAttempts = 3
	}
	if c.StalenessCeiling <= 0 {
		c.StalenessCeiling = 3 * c.Interval
	}
	return c
}

// Phase is where the loop currently is. Tracked explicitly so health
// reporting can say what the scheduler is doing, not just that it exists.
type Phase int32

const (
	PhaseInitializing Phase = iota
	PhasePolling
	PhaseBackoff
	PhaseShuttingDown
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhasePolling:
		return "polling"
	case PhaseBackoff:
		return "backoff"
	case PhaseShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// Watcher owns the polling loop. It is the single writer to the holder and
// the exclusive owner of the browser session; readers only ever touch the
// holder.
type Watcher struct {
	cfg        Config
	newSession SessionFunc
	source     Source
	holder     *state.Holder

	log      *slog.Logger
	console  io.Writer
	notifier Notifier
	probe    func(ctx context.Context) error

	alive atomic.Bool
	phase atomic.Int32
}

type Option func(*Watcher)

func WithLogger(log *slog.Logger) Option {
	return func(w *Watcher) { w.log = log }
}

// WithConsole writes the classic one-line price log per successful cycle.
func WithConsole(out io.Writer) Option {
	return func(w *Watcher) { w.console = out }
}

func WithNotifier(n Notifier) Option {
	return func(w *Watcher) { w.notifier = n }
}

// WithProbe adds a plain-HTTP reachability check run when a cycle fails, so
// the failure log can tell "site unreachable" apart from "page changed".
func WithProbe(probe func(ctx context.Context) error) Option {
	return func(w *Watcher) { w.probe = probe }
}

func New(cfg Config, newSession SessionFunc, source Source, holder *state.Holder, opts ...Option) *Watcher {
	w := &Watcher{
		cfg:        cfg.withDefaults(),
		newSession: newSession,
		source:     source,
		holder:     holder,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Alive reports whether the loop is running. Liveness probes key off this,
// independent of price freshness.
func (w *Watcher) Alive() bool {
	return w.alive.Load()
}

// Phase reports where the loop currently is.
func (w *Watcher) Phase() Phase {
	return Phase(w.phase.Load())
}

func (w *Watcher) setPhase(p Phase) {
	w.phase.Store(int32(p))
}

// Run drives the loop until ctx is canceled. Every recoverable error is
// caught, published, and logged here; the only error Run returns is session
// construction failing past its retry budget.
func (w *Watcher) Run(ctx context.Context) error {
	w.alive.Store(true)
	w.setPhase(PhaseInitializing)
	defer w.alive.Store(false)
	defer w.setPhase(PhaseShuttingDown)

	sess, err := w.startSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if sess != nil {
			_ = sess.Close()
		}
	}()

	consecutive := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		w.setPhase(PhasePolling)

		reading, err := w.source.Fetch(ctx, sess)
		metricCycles.Inc()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			consecutive++
			metricConsecutiveFailures.Set(float64(consecutive))
			kind := errKind(err)
			metricFailures.WithLabelValues(kind).Inc()
			w.publishFailure(err)
			w.logFailure(ctx, err, kind, consecutive)

			if consecutive%w.cfg.RebuildThreshold == 0 {
				w.log.Warn("rebuilding browser session", "consecutive", consecutive)
				_ = sess.Close()
				sess = nil
				metricRebuilds.Inc()
				if sess, err = w.startSession(ctx); err != nil {
					return err
				}
			}
			w.setPhase(PhaseBackoff)
			if !w.sleep(ctx, w.backoff(consecutive)) {
				return nil
			}
			continue
		}

		consecutive = 0
		metricConsecutiveFailures.Set(0)
		metricLastSuccess.Set(float64(reading.Gold.CapturedAt.Unix()))
		w.publishSuccess(reading)
		w.printPrices(reading)
		if w.notifier != nil {
			w.notifier.Observe(reading)
		}
		if !w.sleep(ctx, w.cfg.Interval) {
			return nil
		}
	}
}

// startSession constructs a browser session, retrying with backoff. Running
// out of attempts is the loop's one fatal condition.
func (w *Watcher) startSession(ctx context.Context) (Session, error) {
	var last error
	for attempt := 1; attempt <= w.cfg.StartAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, nil
		}
		sess, err := w.newSession(ctx)
		if err == nil {
			return sess, nil
		}
		last = err
		w.log.Warn("session start failed", "attempt", attempt, "err", err)
		if attempt < w.cfg.StartAttempts && !w.sleep(ctx, w.backoff(attempt)) {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("session start failed after %d attempts: %w", w.cfg.StartAttempts, last)
}

func (w *Watcher) publishSuccess(r scrape.Reading) {
	gold, silver := r.Gold, r.Silver
	w.holder.Publish(state.Snapshot{
		Gold:          &gold,
		Silver:        &silver,
		Status:        state.StatusSuccess,
		LastSuccessAt: gold.CapturedAt,
	})
}

// publishFailure retains the last good quotes: stale while they are younger
// than the ceiling, failed after. A single bad cycle never blanks the
// consumer surface.
func (w *Watcher) publishFailure(err error) {
	prev := w.holder.Read()
	next := state.Snapshot{
		Gold:          prev.Gold,
		Silver:        prev.Silver,
		Status:        state.StatusFailed,
		LastSuccessAt: prev.LastSuccessAt,
		LastError:     err.Error(),
	}
	if !prev.LastSuccessAt.IsZero() && time.Since(prev.LastSuccessAt) <= w.cfg.StalenessCeiling {
		next.Status = state.StatusStale
	}
	w.holder.Publish(next)
}

func (w *Watcher) logFailure(ctx context.Context, err error, kind string, consecutive int) {
	attrs := []any{"kind", kind, "consecutive", consecutive, "err", err}
	var perr *scrape.ParseError
	if errors.As(err, &perr) {
		attrs = append(attrs, "raw", perr.Raw)
	}
	if w.probe != nil {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		attrs = append(attrs, "site_reachable", w.probe(pctx) == nil)
		cancel()
	}
	w.log.Error("scrape cycle failed", attrs...)
}

// printPrices writes the classic console line once per successful cycle:
// 2006-01-02 15:04:05 | Gold: ₹15621.84 | Silver: ₹323.35
func (w *Watcher) printPrices(r scrape.Reading) {
	if w.console == nil {
		return
	}
	fmt.Fprintf(w.console, "%s | Gold: %s | Silver: %s\n",
		r.Gold.CapturedAt.Format("2006-01-02 15:04:05"), r.Gold.Display, r.Silver.Display)
}

// sleep waits d or until ctx is canceled; false means shut down.
func (w *Watcher) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// backoff returns the delay before retry n (1-based): base doubled per
// failure, capped.
func (w *Watcher) backoff(n int) time.Duration {
	d := w.cfg.BackoffBase
	for i := 1; i < n; i++ {
		d *= 2
		if d >= w.cfg.BackoffCap {
			return w.cfg.BackoffCap
		}
	}
	if d > w.cfg.BackoffCap {
		return w.cfg.BackoffCap
	}
	return d
}

// errKind maps an error to a stable label for logs and metrics.
func errKind(err error) string {
	var layoutErr *scrape.LayoutError
	var parseErr *scrape.ParseError
	switch {
	case errors.Is(err, browser.ErrNavigationTimeout):
		return "navigation_timeout"
	case errors.Is(err, browser.ErrElementNotFound):
		return "element_not_found"
	case errors.Is(err, browser.ErrNavigation):
		return "navigation"
	case errors.Is(err, browser.ErrStart):
		return "session_start"
	case errors.As(err, &layoutErr):
		return "layout_mismatch"
	case errors.As(err, &parseErr):
		return "price_parse"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
