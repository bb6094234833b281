package watch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/browser"
	"pricewatch/internal/scrape"
	"pricewatch/internal/state"
)

type fakeSession struct {
	env *fakeEnv
}

func (s *fakeSession) Navigate(context.Context, string, string) error { return nil }
func (s *fakeSession) Count(context.Context, string) (int, error)     { return 2, nil }
func (s *fakeSession) Text(context.Context, string, int) (string, error) {
	return "", errors.New("not used")
}
func (s *fakeSession) Close() error {
	s.env.closes++
	return nil
}

// fakeEnv counts session constructions and teardowns.
type fakeEnv struct {
	starts   int
	closes   int
	startErr error
}

func (e *fakeEnv) newSession(context.Context) (Session, error) {
	e.starts++
	if e.startErr != nil {
		return nil, e.startErr
	}
	return &fakeSession{env: e}, nil
}

// scriptSource plays a canned sequence of results, one per cycle.
type scriptSource struct {
	calls  int
	script func(call int) (scrape.Reading, error)
}

func (s *scriptSource) Fetch(context.Context, scrape.Pager) (scrape.Reading, error) {
	s.calls++
	return s.script(s.calls)
}

type notifyFunc func(scrape.Reading)

func (f notifyFunc) Observe(r scrape.Reading) { f(r) }

func testReading(ts time.Time) scrape.Reading {
	return scrape.Reading{
		Gold:   scrape.Quote{Amount: decimal.RequireFromString("15621.84"), Display: "₹15621.84", Unit: "₹", CapturedAt: ts},
		Silver: scrape.Quote{Amount: decimal.RequireFromString("323.35"), Display: "₹323.35", Unit: "₹", CapturedAt: ts},
	}
}

func fastConfig() Config {
	return Config{
		Interval:         time.Millisecond,
		BackoffBase:      time.Millisecond,
		BackoffCap:       2 * time.Millisecond,
		RebuildThreshold: 3,
		StartAttempts:    3,
		StalenessCeiling: time.Hour,
	}
}

func TestRun_RebuildsSessionAfterThresholdFailures(t *testing.T) {
	t.Parallel()

	env := &fakeEnv{}
	holder := state.NewHolder()
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	// Seed a prior success so failures publish as stale, not failed.
	seed := testReading(time.Now())
	gold, silver := seed.Gold, seed.Silver
	holder.Publish(state.Snapshot{Gold: &gold, Silver: &silver, Status: state.StatusSuccess, LastSuccessAt: gold.CapturedAt})

	var statuses []state.Status
	src := &scriptSource{script: func(call int) (scrape.Reading, error) {
		statuses = append(statuses, holder.Read().Status)
		if call <= 3 {
			return scrape.Reading{}, fmt.Errorf("%w: give up", browser.ErrNavigationTimeout)
		}
		return testReading(time.Now()), nil
	}}

	w := New(fastConfig(), env.newSession, src, holder,
		WithNotifier(notifyFunc(func(scrape.Reading) { cancel() })))

	require.NoError(t, w.Run(ctx))

	// Status observed at the start of each cycle: success (seed), then the
	// three timeouts publish stale.
	require.Equal(t, []state.Status{
		state.StatusSuccess, state.StatusStale, state.StatusStale, state.StatusStale,
	}, statuses)

	// Exactly one rebuild at the third consecutive failure: the initial
	// session plus one replacement, both torn down by the time Run returns.
	require.Equal(t, 2, env.starts)
	require.Equal(t, 2, env.closes)

	snap := holder.Read()
	require.Equal(t, state.StatusSuccess, snap.Status)
	require.Empty(t, snap.LastError)
	require.True(t, snap.Gold.Amount.Equal(decimal.RequireFromString("15621.84")))
	require.False(t, w.Alive())
}

func TestRun_FailureWithoutPriorSuccessPublishesFailed(t *testing.T) {
	t.Parallel()

	env := &fakeEnv{}
	holder := state.NewHolder()
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	src := &scriptSource{script: func(call int) (scrape.Reading, error) {
		if call == 1 {
			return scrape.Reading{}, &scrape.LayoutError{Selector: ".live__price__container", Found: 1}
		}
		cancel()
		return scrape.Reading{}, ctx.Err()
	}}

	cfg := fastConfig()
	cfg.RebuildThreshold = 10
	w := New(cfg, env.newSession, src, holder)

	require.NoError(t, w.Run(ctx))

	snap := holder.Read()
	require.Equal(t, state.StatusFailed, snap.Status)
	require.Contains(t, snap.LastError, "layout mismatch")
	require.False(t, snap.HasData())
	require.Equal(t, 1, env.starts)
}

func TestRun_FatalWhenSessionNeverStarts(t *testing.T) {
	t.Parallel()

	env := &fakeEnv{startErr: fmt.Errorf("%w: no usable chrome", browser.ErrStart)}
	cfg := fastConfig()
	cfg.StartAttempts = 2

	w := New(cfg, env.newSession, &scriptSource{script: func(int) (scrape.Reading, error) {
		t.Fatal("fetch must not run without a session")
		return scrape.Reading{}, nil
	}}, state.NewHolder())

	err := w.Run(t.Context())
	require.ErrorIs(t, err, browser.ErrStart)
	require.Contains(t, err.Error(), "after 2 attempts")
	require.Equal(t, 2, env.starts)
	require.False(t, w.Alive())
}

func TestRun_ShutdownDuringSleepIsPrompt(t *testing.T) {
	t.Parallel()

	env := &fakeEnv{}
	holder := state.NewHolder()
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	cfg := fastConfig()
	cfg.Interval = time.Hour // the cancel must interrupt this sleep

	src := &scriptSource{script: func(int) (scrape.Reading, error) {
		return testReading(time.Now()), nil
	}}
	w := New(cfg, env.newSession, src, holder)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return holder.Read().Status == state.StatusSuccess
	}, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop promptly on cancel")
	}
	require.Equal(t, 1, env.closes)
	require.False(t, w.Alive())
	require.Equal(t, PhaseShuttingDown, w.Phase())
}

func TestPublishFailure_BeyondCeilingKeepsDataButFails(t *testing.T) {
	t.Parallel()

	holder := state.NewHolder()
	old := testReading(time.Now().Add(-10 * time.Minute))
	gold, silver := old.Gold, old.Silver
	holder.Publish(state.Snapshot{Gold: &gold, Silver: &silver, Status: state.StatusSuccess, LastSuccessAt: gold.CapturedAt})

	cfg := fastConfig()
	cfg.StalenessCeiling = 3 * time.Minute
	w := New(cfg, (&fakeEnv{}).newSession, nil, holder)

	w.publishFailure(errors.New("boom"))

	snap := holder.Read()
	require.Equal(t, state.StatusFailed, snap.Status)
	require.True(t, snap.HasData(), "old quotes stay served even past the ceiling")
	require.Equal(t, "boom", snap.LastError)
}

func TestPrintPrices_ConsoleLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := New(fastConfig(), (&fakeEnv{}).newSession, nil, state.NewHolder(), WithConsole(&buf))

	ts := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	w.printPrices(testReading(ts))

	require.Equal(t, "2026-02-03 04:05:06 | Gold: ₹15621.84 | Silver: ₹323.35\n", buf.String())
}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	t.Parallel()

	w := New(Config{
		Interval:    time.Minute,
		BackoffBase: 5 * time.Second,
	}, (&fakeEnv{}).newSession, nil, state.NewHolder())

	require.Equal(t, 5*time.Second, w.backoff(1))
	require.Equal(t, 10*time.Second, w.backoff(2))
	require.Equal(t, 20*time.Second, w.backoff(3))
	require.Equal(t, 40*time.Second, w.backoff(4))
	require.Equal(t, time.Minute, w.backoff(5))
	require.Equal(t, time.Minute, w.backoff(12))
}

func TestErrKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		kind string
	}{
		{fmt.Errorf("%w: x", browser.ErrNavigationTimeout), "navigation_timeout"},
		{fmt.Errorf("%w: x", browser.ErrNavigation), "navigation"},
		{fmt.Errorf("%w: x", browser.ErrElementNotFound), "element_not_found"},
		{fmt.Errorf("%w: x", browser.ErrStart), "session_start"},
		{&scrape.LayoutError{Found: 1}, "layout_mismatch"},
		{fmt.Errorf("gold: %w", &scrape.ParseError{Raw: "N/A", Reason: "no digits"}), "price_parse"},
		{context.Canceled, "canceled"},
		{errors.New("boom"), "other"},
	}
	for _, tc := range cases {
		require.Equalf(t, tc.kind, errKind(tc.err), "err=%v", tc.err)
	}
}
