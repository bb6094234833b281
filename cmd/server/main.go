package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"pricewatch/internal/alert"
	"pricewatch/internal/browser"
	"pricewatch/internal/config"
	"pricewatch/internal/httpx"
	"pricewatch/internal/scrape"
	"pricewatch/internal/state"
	"pricewatch/internal/watch"
)

func main() {
	cfgPath := os.Getenv("CONFIG_FILE")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	holder := state.NewHolder()

	bcfg := browser.Config{
		Headless:   cfg.Scrape.Headless,
		ExecPath:   cfg.Scrape.ChromePath,
		UserAgent:  cfg.Scrape.UserAgent,
		NavTimeout: time.Duration(cfg.Scrape.NavTimeoutSec) * time.Second,
	}
	extractor := &scrape.Extractor{
		URL:               cfg.Scrape.TargetURL,
		ContainerSelector: cfg.Scrape.ContainerSelector,
		PriceSelector:     cfg.Scrape.PriceSelector,
		Settle:            time.Duration(cfg.Scrape.SettleMs) * time.Millisecond,
	}

	probe := httpx.New(5 * time.Second)
	opts := []watch.Option{
		watch.WithLogger(logger),
		watch.WithConsole(os.Stdout),
		watch.WithProbe(func(ctx context.Context) error {
			return probe.Reachable(ctx, cfg.Scrape.TargetURL)
		}),
	}
	if cfg.Alerts.Enabled {
		if n := buildNotifier(cfg.Alerts, logger); n != nil {
			opts = append(opts, watch.WithNotifier(n))
		}
	}

	interval := time.Duration(cfg.Scrape.PollIntervalSec) * time.Second
	watcher := watch.New(watch.Config{
		Interval:         interval,
		BackoffBase:      time.Duration(cfg.Scrape.BackoffBaseSec) * time.Second,
		BackoffCap:       time.Duration(cfg.Scrape.BackoffCapSec) * time.Second,
		RebuildThreshold: cfg.Scrape.RebuildThreshold,
		StartAttempts:    cfg.Scrape.StartAttempts,
		StalenessCeiling: time.Duration(cfg.Scrape.StalenessFactor) * interval,
	}, func(ctx context.Context) (watch.Session, error) {
		return browser.Start(ctx, bcfg)
	}, extractor, holder, opts...)

	mux := http.NewServeMux()
	mux.HandleFunc("/", handleHome(holder))
	mux.HandleFunc("/api/prices", handlePrices(holder))
	mux.HandleFunc("/healthz", handleHealth(watcher.Alive, func() string { return watcher.Phase().String() }, holder))
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           withGzip(recoverPanic(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.RequestTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.RequestTimeoutSec+5) * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	g.Go(func() error {
		log.Printf("server listening on :%s (monitoring %s every %s)", cfg.Server.Port, cfg.Scrape.TargetURL, interval)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatalf("pricewatch: %v", err)
	}
}

func buildNotifier(a config.Alerts, logger *slog.Logger) *alert.Notifier {
	if a.Username == "" || a.Password == "" || len(a.To) == 0 {
		log.Println("warning: alerts.enabled=true but SMTP credentials or recipients not set; alerts disabled")
		return nil
	}
	from := a.From
	if from == "" {
		from = a.Username
	}
	gold := parseThreshold(a.GoldBelow, "gold")
	silver := parseThreshold(a.SilverBelow, "silver")
	if gold.IsZero() && silver.IsZero() {
		log.Println("warning: alerts.enabled=true but no thresholds set; alerts disabled")
		return nil
	}
	sender := &alert.SMTP{
		Host:     a.SMTPHost,
		Port:     a.SMTPPort,
		Username: a.Username,
		Password: a.Password,
		From:     from,
		To:       a.To,
	}
	return alert.NewNotifier(sender, gold, silver, logger)
}

func parseThreshold(s, name string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		log.Printf("warning: invalid %s threshold %q; ignoring", name, s)
		return decimal.Zero
	}
	return d
}
