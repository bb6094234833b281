// Command watch runs the price monitor without the HTTP surface: one banner,
// then one console line per successful cycle.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pricewatch/internal/browser"
	"pricewatch/internal/config"
	"pricewatch/internal/scrape"
	"pricewatch/internal/state"
	"pricewatch/internal/watch"
)

func main() {
	var (
		cfgPath     string
		url         string
		intervalSec int
		headless    bool
	)
	flag.StringVar(&cfgPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.StringVar(&url, "url", "", "target URL (overrides config)")
	flag.IntVar(&intervalSec, "interval", 0, "polling interval seconds (overrides config)")
	flag.BoolVar(&headless, "headless", true, "run Chrome headless")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if url != "" {
		cfg.Scrape.TargetURL = url
	}
	if intervalSec > 0 {
		cfg.Scrape.PollIntervalSec = intervalSec
	}
	cfg.Scrape.Headless = headless

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

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
	}, extractor, state.NewHolder(),
		watch.WithLogger(logger),
		watch.WithConsole(os.Stdout),
	)

	line := strings.Repeat("=", 60)
	fmt.Println(line)
	fmt.Println("Live Gold & Silver Price Monitor")
	fmt.Println(line)
	fmt.Printf("Monitoring URL:   %s\n", cfg.Scrape.TargetURL)
	fmt.Printf("Refresh interval: %s\n", interval)
	fmt.Println(line)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := watcher.Run(ctx); err != nil {
		log.Fatalf("monitor: %v", err)
	}
	fmt.Println("monitor stopped")
}
