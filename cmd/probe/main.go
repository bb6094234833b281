// Command probe performs a single navigate-and-extract cycle and dumps the
// result as JSON. Handy for checking selectors when the upstream page
// changes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"pricewatch/internal/browser"
	"pricewatch/internal/config"
	"pricewatch/internal/scrape"
)

func main() {
	var (
		cfgPath      string
		url          string
		containerSel string
		priceSel     string
		timeoutSec   int
		headless     bool
	)
	flag.StringVar(&cfgPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.StringVar(&url, "url", "", "target URL (overrides config)")
	flag.StringVar(&containerSel, "container", "", "container selector (overrides config)")
	flag.StringVar(&priceSel, "price", "", "price selector (overrides config)")
	flag.IntVar(&timeoutSec, "timeout", 0, "navigation timeout seconds (overrides config)")
	flag.BoolVar(&headless, "headless", true, "run Chrome headless")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if url != "" {
		cfg.Scrape.TargetURL = url
	}
	if containerSel != "" {
		cfg.Scrape.ContainerSelector = containerSel
	}
	if priceSel != "" {
		cfg.Scrape.PriceSelector = priceSel
	}
	if timeoutSec > 0 {
		cfg.Scrape.NavTimeoutSec = timeoutSec
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sess, err := browser.Start(ctx, browser.Config{
		Headless:   headless,
		ExecPath:   cfg.Scrape.ChromePath,
		UserAgent:  cfg.Scrape.UserAgent,
		NavTimeout: time.Duration(cfg.Scrape.NavTimeoutSec) * time.Second,
	})
	if err != nil {
		log.Fatalf("start session: %v", err)
	}
	defer sess.Close()

	extractor := &scrape.Extractor{
		URL:               cfg.Scrape.TargetURL,
		ContainerSelector: cfg.Scrape.ContainerSelector,
		PriceSelector:     cfg.Scrape.PriceSelector,
		Settle:            time.Duration(cfg.Scrape.SettleMs) * time.Millisecond,
	}
	reading, err := extractor.Fetch(ctx, sess)
	if err != nil {
		log.Fatalf("extract: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(reading); err != nil {
		log.Fatalf("encode: %v", err)
	}
}
