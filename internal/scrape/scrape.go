// Package scrape turns the rendered price page into typed quotes.
package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Pager is what the extractor needs from a live browser session.
//
//go:generate mockgen -package=scrape_test -destination=mock_pager_test.go -source=scrape.go Pager
type Pager interface {
	// Navigate loads url and waits for an element matching waitSelector.
	Navigate(ctx context.Context, url, waitSelector string) error
	// Count returns the number of elements matching selector.
	Count(ctx context.Context, selector string) (int, error)
	// Text returns the text of the nth (0-indexed) element matching selector.
	Text(ctx context.Context, selector string, nth int) (string, error)
}

// Quote is one parsed price observation. Immutable once constructed.
type Quote struct {
	// Amount is the unit price with the currency symbol and thousands
	// separators stripped.
	Amount decimal.Decimal `json:"amount"`
	// Display is the raw text as rendered on the page, e.g. "₹15,621.84".
	Display string `json:"display"`
	// Unit is the currency/unit label around the number, e.g. "₹" or "₹/g".
	Unit       string    `json:"unit"`
	CapturedAt time.Time `json:"captured_at"`
}

// Reading is one complete extraction: both metals from the same page load.
// There is no partial form; extraction either yields both quotes or fails.
type Reading struct {
	Gold   Quote `json:"gold"`
	Silver Quote `json:"silver"`
}

// LayoutError means the page rendered with an unexpected shape, usually an
// upstream redesign or a render that never completed. Recoverable, but worth
// distinct log visibility: it reads as "site changed", not "site down".
type LayoutError struct {
	Selector string
	Found    int
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("page layout mismatch: %d elements match %q, want at least 2", e.Found, e.Selector)
}

// Extractor locates the two live price tiles and parses them.
//
// The upstream page identifies its tiles only by position: the first
// container is gold, the second silver. Ordinal selection is the extraction
// key on purpose; there is no stable id or label to key on. A shape change
// surfaces as LayoutError and the watcher retries.
type Extractor struct {
	URL               string
	ContainerSelector string        // default ".live__price__container"
	PriceSelector     string        // default ".price"
	DefaultUnit       string        // unit label when the raw text carries no symbol
	Settle            time.Duration // extra wait after ready for client-side rendering
}

const (
	defaultContainerSelector = ".live__price__container"
	defaultPriceSelector     = ".price"
	defaultUnit              = "₹"
)

// Fetch navigates to the page and extracts both quotes. Both quotes carry
// the same CapturedAt. Any failure (navigation, layout, parse) returns a
// zero Reading; callers never see half a result.
func (e *Extractor) Fetch(ctx context.Context, p Pager) (Reading, error) {
	container := e.ContainerSelector
	if container == "" {
		container = defaultContainerSelector
	}
	price := e.PriceSelector
	if price == "" {
		price = defaultPriceSelector
	}

	if err := p.Navigate(ctx, e.URL, container); err != nil {
		return Reading{}, err
	}
	if e.Settle > 0 {
		t := time.NewTimer(e.Settle)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return Reading{}, ctx.Err()
		case <-t.C:
		}
	}

	n, err := p.Count(ctx, container)
	if err != nil {
		return Reading{}, err
	}
	if n < 2 {
		return Reading{}, &LayoutError{Selector: container, Found: n}
	}

	sel := container + " " + price
	goldRaw, err := p.Text(ctx, sel, 0)
	if err != nil {
		return Reading{}, err
	}
	silverRaw, err := p.Text(ctx, sel, 1)
	if err != nil {
		return Reading{}, err
	}

	captured := time.Now()
	gold, err := e.quote(goldRaw, captured)
	if err != nil {
		return Reading{}, fmt.Errorf("gold: %w", err)
	}
	silver, err := e.quote(silverRaw, captured)
	if err != nil {
		return Reading{}, fmt.Errorf("silver: %w", err)
	}
	return Reading{Gold: gold, Silver: silver}, nil
}

func (e *Extractor) quote(raw string, at time.Time) (Quote, error) {
	amount, label, err := ParsePrice(raw)
	if err != nil {
		return Quote{}, err
	}
	if label == "" {
		label = e.DefaultUnit
	}
	if label == "" {
		label = defaultUnit
	}
	return Quote{Amount: amount, Display: raw, Unit: label, CapturedAt: at}, nil
}
