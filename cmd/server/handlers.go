package main

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"pricewatch/internal/state"
)

const timeLayout = "2006-01-02 15:04:05"

type pricesResponse struct {
	GoldPrice   string `json:"gold_price"`
	SilverPrice string `json:"silver_price"`
	LastUpdated string `json:"last_updated"`
	Status      string `json:"status"`
}

// snapshotResponse maps a snapshot to the wire shape. A process that has
// never scraped successfully reports no_data so operators can tell a fresh
// start from a degraded one.
func snapshotResponse(snap state.Snapshot) pricesResponse {
	resp := pricesResponse{Status: string(snap.Status)}
	if snap.Gold != nil {
		resp.GoldPrice = snap.Gold.Display
	}
	if snap.Silver != nil {
		resp.SilverPrice = snap.Silver.Display
	}
	if snap.LastSuccessAt.IsZero() {
		resp.Status = "no_data"
	} else {
		resp.LastUpdated = snap.LastSuccessAt.Format(timeLayout)
	}
	return resp
}

// handlePrices serves the latest snapshot. It keeps returning the last known
// values when cycles fail (marked stale); a single bad cycle never produces
// a visible outage.
func handlePrices(holder *state.Holder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, snapshotResponse(holder.Read()))
	}
}

type healthResponse struct {
	Status       string `json:"status"`
	ScraperAlive bool   `json:"scraper_alive"`
	ScraperPhase string `json:"scraper_phase"`
	ScrapeStatus string `json:"scrape_status"`
	Timestamp    string `json:"timestamp"`
}

// handleHealth reports healthy as long as the watcher loop is running,
// independent of price freshness; hosting platforms restart on 503.
func handleHealth(alive func() bool, phase func() string, holder *state.Holder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		up := alive()
		resp := healthResponse{
			Status:       "healthy",
			ScraperAlive: up,
			ScraperPhase: phase(),
			ScrapeStatus: string(holder.Read().Status),
			Timestamp:    time.Now().Format(time.RFC3339),
		}
		code := http.StatusOK
		if !up {
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// withGzip compresses responses when the client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		next.ServeHTTP(gzipResponseWriter{ResponseWriter: w, Writer: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
