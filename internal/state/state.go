// Package state holds the last known good prices for concurrent readers.
package state

import (
	"sync/atomic"
	"time"

	"pricewatch/internal/scrape"
)

type Status string

const (
	// StatusSuccess: the snapshot's quotes come from the most recent cycle.
	StatusSuccess Status = "success"
	// StatusStale: the last cycle failed but the retained quotes are newer
	// than the staleness ceiling. Served in preference to no data.
	StatusStale Status = "stale"
	// StatusFailed: the last cycle failed and no acceptably fresh quotes
	// exist.
	StatusFailed Status = "failed"
)

// Snapshot is the unit of publication: the latest gold/silver quotes plus
// health metadata. Snapshots are immutable; the watcher publishes a whole
// new value each cycle and never mutates an old one.
type Snapshot struct {
	Gold          *scrape.Quote
	Silver        *scrape.Quote
	Status        Status
	LastSuccessAt time.Time
	LastError     string
}

// HasData reports whether any cycle has ever succeeded.
func (s Snapshot) HasData() bool {
	return s.Gold != nil && s.Silver != nil
}

// Holder hands complete snapshots across the watcher/reader boundary with a
// single pointer swap. Readers never wait on scrape I/O and can never
// observe a torn snapshot; repeated reads with no intervening publish return
// the same value.
type Holder struct {
	cur atomic.Pointer[Snapshot]
}

// NewHolder starts empty: stale, no data, no error.
func NewHolder() *Holder {
	h := &Holder{}
	h.cur.Store(&Snapshot{Status: StatusStale})
	return h
}

// Publish atomically replaces the current snapshot. Single writer.
func (h *Holder) Publish(s Snapshot) {
	h.cur.Store(&s)
}

// Read returns the most recently published snapshot. Any number of
// concurrent callers.
func (h *Holder) Read() Snapshot {
	return *h.cur.Load()
}
