package state_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/scrape"
	"pricewatch/internal/state"
)

func snapshotAt(ts time.Time, price string) state.Snapshot {
	amount := decimal.RequireFromString(price)
	gold := scrape.Quote{Amount: amount, Display: "₹" + price, Unit: "₹", CapturedAt: ts}
	silver := scrape.Quote{Amount: amount.Div(decimal.NewFromInt(48)), Display: "₹323.35", Unit: "₹", CapturedAt: ts}
	return state.Snapshot{
		Gold:          &gold,
		Silver:        &silver,
		Status:        state.StatusSuccess,
		LastSuccessAt: ts,
	}
}

func TestHolder_StartsEmptyAndStale(t *testing.T) {
	t.Parallel()

	snap := state.NewHolder().Read()
	require.Equal(t, state.StatusStale, snap.Status)
	require.False(t, snap.HasData())
	require.True(t, snap.LastSuccessAt.IsZero())
}

func TestHolder_ReadIsIdempotent(t *testing.T) {
	t.Parallel()

	h := state.NewHolder()
	h.Publish(snapshotAt(time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC), "15621.84"))

	a := h.Read()
	b := h.Read()
	require.Equal(t, a, b)
	require.True(t, a.HasData())
}

func TestHolder_PublishReplacesWholesale(t *testing.T) {
	t.Parallel()

	h := state.NewHolder()
	t1 := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	h.Publish(snapshotAt(t1, "15621.84"))

	failed := h.Read()
	failed.Status = state.StatusStale
	failed.LastError = "navigation timeout"
	h.Publish(failed)

	got := h.Read()
	require.Equal(t, state.StatusStale, got.Status)
	require.Equal(t, "navigation timeout", got.LastError)
	// Retained quotes are untouched.
	require.True(t, got.Gold.Amount.Equal(decimal.RequireFromString("15621.84")))
	require.Equal(t, t1, got.LastSuccessAt)
}

// Concurrent readers must always see a complete, self-consistent snapshot:
// gold and silver captured together, status matching the data.
func TestHolder_ConcurrentReadersNeverSeeTornSnapshot(t *testing.T) {
	t.Parallel()

	h := state.NewHolder()
	base := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	h.Publish(snapshotAt(base, "100"))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			h.Publish(snapshotAt(base.Add(time.Duration(i)*time.Minute), fmt.Sprintf("%d", 100+i)))
		}
	}()

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5000; i++ {
				snap := h.Read()
				if !snap.HasData() {
					t.Error("reader observed snapshot without data")
					return
				}
				if !snap.Gold.CapturedAt.Equal(snap.Silver.CapturedAt) {
					t.Errorf("torn snapshot: gold=%s silver=%s", snap.Gold.CapturedAt, snap.Silver.CapturedAt)
					return
				}
				if !snap.LastSuccessAt.Equal(snap.Gold.CapturedAt) {
					t.Error("metadata out of sync with quotes")
					return
				}
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()
}
