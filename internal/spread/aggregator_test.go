package spread

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/xvenue-mm/internal/book"
	"github.com/sawpanic/xvenue-mm/internal/domain"
	"github.com/sawpanic/xvenue-mm/internal/kvstore"
)

func newTestAggregator(t *testing.T) (*Aggregator, *book.Book, *book.Book) {
	t.Helper()
	a := book.New("venueA", "BTC")
	b := book.New("venueB", "BTC")
	store := kvstore.NewMemory()
	ring := kvstore.NewSpreadRing(store, "quoting_hedge_BTC")
	out := make(chan domain.SpreadSnapshot, 1)
	agg := New("BTC", a, b, ring, out, zerolog.Nop())
	return agg, a, b
}

func TestBasicSpreadEmission(t *testing.T) {
	agg, a, b := newTestAggregator(t)

	a.Apply(domain.BookEvent{Kind: domain.BookSnapshot, TsMs: 1000,
		Bids: []domain.PriceLevel{{Price: 100, Size: 1}}, Asks: []domain.PriceLevel{{Price: 101, Size: 1}}})
	b.Apply(domain.BookEvent{Kind: domain.BookSnapshot, TsMs: 1001,
		Bids: []domain.PriceLevel{{Price: 99, Size: 1}}, Asks: []domain.PriceLevel{{Price: 100, Size: 1}}})

	snap, ok := agg.compute(1001)
	if !ok {
		t.Fatalf("expected a computable snapshot")
	}
	if snap.EntrySpread != 0.0 {
		t.Fatalf("expected entry_spread 0.0, got %v", snap.EntrySpread)
	}
	want := 100 * (101.0 - 99.0) / 99.0
	if math.Abs(snap.ExitSpread-want) > 1e-9 {
		t.Fatalf("expected exit_spread ~%.4f, got %v", want, snap.ExitSpread)
	}
}

func TestDeltaRemovalShiftsSpread(t *testing.T) {
	agg, a, b := newTestAggregator(t)
	a.Apply(domain.BookEvent{Kind: domain.BookSnapshot, TsMs: 1000,
		Bids: []domain.PriceLevel{{Price: 100, Size: 1}}, Asks: []domain.PriceLevel{{Price: 101, Size: 1}}})
	b.Apply(domain.BookEvent{Kind: domain.BookSnapshot, TsMs: 1001,
		Bids: []domain.PriceLevel{{Price: 99, Size: 1}}, Asks: []domain.PriceLevel{{Price: 100, Size: 1}}})

	a.Apply(domain.BookEvent{Kind: domain.BookDelta, TsMs: 1002,
		Bids: []domain.PriceLevel{{Price: 100, Size: 0}, {Price: 99, Size: 2}}})

	snap, ok := agg.compute(1002)
	if !ok {
		t.Fatalf("expected a computable snapshot")
	}
	want := 100 * (99.0 - 100.0) / 100.0
	if math.Abs(snap.EntrySpread-want) > 1e-9 {
		t.Fatalf("expected entry_spread ~%.4f, got %v", want, snap.EntrySpread)
	}
}

func TestRateLimitGate(t *testing.T) {
	agg, a, b := newTestAggregator(t)
	a.Apply(domain.BookEvent{Kind: domain.BookSnapshot, TsMs: 1000,
		Bids: []domain.PriceLevel{{Price: 100, Size: 1}}, Asks: []domain.PriceLevel{{Price: 101, Size: 1}}})
	b.Apply(domain.BookEvent{Kind: domain.BookSnapshot, TsMs: 1000,
		Bids: []domain.PriceLevel{{Price: 99, Size: 1}}, Asks: []domain.PriceLevel{{Price: 100, Size: 1}}})

	ctx := context.Background()
	emitted := 0
	out := agg.out
	deadline := time.After(120 * time.Millisecond)
	ticker := time.NewTicker(2500 * time.Microsecond)
	defer ticker.Stop()

loop:
	for i := 0; i < 40; i++ {
		select {
		case <-deadline:
			break loop
		case <-ticker.C:
		}
		agg.OnBookUpdate(ctx, int64(1000+i))
		select {
		case <-out:
			emitted++
		default:
		}
	}

	if emitted > 6 {
		t.Fatalf("expected at most ~5 emissions under the 25ms gate, got %d", emitted)
	}
}
