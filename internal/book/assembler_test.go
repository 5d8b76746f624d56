package book

import (
	"math"
	"testing"

	"github.com/sawpanic/xvenue-mm/internal/domain"
)

func TestBookSnapshotThenDelta(t *testing.T) {
	b := New("okx", "BTC")
	b.Apply(domain.BookEvent{
		Kind: domain.BookSnapshot,
		TsMs: 1000,
		Bids: []domain.PriceLevel{{Price: 100, Size: 1}, {Price: 99, Size: 2}},
		Asks: []domain.PriceLevel{{Price: 101, Size: 1}, {Price: 102, Size: 2}},
	})

	bid, ask, fresh := b.TopOfBook(1000)
	if !fresh {
		t.Fatalf("expected fresh book")
	}
	if bid.Price != 100 || ask.Price != 101 {
		t.Fatalf("unexpected top of book: bid=%v ask=%v", bid, ask)
	}

	b.Apply(domain.BookEvent{
		Kind: domain.BookDelta,
		TsMs: 1010,
		Bids: []domain.PriceLevel{{Price: 100, Size: 0}}, // removes best bid
	})
	bid, _, _ = b.TopOfBook(1010)
	if bid.Price != 99 {
		t.Fatalf("expected delta removal to drop to next bid, got %v", bid)
	}
}

func TestBookPadsSentinelsWhenThin(t *testing.T) {
	b := New("okx", "BTC")
	b.Apply(domain.BookEvent{
		Kind: domain.BookSnapshot,
		TsMs: 1000,
		Bids: []domain.PriceLevel{{Price: 100, Size: 1}},
		Asks: nil,
	})
	snap := b.Levels(1000)
	if len(snap.Bids) != TopN || len(snap.Asks) != TopN {
		t.Fatalf("expected padded slices of length %d, got bids=%d asks=%d", TopN, len(snap.Bids), len(snap.Asks))
	}
	if snap.Bids[1].Price != 0 {
		t.Fatalf("expected bid sentinel price 0, got %v", snap.Bids[1].Price)
	}
	if !math.IsInf(snap.Asks[0].Price, 1) {
		t.Fatalf("expected ask sentinel +Inf, got %v", snap.Asks[0].Price)
	}
}

func TestBookStaleSuppression(t *testing.T) {
	b := New("okx", "BTC")
	b.Apply(domain.BookEvent{
		Kind: domain.BookSnapshot,
		TsMs: 1000,
		Bids: []domain.PriceLevel{{Price: 100, Size: 1}},
		Asks: []domain.PriceLevel{{Price: 101, Size: 1}},
	})
	_, _, fresh := b.TopOfBook(1000 + staleAfterMs + 1)
	if fresh {
		t.Fatalf("expected stale book to report not fresh")
	}
}

func TestBookOutOfOrderEventDropped(t *testing.T) {
	b := New("okx", "BTC")
	b.Apply(domain.BookEvent{Kind: domain.BookSnapshot, TsMs: 2000,
		Bids: []domain.PriceLevel{{Price: 100, Size: 1}}, Asks: []domain.PriceLevel{{Price: 101, Size: 1}}})
	b.Apply(domain.BookEvent{Kind: domain.BookDelta, TsMs: 1000,
		Bids: []domain.PriceLevel{{Price: 50, Size: 1}}})
	bid, _, _ := b.TopOfBook(2000)
	if bid.Price != 100 {
		t.Fatalf("expected out-of-order event to be dropped, got bid=%v", bid)
	}
}
