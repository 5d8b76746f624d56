// Package book implements the Order-Book Assembler: it turns the Venue
// Adapter's snapshot/delta BookEvent stream into a maintained top-N view
// per instrument, with stale-timestamp suppression and sentinel padding.
//
// The level/depth bookkeeping (sorted slices, a depth-within-band helper)
// is grounded on the teacher's exchanges/binance book maintainer; here it
// is driven by normalized domain.BookEvent values instead of a raw
// gorilla/websocket read loop, since that loop now lives in internal/venue.
package book

import (
	"math"
	"sort"
	"sync"

	"github.com/sawpanic/xvenue-mm/internal/domain"
)

// TopN is the number of levels per side the assembler maintains and
// exposes, per spec §3/§4.2.
const TopN = 5

// staleAfterMs marks a book as not fresh once no update has been seen for
// this long; the last levels are still returned, flagged fresh=false,
// rather than serving a silently frozen book as fresh.
const staleAfterMs = 5000

// sentinelAsk and sentinelBid are the padded levels filled in when fewer than TopN
// levels exist, per spec §4.2 edge cases: 0 for the bid side, +Inf for the
// ask side, so comparisons degrade safely instead of crossing.
var sentinelAsk = domain.PriceLevel{Price: math.Inf(1), Size: 0}
var sentinelBid = domain.PriceLevel{Price: 0, Size: 0}

// Book maintains one instrument's top-N bid/ask ladder.
type Book struct {
	mu         sync.RWMutex
	bids       map[float64]float64
	asks       map[float64]float64
	lastTsMs   int64
	venue      string
	base       string
}

// New builds an empty book for one (venue, base) instrument.
func New(venue, base string) *Book {
	return &Book{
		bids:  make(map[float64]float64),
		asks:  make(map[float64]float64),
		venue: venue,
		base:  base,
	}
}

// Apply folds one BookEvent into the maintained state. A snapshot replaces
// both sides outright; a delta merges level-by-level, deleting a price
// when its size arrives as zero. Events older than the book's current
// timestamp are dropped (out-of-order delivery protection).
func (b *Book) Apply(ev domain.BookEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ev.TsMs < b.lastTsMs {
		return
	}
	b.lastTsMs = ev.TsMs

	if ev.Kind == domain.BookSnapshot {
		b.bids = make(map[float64]float64, len(ev.Bids))
		b.asks = make(map[float64]float64, len(ev.Asks))
	}
	for _, lv := range ev.Bids {
		mergeLevel(b.bids, lv)
	}
	for _, lv := range ev.Asks {
		mergeLevel(b.asks, lv)
	}
}

func mergeLevel(side map[float64]float64, lv domain.PriceLevel) {
	if lv.Size <= 0 {
		delete(side, lv.Price)
		return
	}
	side[lv.Price] = lv.Size
}

// TopOfBook returns the best bid and ask, padded with sentinels when a
// side is empty; fresh is false once the book is stale, per spec §4.2.
func (b *Book) TopOfBook(nowMs int64) (bid, ask domain.PriceLevel, fresh bool) {
	levels := b.Levels(nowMs)
	bid, ask = sentinelBid, sentinelAsk
	if len(levels.Bids) > 0 {
		bid = levels.Bids[0]
	}
	if len(levels.Asks) > 0 {
		ask = levels.Asks[0]
	}
	return bid, ask, levels.Fresh
}

// Snapshot is the read-only top-N view returned by Levels.
type Snapshot struct {
	Bids     []domain.PriceLevel
	Asks     []domain.PriceLevel
	LastTsMs int64
	Fresh    bool
}

// Levels returns up to TopN bid and TopN ask levels sorted best-first,
// padded with sentinels when fewer than TopN levels exist.
func (b *Book) Levels(nowMs int64) Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bids := sortedLevels(b.bids, true)
	asks := sortedLevels(b.asks, false)
	bids = padTo(bids, TopN, sentinelBid)
	asks = padTo(asks, TopN, sentinelAsk)

	fresh := b.lastTsMs > 0 && nowMs-b.lastTsMs <= staleAfterMs
	return Snapshot{Bids: bids, Asks: asks, LastTsMs: b.lastTsMs, Fresh: fresh}
}

func sortedLevels(side map[float64]float64, desc bool) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(side))
	for price, size := range side {
		out = append(out, domain.PriceLevel{Price: price, Size: size})
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	if len(out) > TopN {
		out = out[:TopN]
	}
	return out
}

func padTo(levels []domain.PriceLevel, n int, sentinel domain.PriceLevel) []domain.PriceLevel {
	for len(levels) < n {
		levels = append(levels, sentinel)
	}
	return levels
}

// DepthWithinBps sums notional on both sides within bps of mid, the same
// "depth within a band" computation the teacher's binance book maintainer
// used for its spread/depth metrics.
func (b *Book) DepthWithinBps(nowMs int64, bps float64) float64 {
	snap := b.Levels(nowMs)
	if len(snap.Bids) == 0 || len(snap.Asks) == 0 {
		return 0
	}
	bestBid, bestAsk := snap.Bids[0].Price, snap.Asks[0].Price
	if math.IsInf(bestAsk, 1) || bestBid == 0 {
		return 0
	}
	mid := (bestBid + bestAsk) / 2
	band := mid * bps / 10000
	low, high := mid-band, mid+band

	total := 0.0
	for _, lv := range snap.Bids {
		if lv.Price < low {
			break
		}
		total += lv.Price * lv.Size
	}
	for _, lv := range snap.Asks {
		if lv.Price > high {
			break
		}
		total += lv.Price * lv.Size
	}
	return total
}
