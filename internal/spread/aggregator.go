// Package spread implements the Spread Aggregator: for one cross-venue
// instrument pair it joins the two Order-Book Assembler views, derives
// entry/exit spread, rate-gates emissions, and writes to the keyed ring
// buffer plus a non-blocking drop-oldest fan-out channel.
//
// The rate gate is a golang.org/x/time/rate token bucket, one per
// instrument pair; the ring buffer is internal/kvstore's bounded list.
package spread

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/sawpanic/xvenue-mm/internal/book"
	"github.com/sawpanic/xvenue-mm/internal/domain"
	"github.com/sawpanic/xvenue-mm/internal/kvstore"
)

// Gate is the default emission rate-limit of spec §4.3: one snapshot at
// most every 25ms per instrument pair.
const Gate = 25 * time.Millisecond

// crossedWarnEvery throttles the "book is crossed" log line to once per
// second per instrument, per spec §4.3 edge case.
const crossedWarnEvery = time.Second

// Aggregator joins venue A and venue B's books for one base and emits
// SpreadSnapshot records.
type Aggregator struct {
	base     string
	bookA    *book.Book
	bookB    *book.Book
	ring     *kvstore.SpreadRing
	limiter  *rate.Limiter
	out      chan domain.SpreadSnapshot
	log      zerolog.Logger
	lastWarn time.Time
}

// New builds an aggregator for one instrument pair. out is the
// non-blocking fan-out channel; pass a buffered channel sized to the
// consumer's expected burst tolerance.
func New(base string, bookA, bookB *book.Book, ring *kvstore.SpreadRing, out chan domain.SpreadSnapshot, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		base:    base,
		bookA:   bookA,
		bookB:   bookB,
		ring:    ring,
		limiter: rate.NewLimiter(rate.Every(Gate), 1),
		out:     out,
		log:     log.With().Str("component", "spread").Str("base", base).Logger(),
	}
}

// OnBookUpdate is called after either book changes; it computes and, if the
// rate gate allows, emits a new snapshot.
func (a *Aggregator) OnBookUpdate(ctx context.Context, nowMs int64) {
	if !a.limiter.Allow() {
		return
	}
	snap, ok := a.compute(nowMs)
	if !ok {
		return
	}
	if err := a.ring.Append(ctx, snap); err != nil {
		a.log.Error().Err(err).Msg("append spread ring failed")
	}
	select {
	case a.out <- snap:
	default:
		// Fan-out channel is full: drop the oldest queued snapshot and
		// retry once, per spec §4.3 "on full channel, drop-oldest".
		select {
		case <-a.out:
		default:
		}
		select {
		case a.out <- snap:
		default:
		}
	}
}

func (a *Aggregator) compute(nowMs int64) (domain.SpreadSnapshot, bool) {
	bidA, askA, freshA := a.bookA.TopOfBook(nowMs)
	bidB, askB, freshB := a.bookB.TopOfBook(nowMs)
	if !freshA || !freshB {
		return domain.SpreadSnapshot{}, false
	}
	if askB.Price == 0 || bidB.Price == 0 {
		return domain.SpreadSnapshot{}, false
	}

	entrySpread := 100 * (bidA.Price - askB.Price) / askB.Price
	exitSpread := 100 * (askA.Price - bidB.Price) / bidB.Price

	if bidA.Price >= askA.Price || bidB.Price >= askB.Price {
		if time.Since(a.lastWarn) >= crossedWarnEvery {
			a.log.Warn().Msg("crossed book detected")
			a.lastWarn = time.Now()
		}
	}

	levelsA := a.bookA.Levels(nowMs)
	levelsB := a.bookB.Levels(nowMs)

	lagMs := levelsA.LastTsMs
	if levelsB.LastTsMs < lagMs {
		lagMs = levelsB.LastTsMs
	}
	lagMs = nowMs - lagMs

	return domain.SpreadSnapshot{
		Base:        a.base,
		TimestampMs: nowMs,
		EntrySpread: entrySpread,
		ExitSpread:  exitSpread,
		BidsA:       levelsA.Bids,
		AsksA:       levelsA.Asks,
		BidsB:       levelsB.Bids,
		AsksB:       levelsB.Asks,
		LagMs:       lagMs,
	}, true
}
