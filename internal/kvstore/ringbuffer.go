package kvstore

import (
	"context"
	"encoding/json"

	"github.com/sawpanic/xvenue-mm/internal/domain"
)

// RingSize is the bound from spec §3/§8 invariant 5: the per-instrument
// spread ring never exceeds 500 entries.
const RingSize = 500

// SpreadRing is the single-writer, multi-reader ring buffer the Spread
// Aggregator appends to and the Quoting Engine reads the tail of.
type SpreadRing struct {
	store Store
	key   string
}

func NewSpreadRing(store Store, key string) *SpreadRing {
	return &SpreadRing{store: store, key: key}
}

// Append adds a snapshot, dropping the oldest entry once the ring is
// full (spec §3 "newest appended, oldest dropped").
func (r *SpreadRing) Append(ctx context.Context, snap domain.SpreadSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.store.ListPush(ctx, r.key, b, RingSize)
}

// Last returns the most recent n snapshots, oldest first.
func (r *SpreadRing) Last(ctx context.Context, n int) ([]domain.SpreadSnapshot, error) {
	total, err := r.store.ListLen(ctx, r.key)
	if err != nil {
		return nil, err
	}
	start := total - n
	if start < 0 {
		start = 0
	}
	raws, err := r.store.ListRange(ctx, r.key, start, total)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SpreadSnapshot, 0, len(raws))
	for _, b := range raws {
		var s domain.SpreadSnapshot
		if err := json.Unmarshal(b, &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
