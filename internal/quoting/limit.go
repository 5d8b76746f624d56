package quoting

import "github.com/sawpanic/xvenue-mm/internal/domain"

// LimitDecision is the per-iteration limit-price computation of spec
// §4.4 "Limit price".
type LimitDecision struct {
	Side     domain.Side
	Price    float64
	InRange  bool
}

// ComputeLimit derives the limit price for the selected side. adjustment
// is 10% of the initial best-bid, captured once at Engine startup.
// overloadPause mirrors the server_overload_pause flag, which forces the
// order to park exactly as an out-of-band reading would.
func ComputeLimit(side domain.Side, bestBid, bestAsk, adjustment float64, entryMA, exitMA float64, bands BandsResult, overloadPause bool) LimitDecision {
	switch side {
	case domain.SideSell:
		limit := bestAsk
		inBand := entryMA >= bands.SellBound
		if !inBand || overloadPause {
			limit += adjustment
		}
		return LimitDecision{Side: side, Price: limit, InRange: limit == bestAsk}
	default:
		limit := bestBid
		inBand := exitMA <= bands.BuyBound
		if !inBand || overloadPause {
			limit -= adjustment
		}
		return LimitDecision{Side: side, Price: limit, InRange: limit == bestBid}
	}
}
