// Package quoting implements the Quoting Engine: one fixed-cadence loop
// per instrument that derives trading bands, picks a side, computes a
// limit price, and drives a post-only order through a small state
// machine — grounded on original_source's HighFrequencyBotV3.py
// (band/skew formulas, side selection, client-id parking) and the
// teacher's precedence-ordered evaluator shape in internal/exits (first
// applicable rule wins, typed result) for the state machine.
package quoting

import "math"

// Bands computes the per-loop-iteration sell/buy bounds and skew of
// spec §3 "Trading bands" from the current trend data, funding
// adjustment, and position.
func Bands(t TrendInput, frAdj, maxSkew, positionSize, cap float64) BandsResult {
	midMA := (t.BuySpreadMA + t.SellSpreadMA) / 2

	sellBound := math.Max(midMA+t.SellSpreadSD*t.StdCoeff, midMA+t.MinWidth/2)
	buyBound := math.Min(midMA-t.BuySpreadSD*t.StdCoeff, midMA-t.MinWidth/2)

	skew := calculateSkew(positionSize, cap, maxSkew)

	sellBound += math.Max(frAdj, 0) + skew
	buyBound += math.Min(frAdj, 0) + skew

	return BandsResult{SellBound: sellBound, BuyBound: buyBound, Skew: skew}
}

// calculateSkew is `skew = -sign(c)*c^2*max_skew`, `c = position/cap`
// clamped to [-1,1] — taken verbatim from calculate_skew in
// original_source/AutomationFunctions/HighFrequencyBotV3.py.
func calculateSkew(position, cap, maxSkew float64) float64 {
	if cap == 0 {
		return 0
	}
	c := position / cap
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	sign := 0.0
	switch {
	case c > 0:
		sign = 1
	case c < 0:
		sign = -1
	}
	return -sign * c * c * maxSkew
}

// TrendInput is the subset of trend_data and std_coeff/min_width the
// bands formula needs, using the longer window per spec §3 ("sd is the
// longer-window stddev").
type TrendInput struct {
	BuySpreadMA  float64
	SellSpreadMA float64
	BuySpreadSD  float64
	SellSpreadSD float64
	StdCoeff     float64
	MinWidth     float64
}

// BandsResult is the derived, not-stored, per-iteration output.
type BandsResult struct {
	SellBound float64
	BuyBound  float64
	Skew      float64
}
