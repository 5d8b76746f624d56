// Package hedge implements the Hedge Executor: it consumes the quoting
// venue's private OrderEvent stream, translates each qualifying fill into
// an opposite-side hedge order on the hedge venue, and maintains the
// per-instrument signed residual accumulator of spec §3/§4.5.
//
// Grounded on original_source/AutomationFunctions/WebsocketHedge_PP.py's
// process_bybit_order_update/process_okx_order_update (filtering,
// residual bookkeeping, retry/backoff) and the teacher's internal/net/
// budget sliding-window shape, already adapted into internal/errorbudget.
package hedge

import "math"

// Residual is the per-instrument signed accumulator `R` of spec §4.5.
// Positive means the hedge venue still owes us a buy.
type Residual struct {
	value float64
}

// Add folds in a newly hedged fill: `R += amount` if hedge_side == buy,
// else `R -= amount`, per spec §4.5 "Residual maintenance" literally —
// hedge_side is already the flipped side, so no further sign flip here.
func (r *Residual) Add(hedgeSideIsBuy bool, amount float64) {
	if hedgeSideIsBuy {
		r.value += amount
	} else {
		r.value -= amount
	}
}

// Settle subtracts `sign(R) * intended` after a successful hedge order,
// per spec §4.5 "On success: R -= sign·intended".
func (r *Residual) Settle(intended float64) {
	r.value -= math.Copysign(intended, r.value)
}

// Value returns the current signed residual.
func (r *Residual) Value() float64 { return r.value }

// Intended computes the rounded-to-step order size and its sign for the
// current residual, per spec §4.5. ok is false when the rounded amount is
// zero (skip this cycle; the amount accumulates for a future fill).
func (r *Residual) Intended(step float64) (amount float64, sign float64, ok bool) {
	amount = RoundToStep(math.Abs(r.value), step)
	if amount == 0 {
		return 0, 0, false
	}
	sign = 1
	if r.value < 0 {
		sign = -1
	}
	return amount, sign, true
}

// RoundToStep rounds amount down to the nearest multiple of step. A
// non-positive step disables rounding (some venues report no step).
func RoundToStep(amount, step float64) float64 {
	if step <= 0 {
		return amount
	}
	return math.Floor(amount/step) * step
}
