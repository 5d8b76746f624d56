package hedge

import (
	"math"
	"testing"
)

func TestResidualHedgeRounding(t *testing.T) {
	var r Residual
	r.Add(true, 0.123) // sell fill on quoting venue -> hedge_side buy -> R += amount
	amount, sign, ok := r.Intended(0.01)
	if !ok {
		t.Fatalf("expected a non-zero intended amount")
	}
	if math.Abs(amount-0.12) > 1e-9 {
		t.Fatalf("expected rounded amount 0.12, got %v", amount)
	}
	if sign != 1 {
		t.Fatalf("expected positive sign, got %v", sign)
	}
	r.Settle(amount)
	if math.Abs(r.Value()-0.003) > 1e-9 {
		t.Fatalf("expected residual 0.003 after settling, got %v", r.Value())
	}
}

func TestResidualAccumulatesBelowStep(t *testing.T) {
	var r Residual
	r.Add(true, 0.004)
	_, _, ok := r.Intended(0.01)
	if ok {
		t.Fatalf("expected no intended amount below one step")
	}
	r.Add(true, 0.004)
	_, _, ok = r.Intended(0.01)
	if ok {
		t.Fatalf("expected still no intended amount (0.008 < step 0.01)")
	}
	r.Add(true, 0.004)
	amount, _, ok := r.Intended(0.01)
	if !ok {
		t.Fatalf("expected an intended amount once accumulation crosses one step")
	}
	if math.Abs(amount-0.01) > 1e-9 {
		t.Fatalf("expected rounded amount 0.01, got %v", amount)
	}
}

func TestResidualSellSide(t *testing.T) {
	var r Residual
	r.Add(false, 0.05) // sell hedge -> R -= amount
	amount, sign, ok := r.Intended(0.01)
	if !ok {
		t.Fatalf("expected intended amount")
	}
	if sign != -1 {
		t.Fatalf("expected negative sign for sell-side residual, got %v", sign)
	}
	r.Settle(amount)
	if math.Abs(r.Value()+0) > 1 {
		t.Fatalf("unexpected residual magnitude after settle: %v", r.Value())
	}
}
