package quoting

import (
	"math"
	"testing"
)

func TestCalculateSkewSignAndMagnitude(t *testing.T) {
	s := calculateSkew(50, 100, 0.02)
	want := -1 * 0.25 * 0.02 // c=0.5, sign=1, c^2=0.25
	if math.Abs(s-want) > 1e-9 {
		t.Fatalf("expected skew %v, got %v", want, s)
	}

	s = calculateSkew(-50, 100, 0.02)
	if s <= 0 {
		t.Fatalf("expected positive skew for short position, got %v", s)
	}

	if calculateSkew(0, 0, 0.02) != 0 {
		t.Fatalf("expected zero skew when cap is zero")
	}
}

func TestCalculateSkewClampsAtBoundary(t *testing.T) {
	s1 := calculateSkew(200, 100, 0.02) // c clamps to 1
	s2 := calculateSkew(100, 100, 0.02) // c == 1 exactly
	if math.Abs(s1-s2) > 1e-9 {
		t.Fatalf("expected clamped skew to match c==1 case: %v vs %v", s1, s2)
	}
}

func TestBandsAppliesFundingAndSkewAdditively(t *testing.T) {
	trend := TrendInput{BuySpreadMA: 0, SellSpreadMA: 0, BuySpreadSD: 1, SellSpreadSD: 1, StdCoeff: 2, MinWidth: 0.5}
	noFr := Bands(trend, 0, 0, 0, 100)
	withFr := Bands(trend, 0.3, 0, 0, 100)
	if math.Abs((withFr.SellBound-noFr.SellBound)-0.3) > 1e-9 {
		t.Fatalf("expected funding adjustment to add additively to sell bound")
	}
}
