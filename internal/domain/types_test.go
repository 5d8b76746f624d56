package domain

import (
	"encoding/json"
	"testing"
)

// TestBotParamsJSONRoundTrip guards against the snake_case external
// wire format (spec §6/§3) silently failing to populate these fields —
// encoding/json's case-insensitive fallback does not fold underscores,
// so a missing tag leaves every field at its zero value instead of
// erroring.
func TestBotParamsJSONRoundTrip(t *testing.T) {
	raw := []byte(`{
		"notional_per_trade": 100,
		"max_notional": 5000,
		"ma_window": 20,
		"std_coeff": 2.5,
		"min_width": 0.1,
		"max_skew": 0.05,
		"mark_price": 61234.5,
		"position_size": 250,
		"default_max_notional": 10000
	}`)

	var p BotParams
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}

	want := BotParams{
		NotionalPerTrade:   100,
		MaxNotional:        5000,
		MAWindow:           20,
		StdCoeff:           2.5,
		MinWidth:           0.1,
		MaxSkew:            0.05,
		MarkPrice:          61234.5,
		PositionSize:       250,
		DefaultMaxNotional: 10000,
	}
	if p != want {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", p, want)
	}
}

func TestTrendDataJSONRoundTrip(t *testing.T) {
	raw := []byte(`{
		"buy_spread_ma_M": 0.12,
		"sell_spread_ma_M": 0.34,
		"buy_spread_sd_M": 0.01,
		"sell_spread_sd_M": 0.02,
		"buy_spread_ma_L": 0.15,
		"sell_spread_ma_L": 0.36,
		"buy_spread_sd_L": 0.03,
		"sell_spread_sd_L": 0.04,
		"current_buy_spread": 0.11,
		"current_sell_spread": 0.35
	}`)

	var td TrendData
	if err := json.Unmarshal(raw, &td); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}

	want := TrendData{
		BuySpreadMA_M:     0.12,
		SellSpreadMA_M:    0.34,
		BuySpreadSD_M:     0.01,
		SellSpreadSD_M:    0.02,
		BuySpreadMA_L:     0.15,
		SellSpreadMA_L:    0.36,
		BuySpreadSD_L:     0.03,
		SellSpreadSD_L:    0.04,
		CurrentBuySpread:  0.11,
		CurrentSellSpread: 0.35,
	}
	if td != want {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", td, want)
	}
}
