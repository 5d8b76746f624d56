package venue

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sawpanic/xvenue-mm/internal/domain"
)

// coinbaseL2Message is Coinbase Advanced Trade's level2 channel payload.
// Adapted from the teacher's CoinbaseTickerUpdate shape, generalized from
// best-bid/ask ticker fields to the level2 update array.
type coinbaseL2Message struct {
	Channel string `json:"channel"`
	Events  []struct {
		Type    string `json:"type"` // "snapshot" | "update"
		Updates []struct {
			Side      string `json:"side"` // "bid" | "offer"
			PriceLvl  string `json:"price_level"`
			NewQty    string `json:"new_quantity"`
		} `json:"updates"`
	} `json:"events"`
}

// CoinbaseProtocol implements Protocol for Coinbase's level2 channel.
type CoinbaseProtocol struct {
	VenueSymbol string // e.g. "BTC-USD"
	Base        string
	OnBook      func(domain.BookEvent)

	bids map[float64]float64
	asks map[float64]float64
}

func (p *CoinbaseProtocol) Name() string { return "coinbase" }

func (p *CoinbaseProtocol) SubscribeFrames() ([][]byte, error) {
	req := map[string]interface{}{
		"type":        "subscribe",
		"product_ids": []string{p.VenueSymbol},
		"channel":     "level2",
	}
	frame, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

func (p *CoinbaseProtocol) HandleMessage(s *Session, raw []byte) error {
	var msg coinbaseL2Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("coinbase: decode level2 message: %w", err)
	}
	if msg.Channel != "l2_data" || len(msg.Events) == 0 {
		return nil
	}
	if p.bids == nil {
		p.bids = make(map[float64]float64)
		p.asks = make(map[float64]float64)
	}

	kind := domain.BookDelta
	for _, ev := range msg.Events {
		if ev.Type == "snapshot" {
			kind = domain.BookSnapshot
			p.bids = make(map[float64]float64)
			p.asks = make(map[float64]float64)
		}
		for _, u := range ev.Updates {
			price, err := strconv.ParseFloat(u.PriceLvl, 64)
			if err != nil {
				continue
			}
			qty, err := strconv.ParseFloat(u.NewQty, 64)
			if err != nil {
				continue
			}
			side := p.bids
			if u.Side == "offer" {
				side = p.asks
			}
			if qty == 0 {
				delete(side, price)
			} else {
				side[price] = qty
			}
		}
	}

	out := domain.BookEvent{
		Venue:       p.Name(),
		VenueSymbol: p.VenueSymbol,
		Base:        p.Base,
		Kind:        kind,
		TsMs:        domain.NowMs(),
		Bids:        levelsFromMap(p.bids),
		Asks:        levelsFromMap(p.asks),
	}
	if p.OnBook != nil {
		p.OnBook(out)
	}
	return nil
}

func levelsFromMap(m map[float64]float64) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(m))
	for price, size := range m {
		out = append(out, domain.PriceLevel{Price: price, Size: size})
	}
	return out
}
