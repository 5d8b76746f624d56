package venue

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sawpanic/xvenue-mm/internal/domain"
)

// binanceDepthUpdate is Binance's combined-stream partial-book-depth
// payload. Adapted from the teacher's BinanceTickerUpdate envelope shape.
type binanceDepthUpdate struct {
	Stream string `json:"stream"`
	Data   struct {
		LastUpdateID int64      `json:"lastUpdateId"`
		Bids         [][]string `json:"bids"`
		Asks         [][]string `json:"asks"`
	} `json:"data"`
}

// BinanceProtocol implements Protocol for Binance's combined partial-book
// depth stream (already a snapshot on every message; Binance's depth
// stream has no incremental mode at this subscription level).
type BinanceProtocol struct {
	VenueSymbol string // lowercase, e.g. "btcusdt"
	Base        string
	OnBook      func(domain.BookEvent)
}

func (p *BinanceProtocol) Name() string { return "binance" }

func (p *BinanceProtocol) SubscribeFrames() ([][]byte, error) {
	req := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": []string{p.VenueSymbol + "@depth10@100ms"},
		"id":     1,
	}
	frame, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

func (p *BinanceProtocol) HandleMessage(s *Session, raw []byte) error {
	var msg binanceDepthUpdate
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("binance: decode depth update: %w", err)
	}
	if len(msg.Data.Bids) == 0 && len(msg.Data.Asks) == 0 {
		return nil // subscription ack or unrelated frame
	}

	ev := domain.BookEvent{
		Venue:       p.Name(),
		VenueSymbol: p.VenueSymbol,
		Base:        p.Base,
		Kind:        domain.BookSnapshot,
		TsMs:        domain.NowMs(),
		Bids:        parseBinanceLevels(msg.Data.Bids),
		Asks:        parseBinanceLevels(msg.Data.Asks),
	}
	if p.OnBook != nil {
		p.OnBook(ev)
	}
	return nil
}

func parseBinanceLevels(rows [][]string) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(rows))
	for _, r := range rows {
		if len(r) < 2 {
			continue
		}
		price, err1 := strconv.ParseFloat(r[0], 64)
		size, err2 := strconv.ParseFloat(r[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, domain.PriceLevel{Price: price, Size: size})
	}
	return out
}
