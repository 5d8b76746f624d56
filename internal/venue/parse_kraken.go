package venue

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sawpanic/xvenue-mm/internal/domain"
)

// krakenBookData is the array-format book payload Kraken sends for both
// snapshots (ask/bid present as full arrays) and deltas (a/b present as
// incremental entries). Adapted from the teacher's KrakenTicker shape,
// generalized from ticker fields to order-book levels.
type krakenBookData struct {
	Asks     [][]string `json:"as"`
	Bids     [][]string `json:"bs"`
	AskDelta [][]string `json:"a"`
	BidDelta [][]string `json:"b"`
}

// KrakenProtocol implements Protocol for Kraken's public book channel.
type KrakenProtocol struct {
	VenueSymbol string
	Base        string
	OnBook      func(domain.BookEvent)
}

func (p *KrakenProtocol) Name() string { return "kraken" }

func (p *KrakenProtocol) SubscribeFrames() ([][]byte, error) {
	req := map[string]interface{}{
		"event": "subscribe",
		"pair":  []string{p.VenueSymbol},
		"subscription": map[string]interface{}{
			"name":  "book",
			"depth": 10,
		},
	}
	frame, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

func (p *KrakenProtocol) HandleMessage(s *Session, raw []byte) error {
	var msg []interface{}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil // subscriptionStatus / heartbeat objects are ignored here
	}
	if len(msg) < 4 {
		return nil
	}
	name, ok := msg[2].(string)
	if !ok || (name != "book-10" && name != "book") {
		return nil
	}

	dataMap, ok := msg[1].(map[string]interface{})
	if !ok {
		return fmt.Errorf("kraken: unexpected book payload shape")
	}
	raw2, err := json.Marshal(dataMap)
	if err != nil {
		return err
	}
	var data krakenBookData
	if err := json.Unmarshal(raw2, &data); err != nil {
		return fmt.Errorf("kraken: decode book data: %w", err)
	}

	kind := domain.BookDelta
	levels := struct{ bids, asks [][]string }{data.BidDelta, data.AskDelta}
	if len(data.Bids) > 0 || len(data.Asks) > 0 {
		kind = domain.BookSnapshot
		levels.bids, levels.asks = data.Bids, data.Asks
	}

	ev := domain.BookEvent{
		Venue:       p.Name(),
		VenueSymbol: p.VenueSymbol,
		Base:        p.Base,
		Kind:        kind,
		TsMs:        domain.NowMs(),
		Bids:        parseKrakenLevels(levels.bids),
		Asks:        parseKrakenLevels(levels.asks),
	}
	if p.OnBook != nil {
		p.OnBook(ev)
	}
	return nil
}

func parseKrakenLevels(rows [][]string) []domain.PriceLevel {
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
