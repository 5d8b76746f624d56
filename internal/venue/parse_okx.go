package venue

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sawpanic/xvenue-mm/internal/domain"
)

// okxBookMessage is OKX's arg/data envelope for the books5 channel.
// Adapted from the teacher's OKXTickerUpdate shape.
type okxBookMessage struct {
	Arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Action string `json:"action"` // "snapshot" | "update", books channel only
	Data   []struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
		Ts   string     `json:"ts"`
	} `json:"data"`
}

// OKXProtocol implements Protocol for OKX's books5 channel (top-5
// snapshot-only depth, simplest to reconcile against the engine's own
// top-N=5 assembler).
type OKXProtocol struct {
	VenueSymbol string // e.g. "BTC-USDT-SWAP"
	Base        string
	OnBook      func(domain.BookEvent)
}

func (p *OKXProtocol) Name() string { return "okx" }

func (p *OKXProtocol) SubscribeFrames() ([][]byte, error) {
	req := map[string]interface{}{
		"op": "subscribe",
		"args": []map[string]string{
			{"channel": "books5", "instId": p.VenueSymbol},
		},
	}
	frame, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

func (p *OKXProtocol) HandleMessage(s *Session, raw []byte) error {
	var msg okxBookMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("okx: decode book message: %w", err)
	}
	if msg.Arg.Channel != "books5" || len(msg.Data) == 0 {
		return nil
	}
	d := msg.Data[0]

	tsMs := domain.NowMs()
	if ts, err := strconv.ParseInt(d.Ts, 10, 64); err == nil {
		tsMs = ts
	}

	ev := domain.BookEvent{
		Venue:       p.Name(),
		VenueSymbol: p.VenueSymbol,
		Base:        p.Base,
		Kind:        domain.BookSnapshot,
		TsMs:        tsMs,
		Bids:        parseOKXLevels(d.Bids),
		Asks:        parseOKXLevels(d.Asks),
	}
	if p.OnBook != nil {
		p.OnBook(ev)
	}
	return nil
}

func parseOKXLevels(rows [][]string) []domain.PriceLevel {
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
