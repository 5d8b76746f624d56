package venue

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sawpanic/xvenue-mm/internal/domain"
	"github.com/sawpanic/xvenue-mm/internal/secrets"
)

// BybitOrdersProtocol implements Protocol for Bybit v5's authenticated
// private "order" topic, an alternate Hedge Executor OrderEvent source
// when Bybit is configured as the quoting venue of a pair (the hedge
// venue in the canonical okx-quoting/bybit-hedge pairing this repo
// grounds on). Auth recipe per original_source/bybit.py: hex(HMAC-SHA256(
// "GET/realtime"+expiresMs, secret)).
type BybitOrdersProtocol struct {
	VenueSymbol string
	Base        string
	Creds       secrets.VenueCredentials
	OnOrder     func(domain.OrderEvent)
}

func (p *BybitOrdersProtocol) Name() string { return "bybit-orders" }

func (p *BybitOrdersProtocol) SubscribeFrames() ([][]byte, error) {
	expires := time.Now().Add(5 * time.Second).UnixMilli()
	sig := BybitWSLoginSignature(p.Creds.SecretKey, expires)
	auth := map[string]interface{}{
		"op":   "auth",
		"args": []interface{}{p.Creds.APIKey, expires, sig},
	}
	authFrame, err := json.Marshal(auth)
	if err != nil {
		return nil, err
	}

	sub := map[string]interface{}{"op": "subscribe", "args": []string{"order"}}
	subFrame, err := json.Marshal(sub)
	if err != nil {
		return nil, err
	}
	return [][]byte{authFrame, subFrame}, nil
}

type bybitOrderMessage struct {
	Topic string `json:"topic"`
	Data  []struct {
		Symbol      string `json:"symbol"`
		Side        string `json:"side"` // "Buy" | "Sell"
		OrderStatus string `json:"orderStatus"`
		OrderLinkID string `json:"orderLinkId"`
		CumExecQty  string `json:"cumExecQty"`
		AvgPrice    string `json:"avgPrice"`
		UpdatedTime string `json:"updatedTime"`
	} `json:"data"`
}

func (p *BybitOrdersProtocol) HandleMessage(s *Session, raw []byte) error {
	if strings.Contains(string(raw), `"op":"auth"`) || strings.Contains(string(raw), `"op":"subscribe"`) {
		return nil
	}
	var msg bybitOrderMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("bybit-orders: decode: %w", err)
	}
	if msg.Topic != "order" {
		return nil
	}
	for _, d := range msg.Data {
		qty, _ := strconv.ParseFloat(d.CumExecQty, 64)
		px, _ := strconv.ParseFloat(d.AvgPrice, 64)
		tsMs, _ := strconv.ParseInt(d.UpdatedTime, 10, 64)

		side := domain.SideBuy
		if d.Side == "Sell" {
			side = domain.SideSell
		}

		ev := domain.OrderEvent{
			Venue: p.Name(), VenueSymbol: d.Symbol, Base: p.Base,
			Side: side, FillSize: qty, ClientID: d.OrderLinkID,
			Price: px, TsMs: tsMs, Status: bybitOrderStatus(d.OrderStatus),
		}
		if p.OnOrder != nil {
			p.OnOrder(ev)
		}
	}
	return nil
}

func bybitOrderStatus(status string) domain.OrderStatus {
	switch status {
	case "Filled":
		return domain.OrderStatusFilled
	case "PartiallyFilled":
		return domain.OrderStatusPartial
	case "Cancelled", "Rejected":
		return domain.OrderStatusCanceled
	default:
		return domain.OrderStatusNew
	}
}
