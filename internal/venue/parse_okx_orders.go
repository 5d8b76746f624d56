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

// OKXOrdersProtocol implements Protocol for OKX's authenticated private
// "orders" channel, the Hedge Executor's OrderEvent source per spec §4.1
// "Private order stream" / §4.5 "Input". The login frame is signed
// immediately before sending, per spec §4.1 "Subscription contracts".
type OKXOrdersProtocol struct {
	VenueSymbol string
	Base        string
	Creds       secrets.VenueCredentials
	OnOrder     func(domain.OrderEvent)
}

func (p *OKXOrdersProtocol) Name() string { return "okx-orders" }

func (p *OKXOrdersProtocol) SubscribeFrames() ([][]byte, error) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sign := OKXSignature(p.Creds.SecretKey, ts, "GET", "/users/self/verify", "")
	login := map[string]interface{}{
		"op": "login",
		"args": []map[string]string{{
			"apiKey": p.Creds.APIKey, "passphrase": p.Creds.Passphrase,
			"timestamp": ts, "sign": sign,
		}},
	}
	loginFrame, err := json.Marshal(login)
	if err != nil {
		return nil, err
	}

	sub := map[string]interface{}{
		"op": "subscribe",
		"args": []map[string]string{
			{"channel": "orders", "instType": "SWAP", "instId": p.VenueSymbol},
		},
	}
	subFrame, err := json.Marshal(sub)
	if err != nil {
		return nil, err
	}
	return [][]byte{loginFrame, subFrame}, nil
}

type okxOrderMessage struct {
	Arg struct {
		Channel string `json:"channel"`
	} `json:"arg"`
	Data []struct {
		InstID   string `json:"instId"`
		OrdID    string `json:"ordId"`
		ClOrdID  string `json:"clOrdId"`
		Side     string `json:"side"`
		State    string `json:"state"` // "live" | "filled" | "canceled" | "partially_filled"
		FillSz   string `json:"fillSz"`
		FillPx   string `json:"fillPx"`
		UTime    string `json:"uTime"`
	} `json:"data"`
}

func (p *OKXOrdersProtocol) HandleMessage(s *Session, raw []byte) error {
	if strings.Contains(string(raw), `"event"`) {
		return nil // login/subscribe acks
	}
	var msg okxOrderMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("okx-orders: decode: %w", err)
	}
	if msg.Arg.Channel != "orders" {
		return nil
	}
	for _, d := range msg.Data {
		fillSz, _ := strconv.ParseFloat(d.FillSz, 64)
		fillPx, _ := strconv.ParseFloat(d.FillPx, 64)
		tsMs, _ := strconv.ParseInt(d.UTime, 10, 64)

		side := domain.SideBuy
		if d.Side == "sell" {
			side = domain.SideSell
		}

		ev := domain.OrderEvent{
			Venue: p.Name(), VenueSymbol: d.InstID, Base: p.Base,
			Side: side, FillSize: fillSz, ClientID: d.ClOrdID,
			Price: fillPx, TsMs: tsMs, Status: okxOrderStatus(d.State),
		}
		if p.OnOrder != nil {
			p.OnOrder(ev)
		}
	}
	return nil
}

func okxOrderStatus(state string) domain.OrderStatus {
	switch state {
	case "filled":
		return domain.OrderStatusFilled
	case "partially_filled":
		return domain.OrderStatusPartial
	case "canceled":
		return domain.OrderStatusCanceled
	default:
		return domain.OrderStatusNew
	}
}
