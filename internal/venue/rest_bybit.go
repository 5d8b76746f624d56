package venue

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/sawpanic/xvenue-mm/internal/domain"
	"github.com/sawpanic/xvenue-mm/internal/net/ratelimit"
	"github.com/sawpanic/xvenue-mm/internal/secrets"
)

// BybitClient is the order-entry REST client for Bybit v5, grounded on
// original_source's bybit.py signature recipe (HMAC-SHA256 hex, no
// passphrase). Used as the hedge venue in cross-venue pairs that route
// their quoting leg to OKX.
type BybitClient struct {
	sender     *httpSender
	recvWindow string
}

func NewBybitClient(base string, limiter *ratelimit.Limiter, brk breaker, creds secrets.VenueCredentials) *BybitClient {
	return &BybitClient{
		sender:     newHTTPSender("bybit", base, limiter, brk, creds),
		recvWindow: "5000",
	}
}

func (c *BybitClient) sign(req *http.Request, body []byte) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	sig := BybitRESTSignature(c.sender.creds.SecretKey, ts, c.sender.creds.APIKey, c.recvWindow, string(body))
	req.Header.Set("X-BAPI-API-KEY", c.sender.creds.APIKey)
	req.Header.Set("X-BAPI-SIGN", sig)
	req.Header.Set("X-BAPI-TIMESTAMP", ts)
	req.Header.Set("X-BAPI-RECV-WINDOW", c.recvWindow)
}

type bybitOrderPayload struct {
	Category    string `json:"category"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	OrderType   string `json:"orderType"`
	Qty         string `json:"qty"`
	Price       string `json:"price,omitempty"`
	TimeInForce string `json:"timeInForce,omitempty"`
	OrderLinkID string `json:"orderLinkId"`
}

type bybitEnvelope struct {
	RetCode int            `json:"retCode"`
	RetMsg  string         `json:"retMsg"`
	Result  map[string]any `json:"result"`
}

func (c *BybitClient) PlacePostOnly(ctx context.Context, symbol string, side domain.Side, price, qty float64, clientID string) (domain.OrderAck, error) {
	payload := bybitOrderPayload{
		Category: "linear", Symbol: symbol, Side: bybitSide(side), OrderType: "Limit",
		Qty: strconv.FormatFloat(qty, 'f', -1, 64), Price: strconv.FormatFloat(price, 'f', -1, 64),
		TimeInForce: "PostOnly", OrderLinkID: clientID,
	}
	return c.submit(ctx, "/v5/order/create", payload, clientID)
}

func (c *BybitClient) PlaceMarket(ctx context.Context, symbol string, side domain.Side, qty float64, clientID string) (domain.FillReport, error) {
	payload := bybitOrderPayload{
		Category: "linear", Symbol: symbol, Side: bybitSide(side), OrderType: "Market",
		Qty: strconv.FormatFloat(qty, 'f', -1, 64), OrderLinkID: clientID,
	}
	ack, err := c.submit(ctx, "/v5/order/create", payload, clientID)
	if err != nil {
		return domain.FillReport{}, err
	}
	return domain.FillReport{OrderID: ack.OrderID, ClientID: ack.ClientID, FilledQty: qty, Status: ack.Status}, nil
}

func (c *BybitClient) submit(ctx context.Context, path string, payload bybitOrderPayload, clientID string) (domain.OrderAck, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.OrderAck{}, domain.NewVenueError(domain.ErrInvalidArgument, "bybit", "submit", "marshal order", err)
	}
	raw, _, err := c.sender.do(ctx, http.MethodPost, path, body, c.sign)
	if err != nil {
		return domain.OrderAck{}, err
	}
	var env bybitEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.OrderAck{}, domain.NewVenueError(domain.ErrMessageMalformed, "bybit", "submit", "decode response", err)
	}
	if env.RetCode != 0 {
		return domain.OrderAck{}, classifyBybitError(env.RetCode, env.RetMsg)
	}
	orderID := ""
	if id, ok := env.Result["orderId"].(string); ok {
		orderID = id
	}
	return domain.OrderAck{OrderID: orderID, ClientID: clientID, Status: domain.OrderStatusNew}, nil
}

func (c *BybitClient) Amend(ctx context.Context, symbol, orderID string, newPrice float64) (domain.OrderAck, error) {
	payload := map[string]string{
		"category": "linear", "symbol": symbol, "orderId": orderID,
		"price": strconv.FormatFloat(newPrice, 'f', -1, 64),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.OrderAck{}, domain.NewVenueError(domain.ErrInvalidArgument, "bybit", "amend", "marshal", err)
	}
	raw, _, err := c.sender.do(ctx, http.MethodPost, "/v5/order/amend", body, c.sign)
	if err != nil {
		return domain.OrderAck{}, err
	}
	var env bybitEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.OrderAck{}, domain.NewVenueError(domain.ErrMessageMalformed, "bybit", "amend", "decode response", err)
	}
	if env.RetCode != 0 {
		return domain.OrderAck{}, classifyBybitError(env.RetCode, env.RetMsg)
	}
	return domain.OrderAck{OrderID: orderID, Status: domain.OrderStatusNew}, nil
}

func (c *BybitClient) Cancel(ctx context.Context, symbol, orderID string) error {
	payload := map[string]string{"category": "linear", "symbol": symbol, "orderId": orderID}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.NewVenueError(domain.ErrInvalidArgument, "bybit", "cancel", "marshal", err)
	}
	raw, _, err := c.sender.do(ctx, http.MethodPost, "/v5/order/cancel", body, c.sign)
	if err != nil {
		return err
	}
	var env bybitEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.NewVenueError(domain.ErrMessageMalformed, "bybit", "cancel", "decode response", err)
	}
	if env.RetCode != 0 {
		return classifyBybitError(env.RetCode, env.RetMsg)
	}
	return nil
}

func bybitSide(s domain.Side) string {
	if s == domain.SideBuy {
		return "Buy"
	}
	return "Sell"
}

// classifyBybitError maps Bybit v5's numeric retCode onto the shared
// VenueErrorKind taxonomy of spec §4.1/§7.
func classifyBybitError(code int, msg string) error {
	kind := domain.ErrUnknown
	switch code {
	case 110007:
		kind = domain.ErrMarginInsufficient
	case 110017, 110094:
		kind = domain.ErrPrecisionBelowMinimum
	case 110012:
		kind = domain.ErrNotionalBelowMinimum
	case 110001, 110025:
		kind = domain.ErrOrderNotFound
	case 10006:
		kind = domain.ErrRateLimited
	case 10016:
		kind = domain.ErrServiceUnavailable
	case 10003, 10004, 10005:
		kind = domain.ErrAuthFailed
	}
	return domain.NewVenueError(kind, "bybit", "order", msg, nil)
}
