package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sawpanic/xvenue-mm/internal/domain"
	"github.com/sawpanic/xvenue-mm/internal/net/circuit"
	"github.com/sawpanic/xvenue-mm/internal/net/gbreaker"
	"github.com/sawpanic/xvenue-mm/internal/net/ratelimit"
	"github.com/sawpanic/xvenue-mm/internal/secrets"
)

// OrderEntryClient is the venue-agnostic order-entry surface every adapter
// exposes to the Quoting Engine and Hedge Executor, per spec §4.1/§4.4/§4.5.
type OrderEntryClient interface {
	PlacePostOnly(ctx context.Context, symbol string, side domain.Side, price, qty float64, clientID string) (domain.OrderAck, error)
	Amend(ctx context.Context, symbol, orderID string, newPrice float64) (domain.OrderAck, error)
	Cancel(ctx context.Context, symbol, orderID string) error
	PlaceMarket(ctx context.Context, symbol string, side domain.Side, qty float64, clientID string) (domain.FillReport, error)
}

// breaker abstracts over the two independently-tripped circuit-breaker
// implementations the Venue Adapter uses: the hand-rolled internal/net/
// circuit breaker for the quoting path, sony/gobreaker (internal/net/
// gbreaker) for the hedge path, per spec §4.5's isolation requirement.
type breaker interface {
	run(ctx context.Context, fn func(context.Context) error) error
}

type circuitBreaker struct{ b *circuit.Breaker }

func (c circuitBreaker) run(ctx context.Context, fn func(context.Context) error) error {
	return c.b.Call(ctx, fn)
}

type goBreaker struct{ b *gbreaker.Breaker }

func (g goBreaker) run(ctx context.Context, fn func(context.Context) error) error {
	_, err := g.b.Execute(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// NewQuotingBreaker wraps internal/net/circuit for the quoting-venue
// order-entry REST path.
func NewQuotingBreaker(b *circuit.Breaker) breaker { return circuitBreaker{b: b} }

// NewHedgeBreaker wraps internal/net/gbreaker for the hedge-venue
// order-entry REST path.
func NewHedgeBreaker(b *gbreaker.Breaker) breaker { return goBreaker{b: b} }

// httpSender is the shared plumbing every venue's REST client drives:
// rate limit, circuit breaker, then an HTTP round trip, translating
// venue-specific failure shapes into domain.VenueError.
type httpSender struct {
	venue   string
	base    string
	client  *http.Client
	limiter *ratelimit.Limiter
	breaker breaker
	creds   secrets.VenueCredentials
}

func newHTTPSender(venueName, base string, limiter *ratelimit.Limiter, brk breaker, creds secrets.VenueCredentials) *httpSender {
	return &httpSender{
		venue:   venueName,
		base:    base,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		breaker: brk,
		creds:   creds,
	}
}

func (h *httpSender) do(ctx context.Context, method, path string, body []byte, sign func(req *http.Request, bodyBytes []byte)) ([]byte, int, error) {
	if err := h.limiter.Wait(ctx, h.base); err != nil {
		return nil, 0, domain.NewVenueError(domain.ErrRateLimited, h.venue, method+" "+path, "rate limiter wait canceled", err)
	}

	var respBody []byte
	var statusCode int
	err := h.breaker.run(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, h.base+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if sign != nil {
			sign(req, body)
		}

		resp, err := h.client.Do(req)
		if err != nil {
			return domain.NewVenueError(domain.ErrTransientNetwork, h.venue, method+" "+path, "http do failed", err)
		}
		defer resp.Body.Close()

		statusCode = resp.StatusCode
		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return domain.NewVenueError(domain.ErrTransientNetwork, h.venue, method+" "+path, "read body failed", err)
		}
		if resp.StatusCode >= 500 {
			return domain.NewVenueError(domain.ErrServiceUnavailable, h.venue, method+" "+path, resp.Status, nil)
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return domain.NewVenueError(domain.ErrRateLimited, h.venue, method+" "+path, resp.Status, nil)
		}
		return nil
	})
	return respBody, statusCode, err
}

// OKXClient is the order-entry REST client for OKX, used as either the
// quoting venue or the hedge venue per the configured instrument pair.
type OKXClient struct {
	sender *httpSender
}

func NewOKXClient(base string, limiter *ratelimit.Limiter, brk breaker, creds secrets.VenueCredentials) *OKXClient {
	return &OKXClient{sender: newHTTPSender("okx", base, limiter, brk, creds)}
}

func (c *OKXClient) sign(req *http.Request, body []byte) {
	ts := OKXTimestamp(time.Now())
	sig := OKXSignature(c.sender.creds.SecretKey, ts, req.Method, req.URL.Path, string(body))
	req.Header.Set("OK-ACCESS-KEY", c.sender.creds.APIKey)
	req.Header.Set("OK-ACCESS-SIGN", sig)
	req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
	req.Header.Set("OK-ACCESS-PASSPHRASE", c.sender.creds.Passphrase)
}

type okxOrderPayload struct {
	InstID  string `json:"instId"`
	TdMode  string `json:"tdMode"`
	Side    string `json:"side"`
	OrdType string `json:"ordType"`
	Sz      string `json:"sz"`
	Px      string `json:"px,omitempty"`
	ClOrdID string `json:"clOrdId"`
}

type okxEnvelope struct {
	Code string            `json:"code"`
	Msg  string             `json:"msg"`
	Data []map[string]any   `json:"data"`
}

func (c *OKXClient) PlacePostOnly(ctx context.Context, symbol string, side domain.Side, price, qty float64, clientID string) (domain.OrderAck, error) {
	payload := okxOrderPayload{
		InstID: symbol, TdMode: "cross", Side: string(side), OrdType: "post_only",
		Sz: strconv.FormatFloat(qty, 'f', -1, 64), Px: strconv.FormatFloat(price, 'f', -1, 64), ClOrdID: clientID,
	}
	return c.submit(ctx, "/api/v5/trade/order", payload, clientID)
}

func (c *OKXClient) PlaceMarket(ctx context.Context, symbol string, side domain.Side, qty float64, clientID string) (domain.FillReport, error) {
	payload := okxOrderPayload{
		InstID: symbol, TdMode: "cross", Side: string(side), OrdType: "market",
		Sz: strconv.FormatFloat(qty, 'f', -1, 64), ClOrdID: clientID,
	}
	ack, err := c.submit(ctx, "/api/v5/trade/order", payload, clientID)
	if err != nil {
		return domain.FillReport{}, err
	}
	return domain.FillReport{OrderID: ack.OrderID, ClientID: ack.ClientID, FilledQty: qty, Status: ack.Status}, nil
}

func (c *OKXClient) submit(ctx context.Context, path string, payload okxOrderPayload, clientID string) (domain.OrderAck, error) {
	body, err := json.Marshal([]okxOrderPayload{payload})
	if err != nil {
		return domain.OrderAck{}, domain.NewVenueError(domain.ErrInvalidArgument, "okx", "submit", "marshal order", err)
	}
	raw, _, err := c.sender.do(ctx, http.MethodPost, path, body, c.sign)
	if err != nil {
		return domain.OrderAck{}, err
	}
	var env okxEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.OrderAck{}, domain.NewVenueError(domain.ErrMessageMalformed, "okx", "submit", "decode response", err)
	}
	if env.Code != "0" {
		return domain.OrderAck{}, classifyOKXError(env.Code, env.Msg)
	}
	orderID := ""
	if len(env.Data) > 0 {
		if id, ok := env.Data[0]["ordId"].(string); ok {
			orderID = id
		}
	}
	return domain.OrderAck{OrderID: orderID, ClientID: clientID, Status: domain.OrderStatusNew}, nil
}

func (c *OKXClient) Amend(ctx context.Context, symbol, orderID string, newPrice float64) (domain.OrderAck, error) {
	payload := map[string]string{
		"instId": symbol, "ordId": orderID, "newPx": strconv.FormatFloat(newPrice, 'f', -1, 64),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.OrderAck{}, domain.NewVenueError(domain.ErrInvalidArgument, "okx", "amend", "marshal", err)
	}
	raw, _, err := c.sender.do(ctx, http.MethodPost, "/api/v5/trade/amend-order", body, c.sign)
	if err != nil {
		return domain.OrderAck{}, err
	}
	var env okxEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.OrderAck{}, domain.NewVenueError(domain.ErrMessageMalformed, "okx", "amend", "decode response", err)
	}
	if env.Code != "0" {
		return domain.OrderAck{}, classifyOKXError(env.Code, env.Msg)
	}
	return domain.OrderAck{OrderID: orderID, Status: domain.OrderStatusNew}, nil
}

func (c *OKXClient) Cancel(ctx context.Context, symbol, orderID string) error {
	payload := map[string]string{"instId": symbol, "ordId": orderID}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.NewVenueError(domain.ErrInvalidArgument, "okx", "cancel", "marshal", err)
	}
	raw, _, err := c.sender.do(ctx, http.MethodPost, "/api/v5/trade/cancel-order", body, c.sign)
	if err != nil {
		return err
	}
	var env okxEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.NewVenueError(domain.ErrMessageMalformed, "okx", "cancel", "decode response", err)
	}
	if env.Code != "0" {
		return classifyOKXError(env.Code, env.Msg)
	}
	return nil
}

// classifyOKXError maps OKX's numeric error codes onto the shared
// VenueErrorKind taxonomy of spec §4.1/§7.
func classifyOKXError(code, msg string) error {
	kind := domain.ErrUnknown
	switch code {
	case "51008":
		kind = domain.ErrMarginInsufficient
	case "51006", "51121":
		kind = domain.ErrPrecisionBelowMinimum
	case "51201":
		kind = domain.ErrNotionalBelowMinimum
	case "51400", "51401":
		kind = domain.ErrOrderAlreadyFilledCanceled
	case "51603":
		kind = domain.ErrOrderNotFound
	case "50011":
		kind = domain.ErrRateLimited
	case "50013":
		kind = domain.ErrServerOverloaded
	case "50004":
		kind = domain.ErrServiceUnavailable
	case "50100", "50101", "50102", "50103":
		kind = domain.ErrAuthFailed
	}
	return domain.NewVenueError(kind, "okx", "order", msg+" (code "+code+")", nil)
}
