// Package venueconfig holds the compiled-in per-venue connection
// endpoints of spec §6 ("Connection endpoints are compiled-in per
// venue (overridable by env)"), grounded on the teacher's
// infrastructure/datafacade/config endpoint table (one WSURL/BaseURL
// pair per exchange).
package venueconfig

import (
	"fmt"
	"os"
	"strings"
)

// Endpoints is one venue's default WebSocket and REST endpoints.
type Endpoints struct {
	WSURL   string
	RESTURL string
}

var defaults = map[string]Endpoints{
	"kraken":   {WSURL: "wss://ws.kraken.com", RESTURL: "https://api.kraken.com"},
	"binance":  {WSURL: "wss://stream.binance.com:9443/ws", RESTURL: "https://api.binance.com"},
	"coinbase": {WSURL: "wss://advanced-trade-ws.coinbase.com", RESTURL: "https://api.coinbase.com"},
	"okx":      {WSURL: "wss://ws.okx.com:8443/ws/v5/public", RESTURL: "https://www.okx.com"},
	"bybit":    {WSURL: "wss://stream.bybit.com/v5/public/linear", RESTURL: "https://api.bybit.com"},
}

// privateWS holds the authenticated-channel
// endpoints used by the order-event Protocol implementations; OKX and
// Bybit split public and private channels onto different WS hosts.
var privateWS = map[string]string{
	"okx":   "wss://ws.okx.com:8443/ws/v5/private",
	"bybit": "wss://stream.bybit.com/v5/private",
}

// Resolve returns venue's endpoints, applying `<VENUE>_WS_URL` /
// `<VENUE>_REST_URL` environment overrides when set.
func Resolve(venue string) (Endpoints, error) {
	ep, ok := defaults[venue]
	if !ok {
		return Endpoints{}, fmt.Errorf("venueconfig: unknown venue %q", venue)
	}
	upper := strings.ToUpper(venue)
	if v := os.Getenv(upper + "_WS_URL"); v != "" {
		ep.WSURL = v
	}
	if v := os.Getenv(upper + "_REST_URL"); v != "" {
		ep.RESTURL = v
	}
	return ep, nil
}

// ResolvePrivateWS returns the authenticated order-channel WS endpoint
// for venues that expose one (okx, bybit), with the same env override
// convention under `<VENUE>_PRIVATE_WS_URL`.
func ResolvePrivateWS(venue string) (string, error) {
	url, ok := privateWS[venue]
	if !ok {
		return "", fmt.Errorf("venueconfig: no private channel for venue %q", venue)
	}
	if v := os.Getenv(strings.ToUpper(venue) + "_PRIVATE_WS_URL"); v != "" {
		url = v
	}
	return url, nil
}
