package domain

import (
	"crypto/rand"
	"math/big"
)

// StrategyPrefix tags every client order ID this engine places, so the
// Hedge Executor can filter out events belonging to other strategies
// sharing the account (spec §4.5 "Input").
const StrategyPrefix = "XVenueMM"

const alphanumerics = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewClientID produces a client order id of the form
// "<strategy-prefix><10 random alphanumerics>", matching the original
// bot's generate_client_order_id convention (spec §4.4).
func NewClientID() string {
	return StrategyPrefix + randomAlphanumeric(10)
}

// HedgeClientID derives a hedge-venue client id from the quoting fill's
// client id, appending a 4-char disambiguation suffix for venues that
// reject duplicate client ids across the two accounts (spec §4.4).
func HedgeClientID(quotingClientID string) string {
	return quotingClientID + randomAlphanumeric(4)
}

func randomAlphanumeric(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphanumerics)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failure is unrecoverable; fall back to a fixed
			// character rather than panicking mid-order-placement.
			out[i] = alphanumerics[0]
			continue
		}
		out[i] = alphanumerics[idx.Int64()]
	}
	return string(out)
}

// HasStrategyPrefix reports whether a client id belongs to this engine,
// used by the Hedge Executor to ignore foreign-strategy events.
func HasStrategyPrefix(clientID string) bool {
	if len(clientID) < len(StrategyPrefix) {
		return false
	}
	return clientID[:len(StrategyPrefix)] == StrategyPrefix
}
