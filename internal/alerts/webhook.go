// Package alerts implements the single operator-facing alert channel of
// spec §7: a generic webhook sink, deliberately not the Telegram binding
// original_source/monitor.py used (see SPEC_FULL.md §6.1). Structuring
// of the JSON payload follows the teacher's preference for a flat,
// explicit struct over a map[string]any (see internal/interfaces/http's
// response types).
package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Event is one of the four alert triggers named in spec §7
// "User-visible behavior".
type Event string

const (
	EventKillSwitchTripped  Event = "kill_switch_tripped"
	EventMarginInsufficient Event = "margin_insufficient"
	EventVenueDisconnected  Event = "venue_disconnected"
	EventPositionReconcile  Event = "position_reconciliation"
)

// Payload is the webhook body: instrument, venue, residual, and the
// most recent error text, per spec §7.
type Payload struct {
	Event     Event     `json:"event"`
	Base      string    `json:"base"`
	Venue     string    `json:"venue"`
	Residual  float64   `json:"residual"`
	LastError string    `json:"last_error"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink posts alert payloads to a single configured webhook URL.
type Sink struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

// NewSink builds a Sink posting to url with a bounded per-request timeout.
func NewSink(url string, log zerolog.Logger) *Sink {
	return &Sink{url: url, client: &http.Client{Timeout: 5 * time.Second}, log: log}
}

// Send posts one alert. Delivery failures are logged, never returned to
// the caller — an alerting outage must not stop the trading loop that
// triggered the alert.
func (s *Sink) Send(ctx context.Context, p Payload) {
	if s.url == "" {
		s.log.Warn().Str("event", string(p.Event)).Msg("alert sink has no webhook url configured, dropping")
		return
	}
	body, err := json.Marshal(p)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal alert payload")
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		s.log.Error().Err(err).Msg("build alert request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error().Err(err).Str("event", string(p.Event)).Msg("alert webhook delivery failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.log.Error().Int("status", resp.StatusCode).Str("event", string(p.Event)).Msg("alert webhook returned non-2xx")
	}
}

// Alert implements hedge.Alerter with a best-effort free-text message,
// classified as EventMarginInsufficient — the only Alerter use site
// per spec §4.5.
func (s *Sink) Alert(ctx context.Context, message string) error {
	s.Send(ctx, Payload{
		Event:     EventMarginInsufficient,
		LastError: message,
		Timestamp: time.Now(),
	})
	return nil
}

func (e Event) String() string { return string(e) }
