// Package bootstrap is the shared process-wiring layer every cmd/*
// binary uses: logging, configuration, the keyed store, the error
// budget/kill switch, telemetry, the health server, and the alert
// sink. Grounded on the teacher's cmd/cryptorun/main.go root-command
// setup, generalized from one monolithic CLI into the common prelude
// three separate binaries share.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/xvenue-mm/internal/alerts"
	"github.com/sawpanic/xvenue-mm/internal/config"
	"github.com/sawpanic/xvenue-mm/internal/errorbudget"
	"github.com/sawpanic/xvenue-mm/internal/httpapi"
	"github.com/sawpanic/xvenue-mm/internal/kvstore"
	"github.com/sawpanic/xvenue-mm/internal/logging"
	"github.com/sawpanic/xvenue-mm/internal/net/circuit"
	"github.com/sawpanic/xvenue-mm/internal/net/gbreaker"
	"github.com/sawpanic/xvenue-mm/internal/net/ratelimit"
	"github.com/sawpanic/xvenue-mm/internal/secrets"
	"github.com/sawpanic/xvenue-mm/internal/telemetry"
	"github.com/sawpanic/xvenue-mm/internal/venue"
	"github.com/sawpanic/xvenue-mm/internal/venueconfig"
)

// ExitConfigError and ExitUpstreamFailure are the process exit codes of
// spec §6 ("CLI surface"); a clean SIGINT shutdown exits 0.
const (
	ExitConfigError      = 2
	ExitUpstreamFailure  = 70
)

// Config gathers the flags common to all three binaries.
type Config struct {
	Component         string // "quote-engine" | "hedge" | "md-aggregator"
	InstrumentsPath   string
	ProvidersPath     string
	LogLevel          string
	HTTPPort          int
	AlertWebhookURL   string
}

// Runtime is the fully wired process-wide prelude. Each cmd/* main
// builds the component-specific pieces (Engine, Executor, Aggregator)
// on top of this.
type Runtime struct {
	Log         zerolog.Logger
	Instruments *config.Table
	Providers   *config.ProvidersConfig
	Store       kvstore.Store
	Params      *kvstore.ParamStore
	Budget      *errorbudget.Budget
	Metrics     *telemetry.Registry
	HTTP        *httpapi.Server
	Alerts      *alerts.Sink
	env         *secrets.EnvProvider
}

// New loads configuration, builds the keyed store, telemetry registry,
// error budget, and health server. It never starts network I/O.
func New(cfg Config) (*Runtime, error) {
	log := logging.Init(cfg.Component, cfg.LogLevel)

	instrumentsCfg, err := config.LoadInstrumentsConfig(cfg.InstrumentsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errConfigWrap, err)
	}
	providersCfg, err := config.LoadProvidersConfig(cfg.ProvidersPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errConfigWrap, err)
	}

	store := kvstore.NewAuto()
	metrics := telemetry.NewRegistry()
	sink := alerts.NewSink(cfg.AlertWebhookURL, log)

	budget := errorbudget.New(func() {
		metrics.SetKillSwitch(true)
		log.Error().Msg("error budget tripped: kill switch engaged")
		sink.Send(context.Background(), alerts.Payload{
			Event:     alerts.EventKillSwitchTripped,
			Timestamp: time.Now(),
		})
	})

	httpCfg := httpapi.DefaultConfig(cfg.HTTPPort)
	srv := httpapi.New(httpCfg, metrics, map[string]httpapi.HealthChecker{}, budget.KillSwitch, log)

	return &Runtime{
		Log:         log,
		Instruments: instrumentsCfg.BuildTable(),
		Providers:   providersCfg,
		Store:       store,
		Params:      kvstore.NewParamStore(store),
		Budget:      budget,
		Metrics:     metrics,
		HTTP:        srv,
		Alerts:      sink,
		env:         secrets.NewEnvProvider(""),
	}, nil
}

var errConfigWrap = fmt.Errorf("configuration error")

// IsConfigError reports whether err originated from Runtime setup or is
// one of the cmd/* binaries' own "configuration error: ..." errors, so
// main() can map it to exit code 2.
func IsConfigError(err error) bool {
	return err != nil && (err == errConfigWrap || unwrapIsConfig(err) ||
		strings.HasPrefix(err.Error(), errConfigWrap.Error()+":"))
}

func unwrapIsConfig(err error) bool {
	for err != nil {
		if err == errConfigWrap {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Credentials loads one venue's API credentials from the environment.
func (r *Runtime) Credentials(ctx context.Context, venueName string) (secrets.VenueCredentials, error) {
	return secrets.LoadVenueCredentials(ctx, r.env, venueName)
}

// OrderClient builds the order-entry REST client for venueName. Only
// okx and bybit implement OrderEntryClient in this engine (the
// canonical quoting/hedge pairing of spec §2); other venues are
// book-only market-data sources.
func (r *Runtime) OrderClient(ctx context.Context, venueName string, hedgePath bool) (venue.OrderEntryClient, error) {
	pc, ok := r.Providers.GetProvider(venueName)
	if !ok {
		return nil, fmt.Errorf("%w: no provider config for venue %q", errConfigWrap, venueName)
	}
	creds, err := r.Credentials(ctx, venueName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errConfigWrap, err)
	}

	limiter := ratelimit.NewLimiter(venueName, float64(pc.RPS), pc.Burst, r.Log)
	cbConfig := circuit.Config{
		FailureThreshold: pc.Circuit.FailureThreshold,
		SuccessThreshold: pc.Circuit.SuccessThreshold,
		Timeout:          pc.GetMaxBackoff(),
		RequestTimeout:   pc.GetRequestTimeout(),
	}

	// The quoting path uses the hand-rolled internal/net/circuit
	// breaker; the hedge path gets its own sony/gobreaker instance, per
	// spec §4.5's isolation requirement that a quoting-venue outage
	// never masks a hedge-venue outage sharing the same process. Each
	// constructor call below feeds its breaker argument inline so the
	// unexported breaker type never needs naming outside internal/venue.
	switch venueName {
	case "okx":
		if hedgePath {
			return venue.NewOKXClient(pc.BaseURL, limiter, venue.NewHedgeBreaker(gbreaker.New(venueName)), creds), nil
		}
		return venue.NewOKXClient(pc.BaseURL, limiter, venue.NewQuotingBreaker(circuit.NewBreaker(venueName, cbConfig, r.Log)), creds), nil
	case "bybit":
		if hedgePath {
			return venue.NewBybitClient(pc.BaseURL, limiter, venue.NewHedgeBreaker(gbreaker.New(venueName)), creds), nil
		}
		return venue.NewBybitClient(pc.BaseURL, limiter, venue.NewQuotingBreaker(circuit.NewBreaker(venueName, cbConfig, r.Log)), creds), nil
	default:
		return nil, fmt.Errorf("%w: venue %q has no order-entry client", errConfigWrap, venueName)
	}
}

// VenueEndpoints resolves venueName's compiled-in (env-overridable)
// connection endpoints, per spec §6.
func VenueEndpoints(venueName string) (venueconfig.Endpoints, error) {
	return venueconfig.Resolve(venueName)
}

// PrivateVenueEndpoint resolves venueName's authenticated order-channel
// WS endpoint, used by the Hedge Executor to subscribe to the quoting
// venue's private order stream.
func PrivateVenueEndpoint(venueName string) (string, error) {
	return venueconfig.ResolvePrivateWS(venueName)
}

// Shutdown tears down the health server.
func (r *Runtime) Shutdown(ctx context.Context) {
	if err := r.HTTP.Shutdown(ctx); err != nil {
		r.Log.Warn().Err(err).Msg("health server shutdown error")
	}
}

// ExitFor maps an error returned by a running component loop onto the
// process exit code of spec §6.
func ExitFor(err error) int {
	if err == nil || err == context.Canceled {
		return 0
	}
	if IsConfigError(err) {
		return ExitConfigError
	}
	return ExitUpstreamFailure
}

// Fatalf logs and exits with code, used for setup-time failures before
// the logger-driven main loop starts.
func Fatalf(log zerolog.Logger, code int, format string, args ...interface{}) {
	log.Error().Msg(fmt.Sprintf(format, args...))
	os.Exit(code)
}

// WithSignalCancel returns a child context canceled on SIGINT/SIGTERM,
// the clean-shutdown path of spec §6 ("0: clean shutdown (SIGINT/kill-switch)").
func WithSignalCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}
