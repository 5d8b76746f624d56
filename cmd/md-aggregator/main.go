// Command md-aggregator runs the market-data pipeline alone: one
// Order-Book Assembler pair and Spread Aggregator per configured
// instrument pair, per spec §6 ("md-aggregator --pairs=...").
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sawpanic/xvenue-mm/internal/bootstrap"
	"github.com/sawpanic/xvenue-mm/internal/book"
	"github.com/sawpanic/xvenue-mm/internal/domain"
	"github.com/sawpanic/xvenue-mm/internal/kvstore"
	"github.com/sawpanic/xvenue-mm/internal/spread"
	"github.com/sawpanic/xvenue-mm/internal/venue"
)

var (
	pairsFlag       string
	instrumentsPath string
	providersPath   string
	logLevel        string
	httpPort        int
	alertWebhookURL string
)

var rootCmd = &cobra.Command{
	Use:   "md-aggregator",
	Short: "Run the cross-venue market-data pipeline standalone",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&pairsFlag, "pairs", "", "comma-separated venueA:symbolA~venueB:symbolB pairs")
	rootCmd.Flags().StringVar(&instrumentsPath, "instruments-config", "config/instruments.yaml", "path to the instrument mapping table")
	rootCmd.Flags().StringVar(&providersPath, "providers-config", "config/providers.yaml", "path to the provider operations config")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	rootCmd.Flags().IntVar(&httpPort, "http-port", 9101, "health/metrics server port")
	rootCmd.Flags().StringVar(&alertWebhookURL, "alert-webhook-url", "", "operator alert webhook URL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(bootstrap.ExitFor(err))
	}
}

type pairSpec struct {
	venueA, symbolA string
	venueB, symbolB string
	base            string
}

func parsePairs(spec string, rt *bootstrap.Runtime) ([]pairSpec, error) {
	var out []pairSpec
	for _, raw := range strings.Split(spec, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		sides := strings.Split(raw, "~")
		if len(sides) != 2 {
			return nil, fmt.Errorf("malformed pair %q, expected venueA:symbolA~venueB:symbolB", raw)
		}
		a := strings.SplitN(sides[0], ":", 2)
		b := strings.SplitN(sides[1], ":", 2)
		if len(a) != 2 || len(b) != 2 {
			return nil, fmt.Errorf("malformed pair %q, expected venueA:symbolA~venueB:symbolB", raw)
		}
		base, ok := rt.Instruments.BaseForSymbol(a[0], a[1])
		if !ok {
			return nil, fmt.Errorf("no instrument mapping for %s:%s", a[0], a[1])
		}
		out = append(out, pairSpec{venueA: a[0], symbolA: a[1], venueB: b[0], symbolB: b[1], base: base})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("--pairs must name at least one pair")
	}
	return out, nil
}

func run(cmd *cobra.Command, args []string) error {
	rt, err := bootstrap.New(bootstrap.Config{
		Component:       "md-aggregator",
		InstrumentsPath: instrumentsPath,
		ProvidersPath:   providersPath,
		LogLevel:        logLevel,
		HTTPPort:        httpPort,
		AlertWebhookURL: alertWebhookURL,
	})
	if err != nil {
		return err
	}

	pairs, err := parsePairs(pairsFlag, rt)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, cancel := bootstrap.WithSignalCancel(context.Background())
	defer cancel()

	go func() {
		if err := rt.HTTP.Start(); err != nil {
			rt.Log.Error().Err(err).Msg("health server failed")
		}
	}()
	defer rt.Shutdown(context.Background())

	for _, p := range pairs {
		if err := startPair(ctx, rt, p); err != nil {
			return err
		}
	}

	<-ctx.Done()
	rt.Log.Info().Msg("shutting down")
	return nil
}

func startPair(ctx context.Context, rt *bootstrap.Runtime, p pairSpec) error {
	bookA := book.New(p.venueA, p.base)
	bookB := book.New(p.venueB, p.base)

	ringKey := domain.PairKey(p.venueA, string(domain.RoleQuoting), p.venueB, string(domain.RoleHedge), p.base)
	ring := kvstore.NewSpreadRing(rt.Store, ringKey)
	out := make(chan domain.SpreadSnapshot, 16)
	agg := spread.New(p.base, bookA, bookB, ring, out, rt.Log)

	go func() {
		for range out {
			bidA, askA, _ := bookA.TopOfBook(domain.NowMs())
			bidB, askB, _ := bookB.TopOfBook(domain.NowMs())
			crossed := bidA.Price >= askA.Price || bidB.Price >= askB.Price
			rt.Metrics.ObserveSpread(p.base, crossed)
		}
	}()

	onBookA := func(ev domain.BookEvent) {
		bookA.Apply(ev)
		nowMs := domain.NowMs()
		rt.Metrics.ObserveBook(p.venueA, p.base, bookA.Levels(nowMs).Fresh)
		agg.OnBookUpdate(ctx, nowMs)
	}
	onBookB := func(ev domain.BookEvent) {
		bookB.Apply(ev)
		nowMs := domain.NowMs()
		rt.Metrics.ObserveBook(p.venueB, p.base, bookB.Levels(nowMs).Fresh)
		agg.OnBookUpdate(ctx, nowMs)
	}

	protoA, err := bootstrap.BookProtocol(p.venueA, p.symbolA, p.base, onBookA)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	protoB, err := bootstrap.BookProtocol(p.venueB, p.symbolB, p.base, onBookB)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	epA, err := bootstrap.VenueEndpoints(p.venueA)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	epB, err := bootstrap.VenueEndpoints(p.venueB)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	sessA := venue.NewSession(epA.WSURL, protoA, rt.Log)
	sessB := venue.NewSession(epB.WSURL, protoB, rt.Log)
	if err := sessA.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", p.venueA, err)
	}
	if err := sessB.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", p.venueB, err)
	}

	go func() {
		<-ctx.Done()
		time.Sleep(100 * time.Millisecond)
		_ = sessA.Close()
		_ = sessB.Close()
	}()
	return nil
}
