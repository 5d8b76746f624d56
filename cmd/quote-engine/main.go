// Command quote-engine runs the Quoting Engine for one or more
// instruments against a quoting venue and a reference venue, per spec
// §6 ("quote-engine --instruments=... --venueA=... --venueB=...").
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
	"github.com/sawpanic/xvenue-mm/internal/quoting"
	"github.com/sawpanic/xvenue-mm/internal/spread"
	"github.com/sawpanic/xvenue-mm/internal/venue"
)

var (
	instrumentsFlag string
	venueA          string
	venueB          string
	instrumentsPath string
	providersPath   string
	logLevel        string
	httpPort        int
	alertWebhookURL string
)

var rootCmd = &cobra.Command{
	Use:   "quote-engine",
	Short: "Run the Quoting Engine for a set of instruments",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&instrumentsFlag, "instruments", "", "comma-separated bases, e.g. BTC,ETH")
	rootCmd.Flags().StringVar(&venueA, "venueA", "", "quoting venue")
	rootCmd.Flags().StringVar(&venueB, "venueB", "", "reference venue for spread computation")
	rootCmd.Flags().StringVar(&instrumentsPath, "instruments-config", "config/instruments.yaml", "path to the instrument mapping table")
	rootCmd.Flags().StringVar(&providersPath, "providers-config", "config/providers.yaml", "path to the provider operations config")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	rootCmd.Flags().IntVar(&httpPort, "http-port", 9102, "health/metrics server port")
	rootCmd.Flags().StringVar(&alertWebhookURL, "alert-webhook-url", "", "operator alert webhook URL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(bootstrap.ExitFor(err))
	}
}

func run(cmd *cobra.Command, args []string) error {
	if venueA == "" || venueB == "" || instrumentsFlag == "" {
		return fmt.Errorf("configuration error: --instruments, --venueA, and --venueB are required")
	}
	bases := strings.Split(instrumentsFlag, ",")

	rt, err := bootstrap.New(bootstrap.Config{
		Component:       "quote-engine",
		InstrumentsPath: instrumentsPath,
		ProvidersPath:   providersPath,
		LogLevel:        logLevel,
		HTTPPort:        httpPort,
		AlertWebhookURL: alertWebhookURL,
	})
	if err != nil {
		return err
	}

	ctx, cancel := bootstrap.WithSignalCancel(context.Background())
	defer cancel()

	go func() {
		if err := rt.HTTP.Start(); err != nil {
			rt.Log.Error().Err(err).Msg("health server failed")
		}
	}()
	defer rt.Shutdown(context.Background())

	client, err := rt.OrderClient(ctx, venueA, false)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	for _, base := range bases {
		base = strings.TrimSpace(base)
		if base == "" {
			continue
		}
		if err := startInstrument(ctx, rt, client, base); err != nil {
			return err
		}
	}

	go reportBudget(ctx, rt)

	<-ctx.Done()
	rt.Log.Info().Msg("shutting down")
	return nil
}

func reportBudget(ctx context.Context, rt *bootstrap.Runtime) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rt.Metrics.SetErrorBudget(rt.Budget.Count())
			rt.Metrics.SetKillSwitch(rt.Budget.KillSwitch())
		}
	}
}

func startInstrument(ctx context.Context, rt *bootstrap.Runtime, client venue.OrderEntryClient, base string) error {
	symbolA, ok := rt.Instruments.VenueSymbol(base, venueA)
	if !ok {
		return fmt.Errorf("configuration error: no instrument mapping for %s on %s", base, venueA)
	}
	symbolB, ok := rt.Instruments.VenueSymbol(base, venueB)
	if !ok {
		return fmt.Errorf("configuration error: no instrument mapping for %s on %s", base, venueB)
	}

	bookA := book.New(venueA, base)
	bookB := book.New(venueB, base)

	ringKey := domain.PairKey(venueA, string(domain.RoleQuoting), venueB, string(domain.RoleHedge), base)
	ring := kvstore.NewSpreadRing(rt.Store, ringKey)
	out := make(chan domain.SpreadSnapshot, 16)
	agg := spread.New(base, bookA, bookB, ring, out, rt.Log)
	go func() {
		for range out {
			rt.Metrics.ObserveSpread(base, false)
		}
	}()

	onBookA := func(ev domain.BookEvent) {
		bookA.Apply(ev)
		nowMs := domain.NowMs()
		rt.Metrics.ObserveBook(venueA, base, bookA.Levels(nowMs).Fresh)
		agg.OnBookUpdate(ctx, nowMs)
	}
	onBookB := func(ev domain.BookEvent) {
		bookB.Apply(ev)
		nowMs := domain.NowMs()
		rt.Metrics.ObserveBook(venueB, base, bookB.Levels(nowMs).Fresh)
		agg.OnBookUpdate(ctx, nowMs)
	}

	protoA, err := bootstrap.BookProtocol(venueA, symbolA, base, onBookA)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	protoB, err := bootstrap.BookProtocol(venueB, symbolB, base, onBookB)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	epA, err := bootstrap.VenueEndpoints(venueA)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	epB, err := bootstrap.VenueEndpoints(venueB)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	sessA := venue.NewSession(epA.WSURL, protoA, rt.Log)
	sessB := venue.NewSession(epB.WSURL, protoB, rt.Log)
	if err := sessA.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", venueA, err)
	}
	if err := sessB.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", venueB, err)
	}

	engine := &quoting.Engine{
		Base:        base,
		VenueSymbol: symbolA,
		Client:      client,
		Books:       bookA,
		Ring:        ring,
		Params:      rt.Params,
		Budget:      rt.Budget,
		Log:         rt.Log,
	}
	go func() {
		if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
			rt.Log.Error().Err(err).Str("base", base).Msg("quoting engine stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		time.Sleep(100 * time.Millisecond)
		_ = sessA.Close()
		_ = sessB.Close()
	}()
	return nil
}
