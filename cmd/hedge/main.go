// Command hedge runs the Hedge Executor: it listens to the quoting
// venue's private order stream and places opposite-side hedge orders on
// the hedge venue, per spec §6 ("hedge --quoting=... --hedging=...
// --instruments=...").
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sawpanic/xvenue-mm/internal/bootstrap"
	"github.com/sawpanic/xvenue-mm/internal/domain"
	"github.com/sawpanic/xvenue-mm/internal/hedge"
	"github.com/sawpanic/xvenue-mm/internal/secrets"
	"github.com/sawpanic/xvenue-mm/internal/venue"
)

var (
	quotingVenue    string
	hedgingVenue    string
	instrumentsFlag string
	instrumentsPath string
	providersPath   string
	logLevel        string
	httpPort        int
	alertWebhookURL string
	activationPing  bool
)

var rootCmd = &cobra.Command{
	Use:   "hedge",
	Short: "Run the Hedge Executor for a set of instruments",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&quotingVenue, "quoting", "", "quoting venue, source of private order events")
	rootCmd.Flags().StringVar(&hedgingVenue, "hedging", "", "hedge venue, destination of hedge orders")
	rootCmd.Flags().StringVar(&instrumentsFlag, "instruments", "", "comma-separated bases, e.g. BTC,ETH")
	rootCmd.Flags().StringVar(&instrumentsPath, "instruments-config", "config/instruments.yaml", "path to the instrument mapping table")
	rootCmd.Flags().StringVar(&providersPath, "providers-config", "config/providers.yaml", "path to the provider operations config")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	rootCmd.Flags().IntVar(&httpPort, "http-port", 9103, "health/metrics server port")
	rootCmd.Flags().StringVar(&alertWebhookURL, "alert-webhook-url", "", "operator alert webhook URL")
	rootCmd.Flags().BoolVar(&activationPing, "activation-ping", false, "keep the hedge-venue connection warm with a periodic ping order (spec §4.5, optional)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(bootstrap.ExitFor(err))
	}
}

func run(cmd *cobra.Command, args []string) error {
	if quotingVenue == "" || hedgingVenue == "" || instrumentsFlag == "" {
		return fmt.Errorf("configuration error: --quoting, --hedging, and --instruments are required")
	}
	bases := strings.Split(instrumentsFlag, ",")

	rt, err := bootstrap.New(bootstrap.Config{
		Component:       "hedge",
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

	client, err := rt.OrderClient(ctx, hedgingVenue, true)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	creds, err := rt.Credentials(ctx, quotingVenue)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	for _, base := range bases {
		base = strings.TrimSpace(base)
		if base == "" {
			continue
		}
		if err := startInstrument(ctx, rt, client, creds, base); err != nil {
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

func startInstrument(ctx context.Context, rt *bootstrap.Runtime, client venue.OrderEntryClient, creds secrets.VenueCredentials, base string) error {
	hedgeSymbol, ok := rt.Instruments.VenueSymbol(base, hedgingVenue)
	if !ok {
		return fmt.Errorf("configuration error: no instrument mapping for %s on %s", base, hedgingVenue)
	}
	quotingSymbol, ok := rt.Instruments.VenueSymbol(base, quotingVenue)
	if !ok {
		return fmt.Errorf("configuration error: no instrument mapping for %s on %s", base, quotingVenue)
	}

	executor := &hedge.Executor{
		Base:         base,
		QuotingVenue: quotingVenue,
		HedgeVenue:   hedgingVenue,
		VenueSymbol:  hedgeSymbol,
		Instruments:  rt.Instruments,
		Client:       client,
		Params:       rt.Params,
		Budget:       rt.Budget,
		Sync:         nil, // reconciliation fetch is an external collaborator's job, per spec §6
		Alert:        rt.Alerts,
		Log:          rt.Log,
	}

	onOrder := func(ev domain.OrderEvent) {
		if err := executor.HandleOrderEvent(ctx, ev); err != nil {
			rt.Log.Error().Err(err).Str("base", base).Msg("hedge order handling failed")
		}
	}

	proto, err := bootstrap.OrdersProtocol(quotingVenue, quotingSymbol, base, creds, onOrder)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	privateWSURL, err := bootstrap.PrivateVenueEndpoint(quotingVenue)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	sess := venue.NewSession(privateWSURL, proto, rt.Log)
	if err := sess.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s private channel: %w", quotingVenue, err)
	}

	if activationPing {
		pinger := &hedge.ActivationPinger{
			Client:      client,
			VenueSymbol: hedgeSymbol,
			Qty:         rt.Instruments.StepSize(base, hedgingVenue),
			Log:         rt.Log,
		}
		go pinger.Run(ctx)
	}

	go func() {
		<-ctx.Done()
		time.Sleep(100 * time.Millisecond)
		_ = sess.Close()
	}()
	return nil
}
