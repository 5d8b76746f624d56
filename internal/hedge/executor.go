package hedge

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/xvenue-mm/internal/config"
	"github.com/sawpanic/xvenue-mm/internal/domain"
	"github.com/sawpanic/xvenue-mm/internal/errorbudget"
	"github.com/sawpanic/xvenue-mm/internal/kvstore"
	"github.com/sawpanic/xvenue-mm/internal/venue"
)

// maxAttempts is the retry budget of spec §4.5 "Retry policy".
const maxAttempts = 3

// serverOverloadPauseTTL is the process-wide pause duration set on
// server_overloaded during a hedge attempt.
const serverOverloadPauseTTL = 30 * time.Second

// PositionSyncer triggers the reconciliation fetch of spec §6 after a
// hedge's retries are exhausted. Implemented by an external collaborator;
// the core only exposes the hook.
type PositionSyncer interface {
	Reconcile(ctx context.Context, base string) error
}

// Alerter pushes an operator alert, per spec §4.5 "Margin-insufficient
// policy".
type Alerter interface {
	Alert(ctx context.Context, message string) error
}

// Executor drives the Hedge Executor for one instrument pair.
type Executor struct {
	Base         string
	QuotingVenue string
	HedgeVenue   string
	VenueSymbol  string // hedge venue's native symbol
	Instruments  *config.Table
	Client       venue.OrderEntryClient
	Params       *kvstore.ParamStore
	Budget       *errorbudget.Budget
	Sync         PositionSyncer
	Alert        Alerter
	Log          zerolog.Logger

	residual Residual
}

// HandleOrderEvent processes one private OrderEvent from the quoting
// venue, per spec §4.5 "Input"/"Translation"/"Residual maintenance".
func (e *Executor) HandleOrderEvent(ctx context.Context, ev domain.OrderEvent) error {
	if !qualifies(ev) {
		return nil
	}

	hedgeSide := ev.Side.Opposite()
	multiplier := e.Instruments.ContractMultiplier(e.Base, e.QuotingVenue)
	amount := ev.FillSize * multiplier

	e.residual.Add(hedgeSide == domain.SideBuy, amount)

	step := e.Instruments.StepSize(e.Base, e.HedgeVenue)
	intended, sign, ok := e.residual.Intended(step)
	if !ok {
		return nil
	}

	side := domain.SideBuy
	if sign < 0 {
		side = domain.SideSell
	}
	return e.placeWithRetry(ctx, side, intended, domain.HedgeClientID(ev.ClientID))
}

func qualifies(ev domain.OrderEvent) bool {
	return ev.FillSize > 0 && ev.Status != domain.OrderStatusCanceled && domain.HasStrategyPrefix(ev.ClientID)
}

// placeWithRetry places the hedge market order in up to maxAttempts
// attempts, waiting backoff(attempt) between them: 1s, then 2s, doubling.
func (e *Executor) placeWithRetry(ctx context.Context, side domain.Side, qty float64, clientID string) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		report, err := e.Client.PlaceMarket(ctx, e.VenueSymbol, side, qty, clientID)
		if err == nil {
			e.residual.Settle(qty)
			e.Log.Info().Str("base", e.Base).Str("side", string(side)).Float64("qty", qty).
				Str("order_id", report.OrderID).Msg("hedge placed")
			return nil
		}
		lastErr = err

		ve, ok := domain.AsVenueError(err)
		if ok {
			switch ve.Kind {
			case domain.ErrServerOverloaded:
				if setErr := e.Params.SetServerOverloadPause(ctx, serverOverloadPauseTTL); setErr != nil {
					e.Log.Error().Err(setErr).Msg("failed to set server overload pause")
				}
			case domain.ErrMarginInsufficient:
				if setErr := e.Params.SetOnlyExit(ctx, false); setErr != nil {
					e.Log.Error().Err(setErr).Msg("failed to set only_exit")
				}
				if e.Alert != nil {
					_ = e.Alert.Alert(ctx, "hedge margin insufficient on "+e.HedgeVenue+" for "+e.Base)
				}
				return err // fatal disposition: stop retrying, residual stays accumulated
			}
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}
	}

	e.Budget.RecordFailure()
	if e.Sync != nil {
		if err := e.Sync.Reconcile(ctx, e.Base); err != nil {
			e.Log.Error().Err(err).Msg("position reconciliation fetch failed")
		}
	}
	return lastErr
}

func backoff(attempt int) time.Duration {
	d := time.Second
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}
