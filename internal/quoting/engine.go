package quoting

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/xvenue-mm/internal/book"
	"github.com/sawpanic/xvenue-mm/internal/domain"
	"github.com/sawpanic/xvenue-mm/internal/errorbudget"
	"github.com/sawpanic/xvenue-mm/internal/kvstore"
	"github.com/sawpanic/xvenue-mm/internal/venue"
)

// LoopInterval is the mandatory sleep floor of spec §4.4/§5: 25 ms.
const LoopInterval = 25 * time.Millisecond

// orderEntryPause is the sleep applied for the budgeted order-entry
// error kinds of spec §4.4 ("Order-entry error handling").
const orderEntryPause = 500 * time.Millisecond

// Engine runs one instrument's quoting loop: derive bands, select a side,
// compute a limit price, and drive the NO_LIVE_ORDER/LIVE_ORDER state
// machine — a first-applicable-rule-wins evaluator in the style of the
// teacher's internal/exits precedence-ordered logic, generalized from
// exit signals to order-management transitions.
type Engine struct {
	Base        string
	VenueSymbol string
	Client      venue.OrderEntryClient
	Books       *book.Book // quoting venue's book
	Ring        *kvstore.SpreadRing
	Params      *kvstore.ParamStore
	Budget      *errorbudget.Budget
	Log         zerolog.Logger

	adjustment float64
	live       *domain.LiveOrder
	inventory  domain.InventoryCounter
}

// Run executes the quoting loop until ctx is canceled or the kill switch
// trips, per spec §4.4 "Stop conditions".
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(LoopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.cancelLive(ctx)
			return ctx.Err()
		case <-ticker.C:
		}

		if e.Budget.KillSwitch() {
			e.cancelLive(ctx)
			return nil
		}

		if err := e.iterate(ctx); err != nil {
			e.Log.Error().Err(err).Str("base", e.Base).Msg("quoting iteration failed")
		}
	}
}

func (e *Engine) iterate(ctx context.Context) error {
	stop, err := e.Params.StopBot(ctx)
	if err != nil {
		return err
	}
	if stop {
		e.cancelLive(ctx)
		return nil
	}

	params, ok, err := e.Params.BotParams(ctx, e.Base)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	trend, _, err := e.Params.TrendData(ctx, e.Base)
	if err != nil {
		return err
	}
	frAdj, err := e.Params.FundingAdjustment(ctx, e.Base, time.Now())
	if err != nil {
		return err
	}
	overloadPause, err := e.Params.ServerOverloadPause(ctx)
	if err != nil {
		return err
	}

	snaps, err := e.Ring.Last(ctx, params.MAWindow)
	if err != nil {
		return err
	}
	nowMs := domain.NowMs()
	entryMA, exitMA := EntryExitMA(snaps, nowMs)

	bid, ask, fresh := e.Books.TopOfBook(nowMs)
	if !fresh {
		return nil
	}
	if e.adjustment == 0 && bid.Price > 0 {
		e.adjustment = bid.Price * 0.10
	}

	cap := params.MaxNotional
	bands := Bands(TrendInput{
		BuySpreadMA: trend.BuySpreadMA_M, SellSpreadMA: trend.SellSpreadMA_M,
		BuySpreadSD: trend.BuySpreadSD_L, SellSpreadSD: trend.SellSpreadSD_L,
		StdCoeff: params.StdCoeff, MinWidth: params.MinWidth,
	}, frAdj, params.MaxSkew, e.inventory.Position(), cap)

	side, trade := SelectSide(e.inventory.Position(), params.NotionalPerTrade, params.MaxNotional, bands, entryMA, exitMA)
	if !trade {
		e.cancelLive(ctx)
		return nil
	}

	decision := ComputeLimit(side, bid.Price, ask.Price, e.adjustment, entryMA, exitMA, bands, overloadPause)
	return e.applyStateMachine(ctx, decision, params.NotionalPerTrade)
}

// applyStateMachine implements spec §4.4's four transitions, in
// precedence order: each branch below is the first (and only)
// applicable rule for the current (in_range, live-order) pair.
func (e *Engine) applyStateMachine(ctx context.Context, d LimitDecision, qty float64) error {
	switch {
	case d.InRange && e.live == nil:
		ack, err := e.Client.PlacePostOnly(ctx, e.VenueSymbol, d.Side, d.Price, qty, domain.NewClientID())
		if err != nil {
			return e.handleOrderEntryError(ctx, err, d.Side, qty)
		}
		e.live = &domain.LiveOrder{ID: ack.OrderID, Side: d.Side, Price: d.Price, Qty: qty}
		return nil

	case d.InRange && e.live != nil:
		ack, err := e.Client.Amend(ctx, e.VenueSymbol, e.live.ID, d.Price)
		if err != nil {
			return e.handleOrderEntryError(ctx, err, d.Side, qty)
		}
		e.live.Price = d.Price
		e.live.Side = d.Side
		e.live.ID = ack.OrderID
		return nil

	case !d.InRange && e.live != nil:
		if err := e.Client.Cancel(ctx, e.VenueSymbol, e.live.ID); err != nil {
			return e.handleOrderEntryError(ctx, err, d.Side, qty)
		}
		e.live = nil
		return nil

	default: // !d.InRange && e.live == nil
		return nil
	}
}

// handleOrderEntryError dispatches on VenueErrorKind per spec §4.4
// "Order-entry error handling".
func (e *Engine) handleOrderEntryError(ctx context.Context, err error, side domain.Side, qty float64) error {
	ve, ok := domain.AsVenueError(err)
	if !ok {
		e.Log.Error().Err(err).Msg("unclassified order-entry error")
		return nil
	}

	switch ve.Kind {
	case domain.ErrOrderAlreadyFilledCanceled:
		if e.live != nil {
			if e.live.Side == domain.SideBuy {
				e.inventory.RecordFill(domain.SideBuy, qty)
			} else {
				e.inventory.RecordFill(domain.SideSell, qty)
			}
		}
		e.live = nil
		e.Log.Info().Str("base", e.Base).Msg("order terminal fill")
		return nil

	case domain.ErrInFlightModLimitExceeded, domain.ErrServerOverloaded, domain.ErrServiceUnavailable:
		time.Sleep(orderEntryPause)
		return nil

	case domain.ErrNotionalBelowMinimum:
		time.Sleep(orderEntryPause)
		return nil

	case domain.ErrOrderNotFound:
		e.live = nil
		return nil

	default:
		e.Log.Warn().Err(err).Str("base", e.Base).Interface("live", e.live).Msg("order-entry error")
		if ve.Disposition() == domain.DispositionBudgeted {
			e.Budget.RecordFailure()
		}
		return nil
	}
}

func (e *Engine) cancelLive(ctx context.Context) {
	if e.live == nil {
		return
	}
	if err := e.Client.Cancel(ctx, e.VenueSymbol, e.live.ID); err != nil {
		e.Log.Warn().Err(err).Msg("cancel on shutdown failed")
	}
	e.live = nil
}
