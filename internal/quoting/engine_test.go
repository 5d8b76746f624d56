package quoting

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sawpanic/xvenue-mm/internal/domain"
	"github.com/sawpanic/xvenue-mm/internal/errorbudget"
	"github.com/sawpanic/xvenue-mm/internal/venue"
)

// stubOrderClient is a no-op venue.OrderEntryClient; engine_test.go only
// exercises handleOrderEntryError directly, so none of these are called.
type stubOrderClient struct{}

func (stubOrderClient) PlacePostOnly(ctx context.Context, symbol string, side domain.Side, price, qty float64, clientID string) (domain.OrderAck, error) {
	return domain.OrderAck{}, nil
}
func (stubOrderClient) Amend(ctx context.Context, symbol, orderID string, newPrice float64) (domain.OrderAck, error) {
	return domain.OrderAck{}, nil
}
func (stubOrderClient) Cancel(ctx context.Context, symbol, orderID string) error { return nil }
func (stubOrderClient) PlaceMarket(ctx context.Context, symbol string, side domain.Side, qty float64, clientID string) (domain.FillReport, error) {
	return domain.FillReport{}, nil
}

var _ venue.OrderEntryClient = stubOrderClient{}

func TestHandleOrderEntryErrorTerminalFillClearsLiveOrder(t *testing.T) {
	e := &Engine{
		Base:   "BTC",
		Client: stubOrderClient{},
		Budget: errorbudget.New(nil),
		Log:    zerolog.Nop(),
		live:   &domain.LiveOrder{ID: "1", Side: domain.SideBuy, Price: 100, Qty: 1},
	}

	err := e.handleOrderEntryError(context.Background(), domain.NewVenueError(domain.ErrOrderAlreadyFilledCanceled, "okx", "amend", "", nil), domain.SideBuy, 1)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if e.live != nil {
		t.Fatalf("expected live order cleared on terminal fill")
	}
	if e.inventory.Position() != 1 {
		t.Fatalf("expected inventory position 1 after buy fill, got %v", e.inventory.Position())
	}
}

func TestHandleOrderEntryErrorOrderNotFoundClearsLiveOrder(t *testing.T) {
	e := &Engine{
		Base:   "BTC",
		Client: stubOrderClient{},
		Budget: errorbudget.New(nil),
		Log:    zerolog.Nop(),
		live:   &domain.LiveOrder{ID: "1", Side: domain.SideSell, Price: 100, Qty: 1},
	}

	err := e.handleOrderEntryError(context.Background(), domain.NewVenueError(domain.ErrOrderNotFound, "okx", "cancel", "", nil), domain.SideSell, 1)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if e.live != nil {
		t.Fatalf("expected live order cleared on order-not-found")
	}
}

// TestKillSwitchOnErrorStorm exercises the spec §8 Scenario-6 property:
// a storm of budgeted order-entry errors (here, auth failures, which
// have no dedicated case and fall to the default budgeted-disposition
// branch) trips the process-wide kill switch after errorbudget.TripThreshold
// occurrences within the sliding window.
func TestKillSwitchOnErrorStorm(t *testing.T) {
	budget := errorbudget.New(nil)
	e := &Engine{
		Base:   "BTC",
		Client: stubOrderClient{},
		Budget: budget,
		Log:    zerolog.Nop(),
	}

	authErr := domain.NewVenueError(domain.ErrAuthFailed, "okx", "place", "", nil)
	for i := 0; i < errorbudget.TripThreshold-1; i++ {
		if err := e.handleOrderEntryError(context.Background(), authErr, domain.SideBuy, 1); err != nil {
			t.Fatalf("handleOrderEntryError returned unexpected error: %v", err)
		}
	}
	if budget.KillSwitch() {
		t.Fatalf("kill switch should not trip before threshold errors")
	}

	if err := e.handleOrderEntryError(context.Background(), authErr, domain.SideBuy, 1); err != nil {
		t.Fatalf("handleOrderEntryError returned unexpected error: %v", err)
	}
	if !budget.KillSwitch() {
		t.Fatalf("expected kill switch tripped after %d budgeted errors", errorbudget.TripThreshold)
	}
}

func TestHandleOrderEntryErrorUnclassifiedIsSwallowed(t *testing.T) {
	e := &Engine{
		Base:   "BTC",
		Client: stubOrderClient{},
		Budget: errorbudget.New(nil),
		Log:    zerolog.Nop(),
	}
	if err := e.handleOrderEntryError(context.Background(), context.DeadlineExceeded, domain.SideBuy, 1); err != nil {
		t.Fatalf("unclassified errors must be logged and swallowed, got %v", err)
	}
}
