package hedge

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sawpanic/xvenue-mm/internal/config"
	"github.com/sawpanic/xvenue-mm/internal/domain"
	"github.com/sawpanic/xvenue-mm/internal/errorbudget"
	"github.com/sawpanic/xvenue-mm/internal/kvstore"
)

type stubClient struct {
	placeMarketCalls []domain.Side
	fail             error
}

func (s *stubClient) PlacePostOnly(ctx context.Context, symbol string, side domain.Side, price, qty float64, clientID string) (domain.OrderAck, error) {
	panic("not used in these tests")
}
func (s *stubClient) Amend(ctx context.Context, symbol, orderID string, newPrice float64) (domain.OrderAck, error) {
	panic("not used in these tests")
}
func (s *stubClient) Cancel(ctx context.Context, symbol, orderID string) error {
	panic("not used in these tests")
}
func (s *stubClient) PlaceMarket(ctx context.Context, symbol string, side domain.Side, qty float64, clientID string) (domain.FillReport, error) {
	s.placeMarketCalls = append(s.placeMarketCalls, side)
	if s.fail != nil {
		return domain.FillReport{}, s.fail
	}
	return domain.FillReport{OrderID: "1", ClientID: clientID, FilledQty: qty, Status: domain.OrderStatusFilled}, nil
}

func newTestExecutor(t *testing.T, client *stubClient) *Executor {
	t.Helper()
	cfg := &config.InstrumentsConfig{Instruments: []config.InstrumentEntry{
		{Base: "BTC", Venue: "okx", ContractMultiplier: 1, StepSize: 0.01},
		{Base: "BTC", Venue: "bybit", ContractMultiplier: 1, StepSize: 0.01},
	}}
	table := cfg.BuildTable()
	store := kvstore.NewMemory()
	return &Executor{
		Base: "BTC", QuotingVenue: "okx", HedgeVenue: "bybit", VenueSymbol: "BTCUSDT",
		Instruments: table, Client: client, Params: kvstore.NewParamStore(store),
		Budget: errorbudget.New(func() {}), Log: zerolog.Nop(),
	}
}

func TestHandleOrderEventIgnoresForeignStrategy(t *testing.T) {
	client := &stubClient{}
	ex := newTestExecutor(t, client)
	err := ex.HandleOrderEvent(context.Background(), domain.OrderEvent{
		ClientID: "SomeOtherBot123456", FillSize: 1, Side: domain.SideBuy, Status: domain.OrderStatusFilled,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.placeMarketCalls) != 0 {
		t.Fatalf("expected no hedge order for a foreign strategy's fill")
	}
}

func TestHandleOrderEventPlacesOppositeSideHedge(t *testing.T) {
	client := &stubClient{}
	ex := newTestExecutor(t, client)
	err := ex.HandleOrderEvent(context.Background(), domain.OrderEvent{
		ClientID: domain.NewClientID(), FillSize: 1, Side: domain.SideBuy, Status: domain.OrderStatusFilled,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.placeMarketCalls) != 1 || client.placeMarketCalls[0] != domain.SideSell {
		t.Fatalf("expected one sell-side hedge order, got %v", client.placeMarketCalls)
	}
	if ex.residual.Value() != 0 {
		t.Fatalf("expected residual settled to zero, got %v", ex.residual.Value())
	}
}

func TestHandleOrderEventSkipsCancelledStatus(t *testing.T) {
	client := &stubClient{}
	ex := newTestExecutor(t, client)
	err := ex.HandleOrderEvent(context.Background(), domain.OrderEvent{
		ClientID: domain.NewClientID(), FillSize: 1, Side: domain.SideBuy, Status: domain.OrderStatusCanceled,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.placeMarketCalls) != 0 {
		t.Fatalf("expected no hedge order for a cancelled event")
	}
}
