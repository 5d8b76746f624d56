package hedge

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/xvenue-mm/internal/domain"
	"github.com/sawpanic/xvenue-mm/internal/venue"
)

// ActivationPingInterval is the minimum keep-alive cadence of spec §4.5
// ("every >= 15s").
const ActivationPingInterval = 15 * time.Second

// activationPingPrice is intentionally far from any plausible market, so
// the order cannot trade before it is canceled.
const activationPingPrice = 0.01

// ActivationPinger keeps a hedge-venue connection warm by placing and
// immediately canceling an extremely low-priced limit order on a stable
// pair, per spec §4.5 "Activation ping (optional)". It uses its own
// client-id namespace so it is never interleaved with real hedge orders.
type ActivationPinger struct {
	Client      venue.OrderEntryClient
	VenueSymbol string
	Qty         float64
	Log         zerolog.Logger
}

// Run pings on ActivationPingInterval until ctx is canceled.
func (p *ActivationPinger) Run(ctx context.Context) {
	ticker := time.NewTicker(ActivationPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ping(ctx)
		}
	}
}

func (p *ActivationPinger) ping(ctx context.Context) {
	clientID := "ping" + domain.NewClientID()
	ack, err := p.Client.PlacePostOnly(ctx, p.VenueSymbol, domain.SideBuy, activationPingPrice, p.Qty, clientID)
	if err != nil {
		p.Log.Debug().Err(err).Msg("activation ping place failed")
		return
	}
	if err := p.Client.Cancel(ctx, p.VenueSymbol, ack.OrderID); err != nil {
		p.Log.Debug().Err(err).Msg("activation ping cancel failed")
	}
}
