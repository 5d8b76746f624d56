package bootstrap

import (
	"fmt"

	"github.com/sawpanic/xvenue-mm/internal/domain"
	"github.com/sawpanic/xvenue-mm/internal/secrets"
	"github.com/sawpanic/xvenue-mm/internal/venue"
)

// BookProtocol builds the public book-channel Protocol for venueName.
func BookProtocol(venueName, venueSymbol, base string, onBook func(domain.BookEvent)) (venue.Protocol, error) {
	switch venueName {
	case "kraken":
		return &venue.KrakenProtocol{VenueSymbol: venueSymbol, Base: base, OnBook: onBook}, nil
	case "binance":
		return &venue.BinanceProtocol{VenueSymbol: venueSymbol, Base: base, OnBook: onBook}, nil
	case "coinbase":
		return &venue.CoinbaseProtocol{VenueSymbol: venueSymbol, Base: base, OnBook: onBook}, nil
	case "okx":
		return &venue.OKXProtocol{VenueSymbol: venueSymbol, Base: base, OnBook: onBook}, nil
	default:
		return nil, fmt.Errorf("%w: venue %q has no public book protocol", errConfigWrap, venueName)
	}
}

// OrdersProtocol builds the authenticated private-order-channel
// Protocol for venueName, the Hedge Executor's OrderEvent source.
func OrdersProtocol(venueName, venueSymbol, base string, creds secrets.VenueCredentials, onOrder func(domain.OrderEvent)) (venue.Protocol, error) {
	switch venueName {
	case "okx":
		return &venue.OKXOrdersProtocol{VenueSymbol: venueSymbol, Base: base, Creds: creds, OnOrder: onOrder}, nil
	case "bybit":
		return &venue.BybitOrdersProtocol{VenueSymbol: venueSymbol, Base: base, Creds: creds, OnOrder: onOrder}, nil
	default:
		return nil, fmt.Errorf("%w: venue %q has no private order channel", errConfigWrap, venueName)
	}
}
