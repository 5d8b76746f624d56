package secrets

import (
	"context"
	"fmt"
	"strings"
)

// VenueCredentials holds the authentication material for one venue's
// signed requests, per spec §6 environment variables.
type VenueCredentials struct {
	APIKey     string
	SecretKey  string
	Passphrase string // OKX only
}

// LoadVenueCredentials reads `<VENUE>_API_KEY`, `<VENUE>_SECRET_KEY`,
// and for OKX additionally `OKX_PASSPHRASE`, from the environment
// provider.
func LoadVenueCredentials(ctx context.Context, env *EnvProvider, venue string) (VenueCredentials, error) {
	upper := strings.ToUpper(venue)

	apiKey, err := env.GetSecret(ctx, upper+"_API_KEY")
	if err != nil {
		return VenueCredentials{}, fmt.Errorf("%s: %w", venue, err)
	}
	secretKey, err := env.GetSecret(ctx, upper+"_SECRET_KEY")
	if err != nil {
		return VenueCredentials{}, fmt.Errorf("%s: %w", venue, err)
	}

	creds := VenueCredentials{
		APIKey:    apiKey.String(),
		SecretKey: secretKey.String(),
	}

	if upper == "OKX" {
		passphrase, err := env.GetSecret(ctx, "OKX_PASSPHRASE")
		if err != nil {
			return VenueCredentials{}, fmt.Errorf("okx: %w", err)
		}
		creds.Passphrase = passphrase.String()
	}

	return creds, nil
}
