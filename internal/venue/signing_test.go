package venue

import (
	"testing"

	"github.com/sawpanic/xvenue-mm/internal/domain"
)

func TestOKXSignatureDeterministic(t *testing.T) {
	sig1 := OKXSignature("secret", "2026-01-01T00:00:00.000Z", "GET", "/api/v5/account/balance", "")
	sig2 := OKXSignature("secret", "2026-01-01T00:00:00.000Z", "GET", "/api/v5/account/balance", "")
	if sig1 != sig2 {
		t.Fatalf("signature not deterministic: %s vs %s", sig1, sig2)
	}
	sig3 := OKXSignature("other-secret", "2026-01-01T00:00:00.000Z", "GET", "/api/v5/account/balance", "")
	if sig1 == sig3 {
		t.Fatalf("signature did not change with secret")
	}
}

func TestBybitWSLoginSignatureDeterministic(t *testing.T) {
	sig1 := BybitWSLoginSignature("secret", 1700000000000)
	sig2 := BybitWSLoginSignature("secret", 1700000000000)
	if sig1 != sig2 {
		t.Fatalf("signature not deterministic: %s vs %s", sig1, sig2)
	}
	sig3 := BybitWSLoginSignature("secret", 1700000000001)
	if sig1 == sig3 {
		t.Fatalf("signature did not change with expiry")
	}
}

func TestClassifyOKXErrorMarginInsufficient(t *testing.T) {
	err := classifyOKXError("51008", "Order placement failed due to insufficient balance")
	ve, ok := domain.AsVenueError(err)
	if !ok {
		t.Fatalf("expected *domain.VenueError, got %T", err)
	}
	if ve.Disposition() != domain.DispositionFatal {
		t.Fatalf("expected fatal disposition, got %s", ve.Disposition())
	}
}
