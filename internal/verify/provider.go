// Package verify orchestrates external identity verification providers
// with ordered fallback and normalizes their results.
package verify

import (
	"context"

	"tickex/internal/domain"

	"github.com/shopspring/decimal"
)

// Provider is one external identity verification vendor. Providers are
// tried strictly in order; fan-out is deliberately avoided so racing
// vendors cannot produce conflicting outcomes.
type Provider interface {
	Name() string
	// RegulatorCertified reports whether the vendor is certified for the
	// issuing jurisdiction's regulator. A static capability flag, not
	// derived from any call.
	RegulatorCertified() bool
	Submit(ctx context.Context, identity domain.IdentityRecord, amount decimal.Decimal) (*ProviderResult, error)
}

// ProviderResult is a vendor's raw outcome before normalization. Tier
// holds the vendor's own vocabulary; the gateway maps it into the
// canonical tier enumeration.
type ProviderResult struct {
	Approved       bool
	Tier           string
	VerificationID string
	Detail         string
}
