// Package static implements an in-process verification provider with
// deterministic outcomes. Used in development mode and tests.
package static

import (
	"context"

	"tickex/internal/domain"
	"tickex/internal/verify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Provider struct {
	name      string
	certified bool
}

func New(name string, certified bool) *Provider {
	return &Provider{name: name, certified: certified}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) RegulatorCertified() bool { return p.certified }

// Submit approves every applicant at the tier the amount calls for, using
// the canonical tier names. A missing document number is declined so dev
// flows can exercise the failure path.
func (p *Provider) Submit(_ context.Context, identity domain.IdentityRecord, amount decimal.Decimal) (*verify.ProviderResult, error) {
	if identity.DocumentNumber == "" {
		return &verify.ProviderResult{Approved: false, Detail: "document number missing"}, nil
	}

	tier := domain.TierBasic
	if amount.GreaterThanOrEqual(decimal.NewFromInt(3000)) {
		tier = domain.TierEnhanced
	} else if amount.GreaterThanOrEqual(decimal.NewFromInt(500)) {
		tier = domain.TierAdvanced
	}

	return &verify.ProviderResult{
		Approved:       true,
		Tier:           tier.String(),
		VerificationID: uuid.NewString(),
	}, nil
}
