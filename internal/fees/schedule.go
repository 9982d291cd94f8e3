// Package fees computes and reviews transparent fee breakdowns. All fee
// arithmetic is integer basis points; absolute currency amounts are only
// derived at the disclosure boundary.
package fees

import (
	"tickex/internal/domain"
	"tickex/pkg/config"
	"tickex/pkg/errors"
)

// Schedule is the validated fee schedule with its regulatory ceilings.
type Schedule struct {
	cfg config.FeeConfig
}

// NewSchedule validates defaults against ceilings once at construction.
func NewSchedule(cfg config.FeeConfig) (*Schedule, error) {
	checks := []struct {
		name    string
		value   int64
		ceiling int64
	}{
		{"marketplace", cfg.MarketplaceBp, cfg.MaxMarketplaceBp},
		{"royalty", cfg.DefaultRoyaltyBp, cfg.MaxRoyaltyBp},
		{"platform", cfg.PlatformBp, cfg.MaxPlatformBp},
		{"gas", cfg.GasEstimateBp, cfg.MaxGasBp},
	}
	for _, c := range checks {
		if c.value < 0 || c.ceiling <= 0 {
			return nil, errors.Wrapf(errors.ErrPolicyConfiguration, "%s fee schedule invalid", c.name)
		}
		if c.value > c.ceiling {
			return nil, errors.Wrapf(errors.ErrPolicyConfiguration,
				"%s fee default (%dbp) exceeds its ceiling (%dbp)", c.name, c.value, c.ceiling)
		}
	}
	if cfg.MaxTotalBp <= 0 {
		return nil, errors.Wrap(errors.ErrPolicyConfiguration, "total fee ceiling must be positive")
	}
	return &Schedule{cfg: cfg}, nil
}

// Calculate builds a fee breakdown. The marketplace fee is a constant
// ceiling, never negotiable upward; the requested royalty is clamped to
// MaxRoyaltyBp rather than passed through verbatim.
func (s *Schedule) Calculate(royaltyBp *int64) domain.FeeBreakdown {
	royalty := s.cfg.DefaultRoyaltyBp
	if royaltyBp != nil {
		royalty = *royaltyBp
		if royalty < 0 {
			royalty = 0
		}
		if royalty > s.cfg.MaxRoyaltyBp {
			royalty = s.cfg.MaxRoyaltyBp
		}
	}

	b := domain.FeeBreakdown{
		MarketplaceFeeBp: s.cfg.MarketplaceBp,
		RoyaltyFeeBp:     royalty,
		PlatformFeeBp:    s.cfg.PlatformBp,
		GasEstimateBp:    s.cfg.GasEstimateBp,
	}
	b.TotalFeeBp = b.MarketplaceFeeBp + b.RoyaltyFeeBp + b.PlatformFeeBp + b.GasEstimateBp
	b.WithinLimits = b.TotalFeeBp <= s.cfg.MaxTotalBp
	return b
}

// MaxTotalBp exposes the combined ceiling for reporting surfaces.
func (s *Schedule) MaxTotalBp() int64 {
	return s.cfg.MaxTotalBp
}
