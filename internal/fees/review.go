package fees

import (
	"fmt"

	"tickex/internal/domain"
)

// Review is the anti-concentration verdict for one fee breakdown.
// Warnings are itemized, one per violated ceiling, so callers can present
// per-component remediation. Recommendations are advisory only and never
// affect Compliant.
type Review struct {
	Compliant       bool     `json:"compliant"`
	Warnings        []string `json:"warnings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Review checks each component against its individual ceiling and the
// total against the combined ceiling.
func (s *Schedule) Review(b domain.FeeBreakdown) Review {
	var r Review
	r.Compliant = true

	checks := []struct {
		name    string
		value   int64
		ceiling int64
	}{
		{"marketplace fee", b.MarketplaceFeeBp, s.cfg.MaxMarketplaceBp},
		{"royalty fee", b.RoyaltyFeeBp, s.cfg.MaxRoyaltyBp},
		{"platform fee", b.PlatformFeeBp, s.cfg.MaxPlatformBp},
		{"gas estimate", b.GasEstimateBp, s.cfg.MaxGasBp},
	}
	for _, c := range checks {
		if c.value > c.ceiling {
			r.Compliant = false
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"%s of %s exceeds the regulatory ceiling of %s",
				c.name, formatBp(c.value), formatBp(c.ceiling)))
		}
	}

	if b.TotalFeeBp > s.cfg.MaxTotalBp {
		r.Compliant = false
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"combined fees of %s exceed the total ceiling of %s",
			formatBp(b.TotalFeeBp), formatBp(s.cfg.MaxTotalBp)))
	}

	if b.MarketplaceFeeBp > s.cfg.MarketplaceAdvisoryBp {
		r.Recommendations = append(r.Recommendations, fmt.Sprintf(
			"marketplace fee above %s reduces competitiveness with comparable venues",
			formatBp(s.cfg.MarketplaceAdvisoryBp)))
	}

	return r
}

// formatBp renders basis points as a human-readable percentage. Display
// formatting only; all comparisons stay in integer bp.
func formatBp(bp int64) string {
	whole := bp / 100
	frac := bp % 100
	if frac == 0 {
		return fmt.Sprintf("%d%%", whole)
	}
	if frac%10 == 0 {
		return fmt.Sprintf("%d.%d%%", whole, frac/10)
	}
	return fmt.Sprintf("%d.%02d%%", whole, frac)
}
