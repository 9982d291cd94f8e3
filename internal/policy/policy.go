// Package policy maps transaction amounts to required verification tiers.
package policy

import (
	"tickex/internal/domain"
	"tickex/pkg/config"
	"tickex/pkg/errors"

	"github.com/shopspring/decimal"
)

// Policy holds the two escalation thresholds, USD-normalized. It is pure:
// no I/O, no side effects.
type Policy struct {
	basicMax    decimal.Decimal
	enhancedMin decimal.Decimal
}

// New validates the thresholds once at construction. A threshold
// inversion is a configuration fault, never a per-request error.
func New(cfg config.PolicyConfig) (*Policy, error) {
	if cfg.BasicMax.LessThanOrEqual(decimal.Zero) {
		return nil, errors.Wrap(errors.ErrPolicyConfiguration, "basic tier threshold must be positive")
	}
	if cfg.EnhancedMin.LessThanOrEqual(cfg.BasicMax) {
		return nil, errors.Wrap(errors.ErrPolicyConfiguration, "enhanced threshold must exceed basic threshold")
	}
	return &Policy{
		basicMax:    cfg.BasicMax,
		enhancedMin: cfg.EnhancedMin,
	}, nil
}

// RequiredTier returns the verification tier a transaction of the given
// amount requires. Monotonic: a1 <= a2 implies RequiredTier(a1) <=
// RequiredTier(a2).
func (p *Policy) RequiredTier(amount decimal.Decimal) domain.Tier {
	switch {
	case amount.GreaterThanOrEqual(p.enhancedMin):
		return domain.TierEnhanced
	case amount.GreaterThanOrEqual(p.basicMax):
		return domain.TierAdvanced
	default:
		return domain.TierBasic
	}
}
