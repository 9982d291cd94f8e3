package config

import (
	"fmt"

	"tickex/pkg/errors"

	"github.com/shopspring/decimal"
)

// Validate checks the policy-bearing sections once at startup. A
// misconfigured threshold or ceiling is fatal; it must never surface as a
// per-request failure.
func (c *Config) Validate() error {
	if err := c.Policy.validate(); err != nil {
		return err
	}
	if err := c.Fees.validate(); err != nil {
		return err
	}
	if len(c.Providers) == 0 {
		return errors.Wrap(errors.ErrPolicyConfiguration, "at least one verification provider must be configured")
	}
	for _, p := range c.Providers {
		if p.Timeout <= 0 {
			return errors.Wrapf(errors.ErrPolicyConfiguration, "provider %s must have a positive timeout", p.Name)
		}
	}
	if c.Retention.Window <= 0 {
		return errors.Wrap(errors.ErrPolicyConfiguration, "retention window must be positive")
	}
	return nil
}

func (p PolicyConfig) validate() error {
	if p.BasicMax.LessThanOrEqual(decimal.Zero) {
		return errors.Wrap(errors.ErrPolicyConfiguration, "basic tier threshold must be positive")
	}
	if p.EnhancedMin.LessThanOrEqual(p.BasicMax) {
		return errors.Wrapf(errors.ErrPolicyConfiguration,
			"enhanced threshold (%s) must exceed basic threshold (%s)", p.EnhancedMin, p.BasicMax)
	}
	return nil
}

func (f FeeConfig) validate() error {
	components := []struct {
		name    string
		value   int64
		ceiling int64
	}{
		{"marketplace", f.MarketplaceBp, f.MaxMarketplaceBp},
		{"royalty", f.DefaultRoyaltyBp, f.MaxRoyaltyBp},
		{"platform", f.PlatformBp, f.MaxPlatformBp},
		{"gas", f.GasEstimateBp, f.MaxGasBp},
	}

	for _, comp := range components {
		if comp.value < 0 {
			return errors.Wrapf(errors.ErrPolicyConfiguration, "%s fee must not be negative", comp.name)
		}
		if comp.ceiling <= 0 {
			return errors.Wrapf(errors.ErrPolicyConfiguration, "%s fee ceiling must be positive", comp.name)
		}
		if comp.value > comp.ceiling {
			return errors.Wrap(errors.ErrPolicyConfiguration,
				fmt.Sprintf("%s fee default (%dbp) exceeds its ceiling (%dbp)", comp.name, comp.value, comp.ceiling))
		}
	}

	if f.MaxTotalBp <= 0 {
		return errors.Wrap(errors.ErrPolicyConfiguration, "total fee ceiling must be positive")
	}
	defaultTotal := f.MarketplaceBp + f.DefaultRoyaltyBp + f.PlatformBp + f.GasEstimateBp
	if defaultTotal > f.MaxTotalBp {
		return errors.Wrap(errors.ErrPolicyConfiguration,
			fmt.Sprintf("default fee total (%dbp) exceeds the combined ceiling (%dbp)", defaultTotal, f.MaxTotalBp))
	}
	return nil
}
