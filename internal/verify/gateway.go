package verify

import (
	"context"
	"fmt"
	"time"

	"tickex/internal/domain"
	"tickex/pkg/errors"
	"tickex/pkg/logger"

	"github.com/shopspring/decimal"
)

// Registration binds a provider to its mandatory call timeout and its
// tier vocabulary. Adding a vendor is an append here, not a branch in
// calling code.
type Registration struct {
	Provider Provider
	Timeout  time.Duration
	// Vocab maps the vendor's tier vocabulary onto the canonical tiers.
	// Nil falls back to the canonical names themselves.
	Vocab map[string]domain.Tier
}

// Gateway tries providers strictly in order. A transport failure,
// vendor-reported decline, or timeout falls through to the next provider;
// every failure is kept for the result's audit trail.
type Gateway struct {
	chain  []Registration
	logger logger.Logger
}

func NewGateway(chain []Registration, log logger.Logger) (*Gateway, error) {
	if len(chain) == 0 {
		return nil, errors.Wrap(errors.ErrPolicyConfiguration, "verification gateway needs at least one provider")
	}
	for _, reg := range chain {
		if reg.Timeout <= 0 {
			return nil, errors.Wrapf(errors.ErrPolicyConfiguration,
				"provider %s must have a positive timeout", reg.Provider.Name())
		}
	}
	return &Gateway{chain: chain, logger: log}, nil
}

// Verify walks the fallback chain. On success it returns a normalized
// result that still carries earlier providers' failures for audit. On
// exhaustion it returns a result with Success=false and the aggregated
// error list; the only error return is caller cancellation.
func (g *Gateway) Verify(ctx context.Context, identity domain.IdentityRecord, amount decimal.Decimal) (*domain.VerificationResult, error) {
	var failures []string

	for _, reg := range g.chain {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := g.submitWithTimeout(ctx, reg, identity, amount)
		if err != nil {
			// Distinguish caller cancellation from a provider timeout:
			// only the former aborts the chain.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			verr := &errors.VerificationError{Provider: reg.Provider.Name(), Reason: err.Error()}
			failures = append(failures, verr.Error())
			g.logger.Warn("verification provider failed, falling through", map[string]interface{}{
				"provider": reg.Provider.Name(),
				"reason":   err.Error(),
			})
			continue
		}

		if !res.Approved {
			reason := res.Detail
			if reason == "" {
				reason = "verification declined"
			}
			verr := &errors.VerificationError{Provider: reg.Provider.Name(), Reason: reason}
			failures = append(failures, verr.Error())
			continue
		}

		tier, ok := normalizeTier(reg, res.Tier)
		if !ok {
			verr := &errors.VerificationError{
				Provider: reg.Provider.Name(),
				Reason:   fmt.Sprintf("unrecognized tier %q in provider response", res.Tier),
			}
			failures = append(failures, verr.Error())
			continue
		}

		g.logger.Info("identity verified", map[string]interface{}{
			"provider":        reg.Provider.Name(),
			"tier":            tier.String(),
			"verification_id": res.VerificationID,
			"prior_failures":  len(failures),
		})

		return &domain.VerificationResult{
			Success:           true,
			TierAchieved:      tier,
			VerificationID:    res.VerificationID,
			Provider:          reg.Provider.Name(),
			ProviderCompliant: reg.Provider.RegulatorCertified(),
			Errors:            failures,
		}, nil
	}

	g.logger.Error("verification providers exhausted", map[string]interface{}{
		"providers": len(g.chain),
		"failures":  failures,
	})

	// Errors stays a per-provider audit trail; exhaustion itself travels
	// as the orchestrator's sentinel, not as a list entry.
	return &domain.VerificationResult{
		Success:      false,
		TierAchieved: domain.TierNone,
		Errors:       failures,
	}, nil
}

func (g *Gateway) submitWithTimeout(ctx context.Context, reg Registration, identity domain.IdentityRecord, amount decimal.Decimal) (*ProviderResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, reg.Timeout)
	defer cancel()

	res, err := reg.Provider.Submit(callCtx, identity, amount)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, errors.ErrProviderTimeout
		}
		return nil, err
	}
	if res == nil {
		return nil, errors.ErrProviderUnavailable
	}
	return res, nil
}

func normalizeTier(reg Registration, raw string) (domain.Tier, bool) {
	if reg.Vocab != nil {
		if tier, ok := reg.Vocab[raw]; ok {
			return tier, true
		}
		return domain.TierNone, false
	}
	tier, err := domain.ParseTier(raw)
	if err != nil {
		return domain.TierNone, false
	}
	return tier, true
}
