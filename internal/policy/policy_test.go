package policy

import (
	"testing"

	"tickex/internal/domain"
	"tickex/pkg/config"
	"tickex/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() config.PolicyConfig {
	return config.PolicyConfig{
		BasicMax:    decimal.NewFromInt(500),
		EnhancedMin: decimal.NewFromInt(3000),
	}
}

func TestRequiredTierThresholds(t *testing.T) {
	p, err := New(defaultConfig())
	require.NoError(t, err)

	tests := []struct {
		name   string
		amount string
		want   domain.Tier
	}{
		{"small purchase", "100", domain.TierBasic},
		{"zero amount", "0", domain.TierBasic},
		{"just under basic max", "499.99", domain.TierBasic},
		{"exactly at T1", "500", domain.TierAdvanced},
		{"mid range", "600", domain.TierAdvanced},
		{"just under T2", "2999.99", domain.TierAdvanced},
		{"exactly at T2", "3000", domain.TierEnhanced},
		{"large purchase", "3500", domain.TierEnhanced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := decimal.NewFromString(tt.amount)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.RequiredTier(amount))
		})
	}
}

func TestRequiredTierMonotonic(t *testing.T) {
	p, err := New(defaultConfig())
	require.NoError(t, err)

	// Sweep a dense range of amounts; the required tier must never step down.
	prev := domain.TierNone
	for cents := int64(0); cents <= 500000; cents += 777 {
		amount := decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
		tier := p.RequiredTier(amount)
		assert.GreaterOrEqual(t, tier, prev, "tier regressed at amount %s", amount)
		prev = tier
	}
}

func TestNewRejectsBadThresholds(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.PolicyConfig
	}{
		{"zero basic max", config.PolicyConfig{
			BasicMax:    decimal.Zero,
			EnhancedMin: decimal.NewFromInt(3000),
		}},
		{"negative basic max", config.PolicyConfig{
			BasicMax:    decimal.NewFromInt(-1),
			EnhancedMin: decimal.NewFromInt(3000),
		}},
		{"inverted thresholds", config.PolicyConfig{
			BasicMax:    decimal.NewFromInt(3000),
			EnhancedMin: decimal.NewFromInt(500),
		}},
		{"equal thresholds", config.PolicyConfig{
			BasicMax:    decimal.NewFromInt(500),
			EnhancedMin: decimal.NewFromInt(500),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrPolicyConfiguration))
		})
	}
}
