package fees

import (
	"testing"

	"tickex/pkg/config"
	"tickex/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultFeeConfig() config.FeeConfig {
	return config.FeeConfig{
		MarketplaceBp:    300,
		DefaultRoyaltyBp: 250,
		PlatformBp:       100,
		GasEstimateBp:    50,

		MaxMarketplaceBp: 300,
		MaxRoyaltyBp:     1000,
		MaxPlatformBp:    200,
		MaxGasBp:         100,
		MaxTotalBp:       1300,

		MarketplaceAdvisoryBp: 200,
	}
}

func newSchedule(t *testing.T) *Schedule {
	t.Helper()
	s, err := NewSchedule(defaultFeeConfig())
	require.NoError(t, err)
	return s
}

func TestCalculateDefaults(t *testing.T) {
	s := newSchedule(t)

	b := s.Calculate(nil)

	assert.Equal(t, int64(300), b.MarketplaceFeeBp)
	assert.Equal(t, int64(250), b.RoyaltyFeeBp)
	assert.Equal(t, int64(100), b.PlatformFeeBp)
	assert.Equal(t, int64(50), b.GasEstimateBp)
	assert.Equal(t, int64(700), b.TotalFeeBp)
	assert.True(t, b.WithinLimits)
}

func TestCalculateSumInvariant(t *testing.T) {
	s := newSchedule(t)

	// The total must equal the exact component sum for every royalty input.
	for royalty := int64(-100); royalty <= 2000; royalty += 37 {
		r := royalty
		b := s.Calculate(&r)
		sum := b.MarketplaceFeeBp + b.RoyaltyFeeBp + b.PlatformFeeBp + b.GasEstimateBp
		assert.Equal(t, sum, b.TotalFeeBp, "royalty input %d", royalty)
	}
}

func TestCalculateClampsRoyalty(t *testing.T) {
	s := newSchedule(t)

	high := int64(1500)
	b := s.Calculate(&high)
	assert.Equal(t, int64(1000), b.RoyaltyFeeBp, "royalty above the cap is clamped, not passed through")

	negative := int64(-50)
	b = s.Calculate(&negative)
	assert.Equal(t, int64(0), b.RoyaltyFeeBp)

	exact := int64(1000)
	b = s.Calculate(&exact)
	assert.Equal(t, int64(1000), b.RoyaltyFeeBp)
}

func TestDiscloseAbsoluteAmounts(t *testing.T) {
	s := newSchedule(t)

	price := decimal.NewFromInt(100)
	b := s.Calculate(nil)
	d := s.Disclose(price, b)

	assert.Equal(t, "7.00", d.TotalFeeAmount.StringFixed(2))
	assert.Equal(t, "107.00", d.TotalPayable.StringFixed(2))
	assert.Equal(t, "3.00", d.MarketplaceAmount.StringFixed(2))
	assert.Equal(t, "2.50", d.RoyaltyAmount.StringFixed(2))
	assert.Equal(t, "1.00", d.PlatformAmount.StringFixed(2))
	assert.Equal(t, "0.50", d.GasAmount.StringFixed(2))

	assert.False(t, d.Accepted)
	assert.Nil(t, d.AcceptedAt)
	assert.Contains(t, d.Text, "Total payable: 107.00")
	assert.Contains(t, d.Text, "Organizer royalty (2.5%): 2.50")
}

func TestReviewCompliantBreakdown(t *testing.T) {
	s := newSchedule(t)

	r := s.Review(s.Calculate(nil))
	assert.True(t, r.Compliant)
	assert.Empty(t, r.Warnings)
	// Default marketplace fee of 3% sits above the 2% advisory line.
	require.Len(t, r.Recommendations, 1)
	assert.Contains(t, r.Recommendations[0], "competitiveness")
}

func TestReviewItemizedWarnings(t *testing.T) {
	s := newSchedule(t)

	b := s.Calculate(nil)
	b.MarketplaceFeeBp = 400
	b.PlatformFeeBp = 300
	b.TotalFeeBp = b.MarketplaceFeeBp + b.RoyaltyFeeBp + b.PlatformFeeBp + b.GasEstimateBp

	r := s.Review(b)
	assert.False(t, r.Compliant)
	// One warning per violated ceiling, not a single aggregate message.
	require.Len(t, r.Warnings, 2)
	assert.Contains(t, r.Warnings[0], "marketplace fee")
	assert.Contains(t, r.Warnings[1], "platform fee")
}

func TestReviewTotalCeilingIndependent(t *testing.T) {
	s := newSchedule(t)

	// Every component within its own ceiling, total above the combined one.
	b := s.Calculate(nil)
	b.RoyaltyFeeBp = 1000
	b.TotalFeeBp = b.MarketplaceFeeBp + b.RoyaltyFeeBp + b.PlatformFeeBp + b.GasEstimateBp
	require.Equal(t, int64(1450), b.TotalFeeBp)

	r := s.Review(b)
	assert.False(t, r.Compliant)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "combined fees")
}

func TestRecommendationsNeverAffectCompliance(t *testing.T) {
	cfg := defaultFeeConfig()
	cfg.MarketplaceAdvisoryBp = 100 // every breakdown triggers the advisory
	s, err := NewSchedule(cfg)
	require.NoError(t, err)

	r := s.Review(s.Calculate(nil))
	assert.True(t, r.Compliant)
	assert.NotEmpty(t, r.Recommendations)
}

func TestNewScheduleRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.FeeConfig)
	}{
		{"default above ceiling", func(c *config.FeeConfig) { c.MarketplaceBp = 400 }},
		{"negative default", func(c *config.FeeConfig) { c.PlatformBp = -1 }},
		{"zero ceiling", func(c *config.FeeConfig) { c.MaxGasBp = 0 }},
		{"zero total ceiling", func(c *config.FeeConfig) { c.MaxTotalBp = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultFeeConfig()
			tt.mutate(&cfg)
			_, err := NewSchedule(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrPolicyConfiguration))
		})
	}
}
