package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BpDenominator converts basis points to a fraction of one: 1bp = 1/10000.
const BpDenominator = 10000

// FeeBreakdown is a transparent fee structure in integer basis points.
// TotalFeeBp is always the exact sum of the four components; WithinLimits
// reflects the combined regulatory ceiling.
type FeeBreakdown struct {
	MarketplaceFeeBp int64 `json:"marketplace_fee_bp"`
	RoyaltyFeeBp     int64 `json:"royalty_fee_bp"`
	PlatformFeeBp    int64 `json:"platform_fee_bp"`
	GasEstimateBp    int64 `json:"gas_estimate_bp"`
	TotalFeeBp       int64 `json:"total_fee_bp"`
	WithinLimits     bool  `json:"within_limits"`
}

// ApplyTo derives the absolute fee amount for the given basis points from
// a price. Always computed from the integer bp value, never from a
// previously rounded display value.
func ApplyTo(price decimal.Decimal, bp int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(bp)).Div(decimal.NewFromInt(BpDenominator))
}

// FeeDisclosure is a priced rendering of a FeeBreakdown. A new disclosure
// is created for every priced transaction; a price change requires a fresh
// disclosure, never a mutation of an accepted one.
type FeeDisclosure struct {
	Breakdown FeeBreakdown `json:"breakdown"`

	Price             decimal.Decimal `json:"price"`
	MarketplaceAmount decimal.Decimal `json:"marketplace_amount"`
	RoyaltyAmount     decimal.Decimal `json:"royalty_amount"`
	PlatformAmount    decimal.Decimal `json:"platform_amount"`
	GasAmount         decimal.Decimal `json:"gas_amount"`
	TotalFeeAmount    decimal.Decimal `json:"total_fee_amount"`
	TotalPayable      decimal.Decimal `json:"total_payable"`

	Text       string     `json:"text"`
	Accepted   bool       `json:"accepted"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
