package fees

import (
	"fmt"
	"strings"
	"time"

	"tickex/internal/domain"

	"github.com/shopspring/decimal"
)

// Disclose derives the priced disclosure for a breakdown. Absolute
// amounts always come from the integer bp values so repeated disclosures
// of the same price never drift.
func (s *Schedule) Disclose(price decimal.Decimal, b domain.FeeBreakdown) domain.FeeDisclosure {
	d := domain.FeeDisclosure{
		Breakdown:         b,
		Price:             price,
		MarketplaceAmount: domain.ApplyTo(price, b.MarketplaceFeeBp),
		RoyaltyAmount:     domain.ApplyTo(price, b.RoyaltyFeeBp),
		PlatformAmount:    domain.ApplyTo(price, b.PlatformFeeBp),
		GasAmount:         domain.ApplyTo(price, b.GasEstimateBp),
		TotalFeeAmount:    domain.ApplyTo(price, b.TotalFeeBp),
		CreatedAt:         time.Now().UTC(),
	}
	d.TotalPayable = price.Add(d.TotalFeeAmount)
	d.Text = renderDisclosure(d)
	return d
}

func renderDisclosure(d domain.FeeDisclosure) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket price: %s\n", d.Price.StringFixed(2))
	fmt.Fprintf(&b, "Marketplace fee (%s): %s\n", formatBp(d.Breakdown.MarketplaceFeeBp), d.MarketplaceAmount.StringFixed(2))
	fmt.Fprintf(&b, "Organizer royalty (%s): %s\n", formatBp(d.Breakdown.RoyaltyFeeBp), d.RoyaltyAmount.StringFixed(2))
	fmt.Fprintf(&b, "Platform fee (%s): %s\n", formatBp(d.Breakdown.PlatformFeeBp), d.PlatformAmount.StringFixed(2))
	fmt.Fprintf(&b, "Estimated network cost (%s): %s\n", formatBp(d.Breakdown.GasEstimateBp), d.GasAmount.StringFixed(2))
	fmt.Fprintf(&b, "Total fees (%s): %s\n", formatBp(d.Breakdown.TotalFeeBp), d.TotalFeeAmount.StringFixed(2))
	fmt.Fprintf(&b, "Total payable: %s", d.TotalPayable.StringFixed(2))
	return b.String()
}
