package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettledTransaction is the engine's view of a completed on-chain sale,
// handed in by the settlement boundary.
type SettledTransaction struct {
	ReferenceID string          `json:"reference_id"`
	SubjectID   uuid.UUID       `json:"subject_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	EventRef    string          `json:"event_ref"`
	UnitCount   int             `json:"unit_count"`
	FeeTotalBp  int64           `json:"fee_total_bp"`
	Compliant   bool            `json:"compliant"`
	Disclosed   bool            `json:"disclosed"`
	SettledAt   time.Time       `json:"settled_at"`
}

// TransactionReport is the retained, immutable record of one settled
// transaction. Created exactly once per settlement reference and
// queryable by date range for the full retention window.
type TransactionReport struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	ReferenceID       string          `json:"reference_id" db:"reference_id"`
	SubjectID         uuid.UUID       `json:"subject_id" db:"subject_id"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	Currency          string          `json:"currency" db:"currency"`
	EventRef          string          `json:"event_ref" db:"event_ref"`
	UnitCount         int             `json:"unit_count" db:"unit_count"`
	TierAtTransaction Tier            `json:"tier_at_transaction" db:"tier_at_transaction"`
	FeeTotalBp        int64           `json:"fee_total_bp" db:"fee_total_bp"`
	Compliant         bool            `json:"compliant" db:"compliant"`
	Disclosed         bool            `json:"disclosed" db:"disclosed"`
	Timestamp         time.Time       `json:"timestamp" db:"recorded_at"`

	// PurgeEligible is derived at query time from the retention window;
	// it is never stored and reading never purges.
	PurgeEligible bool `json:"purge_eligible" db:"-"`
}

// AggregateStats is the monitor's dashboard view, recomputed from the
// underlying store on every call.
type AggregateStats struct {
	TotalTransactions int             `json:"total_transactions"`
	MeanFeePercent    decimal.Decimal `json:"mean_fee_percent"`
	ComplianceRate    decimal.Decimal `json:"compliance_rate"`
	DisclosureRate    decimal.Decimal `json:"disclosure_rate"`
	PurgeEligible     int             `json:"purge_eligible"`
}
