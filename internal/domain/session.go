package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionState is the orchestrator's per-session state machine position.
type SessionState string

const (
	StateUnverified    SessionState = "unverified"
	StateTierAssessed  SessionState = "tier_assessed"
	StateVerifying     SessionState = "verifying"
	StateVerified      SessionState = "verified"
	StateFeesDisclosed SessionState = "fees_disclosed"
	StateReady         SessionState = "ready"
	StateBlocked       SessionState = "blocked"
)

// SessionSnapshot is the immutable view of a compliance session published
// to callers and observers. The UI consumes snapshots; it never holds the
// session itself.
type SessionSnapshot struct {
	SubjectID    uuid.UUID           `json:"subject_id"`
	State        SessionState        `json:"state"`
	CurrentTier  Tier                `json:"current_tier"`
	RequiredTier Tier                `json:"required_tier"`
	Amount       decimal.Decimal     `json:"amount"`
	LastResult   *VerificationResult `json:"last_result,omitempty"`
	Disclosure   *FeeDisclosure      `json:"disclosure,omitempty"`
	Warnings     []string            `json:"warnings,omitempty"`
	Errors       []string            `json:"errors,omitempty"`
	BlockReason  string              `json:"block_reason,omitempty"`
	UpdatedAt    time.Time           `json:"updated_at"`
}
