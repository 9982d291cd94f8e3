// Package compliance coordinates tier policy, identity verification,
// fee disclosure, and transaction reporting for one user session at a
// time.
package compliance

import (
	"context"

	"tickex/internal/domain"
	"tickex/internal/fees"
	"tickex/internal/policy"
	"tickex/pkg/errors"
	"tickex/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Verifier is the identity verification gateway boundary.
type Verifier interface {
	Verify(ctx context.Context, identity domain.IdentityRecord, amount decimal.Decimal) (*domain.VerificationResult, error)
}

// Recorder is the transaction monitor boundary used at settlement.
type Recorder interface {
	Record(ctx context.Context, tx domain.SettledTransaction, tier domain.Tier) (*domain.TransactionReport, error)
}

// Notifier receives operator alerts. The service dispatches every alert
// on its own goroutine, so a slow sink never stalls a state transition.
type Notifier interface {
	SessionBlocked(subjectID uuid.UUID, reason string)
	NonCompliantProvider(subjectID uuid.UUID, provider string)
}

type Service struct {
	policy   *policy.Policy
	schedule *fees.Schedule
	verifier Verifier
	recorder Recorder
	notifier Notifier
	sessions *sessionStore
	logger   logger.Logger
}

func NewService(p *policy.Policy, s *fees.Schedule, v Verifier, r Recorder, n Notifier, log logger.Logger) *Service {
	return &Service{
		policy:   p,
		schedule: s,
		verifier: v,
		recorder: r,
		notifier: n,
		sessions: newSessionStore(),
		logger:   log,
	}
}

// Evaluate assesses the required tier for a prospective amount. If the
// session's tier already covers it, verification is skipped entirely.
// Changing the amount discards any existing disclosure; acceptance never
// carries over to a different priced transaction.
func (s *Service) Evaluate(_ context.Context, subjectID uuid.UUID, amount decimal.Decimal) (domain.SessionSnapshot, error) {
	sess := s.sessions.getOrCreate(subjectID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state == domain.StateBlocked {
		return sess.snapshotLocked(), errors.ErrSessionBlocked
	}
	if sess.state == domain.StateVerifying {
		return sess.snapshotLocked(), errors.ErrInvalidTransition
	}

	required := s.policy.RequiredTier(amount)
	sess.amount = amount
	sess.requiredTier = required
	sess.disclosure = nil
	sess.warnings = nil
	sess.errs = nil

	if sess.currentTier.Covers(required) {
		sess.state = domain.StateVerified
	} else {
		sess.state = domain.StateTierAssessed
	}
	sess.touchLocked()
	sess.publishLocked()

	s.logger.Info("compliance evaluated", map[string]interface{}{
		"subject_id":    subjectID,
		"amount":        amount.String(),
		"required_tier": required.String(),
		"current_tier":  sess.currentTier.String(),
		"state":         sess.state,
	})
	return sess.snapshotLocked(), nil
}

// Verify runs the gateway's fallback chain to elevate the session's
// tier. The session lock is not held across the network call; a
// cancelled call leaves the session in verifying so a retry is safe.
func (s *Service) Verify(ctx context.Context, subjectID uuid.UUID, identity domain.IdentityRecord) (domain.SessionSnapshot, error) {
	sess, ok := s.sessions.get(subjectID)
	if !ok {
		return domain.SessionSnapshot{}, errors.ErrSessionNotFound
	}

	sess.mu.Lock()
	if sess.state != domain.StateTierAssessed && sess.state != domain.StateVerifying {
		snap := sess.snapshotLocked()
		state := sess.state
		sess.mu.Unlock()
		if state == domain.StateBlocked {
			return snap, errors.ErrSessionBlocked
		}
		return snap, errors.ErrInvalidTransition
	}
	sess.state = domain.StateVerifying
	sess.touchLocked()
	sess.publishLocked()
	amount := sess.amount
	sess.mu.Unlock()

	result, err := s.verifier.Verify(ctx, identity, amount)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err != nil {
		// Caller cancellation: stay in verifying so the retry is idempotent.
		return sess.snapshotLocked(), err
	}

	sess.lastResult = result

	if !result.Success {
		sess.state = domain.StateBlocked
		sess.blockReason = errors.ErrVerificationExhausted.Error()
		sess.errs = append(sess.errs, result.Errors...)
		sess.touchLocked()
		sess.publishLocked()
		s.notifyBlocked(subjectID, sess.blockReason)
		return sess.snapshotLocked(), errors.ErrVerificationExhausted
	}

	if !result.ProviderCompliant {
		s.notifyNonCompliantProvider(subjectID, result.Provider)
	}

	// Tiers only ratchet upward within a session.
	if result.TierAchieved > sess.currentTier {
		sess.currentTier = result.TierAchieved
	}

	if sess.currentTier.Covers(sess.requiredTier) {
		sess.state = domain.StateVerified
	} else {
		sess.state = domain.StateTierAssessed
		sess.warnings = append(sess.warnings,
			"verification succeeded at "+sess.currentTier.String()+
				" but the transaction requires "+sess.requiredTier.String())
	}
	sess.touchLocked()
	sess.publishLocked()
	return sess.snapshotLocked(), nil
}

// Disclose computes and reviews the fee structure for a priced
// transaction. A non-compliant breakdown blocks the session; there is no
// override path past a regulatory ceiling.
func (s *Service) Disclose(_ context.Context, subjectID uuid.UUID, price decimal.Decimal, royaltyBp *int64) (domain.SessionSnapshot, error) {
	sess, ok := s.sessions.get(subjectID)
	if !ok {
		return domain.SessionSnapshot{}, errors.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch sess.state {
	case domain.StateVerified, domain.StateFeesDisclosed:
		// fees_disclosed allows re-disclosure on a price change; the
		// previous disclosure is discarded, never mutated.
	case domain.StateBlocked:
		return sess.snapshotLocked(), errors.ErrSessionBlocked
	case domain.StateUnverified, domain.StateTierAssessed, domain.StateVerifying:
		return sess.snapshotLocked(), errors.ErrVerificationRequired
	default:
		return sess.snapshotLocked(), errors.ErrInvalidTransition
	}

	breakdown := s.schedule.Calculate(royaltyBp)
	review := s.schedule.Review(breakdown)

	if !review.Compliant {
		sess.state = domain.StateBlocked
		sess.blockReason = errors.ErrComplianceViolation.Error()
		sess.warnings = append(sess.warnings, review.Warnings...)
		sess.touchLocked()
		sess.publishLocked()
		s.notifyBlocked(subjectID, sess.blockReason)
		return sess.snapshotLocked(), &errors.ComplianceViolationError{Warnings: review.Warnings}
	}

	disclosure := s.schedule.Disclose(price, breakdown)
	sess.disclosure = &disclosure
	sess.warnings = append(sess.warnings, review.Recommendations...)
	sess.state = domain.StateFeesDisclosed
	sess.touchLocked()
	sess.publishLocked()

	s.logger.Info("fees disclosed", map[string]interface{}{
		"subject_id":   subjectID,
		"price":        price.String(),
		"total_fee_bp": breakdown.TotalFeeBp,
	})
	return sess.snapshotLocked(), nil
}

// AcceptDisclosure records the user's explicit decision. The orchestrator
// never auto-accepts; declining keeps the session at fees_disclosed.
func (s *Service) AcceptDisclosure(_ context.Context, subjectID uuid.UUID, accepted bool) (domain.SessionSnapshot, error) {
	sess, ok := s.sessions.get(subjectID)
	if !ok {
		return domain.SessionSnapshot{}, errors.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != domain.StateFeesDisclosed {
		if sess.state == domain.StateBlocked {
			return sess.snapshotLocked(), errors.ErrSessionBlocked
		}
		return sess.snapshotLocked(), errors.ErrInvalidTransition
	}
	if sess.disclosure == nil {
		return sess.snapshotLocked(), errors.ErrDisclosureMissing
	}

	if !accepted {
		sess.touchLocked()
		sess.publishLocked()
		return sess.snapshotLocked(), nil
	}

	// Acceptance produces a new disclosure value; the unaccepted one is
	// replaced, not mutated in place.
	sess.touchLocked()
	now := sess.updatedAt
	acceptedCopy := *sess.disclosure
	acceptedCopy.Accepted = true
	acceptedCopy.AcceptedAt = &now
	sess.disclosure = &acceptedCopy
	sess.state = domain.StateReady
	sess.publishLocked()
	return sess.snapshotLocked(), nil
}

// Settle records one settled transaction. Readiness is not consumed, but
// every settlement re-validates that the session's tier still covers the
// settled amount's required tier.
func (s *Service) Settle(ctx context.Context, subjectID uuid.UUID, tx domain.SettledTransaction) (*domain.TransactionReport, error) {
	sess, ok := s.sessions.get(subjectID)
	if !ok {
		return nil, errors.ErrSessionNotFound
	}

	sess.mu.Lock()
	if sess.state != domain.StateReady {
		state := sess.state
		sess.mu.Unlock()
		if state == domain.StateBlocked {
			return nil, errors.ErrSessionBlocked
		}
		return nil, errors.ErrInvalidTransition
	}
	if sess.disclosure == nil || !sess.disclosure.Accepted {
		sess.mu.Unlock()
		return nil, errors.ErrDisclosureNotAccepted
	}

	required := s.policy.RequiredTier(tx.Amount)
	if !sess.currentTier.Covers(required) {
		currentTier := sess.currentTier
		sess.mu.Unlock()
		return nil, errors.Wrapf(errors.ErrInsufficientTier,
			"amount %s requires %s, session holds %s", tx.Amount, required, currentTier)
	}

	tier := sess.currentTier
	tx.SubjectID = subjectID
	tx.FeeTotalBp = sess.disclosure.Breakdown.TotalFeeBp
	tx.Compliant = sess.disclosure.Breakdown.WithinLimits
	tx.Disclosed = sess.disclosure.Accepted
	sess.mu.Unlock()

	report, err := s.recorder.Record(ctx, tx, tier)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	sess.touchLocked()
	sess.publishLocked()
	sess.mu.Unlock()
	return report, nil
}

// Reset returns the session to unverified, discarding tier, disclosure,
// and acceptance. Recorded transaction reports are immutable history and
// are never touched.
func (s *Service) Reset(_ context.Context, subjectID uuid.UUID) (domain.SessionSnapshot, error) {
	sess, ok := s.sessions.get(subjectID)
	if !ok {
		return domain.SessionSnapshot{}, errors.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.state = domain.StateUnverified
	sess.currentTier = domain.TierNone
	sess.requiredTier = domain.TierNone
	sess.amount = decimal.Zero
	sess.lastResult = nil
	sess.disclosure = nil
	sess.warnings = nil
	sess.errs = nil
	sess.blockReason = ""
	sess.touchLocked()
	sess.publishLocked()

	s.logger.Info("compliance session reset", map[string]interface{}{
		"subject_id": subjectID,
	})
	return sess.snapshotLocked(), nil
}

// Snapshot returns the current published view of a session.
func (s *Service) Snapshot(subjectID uuid.UUID) (domain.SessionSnapshot, error) {
	sess, ok := s.sessions.get(subjectID)
	if !ok {
		return domain.SessionSnapshot{}, errors.ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked(), nil
}

// Watch subscribes to a session's snapshot stream. The returned cancel
// function must be called when the observer goes away.
func (s *Service) Watch(subjectID uuid.UUID) (<-chan domain.SessionSnapshot, func()) {
	sess := s.sessions.getOrCreate(subjectID)
	ch := sess.subscribe()
	return ch, func() { sess.unsubscribe(ch) }
}

// Alert dispatch is fire and forget. These helpers are called with the
// session mutex held, so the actual delivery must happen off-thread.
func (s *Service) notifyBlocked(subjectID uuid.UUID, reason string) {
	if s.notifier == nil {
		return
	}
	go s.notifier.SessionBlocked(subjectID, reason)
}

func (s *Service) notifyNonCompliantProvider(subjectID uuid.UUID, provider string) {
	if s.notifier == nil {
		return
	}
	go s.notifier.NonCompliantProvider(subjectID, provider)
}
