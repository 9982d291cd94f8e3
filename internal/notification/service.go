// Package notification delivers compliance alerts to the ops channel.
package notification

import (
	"fmt"
	"time"

	"tickex/pkg/config"
	"tickex/pkg/errors"
	"tickex/pkg/logger"
	"tickex/pkg/mailer"

	"github.com/google/uuid"
)

// EventType identifies what triggered an alert.
type EventType string

const (
	EventSessionBlocked       EventType = "SESSION_BLOCKED"
	EventVerificationFailed   EventType = "VERIFICATION_FAILED"
	EventComplianceViolation  EventType = "COMPLIANCE_VIOLATION"
	EventRetentionPurge       EventType = "RETENTION_PURGE"
	EventNonCompliantProvider EventType = "NON_COMPLIANT_PROVIDER"
)

// Alert is one outbound compliance notification.
type Alert struct {
	ID        uuid.UUID
	SubjectID uuid.UUID
	Type      EventType
	Subject   string
	Body      string
	CreatedAt time.Time
}

// Sender delivers a rendered alert. The SMTP mailer implements it; tests
// substitute a recorder.
type Sender interface {
	Send(to, subject, body string) error
}

// Service renders and dispatches compliance alerts. Delivery failures are
// logged and swallowed: an unreachable mail relay must never block a
// compliance decision.
type Service struct {
	logger    logger.Logger
	sender    Sender
	recipient string
}

// NewService builds an alert service. When cfg.Enabled is false the
// returned service logs alerts without attempting delivery.
func NewService(log logger.Logger, cfg config.AlertConfig) *Service {
	svc := &Service{logger: log, recipient: cfg.Recipient}
	if cfg.Enabled {
		svc.sender = mailer.New(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
			UseTLS:   cfg.UseTLS,
		})
	}
	return svc
}

// SessionBlocked satisfies the orchestrator's notifier contract. The
// block reason selects the event type so ops can route verification
// failures and fee violations to different channels.
func (s *Service) SessionBlocked(subjectID uuid.UUID, reason string) {
	event := EventSessionBlocked
	switch reason {
	case errors.ErrVerificationExhausted.Error():
		event = EventVerificationFailed
	case errors.ErrComplianceViolation.Error():
		event = EventComplianceViolation
	}

	s.dispatch(Alert{
		ID:        uuid.New(),
		SubjectID: subjectID,
		Type:      event,
		Subject:   "Compliance session blocked",
		Body:      fmt.Sprintf("Session for subject %s was blocked: %s.", subjectID, reason),
		CreatedAt: time.Now().UTC(),
	})
}

// NonCompliantProvider reports a verification that succeeded through a
// provider without regulator certification.
func (s *Service) NonCompliantProvider(subjectID uuid.UUID, provider string) {
	s.dispatch(Alert{
		ID:        uuid.New(),
		SubjectID: subjectID,
		Type:      EventNonCompliantProvider,
		Subject:   "Non-certified verification provider used",
		Body:      fmt.Sprintf("Subject %s was verified by provider %q, which is not regulator-certified.", subjectID, provider),
		CreatedAt: time.Now().UTC(),
	})
}

// PurgeCompleted reports a retention sweep.
func (s *Service) PurgeCompleted(removed int64) {
	s.dispatch(Alert{
		ID:        uuid.New(),
		Type:      EventRetentionPurge,
		Subject:   "Retention purge completed",
		Body:      fmt.Sprintf("Retention sweep removed %d transaction reports past the retention window.", removed),
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Service) dispatch(a Alert) {
	s.logger.Info("compliance alert", map[string]interface{}{
		"alert_id":   a.ID,
		"subject_id": a.SubjectID,
		"type":       a.Type,
		"subject":    a.Subject,
	})

	if s.sender == nil || s.recipient == "" {
		return
	}
	subject := fmt.Sprintf("[%s] %s", a.Type, a.Subject)
	if err := s.sender.Send(s.recipient, subject, a.Body); err != nil {
		s.logger.Error("alert delivery failed", map[string]interface{}{
			"alert_id": a.ID,
			"error":    err.Error(),
		})
	}
}
