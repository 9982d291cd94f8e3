// Package monitor records settled transactions and serves the reporting
// surface required by tax and financial-intelligence authorities.
package monitor

import (
	"context"
	"time"

	"tickex/internal/domain"
	"tickex/pkg/errors"
	"tickex/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository is the retention store boundary. The monitor never assumes
// a specific storage technology; it only needs append, reference lookup,
// range query, and bulk delete. Append must reject a duplicate reference
// id with errors.ErrDuplicateSettlement without mutating stored state.
type Repository interface {
	Append(ctx context.Context, report *domain.TransactionReport) error
	FindByReference(ctx context.Context, referenceID string) (*domain.TransactionReport, error)
	Between(ctx context.Context, from, to time.Time) ([]*domain.TransactionReport, error)
	All(ctx context.Context) ([]*domain.TransactionReport, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

type Service struct {
	repo      Repository
	retention time.Duration
	logger    logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, retention time.Duration, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		retention: retention,
		logger:    log,
		now:       time.Now,
	}
}

// Record appends exactly one report per settlement reference. The store
// enforces uniqueness, so concurrent duplicate settlement attempts cannot
// both succeed.
func (s *Service) Record(ctx context.Context, tx domain.SettledTransaction, tier domain.Tier) (*domain.TransactionReport, error) {
	ts := tx.SettledAt
	if ts.IsZero() {
		ts = s.now().UTC()
	}

	report := &domain.TransactionReport{
		ID:                uuid.New(),
		ReferenceID:       tx.ReferenceID,
		SubjectID:         tx.SubjectID,
		Amount:            tx.Amount,
		Currency:          tx.Currency,
		EventRef:          tx.EventRef,
		UnitCount:         tx.UnitCount,
		TierAtTransaction: tier,
		FeeTotalBp:        tx.FeeTotalBp,
		Compliant:         tx.Compliant,
		Disclosed:         tx.Disclosed,
		Timestamp:         ts,
	}

	if err := s.repo.Append(ctx, report); err != nil {
		if errors.Is(err, errors.ErrDuplicateSettlement) {
			s.logger.Warn("duplicate settlement rejected", map[string]interface{}{
				"reference_id": tx.ReferenceID,
			})
		}
		return nil, err
	}

	s.logger.Info("transaction report recorded", map[string]interface{}{
		"reference_id": report.ReferenceID,
		"subject_id":   report.SubjectID,
		"amount":       report.Amount.String(),
		"compliant":    report.Compliant,
	})
	return report, nil
}

// Dashboard computes aggregate statistics fresh from the store. There are
// no cached counters that could drift from the underlying reports.
func (s *Service) Dashboard(ctx context.Context) (*domain.AggregateStats, error) {
	reports, err := s.repo.All(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading reports for dashboard")
	}

	stats := &domain.AggregateStats{
		TotalTransactions: len(reports),
		MeanFeePercent:    decimal.Zero,
		ComplianceRate:    decimal.Zero,
		DisclosureRate:    decimal.Zero,
	}
	if len(reports) == 0 {
		return stats, nil
	}

	cutoff := s.now().UTC().Add(-s.retention)
	var feeBpSum int64
	var compliant, disclosed int
	for _, r := range reports {
		feeBpSum += r.FeeTotalBp
		if r.Compliant {
			compliant++
		}
		if r.Disclosed {
			disclosed++
		}
		if r.Timestamp.Before(cutoff) {
			stats.PurgeEligible++
		}
	}

	total := decimal.NewFromInt(int64(len(reports)))
	stats.MeanFeePercent = decimal.NewFromInt(feeBpSum).
		Div(total).
		Div(decimal.NewFromInt(100))
	stats.ComplianceRate = decimal.NewFromInt(int64(compliant)).Div(total)
	stats.DisclosureRate = decimal.NewFromInt(int64(disclosed)).Div(total)
	return stats, nil
}

// ReportsBetween returns reports in [from, to]. Reports past the
// retention window stay queryable and are only flagged purge-eligible;
// reading never purges.
func (s *Service) ReportsBetween(ctx context.Context, from, to time.Time) ([]*domain.TransactionReport, error) {
	if to.Before(from) {
		return nil, errors.ErrInvalidDateRange
	}
	reports, err := s.repo.Between(ctx, from, to)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().UTC().Add(-s.retention)
	for _, r := range reports {
		r.PurgeEligible = r.Timestamp.Before(cutoff)
	}
	return reports, nil
}

// PurgeExpired deletes reports older than the retention window. Purging
// only ever happens through this explicit call.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.retention)
	purged, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "purging expired reports")
	}
	if purged > 0 {
		s.logger.Info("purged expired transaction reports", map[string]interface{}{
			"count":  purged,
			"cutoff": cutoff.Format(time.RFC3339),
		})
	}
	return purged, nil
}
