package postgres

import (
	"context"
	"database/sql"
	"time"

	"tickex/internal/domain"
	"tickex/pkg/errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ReportRepository persists transaction reports. A unique constraint on
// reference_id makes Append the serialization point for concurrent
// duplicate settlement attempts.
type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Append(ctx context.Context, report *domain.TransactionReport) error {
	query := `
        INSERT INTO compliance.transaction_reports (
            id, reference_id, subject_id, amount, currency, event_ref,
            unit_count, tier_at_transaction, fee_total_bp, compliant,
            disclosed, recorded_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
        )
    `

	_, err := r.db.ExecContext(ctx, query,
		report.ID, report.ReferenceID, report.SubjectID, report.Amount,
		report.Currency, report.EventRef, report.UnitCount,
		int(report.TierAtTransaction), report.FeeTotalBp, report.Compliant,
		report.Disclosed, report.Timestamp,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return errors.ErrDuplicateSettlement
		}
		return errors.Wrap(err, "failed to append transaction report")
	}

	return nil
}

func (r *ReportRepository) FindByReference(ctx context.Context, referenceID string) (*domain.TransactionReport, error) {
	query := `
        SELECT id, reference_id, subject_id, amount, currency, event_ref,
               unit_count, tier_at_transaction, fee_total_bp, compliant,
               disclosed, recorded_at
        FROM compliance.transaction_reports
        WHERE reference_id = $1
    `

	var report domain.TransactionReport
	if err := r.db.GetContext(ctx, &report, query, referenceID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrReportNotFound
		}
		return nil, errors.Wrap(err, "failed to find transaction report")
	}
	return &report, nil
}

func (r *ReportRepository) Between(ctx context.Context, from, to time.Time) ([]*domain.TransactionReport, error) {
	query := `
        SELECT id, reference_id, subject_id, amount, currency, event_ref,
               unit_count, tier_at_transaction, fee_total_bp, compliant,
               disclosed, recorded_at
        FROM compliance.transaction_reports
        WHERE recorded_at >= $1 AND recorded_at <= $2
        ORDER BY recorded_at ASC
    `

	var reports []*domain.TransactionReport
	if err := r.db.SelectContext(ctx, &reports, query, from, to); err != nil {
		return nil, errors.Wrap(err, "failed to query reports by range")
	}
	return reports, nil
}

func (r *ReportRepository) All(ctx context.Context) ([]*domain.TransactionReport, error) {
	query := `
        SELECT id, reference_id, subject_id, amount, currency, event_ref,
               unit_count, tier_at_transaction, fee_total_bp, compliant,
               disclosed, recorded_at
        FROM compliance.transaction_reports
        ORDER BY recorded_at ASC
    `

	var reports []*domain.TransactionReport
	if err := r.db.SelectContext(ctx, &reports, query); err != nil {
		return nil, errors.Wrap(err, "failed to load reports")
	}
	return reports, nil
}

func (r *ReportRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM compliance.transaction_reports WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete expired reports")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count deleted reports")
	}
	return int(n), nil
}
