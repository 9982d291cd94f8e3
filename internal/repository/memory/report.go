// Package memory holds in-memory repository implementations used in
// development mode and unit tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tickex/internal/domain"
	"tickex/pkg/errors"
)

// ReportRepository is a mutex-guarded map keyed by settlement reference.
// The check-then-insert under one lock gives the same duplicate guarantee
// the postgres unique constraint does.
type ReportRepository struct {
	mu      sync.RWMutex
	reports map[string]*domain.TransactionReport
}

func NewReportRepository() *ReportRepository {
	return &ReportRepository{
		reports: make(map[string]*domain.TransactionReport),
	}
}

func (r *ReportRepository) Append(_ context.Context, report *domain.TransactionReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reports[report.ReferenceID]; exists {
		return errors.ErrDuplicateSettlement
	}
	stored := *report
	r.reports[report.ReferenceID] = &stored
	return nil
}

func (r *ReportRepository) FindByReference(_ context.Context, referenceID string) (*domain.TransactionReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[referenceID]
	if !ok {
		return nil, errors.ErrReportNotFound
	}
	cp := *report
	return &cp, nil
}

func (r *ReportRepository) Between(_ context.Context, from, to time.Time) ([]*domain.TransactionReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.TransactionReport
	for _, report := range r.reports {
		if report.Timestamp.Before(from) || report.Timestamp.After(to) {
			continue
		}
		cp := *report
		out = append(out, &cp)
	}
	sortByTimestamp(out)
	return out, nil
}

func (r *ReportRepository) All(_ context.Context) ([]*domain.TransactionReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.TransactionReport, 0, len(r.reports))
	for _, report := range r.reports {
		cp := *report
		out = append(out, &cp)
	}
	sortByTimestamp(out)
	return out, nil
}

func (r *ReportRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int
	for ref, report := range r.reports {
		if report.Timestamp.Before(cutoff) {
			delete(r.reports, ref)
			purged++
		}
	}
	return purged, nil
}

func sortByTimestamp(reports []*domain.TransactionReport) {
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Timestamp.Before(reports[j].Timestamp)
	})
}
