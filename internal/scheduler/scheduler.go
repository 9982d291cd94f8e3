// Package scheduler runs the periodic retention sweep.
package scheduler

import (
	"context"
	"time"

	"tickex/pkg/logger"
)

// Purger removes reports past the retention window and reports how many
// were deleted. The monitor service implements it.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// PurgeObserver is told when a sweep actually removed something.
type PurgeObserver interface {
	PurgeCompleted(removed int64)
}

// Scheduler triggers retention purges on a fixed interval. Purges never
// run implicitly from read paths; this is the only automatic trigger,
// and it is disabled entirely when the interval is zero.
type Scheduler struct {
	purger   Purger
	observer PurgeObserver
	interval time.Duration
	logger   logger.Logger
	stop     chan struct{}
}

func New(p Purger, obs PurgeObserver, interval time.Duration, log logger.Logger) *Scheduler {
	return &Scheduler{
		purger:   p,
		observer: obs,
		interval: interval,
		logger:   log,
		stop:     make(chan struct{}),
	}
}

// Start launches the sweep loop. It is a no-op when the interval is zero.
func (s *Scheduler) Start() {
	if s.interval <= 0 {
		s.logger.Info("Retention sweep disabled", nil)
		return
	}

	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stop:
				ticker.Stop()
				return
			}
		}
	}()
	s.logger.Info("Retention sweep started", map[string]interface{}{
		"interval": s.interval.String(),
	})
}

func (s *Scheduler) Stop() {
	close(s.stop)
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.logger.Error("Retention sweep failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if removed == 0 {
		return
	}

	s.logger.Info("Retention sweep removed expired reports", map[string]interface{}{
		"removed": removed,
	})
	if s.observer != nil {
		s.observer.PurgeCompleted(int64(removed))
	}
}
