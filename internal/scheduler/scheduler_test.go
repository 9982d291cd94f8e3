package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"tickex/pkg/logger"

	"github.com/stretchr/testify/assert"
)

type countingPurger struct {
	calls   atomic.Int32
	removed int
}

func (p *countingPurger) PurgeExpired(ctx context.Context) (int, error) {
	p.calls.Add(1)
	return p.removed, nil
}

type countingObserver struct {
	notified atomic.Int32
}

func (o *countingObserver) PurgeCompleted(removed int64) {
	o.notified.Add(1)
}

func TestSweepRunsOnInterval(t *testing.T) {
	purger := &countingPurger{removed: 3}
	observer := &countingObserver{}
	s := New(purger, observer, 20*time.Millisecond, logger.Nop())

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return purger.calls.Load() >= 2
	}, time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return observer.notified.Load() >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestZeroIntervalDisablesSweep(t *testing.T) {
	purger := &countingPurger{}
	s := New(purger, nil, 0, logger.Nop())

	s.Start()
	time.Sleep(50 * time.Millisecond)

	assert.Zero(t, purger.calls.Load())
}

func TestEmptySweepSkipsObserver(t *testing.T) {
	purger := &countingPurger{removed: 0}
	observer := &countingObserver{}
	s := New(purger, observer, 10*time.Millisecond, logger.Nop())

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return purger.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, observer.notified.Load())
}
