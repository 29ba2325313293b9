package push

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/pacto/internal/metrics"
	"github.com/dukerupert/pacto/internal/model"
)

const DefaultScanInterval = 5 * time.Minute

// OverdueStore finds and claims overdue pacts.
type OverdueStore interface {
	ListOverdue(ctx context.Context, now time.Time) ([]model.Pact, error)
	ClaimOverdue(ctx context.Context, id string, now time.Time) (bool, error)
}

// Scheduler periodically flags overdue pacts and notifies their assignees.
// Each pact is notified at most once.
type Scheduler struct {
	mu       sync.RWMutex
	pacts    OverdueStore
	notifier Notifier
	interval time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics
	logger   *slog.Logger
	flight   singleflight.Group
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates an overdue scheduler. A non-positive interval falls
// back to DefaultScanInterval.
func NewScheduler(pacts OverdueStore, notifier Notifier, interval time.Duration, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	return &Scheduler{
		pacts:    pacts,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
		metrics:  m,
		logger:   logger,
	}
}

// SetClock overrides time.Now, mostly for tests.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Scheduler) clock() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

// Start begins the scheduler loop. It is a no-op while already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
					s.logger.Error("overdue sweep failed", "error", err)
				}
			}
		}
	}()
}

// Stop gracefully stops the scheduler. It may be started again afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Tick runs one sweep and returns how many pacts it claimed. Concurrent
// calls share a single sweep.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	v, err, _ := s.flight.Do("overdue", func() (any, error) {
		return s.sweep(ctx)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (s *Scheduler) sweep(ctx context.Context) (int, error) {
	s.metrics.OverdueScans.Inc()
	now := s.clock().UTC()

	pacts, err := s.pacts.ListOverdue(ctx, now)
	if err != nil {
		return 0, err
	}

	claimed := 0
	for i := range pacts {
		p := &pacts[i]
		ok, err := s.pacts.ClaimOverdue(ctx, p.ID, now)
		if err != nil {
			s.logger.Warn("overdue sweep: claim failed", "pact_id", p.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		claimed++

		if p.AssignedToUserID != nil {
			s.metrics.OverdueNotified.Inc()
			s.notifier.Notify(ctx, []string{*p.AssignedToUserID}, OverdueMessage(p))
		}
	}

	if claimed > 0 {
		s.logger.Info("overdue sweep", "found", len(pacts), "claimed", claimed)
	}
	return claimed, nil
}
