// Package sweeper moves lapsed holds from active to expired in the
// background. Readers already ignore lapsed holds on their own clock, so
// the sweep is reconciliation, not correctness; it keeps the store and the
// cache honest between reads.
package sweeper

import (
	"context"
	"sync"
	"time"

	"lodgeworks/internal/availability/repository"
	"lodgeworks/pkg/cache"
	"lodgeworks/pkg/config"
	"lodgeworks/pkg/retry"
)

type Sweeper struct {
	reservations repository.ReservationRepository
	cache        *cache.AvailabilityCache
	retry        *retry.Retryer
	cfg          *config.Config
	now          func() time.Time

	stop     chan struct{}
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

func New(
	reservations repository.ReservationRepository,
	availabilityCache *cache.AvailabilityCache,
	retryer *retry.Retryer,
	cfg *config.Config,
) *Sweeper {
	return &Sweeper{
		reservations: reservations,
		cache:        availabilityCache,
		retry:        retryer,
		cfg:          cfg,
		now:          time.Now,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called. One pass runs
// immediately so a restart does not wait a full interval to catch up.
func (s *Sweeper) Start() {
	s.started = true
	go s.run()
}

func (s *Sweeper) run() {
	defer close(s.done)

	s.cfg.Log.Info("Hold sweeper started", "interval", s.cfg.SweepInterval)
	s.sweep()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			s.cfg.Log.Info("Hold sweeper stopped")
			return
		}
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SweepInterval)
	defer cancel()

	if _, err := s.SweepNow(ctx); err != nil {
		s.cfg.Log.Error("Hold sweep failed", "error", err)
	}
}

// SweepNow expires every hold whose deadline has passed and invalidates
// the cache for each touched resource. It returns the touched resource
// ids and is safe to run repeatedly; an empty batch is a no-op.
func (s *Sweeper) SweepNow(ctx context.Context) ([]string, error) {
	var resourceIDs []string
	err := s.retry.Do(ctx, "reservations.expire_batch", func(ctx context.Context) error {
		var innerErr error
		resourceIDs, innerErr = s.reservations.ExpireBatch(ctx, s.now())
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	if len(resourceIDs) == 0 {
		return nil, nil
	}

	if s.cache != nil {
		for _, resourceID := range resourceIDs {
			s.cache.InvalidateResource(ctx, resourceID)
		}
	}

	s.cfg.Log.Info("Expired lapsed holds", "resources_touched", len(resourceIDs))
	return resourceIDs, nil
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		if s.started {
			<-s.done
		}
	})
}
