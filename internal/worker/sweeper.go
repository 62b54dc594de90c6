package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dmarukhin/tasknote-api/internal/metrics"
	"github.com/dmarukhin/tasknote-api/internal/repo"
)

// Sweeper periodically counts orphaned registry entries: images that
// lost their last referencing task. Deleting an image from one task
// deletes it globally, so orphans signal either normal churn or a task
// that silently lost a shared image. The sweeper only reports; cleanup
// stays a manual decision.
type Sweeper struct {
	store    repo.Store
	logger   *zap.Logger
	interval time.Duration
	wg       sync.WaitGroup
	stop     chan struct{}
}

func NewSweeper(store repo.Store, logger *zap.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting orphan sweeper", zap.Duration("interval", s.interval))

	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Sweeper) Stop() {
	s.logger.Info("Stopping orphan sweeper...")
	close(s.stop)
	s.wg.Wait()
	s.logger.Info("Orphan sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	orphans, err := s.store.Images().ListOrphans(ctx)
	if err != nil {
		s.logger.Error("orphan sweep failed", zap.Error(err))
		return
	}

	metrics.OrphanImages.Set(float64(len(orphans)))
	if len(orphans) > 0 {
		s.logger.Warn("orphaned images in registry", zap.Int("count", len(orphans)))
	}
}
