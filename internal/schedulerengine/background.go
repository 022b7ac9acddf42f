package schedulerengine

import (
	"context"
	"sync"
	"time"

	"gitlab.com/plantguard-2025.net/internal/config"
	"gitlab.com/plantguard-2025.net/internal/core/ports/primary"
	"gitlab.com/plantguard-2025.net/internal/core/ports/secondary"
)

// RetentionEngine purges stored runs older than the configured age
type RetentionEngine struct {
	RetentionCfg *config.RetentionConfig
	runRepo      secondary.RunRepository
	logger       primary.Logger
	now          func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRetentionEngine(
	RetentionCfg *config.RetentionConfig,
	runRepo secondary.RunRepository,
	logger primary.Logger,
) *RetentionEngine {
	return &RetentionEngine{
		RetentionCfg: RetentionCfg,
		runRepo:      runRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Start purges once, then again on every tick until ctx ends or Stop is
// called. Starting a running engine is a no-op.
func (s *RetentionEngine) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	if !s.RetentionCfg.Enabled {
		s.logger.Info("Run retention disabled")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	ticker := time.NewTicker(s.RetentionCfg.PurgeInterval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		s.PurgeExpiredRuns(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.PurgeExpiredRuns(ctx)
			}
		}
	}()
}

// Stop ends the purge loop and waits for it to exit
func (s *RetentionEngine) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

// PurgeExpiredRuns deletes runs created before now minus MaxAge
func (s *RetentionEngine) PurgeExpiredRuns(ctx context.Context) {
	cutoff := s.now().Add(-s.RetentionCfg.MaxAge)
	n, err := s.runRepo.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Failed to purge expired runs", "cutoff", cutoff, "error", err)
		}
		return
	}
	if n > 0 {
		s.logger.Info("Purged expired runs", "count", n, "cutoff", cutoff)
	}
}
