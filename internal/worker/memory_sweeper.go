package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger deletes expired memory entries.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// MemorySweeper periodically removes expired memory entries so storage
// stays bounded. Reads already hide expired entries.
type MemorySweeper struct {
	purger   Purger
	interval time.Duration
	logger   *zap.Logger
}

// NewMemorySweeper constructs the sweeper. A non-positive interval disables it.
func NewMemorySweeper(purger Purger, interval time.Duration, logger *zap.Logger) *MemorySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemorySweeper{purger: purger, interval: interval, logger: logger.Named("memory_sweeper")}
}

// Run sweeps on every tick until ctx is done.
func (s *MemorySweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("memory sweep disabled")
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single purge.
func (s *MemorySweeper) SweepOnce(ctx context.Context) int64 {
	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.logger.Warn("memory sweep failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		s.logger.Info("expired memories removed", zap.Int64("count", n))
	}
	return n
}
