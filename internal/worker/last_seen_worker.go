package worker

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/TESCHEL/agenthq/internal/config"
	"github.com/TESCHEL/agenthq/internal/repository"
)

const seenKeyPrefix = "agent:seen:"

type sighting struct {
	agentID string
	at      time.Time
}

// LastSeenWorker persists agent activity off the request path. Writes for
// one agent are throttled to one per window, through Redis when configured
// so that several processes share the window.
type LastSeenWorker struct {
	agents   repository.AgentRepository
	redis    redis.Cmdable
	throttle time.Duration
	queue    chan sighting
	logger   *zap.Logger

	mu        sync.Mutex
	lastWrite map[string]time.Time
	lastPrune time.Time
}

// NewLastSeenWorker constructs the worker. rdb may be nil.
func NewLastSeenWorker(agents repository.AgentRepository, rdb redis.Cmdable, cfg config.PresenceConfig, logger *zap.Logger) *LastSeenWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	return &LastSeenWorker{
		agents:    agents,
		redis:     rdb,
		throttle:  cfg.Throttle(),
		queue:     make(chan sighting, size),
		logger:    logger.Named("last_seen"),
		lastWrite: make(map[string]time.Time),
	}
}

// RecordSeen queues a sighting without blocking. Sightings are dropped when
// the queue is full.
func (w *LastSeenWorker) RecordSeen(agentID string, at time.Time) {
	select {
	case w.queue <- sighting{agentID: agentID, at: at}:
	default:
		w.logger.Debug("last-seen queue full", zap.String("agent_id", agentID))
	}
}

// Run drains the queue until ctx is done.
func (w *LastSeenWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-w.queue:
			w.flush(ctx, s)
		}
	}
}

func (w *LastSeenWorker) flush(ctx context.Context, s sighting) {
	if !w.allow(ctx, s) {
		return
	}
	if err := w.agents.TouchLastSeen(ctx, s.agentID, s.at); err != nil {
		w.logger.Warn("touch last seen failed", zap.String("agent_id", s.agentID), zap.Error(err))
	}
}

func (w *LastSeenWorker) allow(ctx context.Context, s sighting) bool {
	if w.throttle <= 0 {
		return true
	}
	if w.redis != nil {
		ok, err := w.redis.SetNX(ctx, seenKeyPrefix+s.agentID, s.at.Unix(), w.throttle).Result()
		if err == nil {
			return ok
		}
		w.logger.Warn("redis throttle unavailable, using local window", zap.Error(err))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(s.at)
	if last, ok := w.lastWrite[s.agentID]; ok && s.at.Sub(last) < w.throttle {
		return false
	}
	w.lastWrite[s.agentID] = s.at
	return true
}

// pruneLocked drops windows that closed before now, at most once per window.
// It must be called with w.mu held.
func (w *LastSeenWorker) pruneLocked(now time.Time) {
	if now.Sub(w.lastPrune) < w.throttle {
		return
	}
	for agentID, last := range w.lastWrite {
		if now.Sub(last) >= w.throttle {
			delete(w.lastWrite, agentID)
		}
	}
	w.lastPrune = now
}

func (w *LastSeenWorker) trackedAgents() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.lastWrite)
}
