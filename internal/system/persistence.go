package system

import (
	"context"
	"time"

	coresys "github.com/l1jgo/scenecore/internal/core/system"
	"go.uber.org/zap"
)

// Flusher writes buffered diagnostics to storage.
type Flusher interface {
	Flush(ctx context.Context) error
}

// PersistenceSystem periodically flushes recorded teardown failures.
// Phase 4 (Persist).
type PersistenceSystem struct {
	flusher   Flusher
	timeout   time.Duration
	log       *zap.Logger
	tickCount int
	interval  int // flush every N ticks
}

func NewPersistenceSystem(f Flusher, intervalTicks int, log *zap.Logger) *PersistenceSystem {
	if log == nil {
		log = zap.NewNop()
	}
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	return &PersistenceSystem{
		flusher:  f,
		timeout:  5 * time.Second,
		log:      log,
		interval: intervalTicks,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.flush()
}

// FlushNow writes everything pending regardless of the interval. Called on
// shutdown after the scene has been torn down.
func (s *PersistenceSystem) FlushNow() {
	s.tickCount = 0
	s.flush()
}

func (s *PersistenceSystem) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.flusher.Flush(ctx); err != nil {
		s.log.Error("flush teardown failures", zap.Error(err))
	}
}
