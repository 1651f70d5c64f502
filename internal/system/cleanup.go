package system

import (
	"time"

	coresys "github.com/l1jgo/scenecore/internal/core/system"
	"github.com/l1jgo/scenecore/internal/scene"
	"go.uber.org/zap"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end.
// Phase 5 (Cleanup).
type CleanupSystem struct {
	scene *scene.Scene
	log   *zap.Logger
}

func NewCleanupSystem(sc *scene.Scene, log *zap.Logger) *CleanupSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &CleanupSystem{scene: sc, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	if err := s.scene.FlushDestroyQueue(); err != nil {
		s.log.Warn("queued teardown reported hook failures", zap.Error(err))
	}
}
