package system

import (
	"time"

	"github.com/l1jgo/scenecore/internal/core/event"
	coresys "github.com/l1jgo/scenecore/internal/core/system"
	"github.com/l1jgo/scenecore/internal/input"
	"go.uber.org/zap"
)

// KeyListener receives every raw key event after the held table is updated.
type KeyListener interface {
	Input(key string)
}

// InputSystem drains the key event queue filled by the platform backend and
// applies it to the held-key table. Phase 0 (Input).
type InputSystem struct {
	queue      chan string
	state      *input.State
	bus        *event.Bus
	listeners  []KeyListener
	maxPerTick int
	log        *zap.Logger
}

// NewInputSystem buffers up to queueSize events between ticks. bus may be nil.
func NewInputSystem(state *input.State, bus *event.Bus, queueSize, maxPerTick int, log *zap.Logger) *InputSystem {
	if log == nil {
		log = zap.NewNop()
	}
	if maxPerTick <= 0 {
		maxPerTick = queueSize
	}
	return &InputSystem{
		queue:      make(chan string, queueSize),
		state:      state,
		bus:        bus,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

// AddListener appends l to the listeners notified in registration order.
func (s *InputSystem) AddListener(l KeyListener) {
	s.listeners = append(s.listeners, l)
}

// Send enqueues a key event. Safe to call from any goroutine. Returns false
// when the queue is full and the event was dropped.
func (s *InputSystem) Send(key string) bool {
	select {
	case s.queue <- key:
		return true
	default:
		s.log.Warn("input queue full, key dropped", zap.String("key", key))
		return false
	}
}

func (s *InputSystem) Update(_ time.Duration) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case key := <-s.queue:
			s.apply(key)
		default:
			return
		}
	}
}

func (s *InputSystem) apply(key string) {
	base, held := s.state.Feed(key)
	if base == "" {
		return
	}
	if s.bus != nil {
		event.Emit(s.bus, event.KeyChanged{Key: base, Held: held})
	}
	for _, l := range s.listeners {
		l.Input(key)
	}
}
