package sequence

import (
	"time"

	"github.com/l1jgo/scenecore/internal/clock"
	coresys "github.com/l1jgo/scenecore/internal/core/system"
	"go.uber.org/zap"
)

// Metrics receives scheduler counters.
type Metrics interface {
	StepFired()
	StepPanicked()
	ActiveSequences(n int)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) StepFired()          {}
func (NopMetrics) StepPanicked()       {}
func (NopMetrics) ActiveSequences(int) {}

// Scheduler owns the ordered active set of sequences and advances each one
// once per tick, in registration order.
// Single-goroutine access only (game loop).
type Scheduler struct {
	active  []*Sequence
	buf     []*Sequence
	nextID  uint64
	log     *zap.Logger
	metrics Metrics
}

func NewScheduler(log *zap.Logger, metrics Metrics) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Scheduler{
		active:  make([]*Sequence, 0, 64),
		log:     log,
		metrics: metrics,
	}
}

// New builds a sequence that is not yet started.
func (s *Scheduler) New(opts Options, steps ...Step) *Sequence {
	s.nextID++
	return &Sequence{
		id:    s.nextID,
		sched: s,
		opts:  opts,
		steps: steps,
	}
}

// Go builds a sequence and starts it.
func (s *Scheduler) Go(opts Options, steps ...Step) *Sequence {
	q := s.New(opts, steps...)
	q.Start()
	return q
}

// Len returns the size of the active set.
func (s *Scheduler) Len() int { return len(s.active) }

// Tick advances every sequence that was active when the tick began.
// Sequences started during the tick wait for the next one.
func (s *Scheduler) Tick(f clock.Frame) {
	s.buf = append(s.buf[:0], s.active...)
	for _, q := range s.buf {
		q.advance(f.Delta, f.UnscaledDelta, f.Paused)
	}
	clear(s.buf)
	s.metrics.ActiveSequences(len(s.active))
}

// KillAll kills every active sequence.
func (s *Scheduler) KillAll() {
	for len(s.active) > 0 {
		s.active[len(s.active)-1].Kill()
	}
}

func (s *Scheduler) add(q *Sequence) {
	s.active = append(s.active, q)
}

func (s *Scheduler) remove(q *Sequence) {
	for i, a := range s.active {
		if a == q {
			copy(s.active[i:], s.active[i+1:])
			s.active[len(s.active)-1] = nil
			s.active = s.active[:len(s.active)-1]
			return
		}
	}
}

// call runs fn, converting a panic into a killed sequence.
func (s *Scheduler) call(q *Sequence, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("sequence step panicked",
				zap.Uint64("sequence", q.id),
				zap.String("name", q.opts.Name),
				zap.Int("step", q.cursor),
				zap.Any("panic", r),
			)
			s.metrics.StepPanicked()
			q.Kill()
			ok = false
		}
	}()
	fn()
	s.metrics.StepFired()
	return true
}

// System adapts a Scheduler to the phase runner. It samples the frame
// source once per tick and runs in PhaseUpdate.
type System struct {
	sched *Scheduler
	frame func() clock.Frame
}

func NewSystem(sched *Scheduler, frame func() clock.Frame) *System {
	return &System{sched: sched, frame: frame}
}

func (s *System) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *System) Update(_ time.Duration) {
	s.sched.Tick(s.frame())
}
