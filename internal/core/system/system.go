package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain key events
	PhasePreUpdate               // 1: deliver last tick's events
	PhaseUpdate                  // 2: advance sequences
	PhasePostUpdate              // 3: scene bookkeeping
	PhasePersist                 // 4: diagnostics flush
	PhaseCleanup                 // 5: tear down queued entities
)

// System is the interface every phase system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Func adapts a plain function to System.
type Func struct {
	P  Phase
	Fn func(dt time.Duration)
}

func (f Func) Phase() Phase            { return f.P }
func (f Func) Update(dt time.Duration) { f.Fn(dt) }
