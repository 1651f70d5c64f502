package sequence

import "time"

type state uint8

const (
	stateIdle state = iota
	stateRunning
	statePaused
	stateFinished
	stateKilled
)

// Options configure how a Sequence is driven by its Scheduler.
type Options struct {
	Name         string // for logs only
	AutoDestroy  bool   // a finished sequence cannot be restarted
	IgnorePaused bool   // advance while the scaled clock is paused
	Unscaled     bool   // measure waits on the unscaled clock
	Loop         bool   // rewind to the first step instead of finishing
}

// Sequence is an ordered, resumable, cancelable list of steps. Steps run
// strictly in order: a Wait holds the cursor until enough clock time has
// accumulated, a Func runs and the cursor moves on in the same tick.
type Sequence struct {
	id      uint64
	sched   *Scheduler
	opts    Options
	steps   []Step
	cursor  int
	elapsed time.Duration
	state   state
}

func (q *Sequence) ID() uint64       { return q.id }
func (q *Sequence) Options() Options { return q.opts }
func (q *Sequence) Len() int         { return len(q.steps) }
func (q *Sequence) Cursor() int      { return q.cursor }

// Started reports whether the sequence has been started at least once and
// has not been killed.
func (q *Sequence) Started() bool {
	return q.state == stateRunning || q.state == statePaused || q.state == stateFinished
}

// Active reports whether the sequence sits in its scheduler's active set.
func (q *Sequence) Active() bool {
	return q.state == stateRunning || q.state == statePaused
}

func (q *Sequence) Paused() bool   { return q.state == statePaused }
func (q *Sequence) Finished() bool { return q.state == stateFinished }
func (q *Sequence) Killed() bool   { return q.state == stateKilled }

// Append adds steps to the end of the sequence. A finished sequence that is
// not auto-destroyed can be extended and started again.
func (q *Sequence) Append(steps ...Step) {
	q.steps = append(q.steps, steps...)
}

// Duration is the sum of all waits in the sequence.
func (q *Sequence) Duration() time.Duration {
	var d time.Duration
	for _, st := range q.steps {
		if w, ok := st.(WaitStep); ok {
			d += w.Duration
		}
	}
	return d
}

// Start rewinds the sequence and registers it with the scheduler. It returns
// false for killed sequences and for finished auto-destroyed ones.
func (q *Sequence) Start() bool {
	switch q.state {
	case stateKilled:
		return false
	case stateFinished:
		if q.opts.AutoDestroy {
			return false
		}
	}
	q.cursor = 0
	q.elapsed = 0
	if !q.Active() {
		q.sched.add(q)
	}
	q.state = stateRunning
	return true
}

// Pause keeps the sequence registered but stops it from advancing.
func (q *Sequence) Pause() {
	if q.state == stateRunning {
		q.state = statePaused
	}
}

func (q *Sequence) Resume() {
	if q.state == statePaused {
		q.state = stateRunning
	}
}

// Kill removes the sequence from the active set immediately. Steps already
// run are not undone; no further step runs. Killing twice is a no-op.
func (q *Sequence) Kill() {
	if q.state == stateKilled {
		return
	}
	wasActive := q.Active()
	q.state = stateKilled
	if wasActive {
		q.sched.remove(q)
	}
}

// advance runs as many steps as the frame allows.
func (q *Sequence) advance(dt, unscaledDt time.Duration, paused bool) {
	if q.state != stateRunning {
		return
	}
	// an unscaled wait keeps counting while the scaled clock is paused
	unscaledWait := false
	if q.cursor < len(q.steps) {
		w, ok := q.steps[q.cursor].(WaitStep)
		unscaledWait = ok && w.Unscaled
	}
	if paused && !q.opts.IgnorePaused && !q.opts.Unscaled && !unscaledWait {
		return
	}
	if unscaledWait || q.opts.Unscaled {
		dt = unscaledDt
	}
	q.elapsed += dt

	for q.state == stateRunning && q.cursor < len(q.steps) {
		switch st := q.steps[q.cursor].(type) {
		case WaitStep:
			if q.elapsed < st.Duration {
				return
			}
			q.elapsed -= st.Duration
		case FuncStep:
			if !q.sched.call(q, st.Fn) {
				return
			}
		}
		q.cursor++
	}
	if q.state == stateRunning {
		q.complete()
	}
}

func (q *Sequence) complete() {
	if q.opts.Loop && len(q.steps) > 0 {
		q.cursor = 0
		return
	}
	q.state = stateFinished
	q.elapsed = 0
	q.sched.remove(q)
}
