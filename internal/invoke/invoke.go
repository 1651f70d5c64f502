// Package invoke runs functions after a delay on a sequence.Scheduler.
//
// A zero delay calls the function immediately and returns nil. Any other
// delay returns the one-shot sequence [Wait(delay), Func(fn)] so the caller
// can Kill it before it fires.
package invoke

import (
	"time"

	"github.com/l1jgo/scenecore/internal/sequence"
)

type options struct {
	delay        time.Duration
	unscaled     bool
	ignorePaused bool
}

// Option configures a deferred call.
type Option func(*options)

func Delay(d time.Duration) Option { return func(o *options) { o.delay = d } }

// Unscaled measures the delay on the unscaled clock.
func Unscaled(v bool) Option { return func(o *options) { o.unscaled = v } }

// IgnorePaused keeps the delay running while the game is paused. It implies
// Unscaled, since the scaled clock stands still during a pause.
func IgnorePaused(v bool) Option { return func(o *options) { o.ignorePaused = v } }

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.ignorePaused {
		o.unscaled = true
	}
	return o
}

// Invoke calls fn now when the delay is zero. Any other delay, negative
// included, schedules fn on s; a negative wait is already due on the next
// tick.
func Invoke(s *sequence.Scheduler, fn func(), opts ...Option) *sequence.Sequence {
	o := collect(opts)
	if o.delay == 0 {
		fn()
		return nil
	}
	return s.Go(sequence.Options{
		Name:         "invoke",
		AutoDestroy:  true,
		IgnorePaused: o.ignorePaused,
		Unscaled:     o.unscaled,
	}, sequence.Wait(o.delay), sequence.Func(fn))
}

// Invoke1 binds a at call time and calls fn(a) now or after the delay.
func Invoke1[A any](s *sequence.Scheduler, fn func(A), a A, opts ...Option) *sequence.Sequence {
	return Invoke(s, func() { fn(a) }, opts...)
}

func Invoke2[A, B any](s *sequence.Scheduler, fn func(A, B), a A, b B, opts ...Option) *sequence.Sequence {
	return Invoke(s, func() { fn(a, b) }, opts...)
}

// After wraps fn so every call is deferred by delay. The delay is fixed when
// After is called. Waits run on the unscaled clock unless opts say otherwise.
func After(s *sequence.Scheduler, delay time.Duration, fn func(), opts ...Option) func() *sequence.Sequence {
	opts = afterOptions(delay, opts)
	return func() *sequence.Sequence {
		return Invoke(s, fn, opts...)
	}
}

func After1[A any](s *sequence.Scheduler, delay time.Duration, fn func(A), opts ...Option) func(A) *sequence.Sequence {
	opts = afterOptions(delay, opts)
	return func(a A) *sequence.Sequence {
		return Invoke1(s, fn, a, opts...)
	}
}

func After2[A, B any](s *sequence.Scheduler, delay time.Duration, fn func(A, B), opts ...Option) func(A, B) *sequence.Sequence {
	opts = afterOptions(delay, opts)
	return func(a A, b B) *sequence.Sequence {
		return Invoke2(s, fn, a, b, opts...)
	}
}

func afterOptions(delay time.Duration, opts []Option) []Option {
	out := make([]Option, 0, len(opts)+2)
	out = append(out, Unscaled(true))
	out = append(out, opts...)
	return append(out, Delay(delay))
}
