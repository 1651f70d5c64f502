package sequence

import "time"

// Step is one primitive of a Sequence: either a Wait or a Func.
type Step interface {
	step()
}

// WaitStep holds the sequence for Duration of clock time.
type WaitStep struct {
	Duration time.Duration
	Unscaled bool // measure on the unscaled clock even if the sequence is scaled
}

// FuncStep calls Fn with its bound arguments. It takes no time.
type FuncStep struct {
	Fn func()
}

func (WaitStep) step() {}
func (FuncStep) step() {}

// Wait pauses a sequence for d.
func Wait(d time.Duration) Step { return WaitStep{Duration: d} }

// WaitUnscaled pauses a sequence for d of unscaled time.
func WaitUnscaled(d time.Duration) Step { return WaitStep{Duration: d, Unscaled: true} }

// Func calls fn when reached.
func Func(fn func()) Step { return FuncStep{Fn: fn} }

// Func1 binds a to fn now and calls fn(a) when reached.
func Func1[A any](fn func(A), a A) Step {
	return FuncStep{Fn: func() { fn(a) }}
}

// Func2 binds a and b to fn now and calls fn(a, b) when reached.
func Func2[A, B any](fn func(A, B), a A, b B) Step {
	return FuncStep{Fn: func() { fn(a, b) }}
}
