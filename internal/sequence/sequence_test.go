package sequence

import (
	"testing"
	"time"

	"github.com/l1jgo/scenecore/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func frame(dt time.Duration) clock.Frame {
	return clock.Frame{Delta: dt, UnscaledDelta: dt}
}

func pausedFrame(dt time.Duration) clock.Frame {
	return clock.Frame{UnscaledDelta: dt, Paused: true}
}

func TestStepsRunInOrder(t *testing.T) {
	s := NewScheduler(zaptest.NewLogger(t), nil)
	var got []string
	add := func(v string) { got = append(got, v) }

	q := s.Go(Options{},
		Func1(add, "a"),
		Wait(time.Second),
		Func1(add, "b"),
		Func2(func(x, y string) { add(x + y) }, "c", "d"),
	)
	require.True(t, q.Active())

	s.Tick(frame(0))
	assert.Equal(t, []string{"a"}, got)

	s.Tick(frame(500 * time.Millisecond))
	assert.Equal(t, []string{"a"}, got)

	s.Tick(frame(500 * time.Millisecond))
	assert.Equal(t, []string{"a", "b", "cd"}, got)
	assert.True(t, q.Finished())
	assert.Zero(t, s.Len())
}

func TestWaitCarriesOvershoot(t *testing.T) {
	s := NewScheduler(nil, nil)
	fired := 0
	s.Go(Options{}, Wait(300*time.Millisecond), Func(func() { fired++ }), Wait(300*time.Millisecond), Func(func() { fired++ }))

	s.Tick(frame(400 * time.Millisecond))
	assert.Equal(t, 1, fired)
	s.Tick(frame(200 * time.Millisecond))
	assert.Equal(t, 2, fired)
}

func TestPausedClockHoldsScaledSequences(t *testing.T) {
	s := NewScheduler(nil, nil)
	var scaled, unscaled, ignore int
	s.Go(Options{}, Wait(time.Second), Func(func() { scaled++ }))
	s.Go(Options{Unscaled: true}, Wait(time.Second), Func(func() { unscaled++ }))
	s.Go(Options{IgnorePaused: true, Unscaled: true}, Wait(time.Second), Func(func() { ignore++ }))

	for range 4 {
		s.Tick(pausedFrame(500 * time.Millisecond))
	}
	assert.Zero(t, scaled)
	assert.Equal(t, 1, unscaled)
	assert.Equal(t, 1, ignore)
	assert.Equal(t, 1, s.Len())
}

func TestWaitUnscaledStep(t *testing.T) {
	s := NewScheduler(nil, nil)
	fired := false
	s.Go(Options{}, WaitUnscaled(time.Second), Func(func() { fired = true }))

	// time scale 0: scaled clock never moves
	s.Tick(clock.Frame{UnscaledDelta: time.Second})
	assert.True(t, fired)
}

func TestWaitUnscaledStepRunsWhilePaused(t *testing.T) {
	s := NewScheduler(nil, nil)
	var got []string
	add := func(v string) { got = append(got, v) }
	s.Go(Options{}, WaitUnscaled(time.Second), Func1(add, "a"), Wait(time.Second), Func1(add, "b"))

	for range 5 {
		s.Tick(pausedFrame(500 * time.Millisecond))
	}
	assert.Equal(t, []string{"a"}, got, "the scaled wait that follows stays held")

	s.Tick(frame(time.Second))
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestKillBeforeWaitElapses(t *testing.T) {
	s := NewScheduler(nil, nil)
	fired := false
	q := s.Go(Options{}, Wait(time.Second), Func(func() { fired = true }))

	s.Tick(frame(500 * time.Millisecond))
	q.Kill()
	assert.False(t, q.Active())
	assert.Zero(t, s.Len())

	s.Tick(frame(time.Second))
	assert.False(t, fired)
	assert.False(t, q.Start(), "killed sequences cannot restart")
	q.Kill()
}

func TestKillFromInsideStep(t *testing.T) {
	s := NewScheduler(nil, nil)
	var q *Sequence
	after := false
	q = s.Go(Options{}, Func(func() { q.Kill() }), Func(func() { after = true }))

	s.Tick(frame(0))
	assert.False(t, after)
	assert.True(t, q.Killed())
}

func TestKillOtherDuringTick(t *testing.T) {
	s := NewScheduler(nil, nil)
	fired := false
	victim := s.New(Options{}, Func(func() { fired = true }))
	s.Go(Options{}, Func(func() { victim.Kill() }))
	victim.Start()

	s.Tick(frame(0))
	assert.False(t, fired)
}

func TestRegistrationOrderWithinTick(t *testing.T) {
	s := NewScheduler(nil, nil)
	var got []int
	for i := range 5 {
		s.Go(Options{}, Wait(time.Second), Func1(func(n int) { got = append(got, n) }, i))
	}
	s.Tick(frame(time.Second))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestSequenceStartedDuringTickWaitsForNextTick(t *testing.T) {
	s := NewScheduler(nil, nil)
	inner := false
	s.Go(Options{}, Func(func() {
		s.Go(Options{}, Func(func() { inner = true }))
	}))

	s.Tick(frame(0))
	assert.False(t, inner)
	s.Tick(frame(0))
	assert.True(t, inner)
}

func TestAutoDestroyAndRestart(t *testing.T) {
	s := NewScheduler(nil, nil)
	n := 0
	once := s.Go(Options{AutoDestroy: true}, Func(func() { n++ }))
	again := s.Go(Options{}, Func(func() { n++ }))
	s.Tick(frame(0))
	require.Equal(t, 2, n)

	assert.False(t, once.Start())
	assert.True(t, again.Start())
	s.Tick(frame(0))
	assert.Equal(t, 3, n)
}

func TestLoopRewinds(t *testing.T) {
	s := NewScheduler(nil, nil)
	n := 0
	q := s.Go(Options{Loop: true}, Wait(time.Second), Func(func() { n++ }))
	for range 3 {
		s.Tick(frame(time.Second))
	}
	assert.Equal(t, 3, n)
	assert.True(t, q.Active())
	assert.Equal(t, time.Second, q.Duration())
}

func TestAppendExtendsSequence(t *testing.T) {
	s := NewScheduler(nil, nil)
	var got []string
	add := func(v string) { got = append(got, v) }

	q := s.New(Options{}, Func1(add, "a"))
	q.Append(Wait(time.Second), Func1(add, "b"))
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, time.Second, q.Duration())
	assert.False(t, q.Started())

	require.True(t, q.Start())
	s.Tick(frame(0))
	assert.Equal(t, []string{"a"}, got)
	q.Append(Func1(add, "c"))
	s.Tick(frame(time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.True(t, q.Finished())
}

func TestPauseResume(t *testing.T) {
	s := NewScheduler(nil, nil)
	fired := false
	q := s.Go(Options{}, Wait(time.Second), Func(func() { fired = true }))
	q.Pause()
	s.Tick(frame(2 * time.Second))
	assert.False(t, fired)
	assert.True(t, q.Paused())

	q.Resume()
	s.Tick(frame(time.Second))
	assert.True(t, fired)
}

func TestPanickingStepKillsSequence(t *testing.T) {
	s := NewScheduler(zaptest.NewLogger(t), nil)
	after := false
	q := s.Go(Options{Name: "boom"}, Func(func() { panic("boom") }), Func(func() { after = true }))
	other := false
	s.Go(Options{}, Func(func() { other = true }))

	assert.NotPanics(t, func() { s.Tick(frame(0)) })
	assert.True(t, q.Killed())
	assert.False(t, after)
	assert.True(t, other)
}

func TestKillAll(t *testing.T) {
	s := NewScheduler(nil, nil)
	a := s.Go(Options{}, Wait(time.Second))
	b := s.Go(Options{}, Wait(time.Second))
	s.KillAll()
	assert.True(t, a.Killed())
	assert.True(t, b.Killed())
	assert.Zero(t, s.Len())
}

func TestSystemSamplesFrame(t *testing.T) {
	s := NewScheduler(nil, nil)
	c := clock.New(nil, 1)
	fired := false
	s.Go(Options{}, Func(func() { fired = true }))

	sys := NewSystem(s, func() clock.Frame { return c.Step(time.Millisecond) })
	sys.Update(time.Millisecond)
	assert.True(t, fired)
	assert.Equal(t, time.Millisecond, c.Time())
}
