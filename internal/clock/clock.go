// Package clock is the frame clock the scheduler samples once per tick.
// It keeps two timelines: unscaled time follows the wall clock, scaled time
// follows it multiplied by the time scale and stands still while paused.
package clock

import (
	"time"

	jujuclock "github.com/juju/clock"
)

// Frame is one tick's sample of the clock.
type Frame struct {
	Delta         time.Duration // scaled, zero while paused
	UnscaledDelta time.Duration
	Time          time.Duration // scaled time since start
	UnscaledTime  time.Duration
	Paused        bool
}

// Clock turns wall clock readings into frames.
// Single-goroutine access only (game loop).
type Clock struct {
	wall     jujuclock.Clock
	last     time.Time
	scale    float64
	paused   bool
	time     time.Duration
	unscaled time.Duration
}

// New returns a clock reading wall. A nil wall uses jujuclock.WallClock.
func New(wall jujuclock.Clock, scale float64) *Clock {
	if wall == nil {
		wall = jujuclock.WallClock
	}
	if scale < 0 {
		scale = 0
	}
	return &Clock{wall: wall, last: wall.Now(), scale: scale}
}

// Tick samples the wall clock and returns the frame since the previous sample.
func (c *Clock) Tick() Frame {
	now := c.wall.Now()
	dt := now.Sub(c.last)
	c.last = now
	if dt < 0 {
		dt = 0
	}
	return c.Step(dt)
}

// Step advances by dt of real time without reading the wall clock.
// Fixed-timestep drivers and tests use it directly.
func (c *Clock) Step(dt time.Duration) Frame {
	var scaled time.Duration
	if !c.paused {
		scaled = time.Duration(float64(dt) * c.scale)
	}
	c.unscaled += dt
	c.time += scaled
	return Frame{
		Delta:         scaled,
		UnscaledDelta: dt,
		Time:          c.time,
		UnscaledTime:  c.unscaled,
		Paused:        c.paused,
	}
}

func (c *Clock) Paused() bool                { return c.paused }
func (c *Clock) SetPaused(paused bool)       { c.paused = paused }
func (c *Clock) TimeScale() float64          { return c.scale }
func (c *Clock) Time() time.Duration         { return c.time }
func (c *Clock) UnscaledTime() time.Duration { return c.unscaled }

// SetTimeScale changes the scaled clock rate. Negative scales clamp to zero.
func (c *Clock) SetTimeScale(scale float64) {
	if scale < 0 {
		scale = 0
	}
	c.scale = scale
}
