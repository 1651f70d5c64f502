// Package app drives the phase runner from a wall clock ticker.
package app

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/l1jgo/scenecore/internal/clock"
	coresys "github.com/l1jgo/scenecore/internal/core/system"
	"go.uber.org/zap"
)

// Loop samples the frame clock once per tick and runs every system with it.
type Loop struct {
	runner *coresys.Runner
	clock  *clock.Clock
	rate   time.Duration
	frame  clock.Frame
	log    *zap.Logger
}

func NewLoop(runner *coresys.Runner, c *clock.Clock, rate time.Duration, log *zap.Logger) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{runner: runner, clock: c, rate: rate, log: log}
}

// Frame returns the frame sampled at the start of the current tick.
func (l *Loop) Frame() clock.Frame { return l.frame }

// Step runs one tick with a fixed real-time delta instead of reading the
// wall clock.
func (l *Loop) Step(dt time.Duration) {
	l.frame = l.clock.Step(dt)
	l.runner.Tick(l.frame.Delta)
}

// Run ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.rate)
	defer ticker.Stop()

	l.log.Info("loop started", zap.Duration("tick", l.rate))
	for {
		select {
		case <-ticker.C:
			l.frame = l.clock.Tick()
			l.runner.Tick(l.frame.Delta)
		case <-ctx.Done():
			l.log.Info("loop stopped", zap.Uint64("ticks", l.runner.Ticks()))
			return ctx.Err()
		}
	}
}

// ReadKeys forwards one key event per line of r until EOF. send reports
// whether the event was accepted.
func ReadKeys(r io.Reader, send func(key string) bool, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := sc.Text(); line != "" && !send(line) {
			log.Debug("key event rejected", zap.String("key", line))
		}
	}
	return sc.Err()
}
