package scene

import (
	"fmt"
	"slices"
	"time"

	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/core/event"
	"github.com/l1jgo/scenecore/internal/invoke"
	"github.com/l1jgo/scenecore/internal/sequence"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Destroy tears id down now when delay is zero, otherwise schedules the
// teardown and returns the sequence so it can be killed before it fires. A
// negative delay is scheduled like any other and fires on the next tick.
// Destroying a dead handle without delay is a no-op.
func (s *Scene) Destroy(id ecs.EntityID, delay time.Duration) (*sequence.Sequence, error) {
	if delay == 0 {
		return nil, s.Teardown(id, false)
	}
	e, ok := s.Get(id)
	if !ok {
		return nil, fmt.Errorf("destroy %d: %w", id, ErrUnknownEntity)
	}
	var q *sequence.Sequence
	q = invoke.Invoke(s.sched, func() { s.deferredTeardown(id, q) }, invoke.Delay(delay))
	e.pending = slices.DeleteFunc(e.pending, func(p *sequence.Sequence) bool { return !p.Active() })
	e.pending = append(e.pending, q)
	return q, nil
}

// deferredTeardown runs inside q's last step. q leaves the entity's pending
// list first so teardown does not kill it and it can finish normally.
func (s *Scene) deferredTeardown(id ecs.EntityID, q *sequence.Sequence) {
	if e, ok := s.Get(id); ok {
		e.pending = slices.DeleteFunc(e.pending, func(p *sequence.Sequence) bool { return p == q })
	}
	if err := s.Teardown(id, false); err != nil {
		s.log.Error("deferred teardown failed", zap.Uint64("entity", uint64(id)), zap.Error(err))
	}
}

// QueueDestroy marks id for teardown at the end of the tick.
func (s *Scene) QueueDestroy(id ecs.EntityID) {
	s.destroyQueue = append(s.destroyQueue, id)
}

// FlushDestroyQueue tears down every queued entity. Entities queued while
// flushing are torn down in the same flush.
func (s *Scene) FlushDestroyQueue() error {
	var err error
	for i := 0; i < len(s.destroyQueue); i++ {
		err = multierr.Append(err, s.Teardown(s.destroyQueue[i], false))
	}
	clear(s.destroyQueue)
	s.destroyQueue = s.destroyQueue[:0]
	return err
}

// Teardown dismantles id and everything it owns, depth first. Eternal
// entities are skipped unless force is set. Hook failures are returned as a
// multierr batch of *HookError; the structural steps still run unless the
// scene is strict. Tearing down a dead handle is a no-op.
func (s *Scene) Teardown(id ecs.EntityID, force bool) error {
	return s.teardown(id, force)
}

func (s *Scene) teardown(id ecs.EntityID, force bool) error {
	e, ok := s.Get(id)
	if !ok || e.dying {
		return nil
	}
	if e.Eternal && !force {
		return nil
	}
	e.dying = true

	var errs error
	for _, c := range e.Children() {
		errs = multierr.Append(errs, s.teardown(c, force))
	}

	var failures []*HookError
	abort := false
	seen := 0
	hook := func(step string, fn func() error) {
		if abort {
			return
		}
		seen++
		if seen <= e.released {
			return // succeeded before a strict abort
		}
		herr := call(fn)
		if herr == nil {
			if seen == e.released+1 {
				e.released = seen
			}
			return
		}
		he := &HookError{Entity: id, Name: e.Name, Step: step, Err: herr}
		failures = append(failures, he)
		s.metrics.HookFailed(step)
		s.log.Warn("teardown hook failed",
			zap.Uint64("entity", uint64(id)),
			zap.String("name", e.Name),
			zap.String("step", step),
			zap.Error(herr),
		)
		if s.strict {
			abort = true
		}
	}

	if e.Collider != nil {
		hook(StepCollider, e.Collider.Remove)
	}
	if e.Audio != nil {
		hook(StepAudio, func() error { return e.Audio.Stop(false) })
	}
	if d, ok := e.Behavior.(Destroyable); ok {
		hook(StepOnDestroy, d.OnDestroy)
	}
	for _, sc := range e.Scripts {
		if d, ok := sc.(Destroyable); ok {
			hook(StepOnDestroy, d.OnDestroy)
		}
	}
	if abort {
		return s.aborted(e, errs, failures)
	}

	s.entities.Discard(id)
	s.collidables.Discard(id)
	if p, ok := s.Get(e.parent); ok {
		p.children, _ = removeID(p.children, id)
	}

	for _, c := range e.LooseChildren() {
		errs = multierr.Append(errs, s.teardown(c, false))
		// eternal loose children survive and forget the link
		if ce, ok := s.Get(c); ok {
			ce.looseParents, _ = removeID(ce.looseParents, id)
		}
	}
	for _, lpid := range e.looseParents {
		if lp, ok := s.Get(lpid); ok {
			lp.looseChildren, _ = removeID(lp.looseChildren, id)
		}
	}

	for _, sc := range e.Scripts {
		hook(StepScript, sc.Dispose)
	}
	for _, a := range e.Animations {
		hook(StepAnimation, a.Kill)
	}
	if abort {
		return s.aborted(e, errs, failures)
	}

	if !e.tooltip.IsZero() {
		errs = multierr.Append(errs, s.teardown(e.tooltip, force))
	}
	if e.OnClick != nil && e.OnClick.Active() {
		e.OnClick.Kill()
	}
	for _, q := range e.pending {
		q.Kill()
	}

	if e.Render != nil {
		hook(StepRender, func() error {
			e.Render.ClearTag()
			return e.Render.RemoveNode()
		})
		if abort {
			return s.aborted(e, errs, failures)
		}
	}
	if set, ok := s.instances[e.kind]; ok {
		set.Discard(id)
	}

	// eternal children that survived become roots
	for _, c := range e.children {
		if ce, ok := s.Get(c); ok && ce.parent == id {
			ce.parent = 0
		}
	}

	s.registry.RemoveAll(id)
	s.pool.Destroy(id)
	e.children, e.looseChildren, e.looseParents, e.pending = nil, nil, nil, nil
	s.finish(e, force, failures)
	return appendFailures(errs, failures)
}

// aborted ends a strict teardown early. The entity stays alive and may be
// torn down again; hooks that already succeeded are not called a second time.
func (s *Scene) aborted(e *Entity, errs error, failures []*HookError) error {
	e.dying = false
	if s.diag != nil {
		s.diag.Record(failures)
	}
	return appendFailures(errs, failures)
}

func (s *Scene) finish(e *Entity, forced bool, failures []*HookError) {
	s.metrics.TeardownCompleted(forced)
	if len(failures) > 0 && s.diag != nil {
		s.diag.Record(failures)
	}
	if s.bus != nil {
		event.Emit(s.bus, event.EntityDestroyed{
			EntityID: e.id,
			Name:     e.Name,
			Forced:   forced,
			Failures: len(failures),
		})
	}
	s.log.Debug("entity destroyed",
		zap.Uint64("entity", uint64(e.id)),
		zap.String("name", e.Name),
		zap.Bool("forced", forced),
	)
}

// Shutdown force-tears down every entity, eternal ones included, roots
// first, then kills whatever sequences are still running.
func (s *Scene) Shutdown() error {
	var errs error
	ids := s.entities.Snapshot()
	for _, id := range ids {
		if s.parentOf(id).IsZero() {
			errs = multierr.Append(errs, s.teardown(id, true))
		}
	}
	for _, id := range ids {
		errs = multierr.Append(errs, s.teardown(id, true))
	}
	s.sched.KillAll()
	return errs
}

func appendFailures(errs error, failures []*HookError) error {
	for _, f := range failures {
		errs = multierr.Append(errs, f)
	}
	return errs
}

// call runs a hook, turning a panic into an error.
func call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
