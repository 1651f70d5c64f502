package scene

import (
	"fmt"
	"reflect"
	"time"

	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/core/event"
	"github.com/l1jgo/scenecore/internal/sequence"
	"go.uber.org/zap"
)

// Metrics receives teardown counters.
type Metrics interface {
	TeardownCompleted(forced bool)
	HookFailed(step string)
}

type NopMetrics struct{}

func (NopMetrics) TeardownCompleted(bool) {}
func (NopMetrics) HookFailed(string)      {}

// Diagnostics receives the hook failures of every teardown that had any.
type Diagnostics interface {
	Record(failures []*HookError)
}

type Options struct {
	// StrictHooks stops an entity's teardown at its first failing hook,
	// leaving it partially detached. By default failures are isolated.
	StrictHooks bool
	Log         *zap.Logger
	Metrics     Metrics
	Bus         *event.Bus // receives EntityDestroyed, may be nil
	Diagnostics Diagnostics
}

// Scene is the arena owning every live entity, the active and collidable
// registries and the per-type instance registries.
// Single-goroutine access only (game loop).
type Scene struct {
	pool         *ecs.EntityPool
	nodes        *ecs.Store[Entity]
	registry     *ecs.Registry
	entities     *ecs.Set
	collidables  *ecs.Set
	instances    map[reflect.Type]*ecs.Set
	sched        *sequence.Scheduler
	destroyQueue []ecs.EntityID

	strict  bool
	log     *zap.Logger
	metrics Metrics
	bus     *event.Bus
	diag    Diagnostics
}

func New(sched *sequence.Scheduler, opts Options) *Scene {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopMetrics{}
	}
	s := &Scene{
		pool:         ecs.NewEntityPool(),
		nodes:        ecs.NewStore[Entity](),
		registry:     ecs.NewRegistry(),
		entities:     ecs.NewSet(),
		collidables:  ecs.NewSet(),
		instances:    make(map[reflect.Type]*ecs.Set),
		sched:        sched,
		destroyQueue: make([]ecs.EntityID, 0, 64),
		strict:       opts.StrictHooks,
		log:          opts.Log,
		metrics:      opts.Metrics,
		bus:          opts.Bus,
		diag:         opts.Diagnostics,
	}
	s.registry.Register(s.nodes)
	return s
}

func (s *Scene) Scheduler() *sequence.Scheduler { return s.sched }

// Spawn takes ownership of e, registers it as active, as collidable when it
// has a collider, and with its behaviour's instance registry.
func (s *Scene) Spawn(e *Entity) ecs.EntityID {
	id := s.pool.Create()
	e.id = id
	e.parent, e.tooltip = 0, 0
	e.children, e.looseChildren, e.looseParents, e.pending = nil, nil, nil, nil
	e.released, e.dying = 0, false
	s.nodes.Set(id, e)
	s.entities.Add(id)
	if e.Collider != nil {
		s.collidables.Add(id)
	}
	if _, ok := e.Behavior.(Instanced); ok {
		e.kind = reflect.TypeOf(e.Behavior)
		set, ok := s.instances[e.kind]
		if !ok {
			set = ecs.NewSet()
			s.instances[e.kind] = set
		}
		set.Add(id)
	}
	return id
}

// SpawnTemporary spawns a plain entity and schedules its destruction after
// lifetime.
func (s *Scene) SpawnTemporary(name string, lifetime time.Duration) (ecs.EntityID, *sequence.Sequence, error) {
	id := s.Spawn(&Entity{Name: name})
	q, err := s.Destroy(id, lifetime)
	return id, q, err
}

func (s *Scene) Alive(id ecs.EntityID) bool { return s.pool.Alive(id) }

// Get returns the live entity behind id.
func (s *Scene) Get(id ecs.EntityID) (*Entity, bool) {
	if !s.pool.Alive(id) {
		return nil, false
	}
	return s.nodes.Get(id)
}

func (s *Scene) Len() int { return s.pool.Len() }

// Entities returns the active registry in registration order.
func (s *Scene) Entities() []ecs.EntityID { return s.entities.Snapshot() }

func (s *Scene) Collidables() []ecs.EntityID { return s.collidables.Snapshot() }

func (s *Scene) IsCollidable(id ecs.EntityID) bool { return s.collidables.Has(id) }

// SetCollidable adds or removes a live entity from the collidable registry.
func (s *Scene) SetCollidable(id ecs.EntityID, on bool) error {
	if !s.pool.Alive(id) {
		return fmt.Errorf("set collidable %d: %w", id, ErrUnknownEntity)
	}
	if on {
		s.collidables.Add(id)
	} else {
		s.collidables.Discard(id)
	}
	return nil
}

// InstancesOf returns the live entities whose behaviour has type T.
func InstancesOf[T Instanced](s *Scene) []ecs.EntityID {
	set, ok := s.instances[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return nil
	}
	return set.Snapshot()
}

// SetParent makes child an owned child of parent, detaching it from its
// previous parent. A zero parent turns child into a root.
func (s *Scene) SetParent(child, parent ecs.EntityID) error {
	c, ok := s.Get(child)
	if !ok {
		return fmt.Errorf("set parent of %d: %w", child, ErrUnknownEntity)
	}
	if !parent.IsZero() {
		if !s.pool.Alive(parent) {
			return fmt.Errorf("set parent of %d to %d: %w", child, parent, ErrUnknownEntity)
		}
		for a := parent; !a.IsZero(); a = s.parentOf(a) {
			if a == child {
				return fmt.Errorf("set parent of %d to %d: %w", child, parent, ErrCycle)
			}
		}
	}
	if p, ok := s.Get(c.parent); ok {
		p.children, _ = removeID(p.children, child)
	}
	c.parent = parent
	if p, ok := s.Get(parent); ok {
		p.children = append(p.children, child)
	}
	return nil
}

// AddLooseChild links child to parent without ownership. Loose links still
// cascade teardown from parent to child. A child may have any number of
// loose parents.
func (s *Scene) AddLooseChild(parent, child ecs.EntityID) error {
	p, ok := s.Get(parent)
	if !ok {
		return fmt.Errorf("loose link %d -> %d: %w", parent, child, ErrUnknownEntity)
	}
	c, ok := s.Get(child)
	if !ok {
		return fmt.Errorf("loose link %d -> %d: %w", parent, child, ErrUnknownEntity)
	}
	if parent == child {
		return fmt.Errorf("loose link %d -> %d: %w", parent, child, ErrCycle)
	}
	if indexOf(p.looseChildren, child) < 0 {
		p.looseChildren = append(p.looseChildren, child)
	}
	if indexOf(c.looseParents, parent) < 0 {
		c.looseParents = append(c.looseParents, parent)
	}
	return nil
}

// RemoveLooseChild drops a loose link if it exists.
func (s *Scene) RemoveLooseChild(parent, child ecs.EntityID) {
	if p, ok := s.Get(parent); ok {
		p.looseChildren, _ = removeID(p.looseChildren, child)
	}
	if c, ok := s.Get(child); ok {
		c.looseParents, _ = removeID(c.looseParents, parent)
	}
}

// SetTooltip attaches tooltip to id. The tooltip is torn down with id.
func (s *Scene) SetTooltip(id, tooltip ecs.EntityID) error {
	e, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("set tooltip of %d: %w", id, ErrUnknownEntity)
	}
	if !tooltip.IsZero() && !s.pool.Alive(tooltip) {
		return fmt.Errorf("set tooltip of %d: %w", id, ErrUnknownEntity)
	}
	if tooltip == id {
		return fmt.Errorf("set tooltip of %d: %w", id, ErrCycle)
	}
	e.tooltip = tooltip
	return nil
}

// parentOf returns the parent handle if it is still valid.
func (s *Scene) parentOf(id ecs.EntityID) ecs.EntityID {
	e, ok := s.Get(id)
	if !ok || !s.pool.Alive(e.parent) {
		return 0
	}
	return e.parent
}
