package scene

import (
	"reflect"

	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/sequence"
)

// Capabilities an entity opts into. Teardown only calls what is present.

// Collider is a handle to a collision resource.
type Collider interface {
	Remove() error
}

// Audible is implemented by entities that play audio. Stop(false) halts
// playback without running the clip's own completion behaviour.
type Audible interface {
	Stop(destroy bool) error
}

// Destroyable behaviours get a last look at the entity during teardown.
type Destroyable interface {
	OnDestroy() error
}

// Script is a behaviour attached to an entity.
type Script interface {
	Dispose() error
}

// Animation is a running, cancelable animation.
type Animation interface {
	Kill() error
}

// RenderNode is the entity's node in the rendering graph.
type RenderNode interface {
	ClearTag()
	RemoveNode() error
}

// Instanced marks behaviours whose concrete type keeps a registry of live
// instances, read back with InstancesOf.
type Instanced interface {
	Instanced()
}

// Entity is a node of the scene tree. The exported fields are set by the
// caller before Spawn; links are managed through the Scene.
type Entity struct {
	Name    string
	Eternal bool // survives every non-forced teardown

	Collider   Collider
	Audio      Audible
	Render     RenderNode
	Behavior   any // concrete payload, probed for Destroyable and Instanced
	Scripts    []Script
	Animations []Animation
	OnClick    *sequence.Sequence

	id            ecs.EntityID
	parent        ecs.EntityID
	looseParents  []ecs.EntityID
	tooltip       ecs.EntityID
	children      []ecs.EntityID
	looseChildren []ecs.EntityID
	kind          reflect.Type
	pending       []*sequence.Sequence // deferred destroys aimed at this entity
	released      int                  // teardown hooks completed before a strict abort
	dying         bool
}

func (e *Entity) ID() ecs.EntityID      { return e.id }
func (e *Entity) Parent() ecs.EntityID  { return e.parent }
func (e *Entity) Tooltip() ecs.EntityID { return e.tooltip }

// Children returns a copy of the owned children.
func (e *Entity) Children() []ecs.EntityID {
	return append([]ecs.EntityID(nil), e.children...)
}

// LooseChildren returns a copy of the non-owning links.
func (e *Entity) LooseChildren() []ecs.EntityID {
	return append([]ecs.EntityID(nil), e.looseChildren...)
}

// LooseParents returns a copy of the entities holding e as a loose child.
func (e *Entity) LooseParents() []ecs.EntityID {
	return append([]ecs.EntityID(nil), e.looseParents...)
}

func indexOf(ids []ecs.EntityID, id ecs.EntityID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// removeID deletes the first occurrence of id, keeping order.
func removeID(ids []ecs.EntityID, id ecs.EntityID) ([]ecs.EntityID, bool) {
	i := indexOf(ids, id)
	if i < 0 {
		return ids, false
	}
	copy(ids[i:], ids[i+1:])
	ids[len(ids)-1] = 0
	return ids[:len(ids)-1], true
}
