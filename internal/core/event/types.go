package event

import "github.com/l1jgo/scenecore/internal/core/ecs"

// EntityDestroyed is emitted once an entity's teardown has finished.
type EntityDestroyed struct {
	EntityID ecs.EntityID
	Name     string
	Forced   bool
	Failures int // isolated hook failures during teardown
}

// KeyChanged is emitted when a key's held level changes.
type KeyChanged struct {
	Key  string
	Held bool
}
