package event

import (
	"testing"
	"time"

	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/stretchr/testify/assert"
)

func TestEventsArriveNextTick(t *testing.T) {
	b := NewBus()
	var destroyed []ecs.EntityID
	var keys []string
	Subscribe(b, func(ev EntityDestroyed) { destroyed = append(destroyed, ev.EntityID) })
	Subscribe(b, func(ev KeyChanged) { keys = append(keys, ev.Key) })
	sys := NewSystem(b)

	Emit(b, EntityDestroyed{EntityID: 1})
	Emit(b, KeyChanged{Key: "a", Held: true})
	Emit(b, EntityDestroyed{EntityID: 2})
	assert.Equal(t, 3, b.Pending())
	assert.Empty(t, destroyed)

	sys.Update(time.Millisecond)
	assert.Equal(t, []ecs.EntityID{1, 2}, destroyed)
	assert.Equal(t, []string{"a"}, keys)
	assert.Zero(t, b.Pending())

	// nothing new was emitted, so the next tick delivers nothing
	sys.Update(time.Millisecond)
	assert.Len(t, destroyed, 2)
}
