package event

import (
	"reflect"
	"sync"
	"time"

	coresys "github.com/l1jgo/scenecore/internal/core/system"
)

// Bus is a double-buffered event bus. Events are delivered at the next swap,
// grouped by event type in the order each type was first seen. System swaps
// in PhasePreUpdate, so events emitted during PhaseInput arrive in the same
// tick and events emitted from PhasePreUpdate on arrive in the next one.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	types    []reflect.Type
	seen     map[reflect.Type]bool
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]func(any)
}

func NewBus() *Bus {
	return &Bus{
		seen:     make(map[reflect.Type]bool),
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues an event into the back buffer.
func Emit[T any](b *Bus, event T) {
	t := typeOf[T]()
	if !b.seen[t] {
		b.seen[t] = true
		b.types = append(b.types, t)
	}
	b.back[t] = append(b.back[t], event)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := typeOf[T]()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// Pending returns how many events wait in the back buffer.
func (b *Bus) Pending() int {
	n := 0
	for _, evs := range b.back {
		n += len(evs)
	}
	return n
}

// SwapBuffers rotates back into front and clears the new back buffer.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers all front-buffer events to their handlers.
func (b *Bus) DispatchAll() {
	for _, t := range b.types {
		handlers := b.handlers[t]
		for _, ev := range b.front[t] {
			for _, h := range handlers {
				h(ev)
			}
		}
	}
}

// System swaps and dispatches the bus once per tick in PhasePreUpdate.
type System struct {
	bus *Bus
}

func NewSystem(bus *Bus) *System { return &System{bus: bus} }

func (s *System) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *System) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
