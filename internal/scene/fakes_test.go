package scene

import (
	"errors"
	"fmt"
	"testing"

	"github.com/l1jgo/scenecore/internal/sequence"
	"go.uber.org/zap/zaptest"
)

// journal records hook calls in order.
type journal struct {
	calls []string
}

func (j *journal) add(format string, args ...any) {
	j.calls = append(j.calls, fmt.Sprintf(format, args...))
}

type fakeCollider struct {
	j    *journal
	name string
	err  error
}

func (c *fakeCollider) Remove() error {
	c.j.add("collider %s", c.name)
	return c.err
}

type fakeAudio struct {
	j       *journal
	name    string
	destroy []bool
}

func (a *fakeAudio) Stop(destroy bool) error {
	a.destroy = append(a.destroy, destroy)
	a.j.add("audio %s", a.name)
	return nil
}

type fakeBehavior struct {
	j    *journal
	name string
	err  error
	fn   func()
}

func (b *fakeBehavior) OnDestroy() error {
	b.j.add("on_destroy %s", b.name)
	if b.fn != nil {
		b.fn()
	}
	return b.err
}

type fakeScript struct {
	j     *journal
	name  string
	err   error
	panic bool
}

func (s *fakeScript) Dispose() error {
	s.j.add("dispose %s", s.name)
	if s.panic {
		panic("script exploded")
	}
	return s.err
}

type fakeAnimation struct {
	j    *journal
	name string
	err  error
}

func (a *fakeAnimation) Kill() error {
	a.j.add("animation %s", a.name)
	return a.err
}

type fakeNode struct {
	j       *journal
	name    string
	tagged  bool
	removed bool
}

func (n *fakeNode) ClearTag() { n.tagged = false }

func (n *fakeNode) RemoveNode() error {
	n.removed = true
	n.j.add("render %s", n.name)
	return nil
}

// crate is a behaviour type with an instance registry.
type crate struct{ weight int }

func (*crate) Instanced() {}

type recordingMetrics struct {
	completed int
	forced    int
	failed    []string
}

func (m *recordingMetrics) TeardownCompleted(forced bool) {
	m.completed++
	if forced {
		m.forced++
	}
}

func (m *recordingMetrics) HookFailed(step string) { m.failed = append(m.failed, step) }

type recordingDiagnostics struct {
	batches [][]*HookError
}

func (d *recordingDiagnostics) Record(f []*HookError) { d.batches = append(d.batches, f) }

var errHook = errors.New("hook failed")

func newTestScene(t *testing.T, opts Options) *Scene {
	t.Helper()
	if opts.Log == nil {
		opts.Log = zaptest.NewLogger(t)
	}
	return New(sequence.NewScheduler(opts.Log, nil), opts)
}

// full spawns an entity using every capability.
func full(j *journal, name string) *Entity {
	return &Entity{
		Name:       name,
		Collider:   &fakeCollider{j: j, name: name},
		Audio:      &fakeAudio{j: j, name: name},
		Render:     &fakeNode{j: j, name: name, tagged: true},
		Behavior:   &fakeBehavior{j: j, name: name},
		Scripts:    []Script{&fakeScript{j: j, name: name}},
		Animations: []Animation{&fakeAnimation{j: j, name: name}},
	}
}
