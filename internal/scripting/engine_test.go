package scripting

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/l1jgo/scenecore/internal/clock"
	"github.com/l1jgo/scenecore/internal/input"
	"github.com/l1jgo/scenecore/internal/scene"
	"github.com/l1jgo/scenecore/internal/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap/zaptest"
)

func newEngine(t *testing.T, dir string) (*Engine, *scene.Scene) {
	t.Helper()
	log := zaptest.NewLogger(t)
	sc := scene.New(sequence.NewScheduler(log, nil), scene.Options{Log: log})
	e, err := NewEngine(dir, sc, input.NewState(), log)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e, sc
}

func global(e *Engine, name string) lua.LValue { return e.vm.GetGlobal(name) }

func TestLoadDirRegistersBehaviours(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`register_behaviour("spinner", {})`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`register_behaviour("blinker", {})`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`not lua`), 0o644))

	e, _ := newEngine(t, dir)
	assert.Equal(t, []string{"blinker", "spinner"}, e.Behaviours())
}

func TestMissingDirIsEmpty(t *testing.T) {
	e, _ := newEngine(t, filepath.Join(t.TempDir(), "nope"))
	assert.Empty(t, e.Behaviours())
}

func TestBrokenScriptFailsLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.lua"), []byte(`this is not lua`), 0o644))
	_, err := NewEngine(dir, nil, nil, nil)
	assert.ErrorContains(t, err, "bad.lua")
}

func TestBehaviourHooksRunDuringTeardown(t *testing.T) {
	e, sc := newEngine(t, "")
	require.NoError(t, e.LoadString(`
calls = {}
register_behaviour("tracker", {
	start = function(self) table.insert(calls, "start " .. self.behaviour) end,
	on_destroy = function(self) table.insert(calls, "on_destroy") end,
	dispose = function(self) table.insert(calls, "dispose") end,
})`))

	ent := &scene.Entity{Name: "tracked"}
	id := sc.Spawn(ent)
	script, err := e.Attach("tracker", id)
	require.NoError(t, err)
	ent.Scripts = append(ent.Scripts, script)

	require.NoError(t, sc.Teardown(id, false))
	calls := global(e, "calls").(*lua.LTable)
	var got []string
	calls.ForEach(func(_, v lua.LValue) { got = append(got, v.String()) })
	assert.Equal(t, []string{"start tracker", "on_destroy", "dispose"}, got)

	// disposing again is a no-op
	require.NoError(t, script.Dispose())
	assert.Equal(t, 3, calls.Len())
}

func TestFailingHookIsReported(t *testing.T) {
	e, sc := newEngine(t, "")
	require.NoError(t, e.LoadString(`
register_behaviour("broken", {
	on_destroy = function(self) error("kaput") end,
})`))
	ent := &scene.Entity{Name: "victim"}
	id := sc.Spawn(ent)
	script, err := e.Attach("broken", id)
	require.NoError(t, err)
	ent.Scripts = []scene.Script{script}

	err = sc.Teardown(id, false)
	require.Error(t, err)
	assert.ErrorContains(t, err, "kaput")
	assert.False(t, sc.Alive(id))
}

func TestAttachUnknown(t *testing.T) {
	e, sc := newEngine(t, "")
	_, err := e.Attach("ghost", sc.Spawn(&scene.Entity{}))
	assert.ErrorContains(t, err, "ghost")
}

func TestInvokeAndDestroyFromLua(t *testing.T) {
	e, sc := newEngine(t, "")
	c := clock.New(nil, 1)
	id := sc.Spawn(&scene.Entity{Name: "target"})
	e.vm.SetGlobal("target", lua.LNumber(id))

	require.NoError(t, e.LoadString(`
fired = 0
now = invoke(function() fired = fired + 1 end)
later = invoke(function() fired = fired + 10 end, 1.0)
cancelled = invoke(function() fired = fired + 100 end, 1.0)
cancelled:kill()
pending = destroy(target, 2.0)
`))
	assert.Equal(t, lua.LNil, global(e, "now"))
	assert.Equal(t, lua.LNumber(1), global(e, "fired"))
	assert.True(t, sc.Alive(id))

	sc.Scheduler().Tick(c.Step(time.Second))
	assert.Equal(t, lua.LNumber(11), global(e, "fired"))
	assert.True(t, sc.Alive(id))

	sc.Scheduler().Tick(c.Step(time.Second))
	assert.False(t, sc.Alive(id))

	require.NoError(t, e.LoadString(`ok, err = destroy(target, 1.0)`))
	assert.Equal(t, lua.LNil, global(e, "ok"))
	assert.Contains(t, global(e, "err").String(), "unknown entity")
}

func TestQueueDestroyAndHeld(t *testing.T) {
	e, sc := newEngine(t, "")
	id := sc.Spawn(&scene.Entity{Name: "queued"})
	e.vm.SetGlobal("target", lua.LNumber(id))
	e.input.Feed("space")

	require.NoError(t, e.LoadString(`
queue_destroy(target)
space = held("space")
other = held("x")
`))
	assert.Equal(t, lua.LNumber(1), global(e, "space"))
	assert.Equal(t, lua.LNumber(0), global(e, "other"))
	assert.True(t, sc.Alive(id))
	require.NoError(t, sc.FlushDestroyQueue())
	assert.False(t, sc.Alive(id))
}

func TestInputForwarded(t *testing.T) {
	e, _ := newEngine(t, "")
	require.NoError(t, e.LoadString(`last = "" function input(key) last = key end`))
	e.Input("a up")
	assert.Equal(t, "a up", global(e, "last").String())
}
