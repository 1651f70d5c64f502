package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/input"
	"github.com/l1jgo/scenecore/internal/invoke"
	"github.com/l1jgo/scenecore/internal/scene"
	"github.com/l1jgo/scenecore/internal/sequence"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const sequenceTypeName = "sequence"

// Engine wraps a single gopher-lua VM holding the behaviour prototypes.
// Single-goroutine access only (game loop).
type Engine struct {
	vm     *lua.LState
	log    *zap.Logger
	scene  *scene.Scene
	input  *input.State
	protos map[string]*lua.LTable
}

// NewEngine creates a Lua engine bound to sc and loads every script in
// scriptsDir. A missing directory yields an engine with no behaviours.
func NewEngine(scriptsDir string, sc *scene.Scene, in *input.State, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{
		vm:     vm,
		log:    log,
		scene:  sc,
		input:  in,
		protos: make(map[string]*lua.LTable),
	}
	e.registerAPI()

	if scriptsDir != "" {
		if err := e.loadDir(scriptsDir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// loadDir loads all .lua files in a directory, in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua source, e.g. a behaviour definition.
func (e *Engine) LoadString(src string) error {
	return e.vm.DoString(src)
}

// Behaviours lists the registered behaviour names.
func (e *Engine) Behaviours() []string {
	names := make([]string, 0, len(e.protos))
	for n := range e.protos {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Attach instantiates behaviour name for entity id and runs its start
// method. The returned script is also a scene.Destroyable.
func (e *Engine) Attach(name string, id ecs.EntityID) (scene.Script, error) {
	proto, ok := e.protos[name]
	if !ok {
		return nil, fmt.Errorf("unknown behaviour %q", name)
	}
	self := e.vm.NewTable()
	self.RawSetString("id", lua.LNumber(id))
	self.RawSetString("behaviour", lua.LString(name))
	mt := e.vm.NewTable()
	mt.RawSetString("__index", proto)
	e.vm.SetMetatable(self, mt)

	b := &Behaviour{engine: e, name: name, id: id, self: self}
	if err := b.call("start"); err != nil {
		return nil, fmt.Errorf("start behaviour %q: %w", name, err)
	}
	return b, nil
}

// Input forwards a key event to the global Lua input(key) function, if any.
func (e *Engine) Input(key string) {
	fn := e.vm.GetGlobal("input")
	if fn.Type() != lua.LTFunction {
		return
	}
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, lua.LString(key)); err != nil {
		e.log.Error("lua input error", zap.String("key", key), zap.Error(err))
	}
}

// Behaviour is one Lua behaviour instance attached to an entity.
type Behaviour struct {
	engine   *Engine
	name     string
	id       ecs.EntityID
	self     *lua.LTable
	disposed bool
}

var (
	_ scene.Script      = (*Behaviour)(nil)
	_ scene.Destroyable = (*Behaviour)(nil)
)

func (b *Behaviour) Name() string { return b.name }

func (b *Behaviour) OnDestroy() error { return b.call("on_destroy") }

// Dispose runs the behaviour's dispose method once.
func (b *Behaviour) Dispose() error {
	if b.disposed {
		return nil
	}
	b.disposed = true
	return b.call("dispose")
}

func (b *Behaviour) call(method string) error {
	vm := b.engine.vm
	fn := vm.GetField(b.self, method)
	if fn.Type() != lua.LTFunction {
		return nil
	}
	if err := vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, b.self); err != nil {
		return fmt.Errorf("lua %s.%s: %w", b.name, method, err)
	}
	return nil
}

// registerAPI exposes the scene and scheduler to scripts.
func (e *Engine) registerAPI() {
	vm := e.vm

	mt := vm.NewTypeMetatable(sequenceTypeName)
	vm.SetField(mt, "__index", vm.SetFuncs(vm.NewTable(), map[string]lua.LGFunction{
		"kill":   e.luaSequenceKill,
		"active": e.luaSequenceActive,
	}))

	vm.SetGlobal("register_behaviour", vm.NewFunction(e.luaRegisterBehaviour))
	vm.SetGlobal("invoke", vm.NewFunction(e.luaInvoke))
	vm.SetGlobal("destroy", vm.NewFunction(e.luaDestroy))
	vm.SetGlobal("queue_destroy", vm.NewFunction(e.luaQueueDestroy))
	vm.SetGlobal("held", vm.NewFunction(e.luaHeld))
	vm.SetGlobal("log", vm.NewFunction(e.luaLog))
}

// register_behaviour(name, table)
func (e *Engine) luaRegisterBehaviour(L *lua.LState) int {
	name := L.CheckString(1)
	proto := L.CheckTable(2)
	e.protos[name] = proto
	return 0
}

// invoke(fn, delay_seconds [, unscaled [, ignore_paused]]) -> sequence|nil
func (e *Engine) luaInvoke(L *lua.LState) int {
	fn := L.CheckFunction(1)
	delay := seconds(L.OptNumber(2, 0))
	unscaled := L.OptBool(3, false)
	ignorePaused := L.OptBool(4, false)

	q := invoke.Invoke(e.scene.Scheduler(), func() {
		if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
			e.log.Error("lua invoke callback error", zap.Error(err))
		}
	}, invoke.Delay(delay), invoke.Unscaled(unscaled), invoke.IgnorePaused(ignorePaused))
	if q == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(e.wrapSequence(q))
	return 1
}

// destroy(id [, delay_seconds]) -> sequence|true, or nil, err
func (e *Engine) luaDestroy(L *lua.LState) int {
	id := ecs.EntityID(L.CheckNumber(1))
	q, err := e.scene.Destroy(id, seconds(L.OptNumber(2, 0)))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	if q == nil {
		L.Push(lua.LTrue)
		return 1
	}
	L.Push(e.wrapSequence(q))
	return 1
}

// queue_destroy(id)
func (e *Engine) luaQueueDestroy(L *lua.LState) int {
	e.scene.QueueDestroy(ecs.EntityID(L.CheckNumber(1)))
	return 0
}

// held(key) -> number
func (e *Engine) luaHeld(L *lua.LState) int {
	key := L.CheckString(1)
	level := 0
	if e.input != nil {
		level = e.input.Held(key)
	}
	L.Push(lua.LNumber(level))
	return 1
}

// log(msg)
func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

func (e *Engine) luaSequenceKill(L *lua.LState) int {
	checkSequence(L).Kill()
	return 0
}

func (e *Engine) luaSequenceActive(L *lua.LState) int {
	L.Push(lua.LBool(checkSequence(L).Active()))
	return 1
}

func (e *Engine) wrapSequence(q *sequence.Sequence) *lua.LUserData {
	ud := e.vm.NewUserData()
	ud.Value = q
	e.vm.SetMetatable(ud, e.vm.GetTypeMetatable(sequenceTypeName))
	return ud
}

func checkSequence(L *lua.LState) *sequence.Sequence {
	ud := L.CheckUserData(1)
	q, ok := ud.Value.(*sequence.Sequence)
	if !ok {
		L.ArgError(1, "sequence expected")
		return nil
	}
	return q
}

func seconds(n lua.LNumber) time.Duration {
	return time.Duration(float64(n) * float64(time.Second))
}
