package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/objectd/internal/data"
	"github.com/l1jgo/objectd/internal/world"
)

// Engine wraps a single gopher-lua VM for object scripts and effect
// handlers. It serves as both world.AIFactory and world.EffectExecutor.
// Single-goroutine access only (game loop).
type Engine struct {
	vm      *lua.LState
	log     *zap.Logger
	effects *data.EffectTable
	actors  world.ActorRegistry
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, effects *data.EffectTable, log *zap.Logger) (*Engine, error) {
	e := newEngine(effects, log)

	// core helpers first, then object hooks and effect handlers
	for _, sub := range []string{"core", "object", "effect"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			e.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

func newEngine(effects *data.EffectTable, log *zap.Logger) *Engine {
	if effects == nil {
		effects = data.NewEffectTable()
	}
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("object_ai", vm.NewTable())

	e := &Engine{vm: vm, log: log, effects: effects}
	e.registerHostAPI()
	registerObjectType(vm)
	return e
}

// SetActors lets effect handlers check player-only effects against live actors.
func (e *Engine) SetActors(actors world.ActorRegistry) { e.actors = actors }

func (e *Engine) Close() { e.vm.Close() }

// loadDir loads all .lua files in a directory.
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

// LoadString runs a chunk of Lua source, used by tests and the console.
func (e *Engine) LoadString(src string) error {
	return e.vm.DoString(src)
}

func (e *Engine) registerHostAPI() {
	e.vm.SetGlobal("log_info", e.vm.NewFunction(func(L *lua.LState) int {
		e.log.Info("lua", zap.String("msg", L.CheckString(1)))
		return 0
	}))
	e.vm.SetGlobal("log_warn", e.vm.NewFunction(func(L *lua.LState) int {
		e.log.Warn("lua", zap.String("msg", L.CheckString(1)))
		return 0
	}))
}

// call invokes fn with args and returns its first result. Lua errors are
// logged and reported as nil.
func (e *Engine) call(name string, fn lua.LValue, args ...lua.LValue) lua.LValue {
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua call error", zap.String("fn", name), zap.Error(err))
		return nil
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	return ret
}

// --- effects ---

// HasEffectDefinition reports whether effectID is defined in the effect table.
func (e *Engine) HasEffectDefinition(effectID uint32) bool {
	return e.effects.Get(effectID) != nil
}

// CastEffect resolves an effect. Effects without a handler succeed with no
// script side effects; a handler returning false or failing rejects the cast.
func (e *Engine) CastEffect(src world.EffectSource, target world.ActorID, effectID uint32, args map[string]float64) bool {
	info := e.effects.Get(effectID)
	if info == nil {
		e.log.Warn("cast of undefined effect", zap.Uint32("effect", effectID), zap.Uint32("entry", src.Entry))
		return false
	}
	if info.PlayerOnly && target != 0 && e.actors != nil {
		if a, ok := e.actors.Actor(target); !ok || !a.IsPlayer() {
			return false
		}
	}
	if info.Handler == "" {
		return true
	}
	fn := e.vm.GetGlobal(info.Handler)
	if fn.Type() != lua.LTFunction {
		e.log.Error("lua effect handler not found",
			zap.String("handler", info.Handler),
			zap.Uint32("effect", effectID),
		)
		return false
	}

	t := e.vm.NewTable()
	t.RawSetString("effect_id", lua.LNumber(effectID))
	t.RawSetString("effect", lua.LString(info.Name))
	t.RawSetString("object", lua.LNumber(src.Object))
	t.RawSetString("entry", lua.LNumber(src.Entry))
	t.RawSetString("caster", lua.LNumber(src.Actor))
	t.RawSetString("original_caster", lua.LNumber(src.OriginalCaster))
	t.RawSetString("target", lua.LNumber(target))
	t.RawSetString("harmful", lua.LBool(info.Harmful))
	argt := e.vm.NewTable()
	for k, v := range args {
		argt.RawSetString(k, lua.LNumber(v))
	}
	t.RawSetString("args", argt)

	ret := e.call(info.Handler, fn, t)
	if ret == nil {
		return false
	}
	return ret == lua.LNil || lua.LVAsBool(ret)
}

// --- object hooks ---

// NewAI binds the hook table named by the template's ai_name to obj. Objects
// without a script, or whose table is missing, get no hook.
func (e *Engine) NewAI(obj *world.GameObject) world.AIHook {
	name := obj.Template().AIName
	if name == "" {
		return nil
	}
	reg, ok := e.vm.GetGlobal("object_ai").(*lua.LTable)
	if !ok {
		return nil
	}
	tbl, ok := reg.RawGetString(name).(*lua.LTable)
	if !ok {
		e.log.Warn("object script not found",
			zap.String("ai_name", name),
			zap.Uint32("entry", obj.Entry()),
			zap.Uint64("spawn_id", obj.SpawnID()),
		)
		return nil
	}
	return &objectAI{e: e, name: name, tbl: tbl, self: newObjectUD(e.vm, obj)}
}

type objectAI struct {
	e    *Engine
	name string
	tbl  *lua.LTable
	self *lua.LUserData
}

// invoke calls tbl[hook](self, args...) when defined.
func (a *objectAI) invoke(hook string, args ...lua.LValue) (lua.LValue, bool) {
	fn := a.tbl.RawGetString(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, false
	}
	ret := a.e.call(a.name+"."+hook, fn, append([]lua.LValue{a.self}, args...)...)
	if ret == nil {
		return lua.LNil, false
	}
	return ret, true
}

func (a *objectAI) OnLootStateChanged(state world.LootState, actor world.ActorID) {
	a.invoke("on_loot_state_changed", lua.LString(state.String()), lua.LNumber(actor))
}

func (a *objectAI) OnStateChanged(state world.GOState) {
	a.invoke("on_state_changed", lua.LString(state.String()))
}

func (a *objectAI) OnCapturePointAssaulted(actor world.ActorID) bool {
	ret, ok := a.invoke("on_capture_point_assaulted", lua.LNumber(actor))
	return ok && lua.LVAsBool(ret)
}

func (a *objectAI) OnCapturePointUpdated(state world.CaptureState) bool {
	ret, ok := a.invoke("on_capture_point_updated", lua.LString(state.String()))
	return ok && lua.LVAsBool(ret)
}

func (a *objectAI) Reset() {
	a.invoke("on_reset")
}
