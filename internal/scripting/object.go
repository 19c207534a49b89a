package scripting

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/l1jgo/objectd/internal/world"
)

const objectTypeName = "gameobject"

// registerObjectType installs the metatable scripts see on their self argument.
func registerObjectType(L *lua.LState) {
	mt := L.NewTypeMetatable(objectTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), objectMethods))
}

func newObjectUD(L *lua.LState, obj *world.GameObject) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = obj
	L.SetMetatable(ud, L.GetTypeMetatable(objectTypeName))
	return ud
}

func checkObject(L *lua.LState) *world.GameObject {
	ud := L.CheckUserData(1)
	if o, ok := ud.Value.(*world.GameObject); ok {
		return o
	}
	L.ArgError(1, "gameobject expected")
	return nil
}

var objectMethods = map[string]lua.LGFunction{
	"entry": func(L *lua.LState) int {
		L.Push(lua.LNumber(checkObject(L).Entry()))
		return 1
	},
	"spawn_id": func(L *lua.LState) int {
		L.Push(lua.LNumber(checkObject(L).SpawnID()))
		return 1
	},
	"kind": func(L *lua.LState) int {
		L.Push(lua.LString(checkObject(L).Kind().String()))
		return 1
	},
	"loot_state": func(L *lua.LState) int {
		L.Push(lua.LString(checkObject(L).LootState().String()))
		return 1
	},
	"go_state": func(L *lua.LState) int {
		L.Push(lua.LString(checkObject(L).GoState().String()))
		return 1
	},
	"use_count": func(L *lua.LState) int {
		L.Push(lua.LNumber(checkObject(L).UseCount()))
		return 1
	},
	"set_go_state": func(L *lua.LState) int {
		o := checkObject(L)
		o.SetGoState(world.GOState(L.CheckInt(2)))
		return 0
	},
	"set_anim_progress": func(L *lua.LState) int {
		o := checkObject(L)
		o.SetAnimProgress(uint8(L.CheckInt(2)))
		return 0
	},
	// activate(action, param) runs an activation code as the object itself.
	"activate": func(L *lua.LState) int {
		o := checkObject(L)
		o.ActivateObject(world.Action(L.CheckInt(2)), int32(L.OptInt(3, 0)), 0)
		return 0
	},
	// despawn(delay_ms, respawn_sec)
	"despawn": func(L *lua.LState) int {
		o := checkObject(L)
		delay := time.Duration(L.OptInt64(2, 0)) * time.Millisecond
		respawn := time.Duration(L.OptInt64(3, 0)) * time.Second
		o.DespawnOrUnsummon(delay, respawn)
		return 0
	},
	// modify_health(delta, source) damages or repairs a destructible building.
	"modify_health": func(L *lua.LState) int {
		o := checkObject(L)
		o.ModifyHealth(L.CheckInt64(2), uint64(L.OptInt64(3, 0)))
		return 0
	},
	"health": func(L *lua.LState) int {
		if b, ok := checkObject(L).Building(); ok {
			L.Push(lua.LNumber(b.Health))
			return 1
		}
		L.Push(lua.LNil)
		return 1
	},
	// posture_for(viewer, state, ttl_ms) shows one viewer another posture.
	"posture_for": func(L *lua.LState) int {
		o := checkObject(L)
		ttl := time.Duration(L.CheckInt64(4)) * time.Millisecond
		o.SetPostureForViewer(world.ActorID(L.CheckInt64(2)), world.GOState(L.CheckInt(3)), ttl)
		return 0
	},
	// despawn_for(viewer, ttl_ms) hides the object from one viewer.
	"despawn_for": func(L *lua.LState) int {
		o := checkObject(L)
		o.DespawnForViewer(world.ActorID(L.CheckInt64(2)), time.Duration(L.CheckInt64(3))*time.Millisecond)
		return 0
	},
	// capture(state, team) forces the capture point state.
	"capture": func(L *lua.LState) int {
		o := checkObject(L)
		o.UpdateCapturePoint(world.CaptureState(L.CheckInt(2)), world.Faction(L.OptInt(3, 0)))
		return 0
	},
}
