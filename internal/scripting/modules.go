package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gtil/internal/game/dice"
)

// RegisterModules installs the engine table: engine.log, engine.dice and
// engine.game.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L))
	L.SetField(engine, "dice", m.diceModule(L))
	L.SetField(engine, "game", m.gameModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	level := func(log func(string, ...zap.Field)) lua.LGFunction {
		return func(L *lua.LState) int {
			log(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}
	}
	L.SetField(mod, "debug", L.NewFunction(level(m.logger.Debug)))
	L.SetField(mod, "info", L.NewFunction(level(m.logger.Info)))
	L.SetField(mod, "warn", L.NewFunction(level(m.logger.Warn)))
	L.SetField(mod, "error", L.NewFunction(level(m.logger.Error)))
	return mod
}

// diceModule exposes engine.dice.roll(expr) -> number and
// engine.dice.chance(p) -> bool.
func (m *Manager) diceModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "roll", L.NewFunction(func(L *lua.LState) int {
		amount, err := dice.ParseAmount(L.CheckString(1))
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LNumber(amount.Roll(m.src)))
		return 1
	}))
	L.SetField(mod, "chance", L.NewFunction(func(L *lua.LState) int {
		p := float64(L.CheckNumber(1))
		L.Push(lua.LBool(m.src.Float64() < p))
		return 1
	}))
	return mod
}

// gameModule exposes read-only counters: kills, score, elapsed and health.
func (m *Manager) gameModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	intFn := func(get func() func() int) lua.LGFunction {
		return func(L *lua.LState) int {
			if f := get(); f != nil {
				L.Push(lua.LNumber(f()))
			} else {
				L.Push(lua.LNil)
			}
			return 1
		}
	}
	L.SetField(mod, "kills", L.NewFunction(intFn(func() func() int { return m.Kills })))
	L.SetField(mod, "score", L.NewFunction(intFn(func() func() int { return m.Score })))
	L.SetField(mod, "health", L.NewFunction(intFn(func() func() int { return m.Health })))
	L.SetField(mod, "elapsed", L.NewFunction(func(L *lua.LState) int {
		if m.Elapsed == nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LNumber(m.Elapsed()))
		return 1
	}))
	return mod
}
