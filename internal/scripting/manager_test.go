package scripting_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gtil/internal/game/dice"
	"github.com/cory-johannsen/gtil/internal/scripting"
)

func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return scripting.NewManager(dice.NewSeededSource(5), zap.New(core)), logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0o644))
	return dir
}

func TestManager_LoadDir_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function add(a, b)
			return a + b
		end
	`)
	require.NoError(t, mgr.LoadDir("level-1", dir, 0))
	assert.True(t, mgr.Loaded("level-1"))
	ret, err := mgr.CallHook("level-1", "add", lua.LNumber(3), lua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
}

func TestManager_CallHook_MissingHookOrScope(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "empty.lua", `-- nothing`)
	require.NoError(t, mgr.LoadDir("level-1", dir, 0))

	ret, err := mgr.CallHook("level-1", "nope")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)

	ret, err = mgr.CallHook("level-9", "nope")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_RuntimeErrorLogsWarn(t *testing.T) {
	mgr, logs := newTestManager(t)
	dir := writeTempLua(t, "bad.lua", `
		function bad_hook()
			error("intentional error")
		end
	`)
	require.NoError(t, mgr.LoadDir("level-1", dir, 0))
	ret, err := mgr.CallHook("level-1", "bad_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterMessage("scripting: Lua runtime error").Len())
}

func TestManager_BudgetIsPerCall(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "loop.lua", `
		function spin(n)
			local x = 0
			for i = 1, n do x = x + i end
			return x
		end
	`)
	require.NoError(t, mgr.LoadDir("level-1", dir, 500))
	for i := 0; i < 20; i++ {
		ret, err := mgr.CallHook("level-1", "spin", lua.LNumber(10))
		require.NoError(t, err)
		assert.Equal(t, lua.LNumber(55), ret, "call %d", i)
	}
	ret, _ := mgr.CallHook("level-1", "spin", lua.LNumber(100000))
	assert.Equal(t, lua.LNil, ret, "runaway call is cut off")
}

func TestManager_LoadDir_InvalidLuaReturnsError(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "broken.lua", `function (`)
	assert.Error(t, mgr.LoadDir("level-1", dir, 0))
	assert.False(t, mgr.Loaded("level-1"))
}

func TestManager_LoadDir_MissingDir(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.Error(t, mgr.LoadDir("level-1", filepath.Join(t.TempDir(), "absent"), 0))
}

func TestManager_LoadDir_FilesOrderedByName(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`base_val = 10`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`function get_val() return base_val end`), 0o644))
	require.NoError(t, mgr.LoadDir("ordered", dir, 0))
	ret, err := mgr.CallHook("ordered", "get_val")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(10), ret)
}

func TestManager_UnloadAndClose(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "init.lua", `function get_x() return 1 end`)
	require.NoError(t, mgr.LoadDir("a", dir, 0))
	require.NoError(t, mgr.LoadDir("b", dir, 0))

	mgr.Unload("a")
	assert.False(t, mgr.Loaded("a"))
	assert.True(t, mgr.Loaded("b"))

	mgr.Close()
	ret, err := mgr.CallHook("b", "get_x")
	assert.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestNewManager_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { scripting.NewManager(nil, zap.NewNop()) })
	assert.Panics(t, func() { scripting.NewManager(dice.NewSeededSource(1), nil) })
}

func TestHook_Dialogue(t *testing.T) {
	mgr, _ := newTestManager(t)
	kills := 0
	mgr.Kills = func() int { return kills }
	path := filepath.Join(writeTempLua(t, "zabala.lua", `
		function dialogue(trigger)
			if trigger == "kills:3" then
				return "Zabala: " .. engine.game.kills() .. " caidos!"
			end
			if trigger == "time:5" then
				return ""
			end
			return nil
		end
	`), "zabala.lua")
	require.NoError(t, mgr.LoadFile("level-3", path, 0))
	hook := mgr.DialogueHook("level-3")

	kills = 3
	line, ok := hook.Dialogue("kills:3")
	require.True(t, ok)
	assert.Equal(t, "Zabala: 3 caidos!", line)

	_, ok = hook.Dialogue("time:5")
	assert.False(t, ok, "empty line is no line")
	_, ok = hook.Dialogue("start")
	assert.False(t, ok)
	_, ok = mgr.DialogueHook("level-9").Dialogue("start")
	assert.False(t, ok)
}

func TestProperty_CallHookMissingScopeNeverPanics(t *testing.T) {
	mgr, _ := newTestManager(t)
	rapid.Check(t, func(rt *rapid.T) {
		scope := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "scope")
		hook := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "hook")
		ret, err := mgr.CallHook(scope, hook)
		if err != nil || ret != lua.LNil {
			rt.Fatalf("expected (nil, nil), got (%v, %v)", ret, err)
		}
	})
}
