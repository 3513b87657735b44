package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gtil/internal/game/dice"
)

// vm is one loaded script scope.
type vm struct {
	L      *lua.LState
	cancel func()
	limit  int
}

// Manager owns one sandboxed LState per scope (usually a story level) and
// dispatches hooks into it. Calls into a scope are serialized.
type Manager struct {
	mu     sync.Mutex
	vms    map[string]*vm
	src    dice.Source
	logger *zap.Logger

	// Injected after construction. nil = the engine.game call returns nil.
	Kills   func() int
	Score   func() int
	Elapsed func() float64
	Health  func() int
}

// NewManager creates a Manager.
//
// Precondition: src and logger must be non-nil.
// Postcondition: Returns a Manager with no scopes loaded.
func NewManager(src dice.Source, logger *zap.Logger) *Manager {
	if src == nil {
		panic("scripting.NewManager: src must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		src:    src,
		logger: logger,
	}
}

// LoadDir creates a VM for scope and executes every *.lua file in dir in
// lexicographic order. An existing VM for scope is replaced.
//
// Precondition: scope must be non-empty; dir must be a readable directory.
func (m *Manager) LoadDir(scope, dir string, instLimit int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", dir, scope, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return m.load(scope, files, instLimit)
}

// LoadFile creates a VM for scope from a single script.
func (m *Manager) LoadFile(scope, path string, instLimit int) error {
	return m.load(scope, []string{path}, instLimit)
}

func (m *Manager) load(scope string, files []string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	m.RegisterModules(L)
	for _, path := range files {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, scope, err)
		}
	}
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.vms[scope]; ok {
		old.L.Close()
	}
	m.vms[scope] = &vm{L: L, limit: instLimit}
	return nil
}

// Loaded reports whether scope has a VM.
func (m *Manager) Loaded(scope string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.vms[scope]
	return ok
}

// CallHook calls the named global function in scope's VM with a fresh opcode
// budget. Returns (LNil, nil) if the scope or hook does not exist. Lua
// runtime errors are logged at Warn level and never propagated.
//
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.vms[scope]
	if !ok {
		m.logger.Debug("scripting: no VM for scope",
			zap.String("scope", scope),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}
	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	cancel := arm(v.L, v.limit)
	defer cancel()
	if err := v.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("scope", scope),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}
	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Unload closes scope's VM if one exists.
func (m *Manager) Unload(scope string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.vms[scope]; ok {
		v.L.Close()
		delete(m.vms, scope)
	}
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for scope, v := range m.vms {
		v.L.Close()
		delete(m.vms, scope)
	}
}

// Hook adapts one scope to the story engine's dialogue hook.
type Hook struct {
	m     *Manager
	scope string
}

// DialogueHook returns the dialogue hook of scope.
func (m *Manager) DialogueHook(scope string) *Hook {
	return &Hook{m: m, scope: scope}
}

// Dialogue asks the script's dialogue(trigger) function for a line. A
// non-string or empty return means the script has nothing to say.
func (h *Hook) Dialogue(trigger string) (string, bool) {
	ret, err := h.m.CallHook(h.scope, "dialogue", lua.LString(trigger))
	if err != nil {
		return "", false
	}
	s, ok := ret.(lua.LString)
	if !ok || s == "" {
		return "", false
	}
	return string(s), true
}
