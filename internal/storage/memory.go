package storage

import (
	"context"
	"maps"
	"sync"
)

// MemoryScores is a HighScoreStore held in process memory.
type MemoryScores struct {
	mu      sync.Mutex
	entries []HighScore
}

// NewMemoryScores returns an empty table.
func NewMemoryScores() *MemoryScores {
	return &MemoryScores{}
}

// Record implements HighScoreStore.
func (m *MemoryScores) Record(ctx context.Context, entry HighScore) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	sortScores(m.entries)
	if len(m.entries) > MaxHighScores {
		m.entries = m.entries[:MaxHighScores]
	}
	return nil
}

// Top implements HighScoreStore.
func (m *MemoryScores) Top(ctx context.Context, n int) ([]HighScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n = min(max(n, 0), len(m.entries))
	out := make([]HighScore, n)
	copy(out, m.entries)
	return out, nil
}

// MemorySettings is a SettingsStore held in process memory.
type MemorySettings struct {
	mu sync.Mutex
	s  Settings
}

// NewMemorySettings starts from DefaultSettings.
func NewMemorySettings() *MemorySettings {
	return &MemorySettings{s: DefaultSettings()}
}

// Load implements SettingsStore.
func (m *MemorySettings) Load(ctx context.Context) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.s
	out.AllowedWeapons = maps.Clone(m.s.AllowedWeapons)
	return out, nil
}

// Save implements SettingsStore. The volume is clamped before storing.
func (m *MemorySettings) Save(ctx context.Context, s Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s.WithVolume(s.Volume)
	m.s.AllowedWeapons = maps.Clone(s.AllowedWeapons)
	return nil
}
