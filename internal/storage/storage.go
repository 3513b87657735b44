// Package storage defines the persisted records of the game (the high-score
// table and player settings) and in-memory stores for database-less runs.
package storage

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// MaxHighScores is the length of the high-score table.
const MaxHighScores = 10

// DefaultVolume is the master volume of fresh settings.
const DefaultVolume = 0.5

// HighScore is one entry of the high-score table.
type HighScore struct {
	ID       uuid.UUID
	Score    int
	CharType string
	Date     time.Time
}

// NewHighScore stamps a fresh entry.
func NewHighScore(score int, charType string, at time.Time) HighScore {
	return HighScore{ID: uuid.New(), Score: score, CharType: charType, Date: at.UTC()}
}

// Settings are the persisted player preferences.
type Settings struct {
	Volume float64 `json:"volume"`
	// AllowedWeapons filters the player's arsenal by weapon id. A nil map
	// allows every weapon.
	AllowedWeapons map[string]bool `json:"allowedWeapons"`
}

// DefaultSettings returns volume 0.5 with every weapon allowed.
func DefaultSettings() Settings {
	return Settings{Volume: DefaultVolume}
}

// ClampVolume limits v to [0, 1].
func ClampVolume(v float64) float64 {
	return min(max(v, 0), 1)
}

// WithVolume returns a copy of s with the clamped volume set.
func (s Settings) WithVolume(v float64) Settings {
	s.Volume = ClampVolume(v)
	return s
}

// HighScoreStore records finished runs.
type HighScoreStore interface {
	// Record adds entry and keeps only the best MaxHighScores entries.
	Record(ctx context.Context, entry HighScore) error
	// Top returns up to n entries, best first.
	Top(ctx context.Context, n int) ([]HighScore, error)
}

// SettingsStore loads and saves the single settings record.
type SettingsStore interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

// sortScores orders entries best first; ties keep the earlier entry first.
func sortScores(entries []HighScore) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Date.Before(entries[j].Date)
	})
}
