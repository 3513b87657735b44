package director

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/gtil/internal/config"
	"github.com/cory-johannsen/gtil/internal/game/entity"
	"github.com/cory-johannsen/gtil/internal/game/level"
)

// Mode selects the progression rules of a session.
type Mode string

const (
	// ModeArcade plays fixed rounds, then endless respawns until the boss
	// milestone moves the session to the boss arena.
	ModeArcade Mode = "arcade"
	// ModeStory plays one campaign level against its kill target.
	ModeStory Mode = "story"
	// ModeBoss plays the boss arena; the boss's death wins the run.
	ModeBoss Mode = "boss"
)

// Tuning constants that are not configurable.
const (
	VictoryBonus       = 1000
	DoorRange          = 64.0
	BulletKnockback    = 150.0
	ContactKnockback   = 300.0
	BossWaveDelay      = 1500 * time.Millisecond
	recordTimeout      = 2 * time.Second
	defaultScoreReward = 100
)

// Options are the progression and substrate settings of a director.
type Options struct {
	CellSize              float64
	PoolSize              int
	MaxRounds             int
	RoundEnemies          int
	RoundDelay            time.Duration
	RespawnDelay          time.Duration
	BossMilestone         int
	BossMinions           int
	ContactDamage         int
	Invulnerability       time.Duration
	PathIterationsPerTick int
	RoomSweep             time.Duration
}

// DefaultOptions mirrors the default game configuration.
func DefaultOptions() Options {
	return Options{
		CellSize:              level.DefaultCellSize,
		PoolSize:              100,
		MaxRounds:             3,
		RoundEnemies:          3,
		RoundDelay:            2 * time.Second,
		RespawnDelay:          5 * time.Second,
		BossMilestone:         23,
		BossMinions:           23,
		ContactDamage:         10,
		Invulnerability:       time.Second,
		PathIterationsPerTick: 1000,
		RoomSweep:             500 * time.Millisecond,
	}
}

// OptionsFromConfig copies the game section of the configuration.
func OptionsFromConfig(cfg config.GameConfig) Options {
	return Options{
		CellSize:              cfg.CellSize,
		PoolSize:              cfg.PoolSize,
		MaxRounds:             cfg.MaxRounds,
		RoundEnemies:          cfg.RoundEnemies,
		RoundDelay:            cfg.RoundDelay,
		RespawnDelay:          cfg.RespawnDelay,
		BossMilestone:         cfg.BossMilestone,
		BossMinions:           cfg.BossMinions,
		ContactDamage:         cfg.ContactDamage,
		Invulnerability:       cfg.Invulnerability,
		PathIterationsPerTick: cfg.PathIterationsPerTick,
		RoomSweep:             cfg.RoomSweep,
	}
}

// Roster names the enemy templates a director spawns.
type Roster struct {
	Regular *entity.Template
	Boss    *entity.Template
}

// NewRoster picks the first regular and the first boss template in order.
//
// Postcondition: Returns an error when either kind is missing.
func NewRoster(templates []*entity.Template) (Roster, error) {
	var r Roster
	for _, t := range templates {
		switch {
		case t.Boss && r.Boss == nil:
			r.Boss = t
		case !t.Boss && r.Regular == nil:
			r.Regular = t
		}
	}
	if r.Regular == nil {
		return Roster{}, fmt.Errorf("director: no regular enemy template")
	}
	if r.Boss == nil {
		return Roster{}, fmt.Errorf("director: no boss enemy template")
	}
	return r, nil
}

// Carry is the player progress moved across a map transition.
type Carry struct {
	Health int
	Score  int
	Kills  int
}
