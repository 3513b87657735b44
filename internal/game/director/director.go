// Package director orchestrates one combat session. It owns every live
// entity, resolves physics contacts in rule order and drives round, story
// and boss progression.
package director

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gtil/internal/game/clock"
	"github.com/cory-johannsen/gtil/internal/game/dice"
	"github.com/cory-johannsen/gtil/internal/game/entity"
	"github.com/cory-johannsen/gtil/internal/game/event"
	"github.com/cory-johannsen/gtil/internal/game/geom"
	"github.com/cory-johannsen/gtil/internal/game/level"
	"github.com/cory-johannsen/gtil/internal/game/pathfind"
	"github.com/cory-johannsen/gtil/internal/game/physics"
	"github.com/cory-johannsen/gtil/internal/game/projectile"
	"github.com/cory-johannsen/gtil/internal/game/story"
	"github.com/cory-johannsen/gtil/internal/game/weapon"
	"github.com/cory-johannsen/gtil/internal/observability"
	"github.com/cory-johannsen/gtil/internal/storage"
)

// ErrNoWeapons is returned when the allowed arsenal is empty.
var ErrNoWeapons = errors.New("director: no weapons allowed")

// HighScoreRecorder persists the final score of a run.
type HighScoreRecorder interface {
	Record(ctx context.Context, entry storage.HighScore) error
}

// Deps are the collaborators shared by every director of a session.
type Deps struct {
	Channel *event.Channel
	Rand    dice.Source
	// Weapons is the player's arsenal in cycle order.
	Weapons []*weapon.Def
	Roster  Roster
	// Scores and Metrics may be nil.
	Scores  HighScoreRecorder
	Metrics *observability.Metrics
	Logger  *zap.Logger
	// Now stamps high-score entries; nil means time.Now.
	Now func() time.Time
}

// Setup describes the scene one director plays.
type Setup struct {
	Mode     Mode
	Map      *level.Map
	CharType string
	// Carry restores progress after a map transition. May be nil.
	Carry *Carry
	// Level and Script drive story mode. Script may be nil.
	Level  *story.Level
	Script story.ScriptHook
}

// End reports how a director's scene finished.
type End int

const (
	EndNone End = iota
	EndGameOver
	EndVictory
	EndLevelComplete
	EndTransition
)

func (e End) String() string {
	switch e {
	case EndNone:
		return "none"
	case EndGameOver:
		return "game_over"
	case EndVictory:
		return "victory"
	case EndLevelComplete:
		return "level_complete"
	case EndTransition:
		return "transition"
	}
	return fmt.Sprintf("end(%d)", int(e))
}

// Director plays one scene: a map, its entities and its progression rules.
// It is driven by Tick from a single goroutine.
//
// Invariant: End moves away from EndNone at most once.
type Director struct {
	opts  Options
	deps  Deps
	setup Setup
	m     *level.Map

	sched   *clock.Scheduler
	grid    *pathfind.Grid
	pool    *projectile.Pool
	world   *physics.World
	player  *entity.Player
	enemies []*entity.Enemy
	pickups []*entity.Pickup
	boss    *entity.Enemy
	story   *story.Engine
	subs    []event.Subscription
	live    clock.Liveness

	score        int
	kills        int
	round        int
	roundPending bool
	roundsWon    bool
	started      bool
	stopped      bool
	end          End
}

// New builds a director for setup. Nothing spawns until Start.
//
// Precondition: setup.Map, deps.Channel, deps.Rand and deps.Logger must not
// be nil; deps.Roster must be complete; story mode requires setup.Level.
// Postcondition: Returns ErrNoWeapons when deps.Weapons is empty, or the
// first weapon construction error.
func New(opts Options, setup Setup, deps Deps) (*Director, error) {
	if setup.Map == nil || deps.Channel == nil || deps.Rand == nil || deps.Logger == nil {
		panic("director.New: missing dependency")
	}
	if deps.Roster.Regular == nil || deps.Roster.Boss == nil {
		panic("director.New: roster must name a regular and a boss template")
	}
	if setup.Mode == ModeStory && setup.Level == nil {
		panic("director.New: story mode requires a level")
	}
	if len(deps.Weapons) == 0 {
		return nil, ErrNoWeapons
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	m := setup.Map
	d := &Director{
		opts:  opts,
		deps:  deps,
		setup: setup,
		m:     m,
		sched: clock.NewScheduler(),
		grid:  pathfind.NewGrid(m.Width(), m.Height(), m.CellSize()),
		pool:  projectile.NewPool(opts.PoolSize, deps.Logger),
		world: physics.NewWorld(m),
	}
	d.grid.IterationsPerTick = opts.PathIterationsPerTick
	d.rebuildGrid()
	d.watch()
	for _, b := range d.pool.Bodies() {
		d.world.Add(b)
	}

	weapons := make([]weapon.Weapon, 0, len(deps.Weapons))
	for _, def := range deps.Weapons {
		w, err := weapon.New(def, weapon.Deps{Scheduler: d.sched, Rand: deps.Rand, Owner: projectile.OwnerPlayer})
		if err != nil {
			return nil, fmt.Errorf("building weapon %q: %w", def.ID, err)
		}
		weapons = append(weapons, w)
	}
	d.player = entity.NewPlayer(m.Data().PlayerStart, weapons, entity.PlayerDeps{
		Scheduler: d.sched,
		Channel:   deps.Channel,
		Spawner:   d.pool,
		Logger:    deps.Logger,
	})
	d.player.CharType = setup.CharType
	d.world.Add(d.player.Body)

	if c := setup.Carry; c != nil {
		d.score, d.kills = c.Score, c.Kills
		d.player.SetHealth(c.Health)
	}
	if setup.Level != nil {
		d.story = story.NewEngine(setup.Level, story.EngineDeps{
			Channel:   deps.Channel,
			Scheduler: d.sched,
			Hook:      setup.Script,
			Logger:    deps.Logger,
		})
	}
	d.subs = append(d.subs, event.On(deps.Channel, event.TopicSpawnMinion, d.spawnMinion))
	return d, nil
}

// Start announces the initial HUD state and spawns the opening wave.
// Calling Start again is a no-op.
func (d *Director) Start() {
	if d.started || d.stopped {
		return
	}
	d.started = true
	d.player.Announce()
	d.deps.Channel.Publish(event.TopicScoreChange, d.score)
	if d.opts.RoomSweep > 0 {
		d.sched.Every(d.opts.RoomSweep, d.live.Token(), d.sweepRooms)
	}
	d.deps.Metrics.SessionStarted(string(d.setup.Mode))
	d.deps.Logger.Info("session started",
		zap.String("mode", string(d.setup.Mode)),
		zap.Stringer("map", d.m),
		zap.String("char_type", d.setup.CharType),
	)

	switch d.setup.Mode {
	case ModeArcade:
		d.startRound(1)
	case ModeBoss:
		d.spawnBossWave()
	case ModeStory:
		if d.setup.Level.MapType == level.MapTypeBossTerrace {
			d.spawnBossWave()
		} else {
			d.spawnWave(d.opts.RoundEnemies)
		}
	}
	if d.story != nil {
		d.story.Start(d.sched.Now())
	}
}

// Tick advances the scene by one fixed step of dt.
//
// Postcondition: Does nothing before Start, after Stop, or once the scene
// has ended.
func (d *Director) Tick(dt time.Duration) {
	if !d.started || d.stopped || d.end != EndNone {
		return
	}
	d.sched.Advance(dt)
	now := d.sched.Now()
	d.grid.Calculate()

	d.player.Update(now)
	for _, e := range slices.Clone(d.enemies) {
		e.Update(now)
	}

	d.resolve(now, d.world.Step(dt))

	w, h := d.m.Bounds()
	d.pool.Update(dt, w, h)
	d.sweep()
	if d.story != nil && d.end == EndNone {
		d.story.Update(now)
	}
	d.observe()
}

// Stop silences every pending callback and subscription of the scene.
// Safe to call more than once.
func (d *Director) Stop() {
	if d.stopped {
		return
	}
	d.stopped = true
	d.live.Invalidate()
	for _, s := range d.subs {
		s.Unsubscribe()
	}
	d.subs = nil
	if d.story != nil {
		d.story.Stop()
	}
	d.player.Discard()
	for _, e := range d.enemies {
		e.Discard()
	}
	d.pool.KillAll()
}

// Interact toggles the closest door within DoorRange of pos.
func (d *Director) Interact(pos geom.Vec2) bool {
	door, ok := d.m.NearestDoor(pos, DoorRange)
	if !ok || !door.Toggle(d.sched.Now()) {
		return false
	}
	d.rebuildGrid()
	return true
}

// Fire shoots the current weapon along the player's aim.
func (d *Director) Fire() bool { return d.player.Shoot(d.sched.Now()) }

// Dash starts a dash in the current movement direction.
func (d *Director) Dash() bool { return d.player.Dash(d.sched.Now()) }

// Player returns the player.
func (d *Director) Player() *entity.Player { return d.player }

// Enemies returns the enemies still tracked, dead ones included until the
// end of the tick they died in.
func (d *Director) Enemies() []*entity.Enemy { return slices.Clone(d.enemies) }

// Pickups returns the uncollected pickups.
func (d *Director) Pickups() []*entity.Pickup { return slices.Clone(d.pickups) }

// Level returns the story level being played, or nil outside story mode.
func (d *Director) Level() *story.Level { return d.setup.Level }

// Boss returns the boss, or nil when none spawned.
func (d *Director) Boss() *entity.Enemy { return d.boss }

func (d *Director) Mode() Mode                  { return d.setup.Mode }
func (d *Director) Map() *level.Map             { return d.m }
func (d *Director) Pool() *projectile.Pool      { return d.pool }
func (d *Director) Scheduler() *clock.Scheduler { return d.sched }
func (d *Director) Score() int                  { return d.score }
func (d *Director) Kills() int                  { return d.kills }
func (d *Director) Round() int                  { return d.round }
func (d *Director) RoundsWon() bool             { return d.roundsWon }
func (d *Director) End() End                    { return d.end }

// Carry returns the progress to restore in the next scene.
func (d *Director) Carry() Carry {
	return Carry{Health: d.player.Health(), Score: d.score, Kills: d.kills}
}

// Alive returns the number of live enemies.
func (d *Director) Alive() int {
	n := 0
	for _, e := range d.enemies {
		if !e.IsDead() {
			n++
		}
	}
	return n
}

func (d *Director) rebuildGrid() {
	cells := d.m.WallCells()
	for _, door := range d.m.Doors() {
		if door.Solid() {
			cells = append(cells, door.Cell)
		}
	}
	d.grid.Rebuild(cells)
}

// sweepRooms refreshes every enemy's room and alerts those sharing the
// player's room.
func (d *Director) sweepRooms() {
	playerRoom := d.m.RoomAt(d.player.Position())
	for _, e := range d.enemies {
		if e.IsDead() {
			continue
		}
		e.RoomID = d.m.RoomAt(e.Pos())
		if playerRoom >= 0 && e.RoomID == playerRoom {
			e.AlertToPlayerInRoom()
		}
	}
}

// sweep drops dead enemies and collected pickups from the scene.
func (d *Director) sweep() {
	d.enemies = slices.DeleteFunc(d.enemies, func(e *entity.Enemy) bool {
		if e.IsDead() {
			d.world.Remove(e.Body)
			return true
		}
		return false
	})
	d.pickups = slices.DeleteFunc(d.pickups, func(p *entity.Pickup) bool {
		if p.Collected() {
			d.world.Remove(p.Body)
			return true
		}
		return false
	})
}

func (d *Director) observe() {
	stats := d.grid.Stats()
	d.deps.Metrics.ObservePool(d.pool.Fired(), d.pool.Dropped(), d.pool.ActiveCount())
	d.deps.Metrics.ObservePaths(stats.Queries, stats.NoPath)
	d.deps.Metrics.SetActiveEnemies(d.Alive())
}
