package entity

import (
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gtil/internal/game/clock"
	"github.com/cory-johannsen/gtil/internal/game/dice"
	"github.com/cory-johannsen/gtil/internal/game/event"
	"github.com/cory-johannsen/gtil/internal/game/geom"
	"github.com/cory-johannsen/gtil/internal/game/pathfind"
	"github.com/cory-johannsen/gtil/internal/game/physics"
	"github.com/cory-johannsen/gtil/internal/game/projectile"
	"github.com/cory-johannsen/gtil/internal/game/weapon"
)

// State is the behaviour state of an enemy.
type State int

const (
	StateIdle State = iota
	StateAlert
	StateChase
	StateDead
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAlert:
		return "alert"
	case StateChase:
		return "chase"
	case StateDead:
		return "dead"
	}
	return "unknown"
}

const (
	waypointReach = 15.0
	flashDuration = 100 * time.Millisecond
	minionOffset  = 64.0
)

// Target is what an enemy hunts.
type Target interface {
	Position() geom.Vec2
	Alive() bool
}

// Pathfinder answers path requests asynchronously.
type Pathfinder interface {
	FindPath(start, end geom.Vec2, cb pathfind.Callback)
}

// Sight answers line-of-sight queries against walls and closed doors.
type Sight interface {
	LineOfSight(a, b geom.Vec2) bool
}

// EnemyDeps are the collaborators of an enemy.
type EnemyDeps struct {
	Scheduler *clock.Scheduler
	Channel   *event.Channel
	Paths     Pathfinder
	Sight     Sight
	Spawner   weapon.Spawner
	Rand      dice.Source
	Logger    *zap.Logger
	// OnDeath runs once, after the death topic is published. loot is nil
	// when nothing dropped.
	OnDeath func(e *Enemy, loot *Loot)
}

// Enemy is a hostile entity. Regular enemies and the boss share this type
// and differ only by their Capabilities.
//
// Invariant: once Dead, no state transition, hit or callback has any effect.
type Enemy struct {
	ID     string
	Body   *physics.Body
	RoomID int
	// Rotation is the facing angle in radians.
	Rotation float64

	tmpl   Template
	caps   Capabilities
	deps   EnemyDeps
	target Target

	state     State
	health    int
	flashing  bool
	path      []geom.Vec2
	repathAt  time.Duration
	nextShot  time.Duration
	lowFired  bool
	live      clock.Liveness
	spawnedAt time.Duration
}

// NewEnemy spawns an enemy of tmpl at pos hunting target.
//
// Precondition: deps.Scheduler, deps.Channel, deps.Paths, deps.Sight,
// deps.Spawner and deps.Logger must not be nil.
// Postcondition: The enemy is Idle at full health. A boss with a minion
// interval starts requesting reinforcements immediately.
func NewEnemy(tmpl *Template, pos geom.Vec2, target Target, deps EnemyDeps) *Enemy {
	if deps.Scheduler == nil || deps.Channel == nil || deps.Paths == nil || deps.Sight == nil || deps.Spawner == nil || deps.Logger == nil {
		panic("entity.NewEnemy: missing dependency")
	}
	t := tmpl.withDefaults()
	e := &Enemy{
		ID:        uuid.New().String(),
		RoomID:    -1,
		tmpl:      t,
		caps:      t.Capabilities(),
		deps:      deps,
		target:    target,
		health:    t.MaxHP,
		spawnedAt: deps.Scheduler.Now(),
	}
	e.Body = &physics.Body{Kind: physics.KindEnemy, Pos: pos, Radius: t.Radius, Enabled: true, Solid: true, Owner: e}
	if e.caps.Boss && e.caps.MinionInterval > 0 {
		deps.Scheduler.Every(e.caps.MinionInterval, e.live.Token(), e.requestMinions)
	}
	return e
}

func (e *Enemy) Template() *Template        { return &e.tmpl }
func (e *Enemy) Capabilities() Capabilities { return e.caps }
func (e *Enemy) State() State               { return e.state }
func (e *Enemy) Health() int                { return e.health }
func (e *Enemy) MaxHealth() int             { return e.tmpl.MaxHP }
func (e *Enemy) IsDead() bool               { return e.state == StateDead }
func (e *Enemy) Flashing() bool             { return e.flashing }
func (e *Enemy) Pos() geom.Vec2             { return e.Body.Pos }

// Path returns a copy of the cached waypoints.
func (e *Enemy) Path() []geom.Vec2 { return append([]geom.Vec2(nil), e.path...) }

// AliveFor returns how long the enemy has existed.
func (e *Enemy) AliveFor() time.Duration {
	return e.deps.Scheduler.Now() - e.spawnedAt
}

// Update runs one behaviour step at simulation time now.
func (e *Enemy) Update(now time.Duration) {
	if e.IsDead() {
		return
	}
	if e.target == nil || !e.target.Alive() {
		e.Body.Vel = geom.Vec2{}
		return
	}
	switch e.state {
	case StateIdle:
		e.Body.Vel = geom.Vec2{}
		if e.Pos().Dist(e.target.Position()) < e.tmpl.SightRange && e.canSee() {
			e.becomeAlert()
		}
	case StateAlert:
		e.Body.Vel = geom.Vec2{}
		if e.canSee() {
			e.startChase(now)
		}
	case StateChase:
		e.chase(now)
	}
}

func (e *Enemy) canSee() bool {
	return e.deps.Sight.LineOfSight(e.Pos(), e.target.Position())
}

func (e *Enemy) becomeAlert() {
	if e.state == StateChase || e.IsDead() {
		return
	}
	e.state = StateAlert
	e.deps.Scheduler.After(time.Duration(e.tmpl.ReactionMs)*time.Millisecond, e.live.Token(), func() {
		if e.state == StateAlert {
			e.startChase(e.deps.Scheduler.Now())
		}
	})
}

func (e *Enemy) startChase(now time.Duration) {
	e.state = StateChase
	e.repathAt = now
}

// AlertToPlayerInRoom promotes an idle enemy to Alert.
func (e *Enemy) AlertToPlayerInRoom() {
	if e.state == StateIdle {
		e.becomeAlert()
	}
}

func (e *Enemy) chase(now time.Duration) {
	pos, goal := e.Pos(), e.target.Position()
	dist := pos.Dist(goal)
	if dist > e.tmpl.ChaseRange {
		e.state = StateIdle
		e.Body.Vel = geom.Vec2{}
		e.path = nil
		return
	}

	if now >= e.repathAt {
		e.repathAt = now + time.Duration(e.tmpl.RepathMs)*time.Millisecond
		token := e.live.Token()
		e.deps.Paths.FindPath(pos, goal, func(p *pathfind.Path, ok bool) {
			if !token.Valid() {
				return
			}
			if ok {
				e.path = p.Points()
			} else {
				e.path = nil
			}
		})
	}

	visible := e.canSee()
	switch {
	case len(e.path) > 1:
		next := e.path[1]
		e.Rotation = geom.AngleBetween(pos, next)
		e.Body.Vel = geom.FromAngle(e.Rotation, e.tmpl.Speed)
		if pos.Dist(next) < waypointReach {
			e.path = e.path[1:]
		}
	case visible:
		e.Rotation = geom.AngleBetween(pos, goal)
		e.Body.Vel = geom.FromAngle(e.Rotation, e.tmpl.Speed)
	default:
		e.Body.Vel = geom.Vec2{}
	}

	if visible && dist < e.tmpl.FireRange {
		e.shoot(now, geom.AngleBetween(pos, goal))
	}
}

func (e *Enemy) shoot(now time.Duration, angle float64) {
	if now < e.nextShot {
		return
	}
	ok := e.deps.Spawner.Spawn(projectile.Shot{
		Owner:  projectile.OwnerEnemy,
		Origin: e.Pos(),
		Angle:  angle,
		Damage: e.tmpl.BulletDamage,
		Speed:  e.tmpl.BulletSpeed,
	})
	if ok {
		e.nextShot = now + time.Duration(e.tmpl.FireIntervalMs)*time.Millisecond
	}
}

// Hit applies damage.
//
// Postcondition: Returns false and changes nothing when already dead.
// Health never drops below zero; reaching zero kills the enemy.
func (e *Enemy) Hit(damage int) bool {
	if e.IsDead() {
		return false
	}
	e.health = max(e.health-damage, 0)
	e.flashing = true
	e.deps.Scheduler.After(flashDuration, e.live.Token(), func() { e.flashing = false })

	if e.caps.Boss {
		e.deps.Channel.Publish(event.TopicBossHealthChange, event.BossHealth{Current: e.health, Max: e.tmpl.MaxHP})
		if !e.lowFired && e.health > 0 && e.caps.LowHealthFraction > 0 &&
			float64(e.health) <= e.caps.LowHealthFraction*float64(e.tmpl.MaxHP) {
			e.lowFired = true
			e.deps.Channel.Publish(event.TopicBossLowHealth, nil)
		}
	}
	if e.health == 0 {
		e.die()
	}
	return true
}

func (e *Enemy) die() {
	e.state = StateDead
	e.live.Invalidate()
	e.flashing = false
	e.path = nil
	e.Body.Vel = geom.Vec2{}
	e.Body.Enabled = false

	var drop *Loot
	if e.tmpl.Loot != nil && e.deps.Rand != nil {
		if l, ok := e.tmpl.Loot.Roll(e.deps.Rand); ok {
			drop = &l
		}
	}
	e.deps.Logger.Debug("enemy died",
		zap.String("id", e.ID),
		zap.String("template", e.tmpl.ID),
		zap.Bool("boss", e.caps.Boss),
	)
	e.deps.Channel.Publish(e.caps.DeathTopic, nil)
	if e.deps.OnDeath != nil {
		e.deps.OnDeath(e, drop)
	}
}

// Discard silences every pending callback without killing the enemy.
func (e *Enemy) Discard() {
	e.live.Invalidate()
}

func (e *Enemy) requestMinions() {
	n := e.caps.MinionsPerWave
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		p := e.Pos().Add(geom.FromAngle(angle, minionOffset))
		e.deps.Channel.Publish(event.TopicSpawnMinion, event.SpawnRequest{X: p.X, Y: p.Y})
	}
}
