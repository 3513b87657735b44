// Package projectile provides the fixed-capacity projectile pool shared by
// every weapon in a session.
package projectile

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gtil/internal/game/geom"
	"github.com/cory-johannsen/gtil/internal/game/physics"
)

// Defaults applied to zero-valued Shot fields.
const (
	DefaultSpeed         = 800.0
	DefaultLifespan      = 5000 * time.Millisecond
	DefaultRadius        = 2.0
	DefaultMeleeRadius   = 16.0
	DefaultMeleeLifespan = 150 * time.Millisecond
	EnemyBulletSpeed     = 400.0
)

// Owner tags which side fired a projectile.
type Owner uint8

const (
	OwnerPlayer Owner = iota + 1
	OwnerEnemy
)

func (o Owner) String() string {
	switch o {
	case OwnerPlayer:
		return "player"
	case OwnerEnemy:
		return "enemy"
	}
	return "unknown"
}

// Shot is a request to launch one projectile.
type Shot struct {
	Owner    Owner
	Origin   geom.Vec2
	Angle    float64
	Damage   int
	Speed    float64
	Lifespan time.Duration
	Radius   float64
	// Melee shots are stationary probes; Speed is ignored.
	Melee bool
}

// Projectile is one pooled slot. Its body is registered with the physics
// world for the whole session and enabled only while the slot is active.
type Projectile struct {
	Slot     int
	Owner    Owner
	Damage   int
	Melee    bool
	Lifespan time.Duration
	Body     *physics.Body
}

// Active reports whether the slot is in flight.
func (p *Projectile) Active() bool { return p.Body.Enabled }

// Pos returns the current position.
func (p *Projectile) Pos() geom.Vec2 { return p.Body.Pos }

// Kill deactivates the projectile. Safe to call more than once.
//
// Postcondition: Active() is false and velocity is zero.
func (p *Projectile) Kill() {
	p.Body.Enabled = false
	p.Body.Vel = geom.Vec2{}
}

// Pool is a fixed set of projectile slots.
//
// Invariant: ActiveCount() <= Capacity().
type Pool struct {
	logger  *zap.Logger
	slots   []*Projectile
	fired   uint64
	dropped uint64
}

// NewPool allocates capacity inactive slots.
//
// Precondition: capacity > 0; logger must not be nil.
func NewPool(capacity int, logger *zap.Logger) *Pool {
	if capacity <= 0 {
		panic("projectile.NewPool: capacity must be > 0")
	}
	if logger == nil {
		panic("projectile.NewPool: logger must not be nil")
	}
	p := &Pool{logger: logger, slots: make([]*Projectile, capacity)}
	for i := range p.slots {
		pr := &Projectile{Slot: i}
		pr.Body = &physics.Body{Kind: physics.KindProjectile, Owner: pr}
		p.slots[i] = pr
	}
	return p
}

// Bodies returns the physics body of every slot.
func (p *Pool) Bodies() []*physics.Body {
	out := make([]*physics.Body, len(p.slots))
	for i, s := range p.slots {
		out[i] = s.Body
	}
	return out
}

// Spawn launches s from the first inactive slot.
//
// Postcondition: Returns false, logs a warning and counts a drop when every
// slot is active. Otherwise every mutable field of the slot is reinitialised.
func (p *Pool) Spawn(s Shot) bool {
	for _, pr := range p.slots {
		if pr.Active() {
			continue
		}
		p.launch(pr, s)
		p.fired++
		return true
	}
	p.dropped++
	p.logger.Warn("projectile pool exhausted",
		zap.Int("capacity", len(p.slots)),
		zap.Stringer("owner", s.Owner),
	)
	return false
}

func (p *Pool) launch(pr *Projectile, s Shot) {
	speed, life, radius := s.Speed, s.Lifespan, s.Radius
	if s.Melee {
		speed = 0
		if life <= 0 {
			life = DefaultMeleeLifespan
		}
		if radius <= 0 {
			radius = DefaultMeleeRadius
		}
	} else {
		if speed <= 0 {
			speed = DefaultSpeed
		}
		if life <= 0 {
			life = DefaultLifespan
		}
		if radius <= 0 {
			radius = DefaultRadius
		}
	}
	pr.Owner = s.Owner
	pr.Damage = s.Damage
	pr.Melee = s.Melee
	pr.Lifespan = life
	pr.Body.Pos = s.Origin
	pr.Body.Vel = geom.FromAngle(s.Angle, speed)
	pr.Body.Radius = radius
	pr.Body.Enabled = true
}

// Update ages every active projectile by dt and kills the ones whose
// lifespan ran out or that left the width×height world rectangle.
func (p *Pool) Update(dt time.Duration, width, height float64) {
	for _, pr := range p.slots {
		if !pr.Active() {
			continue
		}
		pr.Lifespan -= dt
		pos := pr.Body.Pos
		if pr.Lifespan <= 0 || pos.X < 0 || pos.Y < 0 || pos.X > width || pos.Y > height {
			pr.Kill()
		}
	}
}

// Active returns the in-flight projectiles.
func (p *Pool) Active() []*Projectile {
	var out []*Projectile
	for _, pr := range p.slots {
		if pr.Active() {
			out = append(out, pr)
		}
	}
	return out
}

// ActiveCount returns the number of in-flight projectiles.
func (p *Pool) ActiveCount() int {
	n := 0
	for _, pr := range p.slots {
		if pr.Active() {
			n++
		}
	}
	return n
}

// KillAll deactivates every slot.
func (p *Pool) KillAll() {
	for _, pr := range p.slots {
		pr.Kill()
	}
}

// Capacity returns the number of slots.
func (p *Pool) Capacity() int { return len(p.slots) }

// Fired returns the number of successful spawns.
func (p *Pool) Fired() uint64 { return p.fired }

// Dropped returns the number of spawns refused for lack of a free slot.
func (p *Pool) Dropped() uint64 { return p.dropped }
