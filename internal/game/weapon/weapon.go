package weapon

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/gtil/internal/game/clock"
	"github.com/cory-johannsen/gtil/internal/game/dice"
	"github.com/cory-johannsen/gtil/internal/game/geom"
	"github.com/cory-johannsen/gtil/internal/game/projectile"
)

// Spawner launches projectiles. The projectile pool implements it.
type Spawner interface {
	Spawn(s projectile.Shot) bool
}

// Ammo is a snapshot of a weapon's ammunition.
type Ammo struct {
	Mag        int
	MagSize    int
	Reserve    int
	MaxReserve int
	Infinite   bool
}

// Weapon is the fire-control surface shared by firearms and melee weapons.
// Refusals are reported as false, never as errors.
type Weapon interface {
	Def() *Def
	Name() string
	Kind() Kind
	Damage() int
	// TryFire fires along angle from origin if the weapon is ready at now.
	TryFire(now time.Duration, origin geom.Vec2, angle float64, sp Spawner) bool
	// Reload starts a reload; completion happens on the scheduler.
	Reload() bool
	IsReloading() bool
	Ammo() Ammo
	AmmoStatus() string
	AddAmmo(n int)
	// Discard cancels any pending reload completion.
	Discard()
}

// Deps are the collaborators a weapon instance needs.
type Deps struct {
	Scheduler *clock.Scheduler
	Rand      dice.Source
	Owner     projectile.Owner
}

// New builds a weapon instance for def.
//
// Precondition: deps.Scheduler and deps.Rand must not be nil.
// Postcondition: Returns a loaded weapon or an error if def is invalid.
func New(def *Def, deps Deps) (Weapon, error) {
	if deps.Scheduler == nil || deps.Rand == nil {
		panic("weapon.New: scheduler and rand must not be nil")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	switch def.Kind {
	case KindMelee:
		return &Melee{def: def, owner: deps.Owner}, nil
	default:
		return newFirearm(def, deps), nil
	}
}

// gate is the shared fire-interval timer. The first shot is always allowed.
type gate struct {
	fired     bool
	lastFired time.Duration
}

// ready reports whether now is strictly after the last shot plus interval.
func (g *gate) ready(now, interval time.Duration) bool {
	return !g.fired || now > g.lastFired+interval
}

func (g *gate) mark(now time.Duration) {
	g.fired = true
	g.lastFired = now
}

func formatStatus(a Ammo) string {
	if a.Infinite {
		return fmt.Sprintf("%d / ∞", a.Mag)
	}
	return fmt.Sprintf("%d / %d", a.Mag, a.Reserve)
}
