package entity

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gtil/internal/game/clock"
	"github.com/cory-johannsen/gtil/internal/game/event"
	"github.com/cory-johannsen/gtil/internal/game/geom"
	"github.com/cory-johannsen/gtil/internal/game/physics"
	"github.com/cory-johannsen/gtil/internal/game/weapon"
)

const (
	PlayerMaxHealth = 100
	PlayerSpeed     = 300.0
	PlayerRadius    = 14.0

	DashMultiplier = 3.0
	DashDuration   = 200 * time.Millisecond
	DashCooldown   = 1000 * time.Millisecond

	knockbackDuration = 150 * time.Millisecond
	// reloadStatusDelay pads the second ammo status past reload completion.
	reloadStatusDelay = 50 * time.Millisecond
)

// PlayerDeps are the collaborators of the player.
type PlayerDeps struct {
	Scheduler *clock.Scheduler
	Channel   *event.Channel
	Spawner   weapon.Spawner
	Logger    *zap.Logger
}

// Player is the single human-controlled combatant.
type Player struct {
	Body     *physics.Body
	CharType string
	// Aim is the facing angle in radians used by Shoot.
	Aim float64

	deps    PlayerDeps
	health  int
	weapons []weapon.Weapon
	current int

	lastContact  time.Duration
	contactHit   bool
	stunnedUntil time.Duration
	dashUntil    time.Duration
	dashReadyAt  time.Duration
	moveDir      geom.Vec2
	live         clock.Liveness
}

// NewPlayer places the player at pos carrying weapons in the given order.
//
// Precondition: deps.Scheduler, deps.Channel, deps.Spawner and deps.Logger
// must not be nil; weapons must not be empty.
func NewPlayer(pos geom.Vec2, weapons []weapon.Weapon, deps PlayerDeps) *Player {
	if deps.Scheduler == nil || deps.Channel == nil || deps.Spawner == nil || deps.Logger == nil {
		panic("entity.NewPlayer: missing dependency")
	}
	if len(weapons) == 0 {
		panic("entity.NewPlayer: at least one weapon is required")
	}
	p := &Player{
		deps:    deps,
		health:  PlayerMaxHealth,
		weapons: weapons,
	}
	p.Body = &physics.Body{Kind: physics.KindPlayer, Pos: pos, Radius: PlayerRadius, Enabled: true, Solid: true, Owner: p}
	return p
}

func (p *Player) Position() geom.Vec2 { return p.Body.Pos }
func (p *Player) Alive() bool         { return p.health > 0 }
func (p *Player) Health() int         { return p.health }

// SetHealth replaces health, clamped to [0, PlayerMaxHealth], and publishes
// health-change.
func (p *Player) SetHealth(h int) {
	p.health = min(max(h, 0), PlayerMaxHealth)
	p.deps.Channel.Publish(event.TopicHealthChange, p.health)
}

// CurrentWeapon returns the weapon receiving input.
func (p *Player) CurrentWeapon() weapon.Weapon { return p.weapons[p.current] }

// Weapons returns the carried weapons in switching order.
func (p *Player) Weapons() []weapon.Weapon {
	return append([]weapon.Weapon(nil), p.weapons...)
}

// Announce publishes the current weapon, ammo and health for a fresh HUD.
func (p *Player) Announce() {
	w := p.CurrentWeapon()
	p.deps.Channel.Publish(event.TopicWeaponChanged, w.Name())
	p.deps.Channel.Publish(event.TopicAmmoChange, w.AmmoStatus())
	p.deps.Channel.Publish(event.TopicHealthChange, p.health)
}

// NextWeapon cycles to the next carried weapon. A reload in flight on the
// previous weapon keeps running.
func (p *Player) NextWeapon() weapon.Weapon {
	p.current = (p.current + 1) % len(p.weapons)
	w := p.CurrentWeapon()
	p.deps.Channel.Publish(event.TopicWeaponChanged, w.Name())
	p.deps.Channel.Publish(event.TopicAmmoChange, w.AmmoStatus())
	return w
}

// Shoot fires the current weapon along Aim.
//
// Postcondition: Returns false if the player is dead or the weapon refused.
func (p *Player) Shoot(now time.Duration) bool {
	if !p.Alive() {
		return false
	}
	w := p.CurrentWeapon()
	if !w.TryFire(now, p.Position(), p.Aim, p.deps.Spawner) {
		return false
	}
	p.deps.Channel.Publish(event.TopicAmmoChange, w.AmmoStatus())
	return true
}

// Reload starts reloading the current weapon. The ammo status is published
// immediately and again once the reload has landed, provided the weapon is
// still selected.
func (p *Player) Reload() bool {
	w := p.CurrentWeapon()
	if !w.Reload() {
		return false
	}
	p.deps.Channel.Publish(event.TopicAmmoChange, w.AmmoStatus())
	p.deps.Scheduler.After(w.Def().ReloadDuration()+reloadStatusDelay, p.live.Token(), func() {
		if p.CurrentWeapon() == w {
			p.deps.Channel.Publish(event.TopicAmmoChange, w.AmmoStatus())
		}
	})
	return true
}

// Pickup adds the pickup's ammunition to the weapon that accepts it.
//
// Postcondition: Returns false when no carried weapon accepts the pickup
// type; the pickup is then left in place.
func (p *Player) Pickup(pk *Pickup) bool {
	if pk.Collected() {
		return false
	}
	for _, w := range p.weapons {
		if w.Def().Pickup != pk.Type {
			continue
		}
		w.AddAmmo(pk.Ammo)
		pk.Collect()
		if w == p.CurrentWeapon() {
			p.deps.Channel.Publish(event.TopicAmmoChange, w.AmmoStatus())
		}
		p.deps.Logger.Debug("pickup collected",
			zap.String("type", pk.Type),
			zap.Int("ammo", pk.Ammo),
		)
		return true
	}
	return false
}

// TakeDamage subtracts n from health and publishes health-change.
//
// Postcondition: Health never drops below zero. Returns true if this hit
// killed the player.
func (p *Player) TakeDamage(n int) bool {
	if !p.Alive() {
		return false
	}
	p.SetHealth(p.health - n)
	return !p.Alive()
}

// TryContactHit applies contact damage unless the player is inside the
// invulnerability window opened by the previous contact hit.
func (p *Player) TryContactHit(now time.Duration, damage int, window time.Duration) bool {
	if !p.Alive() {
		return false
	}
	if p.contactHit && now-p.lastContact < window {
		return false
	}
	p.contactHit = true
	p.lastContact = now
	p.TakeDamage(damage)
	return true
}

// Knockback pushes the player away from source with the given speed.
// Movement input is ignored until the impulse has played out.
func (p *Player) Knockback(now time.Duration, source geom.Vec2, force float64) {
	dir := p.Position().Sub(source).Normalize()
	if dir.IsZero() {
		dir = geom.V(1, 0)
	}
	p.Body.Vel = dir.Scale(force)
	p.stunnedUntil = now + knockbackDuration
}

// Move sets the movement direction. A zero vector stops the player.
func (p *Player) Move(dir geom.Vec2) {
	p.moveDir = dir.Normalize()
}

// Dash triples the movement speed briefly.
//
// Postcondition: Returns false while the cooldown runs or when standing still.
func (p *Player) Dash(now time.Duration) bool {
	if !p.Alive() || p.moveDir.IsZero() || now < p.dashReadyAt {
		return false
	}
	p.dashUntil = now + DashDuration
	p.dashReadyAt = now + DashCooldown
	return true
}

// Dashing reports whether a dash is active at now.
func (p *Player) Dashing(now time.Duration) bool { return now < p.dashUntil }

// Update derives the body velocity from input at simulation time now.
func (p *Player) Update(now time.Duration) {
	if !p.Alive() {
		p.Body.Vel = geom.Vec2{}
		return
	}
	if now < p.stunnedUntil {
		return
	}
	speed := PlayerSpeed
	if p.Dashing(now) {
		speed *= DashMultiplier
	}
	p.Body.Vel = p.moveDir.Scale(speed)
}

// Discard silences pending status callbacks and cancels reloads.
func (p *Player) Discard() {
	p.live.Invalidate()
	for _, w := range p.weapons {
		w.Discard()
	}
}
