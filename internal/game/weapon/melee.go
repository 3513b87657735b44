package weapon

import (
	"time"

	"github.com/cory-johannsen/gtil/internal/game/geom"
	"github.com/cory-johannsen/gtil/internal/game/projectile"
)

// Melee is an always-ready close-range weapon. Each swing places a short
// lived stationary probe Reach units ahead of the wielder.
type Melee struct {
	def   *Def
	owner projectile.Owner
	gate  gate
}

func (m *Melee) Def() *Def          { return m.def }
func (m *Melee) Name() string       { return m.def.Name }
func (m *Melee) Kind() Kind         { return KindMelee }
func (m *Melee) Damage() int        { return m.def.Damage }
func (m *Melee) IsReloading() bool  { return false }
func (m *Melee) Reload() bool       { return false }
func (m *Melee) AddAmmo(int)        {}
func (m *Melee) Discard()           {}
func (m *Melee) AmmoStatus() string { return "MELEE" }

// Ammo reports an infinite, always-full weapon.
func (m *Melee) Ammo() Ammo {
	return Ammo{Mag: 1, MagSize: 1, Reserve: InfiniteReserve, MaxReserve: InfiniteReserve, Infinite: true}
}

// TryFire swings if the fire interval has elapsed.
func (m *Melee) TryFire(now time.Duration, origin geom.Vec2, angle float64, sp Spawner) bool {
	if !m.gate.ready(now, m.def.FireInterval()) {
		return false
	}
	m.gate.mark(now)
	sp.Spawn(projectile.Shot{
		Owner:    m.owner,
		Origin:   origin.Add(geom.FromAngle(angle, m.def.Reach)),
		Angle:    angle,
		Damage:   m.def.Damage,
		Lifespan: m.def.Lifespan(),
		Melee:    true,
	})
	return true
}
