package weapon

import (
	"time"

	"github.com/cory-johannsen/gtil/internal/game/clock"
	"github.com/cory-johannsen/gtil/internal/game/dice"
	"github.com/cory-johannsen/gtil/internal/game/geom"
	"github.com/cory-johannsen/gtil/internal/game/projectile"
)

// Firearm is a magazine-fed weapon.
//
// Invariant: 0 <= mag <= MagSize; reserve stays within [0, MaxReserve] unless
// infinite; at most one reload is in flight.
type Firearm struct {
	def   *Def
	sched *clock.Scheduler
	rand  dice.Source
	owner projectile.Owner

	mag       int
	reserve   int
	reloading bool
	gate      gate
	live      clock.Liveness
}

func newFirearm(def *Def, deps Deps) *Firearm {
	return &Firearm{
		def:     def,
		sched:   deps.Scheduler,
		rand:    deps.Rand,
		owner:   deps.Owner,
		mag:     def.MagSize,
		reserve: def.MaxReserve,
	}
}

func (f *Firearm) Def() *Def         { return f.def }
func (f *Firearm) Name() string      { return f.def.Name }
func (f *Firearm) Kind() Kind        { return KindFirearm }
func (f *Firearm) Damage() int       { return f.def.Damage }
func (f *Firearm) IsReloading() bool { return f.reloading }

// Ammo returns the current ammunition snapshot.
func (f *Firearm) Ammo() Ammo {
	return Ammo{
		Mag:        f.mag,
		MagSize:    f.def.MagSize,
		Reserve:    f.reserve,
		MaxReserve: f.def.MaxReserve,
		Infinite:   f.def.Infinite(),
	}
}

// AmmoStatus formats the HUD string, e.g. "12 / ∞" or "RELOADING...".
func (f *Firearm) AmmoStatus() string {
	if f.reloading {
		return "RELOADING..."
	}
	return formatStatus(f.Ammo())
}

// TryFire consumes one round and launches the weapon's pattern.
//
// Postcondition: Returns false with no state change when reloading, when the
// magazine is empty, or when now is not strictly past the fire interval.
// A pattern projectile refused by the spawner is dropped; the round is still spent.
func (f *Firearm) TryFire(now time.Duration, origin geom.Vec2, angle float64, sp Spawner) bool {
	if f.reloading || f.mag <= 0 {
		return false
	}
	if !f.gate.ready(now, f.def.FireInterval()) {
		return false
	}
	f.mag--
	f.gate.mark(now)

	switch f.def.Pattern {
	case PatternSpread:
		f.spawn(sp, origin, angle+dice.FloatBetween(f.rand, -f.def.Spread, f.def.Spread))
	case PatternMulti:
		mid := float64(f.def.Pellets-1) / 2
		for i := 0; i < f.def.Pellets; i++ {
			f.spawn(sp, origin, angle+(float64(i)-mid)*f.def.Spread)
		}
	default:
		f.spawn(sp, origin, angle)
	}
	return true
}

func (f *Firearm) spawn(sp Spawner, origin geom.Vec2, angle float64) {
	sp.Spawn(projectile.Shot{
		Owner:    f.owner,
		Origin:   origin,
		Angle:    angle,
		Damage:   f.def.Damage,
		Speed:    f.def.Speed,
		Lifespan: f.def.Lifespan(),
	})
}

// Reload starts a reload that completes ReloadDuration later on the
// scheduler, whether or not the weapon is still held.
//
// Postcondition: Returns false with no state change when already reloading,
// when the magazine is full, or when a finite reserve is empty.
func (f *Firearm) Reload() bool {
	if f.reloading || f.mag >= f.def.MagSize {
		return false
	}
	if !f.def.Infinite() && f.reserve <= 0 {
		return false
	}
	f.reloading = true
	f.sched.After(f.def.ReloadDuration(), f.live.Token(), f.finishReload)
	return true
}

func (f *Firearm) finishReload() {
	deficit := f.def.MagSize - f.mag
	if f.def.Infinite() {
		f.mag = f.def.MagSize
	} else {
		n := min(deficit, f.reserve)
		f.mag += n
		f.reserve -= n
	}
	f.reloading = false
}

// AddAmmo adds n rounds to the reserve, capped at MaxReserve. Infinite
// weapons are unaffected.
func (f *Firearm) AddAmmo(n int) {
	if f.def.Infinite() || n <= 0 {
		return
	}
	f.reserve = min(f.reserve+n, f.def.MaxReserve)
}

// Discard drops any pending reload completion.
func (f *Firearm) Discard() {
	f.live.Invalidate()
	f.reloading = false
}
