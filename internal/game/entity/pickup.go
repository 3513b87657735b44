package entity

import (
	"github.com/cory-johannsen/gtil/internal/game/geom"
	"github.com/cory-johannsen/gtil/internal/game/physics"
)

// PickupRadius is the collection radius of an ammo pickup.
const PickupRadius = 10

// Pickup is an ammo drop lying on the floor.
type Pickup struct {
	ID     string
	Type   string
	Ammo   int
	Body   *physics.Body
	picked bool
}

// NewPickup places loot at pos.
func NewPickup(l Loot, pos geom.Vec2) *Pickup {
	p := &Pickup{ID: l.InstanceID, Type: l.Pickup, Ammo: l.Ammo}
	p.Body = &physics.Body{Kind: physics.KindPickup, Pos: pos, Radius: PickupRadius, Enabled: true, Owner: p}
	return p
}

// Collected reports whether the pickup has been taken.
func (p *Pickup) Collected() bool { return p.picked }

// Collect marks the pickup taken and disables its body.
func (p *Pickup) Collect() {
	p.picked = true
	p.Body.Enabled = false
}
