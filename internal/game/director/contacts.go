package director

import (
	"time"

	"github.com/cory-johannsen/gtil/internal/game/entity"
	"github.com/cory-johannsen/gtil/internal/game/physics"
	"github.com/cory-johannsen/gtil/internal/game/projectile"
)

// watch registers the contact rules. Later rules rely on earlier ones having
// already killed spent projectiles, so the order is significant.
func (d *Director) watch() {
	d.world.Watch(physics.KindProjectile, physics.KindWall)
	d.world.Watch(physics.KindProjectile, physics.KindDoor)
	d.world.Watch(physics.KindProjectile, physics.KindEnemy)
	d.world.Watch(physics.KindProjectile, physics.KindPlayer)
	d.world.Watch(physics.KindPlayer, physics.KindEnemy)
	d.world.Watch(physics.KindPlayer, physics.KindPickup)
}

// resolve applies contacts in the order Step reported them. Every branch
// re-checks Enabled since an earlier contact may have disabled a body.
func (d *Director) resolve(now time.Duration, contacts []physics.Contact) {
	for _, c := range contacts {
		if !c.A.Enabled || (c.B != nil && !c.B.Enabled) {
			continue
		}
		switch c.A.Kind {
		case physics.KindProjectile:
			pr, ok := c.A.Owner.(*projectile.Projectile)
			if !ok {
				continue
			}
			if c.B == nil {
				d.projectileTile(pr, c)
				continue
			}
			switch owner := c.B.Owner.(type) {
			case *entity.Enemy:
				d.projectileEnemy(pr, owner)
			case *entity.Player:
				d.projectilePlayer(now, pr)
			}
		case physics.KindPlayer:
			switch owner := c.B.Owner.(type) {
			case *entity.Enemy:
				d.contactEnemy(now, owner)
			case *entity.Pickup:
				d.collect(owner)
			}
		}
	}
}

// projectileTile stops bullets at walls and closed doors. Melee probes have
// no travel and ignore tiles.
func (d *Director) projectileTile(pr *projectile.Projectile, c physics.Contact) {
	if pr.Melee {
		return
	}
	switch c.Tile {
	case physics.KindWall:
		pr.Kill()
	case physics.KindDoor:
		if door, ok := d.m.DoorAt(c.Cell); ok && door.Solid() {
			pr.Kill()
		}
	}
}

func (d *Director) projectileEnemy(pr *projectile.Projectile, e *entity.Enemy) {
	if pr.Owner != projectile.OwnerPlayer || e.IsDead() {
		return
	}
	pr.Kill()
	e.Hit(pr.Damage)
}

func (d *Director) projectilePlayer(now time.Duration, pr *projectile.Projectile) {
	if pr.Owner != projectile.OwnerEnemy || !d.player.Alive() {
		return
	}
	pr.Kill()
	d.player.TakeDamage(pr.Damage)
	d.player.Knockback(now, pr.Pos(), BulletKnockback)
	d.checkGameOver()
}

func (d *Director) contactEnemy(now time.Duration, e *entity.Enemy) {
	if e.IsDead() {
		return
	}
	damage := d.opts.ContactDamage
	if damage <= 0 {
		damage = e.Template().ContactDamage
	}
	if !d.player.TryContactHit(now, damage, d.opts.Invulnerability) {
		return
	}
	d.player.Knockback(now, e.Pos(), ContactKnockback)
	d.checkGameOver()
}

func (d *Director) collect(p *entity.Pickup) {
	if p.Collected() {
		return
	}
	d.player.Pickup(p)
}

func (d *Director) checkGameOver() {
	if !d.player.Alive() {
		d.finish(EndGameOver)
	}
}
