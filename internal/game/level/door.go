package level

import (
	"time"

	"github.com/cory-johannsen/gtil/internal/game/geom"
)

// TransitionDuration is how long a door refuses further toggles after moving.
const TransitionDuration = 250 * time.Millisecond

// Door is a toggleable barrier on one cell. A closed door blocks movement,
// projectiles and sight.
type Door struct {
	ID       int
	Cell     geom.Cell
	Pos      geom.Vec2
	Vertical bool

	open      bool
	locked    bool
	moving    bool
	busyUntil time.Duration
}

// IsOpen reports whether the door is open.
func (d *Door) IsOpen() bool { return d.open }

// Locked reports whether the door refuses to toggle.
func (d *Door) Locked() bool { return d.locked }

// SetLocked locks or unlocks the door.
func (d *Door) SetLocked(locked bool) { d.locked = locked }

// Solid reports whether the door currently collides.
func (d *Door) Solid() bool { return !d.open }

// Toggle opens a closed door or closes an open one.
//
// Postcondition: Returns false without changing state when the door is locked
// or still inside the transition window of its previous toggle.
func (d *Door) Toggle(now time.Duration) bool {
	if d.locked {
		return false
	}
	if d.moving && now < d.busyUntil {
		return false
	}
	d.open = !d.open
	d.moving = true
	d.busyUntil = now + TransitionDuration
	return true
}

// Open opens the door if it is closed.
func (d *Door) Open(now time.Duration) bool {
	if d.open {
		return false
	}
	return d.Toggle(now)
}

// Close closes the door if it is open.
func (d *Door) Close(now time.Duration) bool {
	if !d.open {
		return false
	}
	return d.Toggle(now)
}
