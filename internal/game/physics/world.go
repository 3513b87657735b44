// Package physics is the minimal overlap substrate of the headless core. It
// integrates circle bodies, keeps solid bodies out of walls and closed doors,
// and reports overlapping pairs as contacts in rule-priority order.
package physics

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/gtil/internal/game/geom"
	"github.com/cory-johannsen/gtil/internal/game/level"
)

// Kind classifies a body or a tile for contact rules.
type Kind uint8

const (
	KindPlayer Kind = iota + 1
	KindEnemy
	KindProjectile
	KindPickup
	// KindWall and KindDoor name tiles, never bodies.
	KindWall
	KindDoor
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindEnemy:
		return "enemy"
	case KindProjectile:
		return "projectile"
	case KindPickup:
		return "pickup"
	case KindWall:
		return "wall"
	case KindDoor:
		return "door"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) tile() bool { return k == KindWall || k == KindDoor }

// Body is a circle in world space. Owner points back at the game object.
type Body struct {
	Kind    Kind
	Pos     geom.Vec2
	Vel     geom.Vec2
	Radius  float64
	Enabled bool
	// Solid bodies are pushed out of walls and closed doors; other bodies pass
	// through and report tile contacts instead.
	Solid bool
	Owner any

	hits []tileHit
}

type tileHit struct {
	kind Kind
	cell geom.Cell
}

// Contact is one overlap found by Step. B is nil for tile contacts.
type Contact struct {
	A    *Body
	B    *Body
	Tile Kind
	Cell geom.Cell
}

// Rule is an ordered pair of kinds whose overlaps are reported.
type Rule struct {
	A, B Kind
}

// Tiles is the static and door-state view of the map.
type Tiles interface {
	TileAt(c geom.Cell) level.Tile
	InBounds(c geom.Cell) bool
	CellSize() float64
}

// World owns the body list and contact rules for one scene.
type World struct {
	tiles  Tiles
	bodies []*Body
	rules  []Rule
}

// NewWorld returns an empty world over tiles.
//
// Precondition: tiles must not be nil.
func NewWorld(tiles Tiles) *World {
	if tiles == nil {
		panic("physics.NewWorld: tiles must not be nil")
	}
	return &World{tiles: tiles}
}

// Add registers b. Adding the same body twice is a no-op.
func (w *World) Add(b *Body) {
	for _, other := range w.bodies {
		if other == b {
			return
		}
	}
	w.bodies = append(w.bodies, b)
}

// Remove unregisters b.
func (w *World) Remove(b *Body) {
	for i, other := range w.bodies {
		if other == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered bodies.
func (w *World) Len() int { return len(w.bodies) }

// Watch appends a contact rule. Rules registered earlier report first.
//
// Precondition: a must be a body kind.
func (w *World) Watch(a, b Kind) {
	if a.tile() {
		panic("physics.World.Watch: first kind must be a body kind")
	}
	w.rules = append(w.rules, Rule{A: a, B: b})
}

// Step integrates every enabled body over dt and returns the contacts of
// this tick grouped by rule order.
//
// Postcondition: Each pair appears at most once per rule. Contacts are
// computed after integration; resolvers must re-check Enabled because an
// earlier contact may have disabled a body.
func (w *World) Step(dt time.Duration) []Contact {
	secs := dt.Seconds()
	for _, b := range w.bodies {
		b.hits = b.hits[:0]
		if !b.Enabled {
			continue
		}
		if b.Solid {
			w.moveSolid(b, secs)
		} else {
			w.moveFree(b, secs)
		}
	}

	var contacts []Contact
	for _, r := range w.rules {
		for _, a := range w.bodies {
			if a.Kind != r.A || !a.Enabled {
				continue
			}
			if r.B.tile() {
				for _, h := range a.hits {
					if h.kind == r.B {
						contacts = append(contacts, Contact{A: a, Tile: h.kind, Cell: h.cell})
						break
					}
				}
				continue
			}
			for _, b := range w.bodies {
				if b == a || b.Kind != r.B || !b.Enabled {
					continue
				}
				if geom.CirclesOverlap(a.Pos, a.Radius, b.Pos, b.Radius) {
					contacts = append(contacts, Contact{A: a, B: b})
				}
			}
		}
	}
	return contacts
}

func (w *World) tileKind(c geom.Cell) (Kind, bool) {
	if !w.tiles.InBounds(c) {
		return KindWall, true
	}
	switch w.tiles.TileAt(c) {
	case level.TileWall:
		return KindWall, true
	case level.TileDoor:
		return KindDoor, true
	}
	return 0, false
}

// blocking returns the blocked cells a circle at p overlaps.
func (w *World) blocking(p geom.Vec2, r float64) []tileHit {
	var out []tileHit
	for _, c := range geom.CellsUnderCircle(p, r, w.tiles.CellSize()) {
		if k, ok := w.tileKind(c); ok {
			out = append(out, tileHit{kind: k, cell: c})
		}
	}
	return out
}

// moveSolid applies axis-separated movement, refusing any step that would
// overlap a blocked cell the body was not already overlapping.
func (w *World) moveSolid(b *Body, secs float64) {
	if b.Vel.IsZero() {
		return
	}
	current := make(map[geom.Cell]bool)
	for _, h := range w.blocking(b.Pos, b.Radius) {
		current[h.cell] = true
	}
	try := func(cand geom.Vec2) bool {
		for _, h := range w.blocking(cand, b.Radius) {
			if !current[h.cell] {
				b.hits = append(b.hits, h)
				return false
			}
		}
		return true
	}
	if b.Vel.X != 0 {
		cand := geom.Vec2{X: b.Pos.X + b.Vel.X*secs, Y: b.Pos.Y}
		if try(cand) {
			b.Pos = cand
		}
	}
	if b.Vel.Y != 0 {
		cand := geom.Vec2{X: b.Pos.X, Y: b.Pos.Y + b.Vel.Y*secs}
		if try(cand) {
			b.Pos = cand
		}
	}
}

// moveFree moves b along its velocity and records the first blocked cell of
// each kind crossed on the way.
func (w *World) moveFree(b *Body, secs float64) {
	from := b.Pos
	b.Pos = from.Add(b.Vel.Scale(secs))
	var seenWall, seenDoor bool
	for _, c := range geom.Traverse(from, b.Pos, w.tiles.CellSize()) {
		if !w.tiles.InBounds(c) {
			continue
		}
		k, ok := w.tileKind(c)
		if !ok {
			continue
		}
		if (k == KindWall && seenWall) || (k == KindDoor && seenDoor) {
			continue
		}
		seenWall = seenWall || k == KindWall
		seenDoor = seenDoor || k == KindDoor
		b.hits = append(b.hits, tileHit{kind: k, cell: c})
	}
}
