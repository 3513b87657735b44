package pathfind

import "github.com/cory-johannsen/gtil/internal/game/geom"

// Path is a finite sequence of waypoints at cell centres, from the start
// cell to the goal cell. Next consumes it; it cannot be restarted.
type Path struct {
	points []geom.Vec2
	cursor int
}

// Len returns the total number of waypoints.
func (p *Path) Len() int { return len(p.points) }

// At returns waypoint i.
//
// Precondition: 0 <= i < Len().
func (p *Path) At(i int) geom.Vec2 { return p.points[i] }

// Next returns the next unconsumed waypoint.
func (p *Path) Next() (geom.Vec2, bool) {
	if p.cursor >= len(p.points) {
		return geom.Vec2{}, false
	}
	v := p.points[p.cursor]
	p.cursor++
	return v, true
}

// Points returns a copy of every waypoint.
func (p *Path) Points() []geom.Vec2 {
	return append([]geom.Vec2(nil), p.points...)
}
