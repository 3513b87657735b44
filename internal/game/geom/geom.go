// Package geom provides the 2-D vector and grid-cell math shared by the
// simulation packages.
package geom

import (
	"math"
)

// Vec2 is a point or displacement in world units.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// V is shorthand for Vec2{X: x, Y: y}.
func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns v-o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale returns v*s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{X: v.X * s, Y: v.Y * s} }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the distance between v and o.
func (v Vec2) Dist(o Vec2) float64 { return v.Sub(o).Len() }

// IsZero reports whether both components are zero.
func (v Vec2) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Normalize returns the unit vector in the direction of v.
//
// Postcondition: Returns the zero vector when v is the zero vector.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// Angle returns the heading of v in radians.
func (v Vec2) Angle() float64 { return math.Atan2(v.Y, v.X) }

// FromAngle returns a vector of the given length pointing along angle.
func FromAngle(angle, length float64) Vec2 {
	return Vec2{X: math.Cos(angle) * length, Y: math.Sin(angle) * length}
}

// AngleBetween returns the heading from a towards b.
func AngleBetween(a, b Vec2) float64 { return b.Sub(a).Angle() }

// Toward returns a velocity of magnitude speed pointing from a to b.
func Toward(a, b Vec2, speed float64) Vec2 {
	return FromAngle(AngleBetween(a, b), speed)
}

// Cell addresses one tile of a grid.
type Cell struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// CellOf floor-divides a world position into the cell containing it.
//
// Precondition: size > 0.
func CellOf(p Vec2, size float64) Cell {
	return Cell{X: int(math.Floor(p.X / size)), Y: int(math.Floor(p.Y / size))}
}

// Center returns the world position of the centre of c.
func (c Cell) Center(size float64) Vec2 {
	return Vec2{X: (float64(c.X) + 0.5) * size, Y: (float64(c.Y) + 0.5) * size}
}

// Manhattan returns the L1 distance between two cells.
func (c Cell) Manhattan(o Cell) int {
	return abs(c.X-o.X) + abs(c.Y-o.Y)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// CircleOverlapsCell reports whether the circle at p with radius r
// intersects the square tile c.
func CircleOverlapsCell(p Vec2, r float64, c Cell, size float64) bool {
	minX, minY := float64(c.X)*size, float64(c.Y)*size
	nx := math.Max(minX, math.Min(p.X, minX+size))
	ny := math.Max(minY, math.Min(p.Y, minY+size))
	dx, dy := p.X-nx, p.Y-ny
	return dx*dx+dy*dy < r*r
}

// CellsUnderCircle returns every cell whose square the circle overlaps.
func CellsUnderCircle(p Vec2, r float64, size float64) []Cell {
	lo := CellOf(Vec2{X: p.X - r, Y: p.Y - r}, size)
	hi := CellOf(Vec2{X: p.X + r, Y: p.Y + r}, size)
	var out []Cell
	for y := lo.Y; y <= hi.Y; y++ {
		for x := lo.X; x <= hi.X; x++ {
			c := Cell{X: x, Y: y}
			if CircleOverlapsCell(p, r, c, size) {
				out = append(out, c)
			}
		}
	}
	return out
}

// CirclesOverlap reports whether two circles intersect.
func CirclesOverlap(a Vec2, ra float64, b Vec2, rb float64) bool {
	d := ra + rb
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx+dy*dy < d*d
}

// Traverse returns the cells crossed by the segment a→b in visiting order,
// using the Amanatides–Woo voxel traversal.
//
// Precondition: size > 0.
// Postcondition: The first cell contains a and the last contains b.
func Traverse(a, b Vec2, size float64) []Cell {
	x0, y0 := a.X/size, a.Y/size
	x1, y1 := b.X/size, b.Y/size
	cx, cy := int(math.Floor(x0)), int(math.Floor(y0))
	ex, ey := int(math.Floor(x1)), int(math.Floor(y1))
	dx, dy := x1-x0, y1-y0

	stepX, tMaxX, tDeltaX := axisStep(x0, dx, cx)
	stepY, tMaxY, tDeltaY := axisStep(y0, dy, cy)

	cells := []Cell{{X: cx, Y: cy}}
	limit := abs(ex-cx) + abs(ey-cy)
	for n := 0; (cx != ex || cy != ey) && n < limit; n++ {
		if cy == ey || (cx != ex && tMaxX < tMaxY) {
			cx += stepX
			tMaxX += tDeltaX
		} else {
			cy += stepY
			tMaxY += tDeltaY
		}
		cells = append(cells, Cell{X: cx, Y: cy})
	}
	return cells
}

func axisStep(origin, delta float64, cell int) (step int, tMax, tDelta float64) {
	switch {
	case delta > 0:
		return 1, (float64(cell+1) - origin) / delta, 1 / delta
	case delta < 0:
		return -1, (origin - float64(cell)) / -delta, 1 / -delta
	default:
		return 0, math.Inf(1), math.Inf(1)
	}
}
