package level

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/gtil/internal/game/dice"
	"github.com/cory-johannsen/gtil/internal/game/geom"
)

// DefaultCellSize is the edge of one tile in world units.
const DefaultCellSize = 32

// Tile classifies what occupies a cell right now.
type Tile uint8

const (
	TileFloor Tile = iota
	TileWall
	// TileDoor is reported only for closed doors.
	TileDoor
)

// Map is the runtime view of a LevelData, built once per scene.
type Map struct {
	data     LevelData
	cellSize float64
	walls    []bool
	doors    []*Door
	doorAt   map[geom.Cell]*Door
}

// NewMap builds a Map from validated level data.
//
// Precondition: cellSize > 0.
// Postcondition: Returns a Map or the validation error of data.
func NewMap(data LevelData, cellSize float64) (*Map, error) {
	if cellSize <= 0 {
		panic("level.NewMap: cellSize must be > 0")
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	m := &Map{
		data:     data,
		cellSize: cellSize,
		walls:    make([]bool, data.Width*data.Height),
		doorAt:   make(map[geom.Cell]*Door, len(data.Doors)),
	}
	for _, w := range data.Walls {
		m.walls[w.Y*data.Width+w.X] = true
	}
	for i, spec := range data.Doors {
		c := geom.Cell{X: spec.X, Y: spec.Y}
		d := &Door{ID: i, Cell: c, Pos: c.Center(cellSize), Vertical: spec.Vertical}
		m.doors = append(m.doors, d)
		m.doorAt[c] = d
	}
	return m, nil
}

// Data returns the level description the map was built from.
func (m *Map) Data() LevelData { return m.data }

// CellSize returns the tile edge in world units.
func (m *Map) CellSize() float64 { return m.cellSize }

// Width returns the map width in cells.
func (m *Map) Width() int { return m.data.Width }

// Height returns the map height in cells.
func (m *Map) Height() int { return m.data.Height }

// Bounds returns the world-space extent of the map.
func (m *Map) Bounds() (w, h float64) {
	return float64(m.data.Width) * m.cellSize, float64(m.data.Height) * m.cellSize
}

// InBounds reports whether c is a cell of the map.
func (m *Map) InBounds(c geom.Cell) bool { return m.data.inBounds(c) }

// IsWall reports whether c is a wall. Out-of-bounds cells are not walls.
func (m *Map) IsWall(c geom.Cell) bool {
	if !m.InBounds(c) {
		return false
	}
	return m.walls[c.Y*m.data.Width+c.X]
}

// WallCells returns every wall cell.
func (m *Map) WallCells() []geom.Cell {
	return append([]geom.Cell(nil), m.data.Walls...)
}

// TileAt classifies c, reporting closed doors as TileDoor.
func (m *Map) TileAt(c geom.Cell) Tile {
	if m.IsWall(c) {
		return TileWall
	}
	if d, ok := m.doorAt[c]; ok && d.Solid() {
		return TileDoor
	}
	return TileFloor
}

// CellOf returns the cell containing world position p.
func (m *Map) CellOf(p geom.Vec2) geom.Cell { return geom.CellOf(p, m.cellSize) }

// CellCenter returns the world position of the centre of c.
func (m *Map) CellCenter(c geom.Cell) geom.Vec2 { return c.Center(m.cellSize) }

// Rooms returns the number of rooms.
func (m *Map) Rooms() int { return len(m.data.Rooms) }

// RoomAt returns the index of the room containing p, or -1 for corridors and
// unknown space.
func (m *Map) RoomAt(p geom.Vec2) int {
	c := m.CellOf(p)
	for i, r := range m.data.Rooms {
		if r.Contains(c) {
			return i
		}
	}
	return -1
}

// RoomCenter returns the world-space centre of room i.
//
// Precondition: 0 <= i < Rooms().
func (m *Map) RoomCenter(i int) geom.Vec2 {
	r := m.data.Rooms[i]
	return geom.Vec2{
		X: (float64(r.X) + float64(r.W)/2) * m.cellSize,
		Y: (float64(r.Y) + float64(r.H)/2) * m.cellSize,
	}
}

// RandomPointInRoom returns the centre of a random interior cell of room i,
// keeping one cell of margin from the room edge when the room allows it.
//
// Precondition: 0 <= i < Rooms(); src must not be nil.
func (m *Map) RandomPointInRoom(i int, src dice.Source) geom.Vec2 {
	r := m.data.Rooms[i]
	lo, hi := geom.Cell{X: r.X, Y: r.Y}, geom.Cell{X: r.X + r.W - 1, Y: r.Y + r.H - 1}
	if r.W > 2 {
		lo.X, hi.X = lo.X+1, hi.X-1
	}
	if r.H > 2 {
		lo.Y, hi.Y = lo.Y+1, hi.Y-1
	}
	c := geom.Cell{X: dice.Between(src, lo.X, hi.X), Y: dice.Between(src, lo.Y, hi.Y)}
	return m.CellCenter(c)
}

// Doors returns every door in level order.
func (m *Map) Doors() []*Door { return m.doors }

// DoorAt returns the door on c, if any.
func (m *Map) DoorAt(c geom.Cell) (*Door, bool) {
	d, ok := m.doorAt[c]
	return d, ok
}

// NearestDoor returns the closest door whose centre is within maxRange of p.
func (m *Map) NearestDoor(p geom.Vec2, maxRange float64) (*Door, bool) {
	var best *Door
	bestDist := math.Inf(1)
	for _, d := range m.doors {
		if dist := p.Dist(d.Pos); dist <= maxRange && dist < bestDist {
			best, bestDist = d, dist
		}
	}
	return best, best != nil
}

// LineOfSight reports whether the segment from a to b crosses no wall and no
// closed door.
func (m *Map) LineOfSight(a, b geom.Vec2) bool {
	for _, c := range geom.Traverse(a, b, m.cellSize) {
		if m.TileAt(c) != TileFloor {
			return false
		}
	}
	return true
}

// Blocked reports whether a solid body may not occupy c. Cells outside the
// map are blocked.
func (m *Map) Blocked(c geom.Cell) bool {
	if !m.InBounds(c) {
		return true
	}
	return m.TileAt(c) != TileFloor
}

func (m *Map) String() string {
	return fmt.Sprintf("Map(%dx%d, %d rooms, %d doors)", m.data.Width, m.data.Height, len(m.data.Rooms), len(m.doors))
}
