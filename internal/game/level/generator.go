package level

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cory-johannsen/gtil/internal/game/geom"
)

// Map types understood by the built-in generator.
const (
	MapTypeArena       = "arena"
	MapTypeBossTerrace = "boss_terrace"
)

// Generator produces level data for a map type. Procedural dungeon builders
// live outside the simulation and satisfy this interface.
type Generator interface {
	Generate(width, height int, mapType string) (LevelData, error)
}

// ArenaGenerator builds simple bordered arenas. A regular arena is split by
// one interior wall into two rooms joined by a door; the boss terrace is a
// single open room.
type ArenaGenerator struct {
	// CellSize converts cell coordinates into the world-unit fields.
	CellSize float64
}

// Generate implements Generator.
//
// Precondition: width >= 8 and height >= 6.
// Postcondition: Returns LevelData that passes Validate, or an error.
func (g ArenaGenerator) Generate(width, height int, mapType string) (LevelData, error) {
	if width < 8 || height < 6 {
		return LevelData{}, fmt.Errorf("%w: arena must be at least 8x6, got %dx%d", ErrLevelInvalid, width, height)
	}
	size := g.CellSize
	if size <= 0 {
		size = DefaultCellSize
	}
	d := LevelData{Width: width, Height: height}
	for x := 0; x < width; x++ {
		d.Walls = append(d.Walls, geom.Cell{X: x, Y: 0}, geom.Cell{X: x, Y: height - 1})
	}
	for y := 1; y < height-1; y++ {
		d.Walls = append(d.Walls, geom.Cell{X: 0, Y: y}, geom.Cell{X: width - 1, Y: y})
	}

	if mapType == MapTypeBossTerrace {
		d.Rooms = []Room{{X: 1, Y: 1, W: width - 2, H: height - 2, FloorType: 2}}
		d.PlayerStart = geom.Cell{X: width / 2, Y: height - 3}.Center(size)
		return d, d.Validate()
	}

	mid := width / 2
	doorY := height / 2
	for y := 1; y < height-1; y++ {
		if y != doorY {
			d.Walls = append(d.Walls, geom.Cell{X: mid, Y: y})
		}
	}
	d.Doors = []DoorSpec{{X: mid, Y: doorY, Vertical: true}}
	d.Rooms = []Room{
		{X: 1, Y: 1, W: mid - 1, H: height - 2, FloorType: 0},
		{X: mid + 1, Y: 1, W: width - mid - 2, H: height - 2, FloorType: 1},
	}
	d.PlayerStart = geom.Cell{X: mid / 2, Y: doorY}.Center(size)
	right := d.Rooms[1]
	d.EnemySpawns = []geom.Vec2{
		geom.Cell{X: right.X + right.W/2, Y: right.Y + 1}.Center(size),
		geom.Cell{X: right.X + right.W/2, Y: right.Y + right.H - 2}.Center(size),
		geom.Cell{X: right.X + right.W - 2, Y: doorY}.Center(size),
	}
	return d, d.Validate()
}

// DirGenerator serves hand-authored levels from <Dir>/<mapType>.yaml and
// defers to Fallback for map types without a file.
type DirGenerator struct {
	Dir      string
	Fallback Generator
}

// Generate implements Generator. Width and height are ignored for authored
// levels.
func (g DirGenerator) Generate(width, height int, mapType string) (LevelData, error) {
	path := filepath.Join(g.Dir, mapType+".yaml")
	d, err := LoadFile(path)
	if err == nil {
		return d, nil
	}
	if errors.Is(err, os.ErrNotExist) && g.Fallback != nil {
		return g.Fallback.Generate(width, height, mapType)
	}
	return LevelData{}, err
}
