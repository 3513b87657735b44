// Package level defines the LevelData contract produced by map generators and
// the runtime Map view the simulation queries for walls, rooms, doors and
// line of sight.
package level

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/gtil/internal/game/geom"
)

// ErrLevelInvalid is wrapped by every structural validation failure.
var ErrLevelInvalid = errors.New("level: invalid level data")

// DoorSpec places a door on a cell.
type DoorSpec struct {
	X        int  `json:"x" yaml:"x"`
	Y        int  `json:"y" yaml:"y"`
	Vertical bool `json:"vertical" yaml:"vertical"`
}

// Room is an axis-aligned rectangle of cells.
type Room struct {
	X         int `json:"x" yaml:"x"`
	Y         int `json:"y" yaml:"y"`
	W         int `json:"w" yaml:"w"`
	H         int `json:"h" yaml:"h"`
	FloorType int `json:"floorType" yaml:"floorType"`
}

// Contains reports whether cell c lies inside the room.
func (r Room) Contains(c geom.Cell) bool {
	return c.X >= r.X && c.X < r.X+r.W && c.Y >= r.Y && c.Y < r.Y+r.H
}

// Furniture is decoration placed in world units.
type Furniture struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Type string  `json:"type" yaml:"type"`
}

// LevelData is the complete description of one map. Walls, doors and rooms
// are in cells; PlayerStart, EnemySpawns and Furniture are in world units.
type LevelData struct {
	Width       int         `json:"width" yaml:"width"`
	Height      int         `json:"height" yaml:"height"`
	Walls       []geom.Cell `json:"walls" yaml:"walls"`
	Doors       []DoorSpec  `json:"doors" yaml:"doors"`
	PlayerStart geom.Vec2   `json:"playerStart" yaml:"playerStart"`
	EnemySpawns []geom.Vec2 `json:"enemySpawns" yaml:"enemySpawns"`
	Rooms       []Room      `json:"rooms" yaml:"rooms"`
	Furniture   []Furniture `json:"furniture" yaml:"furniture"`
}

func (d LevelData) inBounds(c geom.Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < d.Width && c.Y < d.Height
}

// Validate checks the structural invariants of the level.
//
// Postcondition: Returns nil, or an error wrapping ErrLevelInvalid that lists
// every violation.
func (d LevelData) Validate() error {
	var errs []string
	if d.Width <= 0 || d.Height <= 0 {
		errs = append(errs, fmt.Sprintf("size must be positive, got %dx%d", d.Width, d.Height))
	}
	for _, w := range d.Walls {
		if !d.inBounds(w) {
			errs = append(errs, fmt.Sprintf("wall (%d,%d) out of bounds", w.X, w.Y))
		}
	}
	for _, dr := range d.Doors {
		if !d.inBounds(geom.Cell{X: dr.X, Y: dr.Y}) {
			errs = append(errs, fmt.Sprintf("door (%d,%d) out of bounds", dr.X, dr.Y))
		}
	}
	for i, r := range d.Rooms {
		if r.W <= 0 || r.H <= 0 {
			errs = append(errs, fmt.Sprintf("room %d has non-positive size", i))
			continue
		}
		if !d.inBounds(geom.Cell{X: r.X, Y: r.Y}) || !d.inBounds(geom.Cell{X: r.X + r.W - 1, Y: r.Y + r.H - 1}) {
			errs = append(errs, fmt.Sprintf("room %d out of bounds", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrLevelInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// Parse decodes YAML (or JSON, which is a YAML subset) level data and validates it.
func Parse(data []byte) (LevelData, error) {
	var d LevelData
	if err := yaml.Unmarshal(data, &d); err != nil {
		return LevelData{}, fmt.Errorf("parsing level data: %w", err)
	}
	if err := d.Validate(); err != nil {
		return LevelData{}, err
	}
	return d, nil
}

// LoadFile reads and parses the level at path.
func LoadFile(path string) (LevelData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LevelData{}, fmt.Errorf("reading level %s: %w", path, err)
	}
	d, err := Parse(data)
	if err != nil {
		return LevelData{}, fmt.Errorf("level %s: %w", path, err)
	}
	return d, nil
}
