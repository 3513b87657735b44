// Package weapon provides weapon definitions and the fire-control and reload
// state machines built from them.
package weapon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind distinguishes firearms from melee weapons.
type Kind string

const (
	KindFirearm Kind = "firearm"
	KindMelee   Kind = "melee"
)

// Pattern is the projectile pattern of one trigger pull.
type Pattern string

const (
	// PatternSingle fires one projectile along the aim angle.
	PatternSingle Pattern = "single"
	// PatternSpread fires one projectile offset randomly within ±Spread.
	PatternSpread Pattern = "spread"
	// PatternMulti fires Pellets projectiles at fixed offsets Spread apart.
	PatternMulti Pattern = "multi"
)

// InfiniteReserve is the MaxReserve sentinel for weapons that never run dry.
const InfiniteReserve = -1

// Def is the static description of a weapon loaded from YAML.
type Def struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`
	// Slot orders weapons in the player's cycle.
	Slot int `yaml:"slot"`
	// Pickup is the ammo pickup type that refills this weapon.
	Pickup         string  `yaml:"pickup"`
	Damage         int     `yaml:"damage"`
	FireIntervalMs int     `yaml:"fire_interval_ms"`
	MagSize        int     `yaml:"mag_size"`
	MaxReserve     int     `yaml:"max_reserve"`
	ReloadMs       int     `yaml:"reload_ms"`
	Pattern        Pattern `yaml:"pattern"`
	Pellets        int     `yaml:"pellets"`
	Spread         float64 `yaml:"spread"`
	Speed          float64 `yaml:"speed"`
	LifespanMs     int     `yaml:"lifespan_ms"`
	// Reach is how far ahead of the wielder a melee probe appears.
	Reach float64 `yaml:"reach"`
}

// FireInterval returns the minimum time between shots.
func (d *Def) FireInterval() time.Duration {
	return time.Duration(d.FireIntervalMs) * time.Millisecond
}

// ReloadDuration returns the reload time.
func (d *Def) ReloadDuration() time.Duration {
	return time.Duration(d.ReloadMs) * time.Millisecond
}

// Lifespan returns the projectile lifespan, zero meaning the pool default.
func (d *Def) Lifespan() time.Duration {
	return time.Duration(d.LifespanMs) * time.Millisecond
}

// Infinite reports whether the reserve never depletes.
func (d *Def) Infinite() bool { return d.MaxReserve == InfiniteReserve }

// Validate checks that the Def satisfies its invariants.
//
// Precondition: d is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (d *Def) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if d.Damage <= 0 {
		errs = append(errs, errors.New("damage must be > 0"))
	}
	if d.FireIntervalMs < 0 {
		errs = append(errs, errors.New("fire_interval_ms must be >= 0"))
	}
	switch d.Kind {
	case KindFirearm:
		if d.MagSize <= 0 {
			errs = append(errs, errors.New("firearm mag_size must be > 0"))
		}
		if d.MaxReserve < InfiniteReserve {
			errs = append(errs, fmt.Errorf("max_reserve must be >= %d", InfiniteReserve))
		}
		if d.ReloadMs < 0 {
			errs = append(errs, errors.New("reload_ms must be >= 0"))
		}
		switch d.Pattern {
		case PatternSingle, PatternSpread:
		case PatternMulti:
			if d.Pellets <= 0 {
				errs = append(errs, errors.New("multi pattern requires pellets > 0"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown pattern %q", d.Pattern))
		}
	case KindMelee:
		if d.Reach <= 0 {
			errs = append(errs, errors.New("melee reach must be > 0"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown kind %q", d.Kind))
	}
	if len(errs) > 0 {
		return fmt.Errorf("weapon %q validation failed: %v", d.ID, errs)
	}
	return nil
}

// LoadDefs reads every *.yaml file in dir as a Def, validates it, and returns
// the defs ordered by Slot.
//
// Precondition: dir is a readable directory path.
// Postcondition: returns all valid Defs or the first encountered error.
func LoadDefs(dir string) ([]*Def, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("LoadDefs: cannot read directory %q: %w", dir, err)
	}
	var defs []*Def
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("LoadDefs: cannot read file %q: %w", path, err)
		}
		var d Def
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("LoadDefs: cannot parse file %q: %w", path, err)
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("LoadDefs: invalid weapon in %q: %w", path, err)
		}
		defs = append(defs, &d)
	}
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Slot < defs[j].Slot })
	return defs, nil
}

// DefaultDefs returns the built-in arsenal: pistol, rifle, shotgun and sable.
func DefaultDefs() []*Def {
	return []*Def{
		{ID: "pistol", Name: "Pistol", Kind: KindFirearm, Slot: 0, Pickup: "handgun", Damage: 1,
			FireIntervalMs: 400, MagSize: 12, MaxReserve: InfiniteReserve, ReloadMs: 1000, Pattern: PatternSingle},
		{ID: "rifle", Name: "Rifle", Kind: KindFirearm, Slot: 1, Pickup: "rifle", Damage: 1,
			FireIntervalMs: 100, MagSize: 30, MaxReserve: 120, ReloadMs: 2000, Pattern: PatternSpread, Spread: 0.05},
		{ID: "shotgun", Name: "Shotgun", Kind: KindFirearm, Slot: 2, Pickup: "shotgun", Damage: 1,
			FireIntervalMs: 800, MagSize: 6, MaxReserve: 24, ReloadMs: 2500, Pattern: PatternMulti, Pellets: 5, Spread: 0.1},
		{ID: "sable", Name: "Sable", Kind: KindMelee, Slot: 3, Damage: 2, FireIntervalMs: 350, Reach: 24},
	}
}
