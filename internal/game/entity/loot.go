package entity

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/gtil/internal/game/dice"
)

// LootDrop is one weighted entry of a loot table. Ammo is a fixed amount or
// a dice expression such as "2d6+6".
type LootDrop struct {
	Pickup string `yaml:"pickup"`
	Ammo   string `yaml:"ammo"`
	Weight int    `yaml:"weight"`
}

// LootTable defines what an enemy may drop on death.
type LootTable struct {
	// Chance is the probability in (0, 1] that anything drops.
	Chance float64    `yaml:"chance"`
	Drops  []LootDrop `yaml:"drops"`
}

// Validate checks that the loot table satisfies its invariants.
//
// Precondition: lt must not be nil.
// Postcondition: Returns nil iff chance is in (0, 1] and every drop names a
// pickup, has a parseable ammo amount and a non-negative weight.
func (lt *LootTable) Validate() error {
	if len(lt.Drops) == 0 {
		return nil
	}
	if lt.Chance <= 0 || lt.Chance > 1.0 {
		return fmt.Errorf("loot table: chance must be in (0, 1.0], got %f", lt.Chance)
	}
	for i, d := range lt.Drops {
		if d.Pickup == "" {
			return fmt.Errorf("loot table: drop[%d] must have a non-empty pickup", i)
		}
		if _, err := dice.ParseAmount(d.Ammo); err != nil {
			return fmt.Errorf("loot table: drop[%d]: %w", i, err)
		}
		if d.Weight < 0 {
			return fmt.Errorf("loot table: drop[%d] weight must be >= 0, got %d", i, d.Weight)
		}
	}
	return nil
}

// Loot is one rolled drop.
type Loot struct {
	InstanceID string
	Pickup     string
	Ammo       int
}

// Roll picks at most one drop from the table.
//
// Precondition: lt must have passed Validate().
// Postcondition: ok is false when the chance roll fails or the table is empty.
func (lt *LootTable) Roll(src dice.Source) (Loot, bool) {
	if len(lt.Drops) == 0 || src.Float64() >= lt.Chance {
		return Loot{}, false
	}
	total := 0
	for _, d := range lt.Drops {
		total += weight(d)
	}
	pick := src.Intn(total)
	for _, d := range lt.Drops {
		pick -= weight(d)
		if pick < 0 {
			amount, _ := dice.ParseAmount(d.Ammo)
			return Loot{
				InstanceID: uuid.New().String(),
				Pickup:     d.Pickup,
				Ammo:       amount.Roll(src),
			}, true
		}
	}
	return Loot{}, false
}

// weight treats zero as one so unweighted tables are uniform.
func weight(d LootDrop) int {
	if d.Weight == 0 {
		return 1
	}
	return d.Weight
}

// DefaultLoot is the soldier drop: one of handgun, rifle or shotgun ammo.
func DefaultLoot() *LootTable {
	return &LootTable{
		Chance: 1,
		Drops: []LootDrop{
			{Pickup: "handgun", Ammo: "12"},
			{Pickup: "rifle", Ammo: "30"},
			{Pickup: "shotgun", Ammo: "5"},
		},
	}
}
