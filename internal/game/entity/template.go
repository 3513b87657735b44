// Package entity provides the enemy, boss, player and pickup state machines.
package entity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/gtil/internal/game/event"
)

// Template defines a reusable enemy archetype loaded from YAML. Zero-valued
// tuning fields fall back to the regular soldier's values.
type Template struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	Boss           bool    `yaml:"boss"`
	MaxHP          int     `yaml:"max_hp"`
	Speed          float64 `yaml:"speed"`
	Radius         float64 `yaml:"radius"`
	SightRange     float64 `yaml:"sight_range"`
	ChaseRange     float64 `yaml:"chase_range"`
	FireRange      float64 `yaml:"fire_range"`
	FireIntervalMs int     `yaml:"fire_interval_ms"`
	BulletDamage   int     `yaml:"bullet_damage"`
	BulletSpeed    float64 `yaml:"bullet_speed"`
	ContactDamage  int     `yaml:"contact_damage"`
	ScoreReward    int     `yaml:"score_reward"`
	// ReactionMs is the delay between noticing the player and giving chase.
	ReactionMs int `yaml:"reaction_ms"`
	RepathMs   int `yaml:"repath_ms"`
	// MinionIntervalMs and MinionsPerWave drive boss reinforcement requests.
	MinionIntervalMs  int        `yaml:"minion_interval_ms"`
	MinionsPerWave    int        `yaml:"minions_per_wave"`
	LowHealthFraction float64    `yaml:"low_health_fraction"`
	Loot              *LootTable `yaml:"loot"`
}

// Capabilities is the per-variant behaviour table of an enemy.
type Capabilities struct {
	Boss              bool
	MinionInterval    time.Duration
	MinionsPerWave    int
	DeathTopic        event.Topic
	ScoreReward       int
	LowHealthFraction float64
}

// Capabilities derives the variant table from the template.
func (t *Template) Capabilities() Capabilities {
	c := Capabilities{
		Boss:        t.Boss,
		DeathTopic:  event.TopicEnemyDied,
		ScoreReward: t.ScoreReward,
	}
	if t.Boss {
		c.DeathTopic = event.TopicBossDied
		c.MinionInterval = time.Duration(t.MinionIntervalMs) * time.Millisecond
		c.MinionsPerWave = t.MinionsPerWave
		c.LowHealthFraction = t.LowHealthFraction
	}
	return c
}

// withDefaults returns a copy with zero tuning fields filled in.
func (t *Template) withDefaults() Template {
	c := *t
	def := func(v *float64, d float64) {
		if *v <= 0 {
			*v = d
		}
	}
	defInt := func(v *int, d int) {
		if *v <= 0 {
			*v = d
		}
	}
	def(&c.Speed, 100)
	def(&c.Radius, 14)
	def(&c.SightRange, 400)
	def(&c.ChaseRange, 800)
	def(&c.FireRange, 600)
	def(&c.BulletSpeed, 400)
	defInt(&c.FireIntervalMs, 1000)
	defInt(&c.BulletDamage, 10)
	defInt(&c.ContactDamage, 10)
	defInt(&c.ReactionMs, 200)
	defInt(&c.RepathMs, 500)
	return c
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, MaxHP >= 1, the
// boss fields are consistent and the loot table is valid.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("enemy template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("enemy template %q: name must not be empty", t.ID)
	}
	if t.MaxHP < 1 {
		return fmt.Errorf("enemy template %q: max_hp must be >= 1", t.ID)
	}
	if t.LowHealthFraction < 0 || t.LowHealthFraction >= 1 {
		return fmt.Errorf("enemy template %q: low_health_fraction must be in [0, 1)", t.ID)
	}
	if t.Boss && t.MinionIntervalMs > 0 && t.MinionsPerWave < 1 {
		return fmt.Errorf("enemy template %q: minions_per_wave must be >= 1 when minion_interval_ms is set", t.ID)
	}
	if t.Loot != nil {
		if err := t.Loot.Validate(); err != nil {
			return fmt.Errorf("enemy template %q: %w", t.ID, err)
		}
	}
	return nil
}

// LoadTemplateFromBytes parses a single enemy template from raw YAML bytes.
//
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading enemy dir %q: %w", dir, err)
	}
	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}

// DefaultTemplates returns the regular soldier and the boss.
func DefaultTemplates() []*Template {
	return []*Template{
		{
			ID: "soldier", Name: "Soldier", MaxHP: 3, Speed: 100, ScoreReward: 100,
			Loot: DefaultLoot(),
		},
		{
			ID: "boss", Name: "Zabala", Boss: true, MaxHP: 500, Speed: 80, Radius: 28,
			ScoreReward: 10000, MinionIntervalMs: 8000, MinionsPerWave: 2, LowHealthFraction: 0.25,
		},
	}
}
