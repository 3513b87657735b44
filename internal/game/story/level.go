// Package story holds the campaign definitions and the trigger engine that
// fires each scripted line of dialogue at most once.
package story

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// VictoryKillCount is the only victory condition type.
const VictoryKillCount = "kill_count"

// Named milestone triggers.
const (
	TriggerStart         = "start"
	TriggerBossSpawn     = "boss_spawn"
	TriggerBossLowHealth = "boss_low_health"
)

// ErrUnknownLevel is returned when a level id is not in the campaign.
var ErrUnknownLevel = errors.New("unknown story level")

// Victory is the completion condition of a level.
type Victory struct {
	Type  string `yaml:"type"`
	Value int    `yaml:"value"`
}

// Line is one scripted piece of dialogue.
type Line struct {
	Trigger string `yaml:"trigger"`
	Text    string `yaml:"text"`
}

// Level is one chapter of the campaign.
type Level struct {
	ID        int      `yaml:"id"`
	Title     string   `yaml:"title"`
	Date      string   `yaml:"date"`
	Briefing  []string `yaml:"briefing"`
	MapType   string   `yaml:"map_type"`
	MapWidth  int      `yaml:"map_width"`
	MapHeight int      `yaml:"map_height"`
	Victory   Victory  `yaml:"victory"`
	// NextLevel is zero on the final chapter.
	NextLevel int    `yaml:"next_level"`
	Dialogue  []Line `yaml:"dialogue"`
	// Script optionally names a Lua file consulted for unscripted triggers.
	Script string `yaml:"script"`
}

// Final reports whether completing this level wins the campaign.
func (l *Level) Final() bool { return l.NextLevel == 0 }

// Validate checks that the level satisfies basic invariants.
//
// Precondition: l must not be nil.
// Postcondition: Returns nil iff the id, title, map type and victory are set
// and every dialogue trigger is well formed and unique.
func (l *Level) Validate() error {
	if l.ID < 1 {
		return fmt.Errorf("story level: id must be >= 1, got %d", l.ID)
	}
	if l.Title == "" {
		return fmt.Errorf("story level %d: title must not be empty", l.ID)
	}
	if l.MapType == "" {
		return fmt.Errorf("story level %d: map_type must not be empty", l.ID)
	}
	if l.Victory.Type != VictoryKillCount {
		return fmt.Errorf("story level %d: unsupported victory type %q", l.ID, l.Victory.Type)
	}
	if l.Victory.Value < 1 {
		return fmt.Errorf("story level %d: victory value must be >= 1", l.ID)
	}
	if l.MapWidth < 0 || l.MapHeight < 0 {
		return fmt.Errorf("story level %d: map dimensions must not be negative", l.ID)
	}
	seen := make(map[string]bool, len(l.Dialogue))
	for i, d := range l.Dialogue {
		if err := ValidTrigger(d.Trigger); err != nil {
			return fmt.Errorf("story level %d: dialogue[%d]: %w", l.ID, i, err)
		}
		if seen[d.Trigger] {
			return fmt.Errorf("story level %d: duplicate trigger %q", l.ID, d.Trigger)
		}
		seen[d.Trigger] = true
		if strings.TrimSpace(d.Text) == "" {
			return fmt.Errorf("story level %d: dialogue[%d] text must not be empty", l.ID, i)
		}
	}
	return nil
}

// ValidTrigger accepts start, kills:N, time:N and the named boss milestones.
func ValidTrigger(t string) error {
	switch t {
	case TriggerStart, TriggerBossSpawn, TriggerBossLowHealth:
		return nil
	}
	family, n, ok := strings.Cut(t, ":")
	if !ok || (family != "kills" && family != "time") {
		return fmt.Errorf("invalid trigger %q", t)
	}
	if v, err := strconv.Atoi(n); err != nil || v < 0 {
		return fmt.Errorf("invalid trigger %q: count must be a non-negative integer", t)
	}
	return nil
}

// KillsTrigger returns the trigger id for the n-th kill.
func KillsTrigger(n int) string { return "kills:" + strconv.Itoa(n) }

// TimeTrigger returns the trigger id for the n-th elapsed second.
func TimeTrigger(n int) string { return "time:" + strconv.Itoa(n) }

// LoadLevelFromBytes parses and validates one level.
func LoadLevelFromBytes(data []byte) (*Level, error) {
	var l Level
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing story level YAML: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// LoadLevels reads every *.yaml file in dir.
//
// Postcondition: Returns the levels sorted by id, or the first error.
func LoadLevels(dir string) ([]*Level, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading story dir %q: %w", dir, err)
	}
	var levels []*Level
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		l, err := LoadLevelFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].ID < levels[j].ID })
	return levels, nil
}

// Campaign is the ordered set of levels.
type Campaign struct {
	levels []*Level
	byID   map[int]*Level
}

// NewCampaign indexes levels.
//
// Precondition: levels must be non-empty.
// Postcondition: Returns an error on duplicate ids or a next_level that does
// not exist.
func NewCampaign(levels []*Level) (*Campaign, error) {
	if len(levels) == 0 {
		return nil, errors.New("story campaign: no levels")
	}
	c := &Campaign{byID: make(map[int]*Level, len(levels))}
	for _, l := range levels {
		if _, dup := c.byID[l.ID]; dup {
			return nil, fmt.Errorf("story campaign: duplicate level id %d", l.ID)
		}
		c.byID[l.ID] = l
		c.levels = append(c.levels, l)
	}
	sort.Slice(c.levels, func(i, j int) bool { return c.levels[i].ID < c.levels[j].ID })
	for _, l := range c.levels {
		if l.NextLevel != 0 && c.byID[l.NextLevel] == nil {
			return nil, fmt.Errorf("story campaign: level %d: next_level %d: %w", l.ID, l.NextLevel, ErrUnknownLevel)
		}
	}
	return c, nil
}

// LoadCampaign loads and indexes every level in dir.
func LoadCampaign(dir string) (*Campaign, error) {
	levels, err := LoadLevels(dir)
	if err != nil {
		return nil, err
	}
	return NewCampaign(levels)
}

// First returns the level with the lowest id.
func (c *Campaign) First() *Level { return c.levels[0] }

// Levels returns every level ordered by id.
func (c *Campaign) Levels() []*Level { return append([]*Level(nil), c.levels...) }

// Level looks up a level by id.
func (c *Campaign) Level(id int) (*Level, error) {
	l, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("level %d: %w", id, ErrUnknownLevel)
	}
	return l, nil
}

// Next returns the level after id; ok is false after the final level.
func (c *Campaign) Next(id int) (*Level, bool) {
	l, ok := c.byID[id]
	if !ok || l.Final() {
		return nil, false
	}
	return c.byID[l.NextLevel], true
}
