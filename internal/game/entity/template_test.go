package entity_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/gtil/internal/game/dice"
	"github.com/cory-johannsen/gtil/internal/game/entity"
	"github.com/cory-johannsen/gtil/internal/game/event"
)

const gruntYAML = `
id: grunt
name: Grunt
max_hp: 4
speed: 120
loot:
  chance: 0.5
  drops:
    - pickup: rifle
      ammo: 2d6+6
      weight: 3
    - pickup: shotgun
      ammo: "5"
`

func TestLoadTemplateFromBytes(t *testing.T) {
	tmpl, err := entity.LoadTemplateFromBytes([]byte(gruntYAML))
	require.NoError(t, err)
	assert.Equal(t, "grunt", tmpl.ID)
	assert.Equal(t, 4, tmpl.MaxHP)
	require.NotNil(t, tmpl.Loot)
	assert.Len(t, tmpl.Loot.Drops, 2)

	caps := tmpl.Capabilities()
	assert.False(t, caps.Boss)
	assert.Equal(t, event.TopicEnemyDied, caps.DeathTopic)
}

func TestLoadTemplateFromBytes_Invalid(t *testing.T) {
	cases := map[string]string{
		"no id":       "name: x\nmax_hp: 1\n",
		"no hp":       "id: x\nname: x\n",
		"bad loot":    "id: x\nname: x\nmax_hp: 1\nloot:\n  chance: 2\n  drops:\n    - pickup: rifle\n      ammo: '1'\n",
		"bad amount":  "id: x\nname: x\nmax_hp: 1\nloot:\n  chance: 1\n  drops:\n    - pickup: rifle\n      ammo: lots\n",
		"boss waves":  "id: x\nname: x\nmax_hp: 1\nboss: true\nminion_interval_ms: 100\n",
		"bad low hp":  "id: x\nname: x\nmax_hp: 1\nlow_health_fraction: 1.5\n",
		"not a yaml ": "id: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := entity.LoadTemplateFromBytes([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadTemplates_Dir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grunt.yaml"), []byte(gruntYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("skip"), 0o644))

	templates, err := entity.LoadTemplates(dir)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "grunt", templates[0].ID)
}

func TestDefaultTemplates_BossCapabilities(t *testing.T) {
	boss := template("boss")
	require.NoError(t, boss.Validate())
	caps := boss.Capabilities()
	assert.True(t, caps.Boss)
	assert.Equal(t, event.TopicBossDied, caps.DeathTopic)
	assert.Equal(t, 2, caps.MinionsPerWave)
	assert.Equal(t, 10000, caps.ScoreReward)
}

func TestLootTable_RollDistribution(t *testing.T) {
	tmpl, err := entity.LoadTemplateFromBytes([]byte(gruntYAML))
	require.NoError(t, err)
	src := dice.NewSeededSource(11)

	dropped := map[string]int{}
	for i := 0; i < 2000; i++ {
		l, ok := tmpl.Loot.Roll(src)
		if !ok {
			continue
		}
		dropped[l.Pickup]++
		assert.NotEmpty(t, l.InstanceID)
		if l.Pickup == "rifle" {
			assert.GreaterOrEqual(t, l.Ammo, 8)
			assert.LessOrEqual(t, l.Ammo, 18)
		} else {
			assert.Equal(t, 5, l.Ammo)
		}
	}
	total := dropped["rifle"] + dropped["shotgun"]
	assert.InDelta(t, 1000, total, 150)
	assert.Greater(t, dropped["rifle"], dropped["shotgun"])
}

func TestLootTable_EmptyNeverDrops(t *testing.T) {
	lt := &entity.LootTable{}
	require.NoError(t, lt.Validate())
	_, ok := lt.Roll(dice.NewSeededSource(1))
	assert.False(t, ok)
}
