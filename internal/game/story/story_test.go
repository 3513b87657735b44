package story_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gtil/internal/game/clock"
	"github.com/cory-johannsen/gtil/internal/game/event"
	"github.com/cory-johannsen/gtil/internal/game/story"
)

const terraceYAML = `
id: 3
title: "¡A la Carga!"
map_type: boss_terrace
victory: {type: kill_count, value: 15}
dialogue:
  - trigger: start
    text: "San Martín: ¡AL ATAQUE!"
  - trigger: time:10
    text: "Zabala: ¡Formen cuadros!"
  - trigger: kills:2
    text: "Soldado: ¡Dos menos!"
  - trigger: boss_spawn
    text: "Zabala: ¡Ríndanse!"
  - trigger: boss_low_health
    text: "Zabala: ¡Retirada!"
`

type fakeHook map[string]string

func (h fakeHook) Dialogue(trigger string) (string, bool) {
	s, ok := h[trigger]
	return s, ok
}

type harness struct {
	sched *clock.Scheduler
	ch    *event.Channel
	shown []string
	hides int
}

func newHarness() *harness {
	h := &harness{sched: clock.NewScheduler(), ch: event.New(zap.NewNop())}
	event.On(h.ch, event.TopicShowDialogue, func(s string) { h.shown = append(h.shown, s) })
	h.ch.Subscribe(event.TopicHideDialogue, func(any) { h.hides++ })
	return h
}

func (h *harness) engine(t *testing.T, doc string, hook story.ScriptHook) *story.Engine {
	t.Helper()
	lvl, err := story.LoadLevelFromBytes([]byte(doc))
	require.NoError(t, err)
	return story.NewEngine(lvl, story.EngineDeps{Channel: h.ch, Scheduler: h.sched, Hook: hook, Logger: zap.NewNop()})
}

func TestEngine_StartFiresOnce(t *testing.T) {
	h := newHarness()
	e := h.engine(t, terraceYAML, nil)
	e.Start(0)
	e.Start(0)
	assert.False(t, e.Fire(story.TriggerStart))
	assert.Equal(t, []string{"San Martín: ¡AL ATAQUE!"}, h.shown)
}

func TestEngine_KillsFromChannel(t *testing.T) {
	h := newHarness()
	e := h.engine(t, terraceYAML, nil)
	h.ch.Publish(event.TopicEnemyDied, nil)
	assert.Empty(t, h.shown)
	h.ch.Publish(event.TopicEnemyDied, nil)
	assert.Equal(t, []string{"Soldado: ¡Dos menos!"}, h.shown)
	assert.Equal(t, 2, e.Kills())

	e.OnKill(2)
	assert.Len(t, h.shown, 1)
}

func TestEngine_BossMilestonesFromChannel(t *testing.T) {
	h := newHarness()
	h.engine(t, terraceYAML, nil)
	h.ch.Publish(event.TopicBossSpawn, event.BossHealth{Current: 500, Max: 500})
	h.ch.Publish(event.TopicBossLowHealth, nil)
	h.ch.Publish(event.TopicBossLowHealth, nil)
	assert.Equal(t, []string{"Zabala: ¡Ríndanse!", "Zabala: ¡Retirada!"}, h.shown)
}

func TestEngine_TimeTriggers(t *testing.T) {
	h := newHarness()
	e := h.engine(t, terraceYAML, nil)
	e.Update(20 * time.Second)
	assert.Empty(t, h.shown, "nothing before Start")

	e.Start(time.Second)
	h.shown = nil
	e.Update(10 * time.Second)
	assert.Empty(t, h.shown)
	e.Update(11*time.Second + 500*time.Millisecond)
	assert.Equal(t, []string{"Zabala: ¡Formen cuadros!"}, h.shown)
	e.Update(12 * time.Second)
	assert.Len(t, h.shown, 1)
}

func TestEngine_TimeTriggerNotSkippedByCoarseUpdates(t *testing.T) {
	h := newHarness()
	e := h.engine(t, terraceYAML, nil)
	e.Start(0)
	e.Update(3 * time.Second)
	e.Update(30 * time.Second)
	assert.Contains(t, e.Fired(), "time:10")
}

func TestEngine_HideFollowsLatestLine(t *testing.T) {
	h := newHarness()
	e := h.engine(t, terraceYAML, nil)
	e.Start(0)
	h.sched.Advance(3 * time.Second)
	e.OnMilestone(story.TriggerBossSpawn)

	h.sched.Advance(2 * time.Second)
	assert.Equal(t, 0, h.hides, "first hide superseded by the newer line")
	h.sched.Advance(3 * time.Second)
	assert.Equal(t, 1, h.hides)
}

func TestEngine_HookFallback(t *testing.T) {
	h := newHarness()
	hook := fakeHook{"kills:1": "Cabral: ¡Uno!", "start": "never used"}
	e := h.engine(t, terraceYAML, hook)
	e.Start(0)
	assert.Equal(t, "San Martín: ¡AL ATAQUE!", h.shown[0], "static line wins")

	h.ch.Publish(event.TopicEnemyDied, nil)
	assert.Equal(t, "Cabral: ¡Uno!", h.shown[1])
	assert.False(t, e.Fire("kills:1"))
	assert.False(t, e.Fire("kills:7"), "neither static nor scripted")
}

func TestEngine_StopUnsubscribesAndDropsHide(t *testing.T) {
	h := newHarness()
	e := h.engine(t, terraceYAML, nil)
	e.Start(0)
	e.Stop()
	assert.Zero(t, h.ch.Subscribers(event.TopicEnemyDied))

	h.ch.Publish(event.TopicEnemyDied, nil)
	h.ch.Publish(event.TopicEnemyDied, nil)
	h.sched.Advance(10 * time.Second)
	assert.Len(t, h.shown, 1)
	assert.Equal(t, 0, h.hides)
}

func TestLevel_ValidateRejects(t *testing.T) {
	cases := map[string]string{
		"no id":         "title: x\nmap_type: arena\nvictory: {type: kill_count, value: 1}\n",
		"no title":      "id: 1\nmap_type: arena\nvictory: {type: kill_count, value: 1}\n",
		"no map":        "id: 1\ntitle: x\nvictory: {type: kill_count, value: 1}\n",
		"bad victory":   "id: 1\ntitle: x\nmap_type: arena\nvictory: {type: survive, value: 1}\n",
		"zero target":   "id: 1\ntitle: x\nmap_type: arena\nvictory: {type: kill_count, value: 0}\n",
		"bad trigger":   "id: 1\ntitle: x\nmap_type: arena\nvictory: {type: kill_count, value: 1}\ndialogue: [{trigger: 'kills:x', text: a}]\n",
		"dup trigger":   "id: 1\ntitle: x\nmap_type: arena\nvictory: {type: kill_count, value: 1}\ndialogue: [{trigger: start, text: a}, {trigger: start, text: b}]\n",
		"empty text":    "id: 1\ntitle: x\nmap_type: arena\nvictory: {type: kill_count, value: 1}\ndialogue: [{trigger: start, text: ' '}]\n",
		"unknown event": "id: 1\ntitle: x\nmap_type: arena\nvictory: {type: kill_count, value: 1}\ndialogue: [{trigger: dawn, text: a}]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := story.LoadLevelFromBytes([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestCampaign_Order(t *testing.T) {
	dir := t.TempDir()
	write := func(name, doc string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644))
	}
	write("b.yaml", "id: 2\ntitle: two\nmap_type: bridge\nvictory: {type: kill_count, value: 10}\nnext_level: 3\n")
	write("a.yaml", "id: 1\ntitle: one\nmap_type: dungeon\nvictory: {type: kill_count, value: 5}\nnext_level: 2\n")
	write("c.yaml", terraceYAML)

	c, err := story.LoadCampaign(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, c.First().ID)
	next, ok := c.Next(1)
	require.True(t, ok)
	assert.Equal(t, 2, next.ID)
	_, ok = c.Next(3)
	assert.False(t, ok)
	_, err = c.Level(9)
	assert.ErrorIs(t, err, story.ErrUnknownLevel)
}

func TestCampaign_DanglingNext(t *testing.T) {
	_, err := story.NewCampaign([]*story.Level{{ID: 1, Title: "x", MapType: "arena", NextLevel: 4}})
	assert.ErrorIs(t, err, story.ErrUnknownLevel)
}

func TestContentCampaign_Loads(t *testing.T) {
	c, err := story.LoadCampaign(filepath.Join("..", "..", "..", "content", "story"))
	require.NoError(t, err)
	levels := c.Levels()
	require.Len(t, levels, 3)
	assert.Equal(t, 5, levels[0].Victory.Value)
	assert.True(t, levels[2].Final())
	assert.Equal(t, "boss_terrace", levels[2].MapType)
}

func TestProperty_TriggerFiresAtMostOnce(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness()
		lvl, err := story.LoadLevelFromBytes([]byte(terraceYAML))
		if err != nil {
			rt.Fatal(err)
		}
		e := story.NewEngine(lvl, story.EngineDeps{Channel: h.ch, Scheduler: h.sched, Logger: zap.NewNop()})
		triggers := []string{"start", "time:10", "kills:2", "boss_spawn", "boss_low_health", "kills:9"}
		calls := rapid.SliceOf(rapid.SampledFrom(triggers)).Draw(rt, "calls")
		for _, c := range calls {
			e.Fire(c)
		}
		seen := map[string]int{}
		for _, s := range h.shown {
			seen[s]++
			if seen[s] > 1 {
				rt.Fatalf("line %q shown twice", s)
			}
		}
	})
}
