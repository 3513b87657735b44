package story

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gtil/internal/game/clock"
	"github.com/cory-johannsen/gtil/internal/game/event"
)

// HideAfter is how long a line stays on screen.
const HideAfter = 5 * time.Second

// ScriptHook supplies lines for triggers that have no static dialogue.
type ScriptHook interface {
	Dialogue(trigger string) (string, bool)
}

// EngineDeps are the collaborators of an Engine.
type EngineDeps struct {
	Channel   *event.Channel
	Scheduler *clock.Scheduler
	// Hook may be nil.
	Hook   ScriptHook
	Logger *zap.Logger
}

// Engine fires each trigger of one level at most once. It listens to the
// channel for kills and boss milestones; elapsed time is fed through Update.
type Engine struct {
	level *Level
	deps  EngineDeps
	lines map[string]string
	fired map[string]bool
	subs  []event.Subscription
	live  clock.Liveness

	started    bool
	startedAt  time.Duration
	lastSecond int
	kills      int
	shown      uint64
}

// NewEngine builds the trigger engine for level and subscribes it to
// enemy-died, boss-died, boss-spawn and boss-low-health.
//
// Precondition: level, deps.Channel, deps.Scheduler and deps.Logger must not
// be nil.
func NewEngine(level *Level, deps EngineDeps) *Engine {
	if level == nil || deps.Channel == nil || deps.Scheduler == nil || deps.Logger == nil {
		panic("story.NewEngine: missing dependency")
	}
	e := &Engine{
		level:      level,
		deps:       deps,
		lines:      make(map[string]string, len(level.Dialogue)),
		fired:      make(map[string]bool),
		lastSecond: -1,
	}
	for _, d := range level.Dialogue {
		e.lines[d.Trigger] = d.Text
	}
	kill := func(any) {
		e.kills++
		e.OnKill(e.kills)
	}
	e.subs = []event.Subscription{
		deps.Channel.Subscribe(event.TopicEnemyDied, kill),
		deps.Channel.Subscribe(event.TopicBossDied, kill),
		deps.Channel.Subscribe(event.TopicBossSpawn, func(any) { e.OnMilestone(TriggerBossSpawn) }),
		deps.Channel.Subscribe(event.TopicBossLowHealth, func(any) { e.OnMilestone(TriggerBossLowHealth) }),
	}
	return e
}

// Level returns the level this engine narrates.
func (e *Engine) Level() *Level { return e.level }

// Kills returns the kills observed since the engine was built.
func (e *Engine) Kills() int { return e.kills }

// Elapsed returns the time since Start, or zero before it.
func (e *Engine) Elapsed() time.Duration {
	if !e.started {
		return 0
	}
	return e.deps.Scheduler.Now() - e.startedAt
}

// Start marks the session start at now and fires the start trigger.
func (e *Engine) Start(now time.Duration) {
	if e.started {
		return
	}
	e.started = true
	e.startedAt = now
	e.Fire(TriggerStart)
}

// OnKill fires kills:<total>.
func (e *Engine) OnKill(total int) {
	e.Fire(KillsTrigger(total))
}

// OnMilestone fires a named milestone trigger.
func (e *Engine) OnMilestone(name string) {
	e.Fire(name)
}

// Update fires time:<N> for every whole second reached since the last call.
func (e *Engine) Update(now time.Duration) {
	if !e.started {
		return
	}
	sec := int((now - e.startedAt) / time.Second)
	for s := e.lastSecond + 1; s <= sec; s++ {
		e.Fire(TimeTrigger(s))
	}
	if sec > e.lastSecond {
		e.lastSecond = sec
	}
}

// Fire shows the line bound to trigger, falling back to the script hook.
//
// Postcondition: Returns true and publishes show-dialogue only the first
// time a trigger with a line fires. hide-dialogue follows HideAfter later
// unless a newer line has been shown meanwhile.
func (e *Engine) Fire(trigger string) bool {
	if e.fired[trigger] {
		return false
	}
	text, ok := e.lines[trigger]
	if !ok && e.deps.Hook != nil {
		text, ok = e.deps.Hook.Dialogue(trigger)
	}
	if !ok {
		return false
	}
	e.fired[trigger] = true
	e.shown++
	id := e.shown
	e.deps.Logger.Debug("story trigger fired",
		zap.Int("level", e.level.ID),
		zap.String("trigger", trigger),
	)
	e.deps.Channel.Publish(event.TopicShowDialogue, text)
	e.deps.Scheduler.After(HideAfter, e.live.Token(), func() {
		if id == e.shown {
			e.deps.Channel.Publish(event.TopicHideDialogue, nil)
		}
	})
	return true
}

// Fired returns the triggers that have fired, sorted.
func (e *Engine) Fired() []string {
	out := make([]string, 0, len(e.fired))
	for t := range e.fired {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Stop unsubscribes the engine and drops its pending hide.
func (e *Engine) Stop() {
	for _, s := range e.subs {
		s.Unsubscribe()
	}
	e.subs = nil
	e.live.Invalidate()
}
