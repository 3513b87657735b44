package director

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gtil/internal/game/dice"
	"github.com/cory-johannsen/gtil/internal/game/event"
	"github.com/cory-johannsen/gtil/internal/game/level"
	"github.com/cory-johannsen/gtil/internal/game/story"
	"github.com/cory-johannsen/gtil/internal/game/weapon"
	"github.com/cory-johannsen/gtil/internal/observability"
	"github.com/cory-johannsen/gtil/internal/scripting"
	"github.com/cory-johannsen/gtil/internal/storage"
)

// MapTypeStory is the launch map type that starts the campaign.
const MapTypeStory = "story"

// DefaultInboxSize bounds the inbound message queue.
const DefaultInboxSize = 64

// ErrNoCampaign is returned when a story launch is requested without one.
var ErrNoCampaign = errors.New("director: no story campaign loaded")

// settingsTimeout bounds settings persistence calls.
const settingsTimeout = 2 * time.Second

// Content is the loaded game data scenes are built from.
type Content struct {
	Weapons   *weapon.Registry
	Roster    Roster
	Generator level.Generator
	// Campaign may be nil; story launches are refused then.
	Campaign *story.Campaign
	// Scripts may be nil; level scripts are skipped then.
	Scripts     *scripting.Manager
	ScriptDir   string
	ScriptLimit int
	MapWidth    int
	MapHeight   int
}

// SessionDeps are the long-lived collaborators of a session.
type SessionDeps struct {
	Channel  *event.Channel
	Rand     dice.Source
	Scores   storage.HighScoreStore
	Settings storage.SettingsStore
	Metrics  *observability.Metrics
	Logger   *zap.Logger
	Now      func() time.Time
}

// Session runs scenes one after another on the shared channel: it launches
// them on request, swaps them on map transitions and level completion, and
// serves the inbound presentation topics.
//
// Deliver is safe for concurrent use; every other method must be called from
// the simulation goroutine.
type Session struct {
	opts     Options
	content  Content
	deps     SessionDeps
	settings storage.Settings
	inbox    chan event.Message
	subs     []event.Subscription

	cur      *Director
	last     event.LaunchGame
	launched bool
	pending  func()
}

// NewSession loads the stored settings and subscribes to the session topics.
//
// Precondition: content.Weapons and content.Generator, deps.Channel,
// deps.Rand, deps.Scores, deps.Settings and deps.Logger must not be nil.
// Postcondition: Returns an error if the settings cannot be loaded.
func NewSession(ctx context.Context, opts Options, content Content, deps SessionDeps) (*Session, error) {
	if content.Weapons == nil || content.Generator == nil {
		panic("director.NewSession: missing content")
	}
	if deps.Channel == nil || deps.Rand == nil || deps.Scores == nil || deps.Settings == nil || deps.Logger == nil {
		panic("director.NewSession: missing dependency")
	}
	settings, err := deps.Settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	s := &Session{
		opts:     opts,
		content:  content,
		deps:     deps,
		settings: settings,
		inbox:    make(chan event.Message, DefaultInboxSize),
	}
	ch := deps.Channel
	s.subs = []event.Subscription{
		event.On(ch, event.TopicLaunchGame, func(req event.LaunchGame) {
			s.later(func() { s.launchLogged(req) })
		}),
		ch.Subscribe(event.TopicRestartGame, func(any) {
			if s.launched {
				s.later(func() { s.launchLogged(s.last) })
			}
		}),
		event.On(ch, event.TopicSetVolume, s.setVolume),
		event.On(ch, event.TopicMapTransition, func(t event.Transition) {
			carry := Carry{Health: t.Health, Score: t.Score, Kills: t.Kills}
			s.later(func() { s.enterBoss(carry) })
		}),
		ch.Subscribe(event.TopicLevelComplete, func(any) {
			s.later(s.nextLevel)
		}),
	}
	if sc := content.Scripts; sc != nil {
		sc.Kills = func() int { return s.read(func(d *Director) int { return d.Kills() }) }
		sc.Score = func() int { return s.read(func(d *Director) int { return d.Score() }) }
		sc.Health = func() int { return s.read(func(d *Director) int { return d.Player().Health() }) }
		sc.Elapsed = func() float64 {
			if s.cur == nil {
				return 0
			}
			return s.cur.Scheduler().Now().Seconds()
		}
	}
	return s, nil
}

func (s *Session) read(fn func(d *Director) int) int {
	if s.cur == nil {
		return 0
	}
	return fn(s.cur)
}

// Deliver queues an inbound presentation message for the next Tick.
//
// Postcondition: Returns false when topic is not inbound or the queue is full.
func (s *Session) Deliver(topic event.Topic, payload any) bool {
	if !topic.Inbound() {
		return false
	}
	select {
	case s.inbox <- event.Message{Topic: topic, Payload: payload}:
		return true
	default:
		s.deps.Logger.Warn("session inbox full", zap.String("topic", string(topic)))
		return false
	}
}

// Tick publishes queued inbound messages, advances the current scene by dt
// and applies any scene swap requested along the way.
func (s *Session) Tick(dt time.Duration) {
	for drained := false; !drained; {
		select {
		case msg := <-s.inbox:
			s.deps.Channel.Publish(msg.Topic, msg.Payload)
		default:
			drained = true
		}
	}
	s.runPending()
	if s.cur != nil {
		s.cur.Tick(dt)
	}
	s.runPending()
}

// Launch starts a fresh run. MapType MapTypeStory starts the campaign,
// level.MapTypeBossTerrace the boss arena and any other type an arcade run
// on that map.
func (s *Session) Launch(req event.LaunchGame) error {
	if req.MapType == "" {
		req.MapType = level.MapTypeArena
	}
	var err error
	switch req.MapType {
	case MapTypeStory:
		if s.content.Campaign == nil {
			return ErrNoCampaign
		}
		err = s.play(req.CharType, ModeStory, s.content.Campaign.First(), "", nil)
	case level.MapTypeBossTerrace:
		err = s.play(req.CharType, ModeBoss, nil, req.MapType, nil)
	default:
		err = s.play(req.CharType, ModeArcade, nil, req.MapType, nil)
	}
	if err != nil {
		return err
	}
	s.last = req
	s.launched = true
	return nil
}

// Current returns the running scene, or nil before the first launch.
func (s *Session) Current() *Director { return s.cur }

// Settings returns the settings in effect.
func (s *Session) Settings() storage.Settings { return s.settings }

// Close stops the current scene and drops the session subscriptions.
func (s *Session) Close() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
	if s.cur != nil {
		s.cur.Stop()
		s.cur = nil
	}
}

func (s *Session) later(fn func()) { s.pending = fn }

func (s *Session) runPending() {
	for s.pending != nil {
		fn := s.pending
		s.pending = nil
		fn()
	}
}

func (s *Session) launchLogged(req event.LaunchGame) {
	if err := s.Launch(req); err != nil {
		s.deps.Logger.Warn("launch refused", zap.Error(err), zap.String("map_type", req.MapType))
	}
}

func (s *Session) enterBoss(carry Carry) {
	charType := s.last.CharType
	if err := s.play(charType, ModeBoss, nil, level.MapTypeBossTerrace, &carry); err != nil {
		s.deps.Logger.Error("entering boss arena failed", zap.Error(err))
	}
}

func (s *Session) nextLevel() {
	if s.cur == nil || s.cur.Level() == nil || s.content.Campaign == nil {
		return
	}
	next, ok := s.content.Campaign.Next(s.cur.Level().ID)
	if !ok {
		return
	}
	carry := Carry{Health: s.cur.Player().Health(), Score: s.cur.Score()}
	if err := s.play(s.last.CharType, ModeStory, next, "", &carry); err != nil {
		s.deps.Logger.Error("entering next level failed", zap.Error(err), zap.Int("level", next.ID))
	}
}

func (s *Session) setVolume(v float64) {
	s.settings = s.settings.WithVolume(v)
	ctx, cancel := context.WithTimeout(context.Background(), settingsTimeout)
	defer cancel()
	if err := s.deps.Settings.Save(ctx, s.settings); err != nil {
		s.deps.Logger.Warn("saving settings failed", zap.Error(err))
	}
}

// play replaces the current scene. For story scenes the map comes from lvl,
// otherwise from mapType.
func (s *Session) play(charType string, mode Mode, lvl *story.Level, mapType string, carry *Carry) error {
	width, height := s.content.MapWidth, s.content.MapHeight
	if lvl != nil {
		mapType = lvl.MapType
		if lvl.MapWidth > 0 && lvl.MapHeight > 0 {
			width, height = lvl.MapWidth, lvl.MapHeight
		}
	}
	data, err := s.content.Generator.Generate(width, height, mapType)
	if err != nil {
		return fmt.Errorf("generating %q: %w", mapType, err)
	}
	m, err := level.NewMap(data, s.opts.CellSize)
	if err != nil {
		return fmt.Errorf("building %q: %w", mapType, err)
	}

	weapons := s.content.Weapons.Allowed(s.settings.AllowedWeapons)
	if len(weapons) == 0 {
		s.deps.Logger.Warn("allow-list admits no weapon, using the full arsenal")
		weapons = s.content.Weapons.All()
	}
	setup := Setup{Mode: mode, Map: m, CharType: charType, Carry: carry, Level: lvl}
	if lvl != nil {
		setup.Script = s.script(lvl)
	}
	next, err := New(s.opts, setup, Deps{
		Channel: s.deps.Channel,
		Rand:    s.deps.Rand,
		Weapons: weapons,
		Roster:  s.content.Roster,
		Scores:  s.deps.Scores,
		Metrics: s.deps.Metrics,
		Logger:  s.deps.Logger,
		Now:     s.deps.Now,
	})
	if err != nil {
		return err
	}
	if s.cur != nil {
		s.cur.Stop()
	}
	s.cur = next
	next.Start()
	return nil
}

// script loads the level's Lua hook. A level without a script, or a
// script that fails to load, narrates from its static lines only.
func (s *Session) script(lvl *story.Level) story.ScriptHook {
	if lvl.Script == "" || s.content.Scripts == nil {
		return nil
	}
	scope := "level:" + strconv.Itoa(lvl.ID)
	if !s.content.Scripts.Loaded(scope) {
		path := filepath.Join(s.content.ScriptDir, lvl.Script)
		if err := s.content.Scripts.LoadFile(scope, path, s.content.ScriptLimit); err != nil {
			s.deps.Logger.Warn("loading level script failed", zap.Error(err), zap.String("path", path))
			return nil
		}
	}
	return s.content.Scripts.DialogueHook(scope)
}
