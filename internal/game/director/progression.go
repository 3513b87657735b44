package director

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gtil/internal/game/entity"
	"github.com/cory-johannsen/gtil/internal/game/event"
	"github.com/cory-johannsen/gtil/internal/game/geom"
	"github.com/cory-johannsen/gtil/internal/game/level"
	"github.com/cory-johannsen/gtil/internal/storage"
)

func (d *Director) spawn(t *entity.Template, pos geom.Vec2) *entity.Enemy {
	e := entity.NewEnemy(t, pos, d.player, entity.EnemyDeps{
		Scheduler: d.sched,
		Channel:   d.deps.Channel,
		Paths:     d.grid,
		Sight:     d.m,
		Spawner:   d.pool,
		Rand:      d.deps.Rand,
		Logger:    d.deps.Logger,
		OnDeath:   d.onEnemyDeath,
	})
	e.RoomID = d.m.RoomAt(pos)
	d.enemies = append(d.enemies, e)
	d.world.Add(e.Body)
	return e
}

// spawnPoint returns the i-th authored spawn, or a random point in a room
// the player is not standing in when the level authored none.
func (d *Director) spawnPoint(i int) geom.Vec2 {
	if spawns := d.m.Data().EnemySpawns; len(spawns) > 0 {
		return spawns[i%len(spawns)]
	}
	rooms := d.m.Rooms()
	if rooms == 0 {
		return d.m.Data().PlayerStart
	}
	playerRoom := d.m.RoomAt(d.player.Position())
	room := d.deps.Rand.Intn(rooms)
	if room == playerRoom && rooms > 1 {
		room = (room + 1) % rooms
	}
	return d.m.RandomPointInRoom(room, d.deps.Rand)
}

func (d *Director) spawnWave(n int) {
	for i := 0; i < n; i++ {
		d.spawn(d.deps.Roster.Regular, d.spawnPoint(i))
	}
}

func (d *Director) startRound(n int) {
	if d.end != EndNone {
		return
	}
	d.round = n
	d.roundPending = false
	d.deps.Channel.Publish(event.TopicRoundStart, n)
	d.deps.Logger.Debug("round started", zap.Int("round", n), zap.Int("enemies", d.opts.RoundEnemies))
	d.spawnWave(d.opts.RoundEnemies)
}

// spawnBossWave places the boss at the centre of the first room and brings
// in the minion wave after BossWaveDelay.
func (d *Director) spawnBossWave() {
	pos := d.spawnPoint(0)
	if d.m.Rooms() > 0 {
		pos = d.m.RoomCenter(0)
	}
	d.boss = d.spawn(d.deps.Roster.Boss, pos)
	d.deps.Channel.Publish(event.TopicBossSpawn, event.BossHealth{Current: d.boss.Health(), Max: d.boss.MaxHealth()})
	d.sched.After(BossWaveDelay, d.live.Token(), func() {
		if d.end != EndNone {
			return
		}
		for i := 0; i < d.opts.BossMinions; i++ {
			d.spawn(d.deps.Roster.Regular, d.minionPoint(i))
		}
	})
}

func (d *Director) minionPoint(i int) geom.Vec2 {
	if d.m.Rooms() > 0 {
		return d.m.RandomPointInRoom(0, d.deps.Rand)
	}
	return d.spawnPoint(i)
}

// spawnMinion serves a boss reinforcement request. Requests landing on a
// blocked cell are dropped.
func (d *Director) spawnMinion(req event.SpawnRequest) {
	if d.end != EndNone || d.stopped {
		return
	}
	pos := geom.V(req.X, req.Y)
	if d.m.Blocked(d.m.CellOf(pos)) {
		d.deps.Logger.Debug("minion spawn blocked", zap.Float64("x", req.X), zap.Float64("y", req.Y))
		return
	}
	d.spawn(d.deps.Roster.Regular, pos)
}

func (d *Director) addScore(n int) {
	d.score += n
	d.deps.Channel.Publish(event.TopicScoreChange, d.score)
}

func (d *Director) onEnemyDeath(e *entity.Enemy, loot *entity.Loot) {
	caps := e.Capabilities()
	d.kills++
	reward := caps.ScoreReward
	if reward <= 0 {
		reward = defaultScoreReward
	}
	d.addScore(reward)
	d.deps.Metrics.Kill(caps.Boss)
	if loot != nil {
		p := entity.NewPickup(*loot, e.Pos())
		d.pickups = append(d.pickups, p)
		d.world.Add(p.Body)
	}
	if d.end != EndNone {
		return
	}

	switch d.setup.Mode {
	case ModeArcade:
		d.arcadeKill()
	case ModeStory:
		d.storyKill(caps.Boss)
	case ModeBoss:
		if caps.Boss {
			d.finish(EndVictory)
		}
	}
}

func (d *Director) arcadeKill() {
	if d.opts.BossMilestone > 0 && d.kills >= d.opts.BossMilestone {
		d.finish(EndTransition)
		return
	}
	if d.roundsWon {
		d.scheduleRespawn()
		return
	}
	if d.Alive() > 0 || d.roundPending {
		return
	}
	if d.round >= d.opts.MaxRounds {
		d.winRounds()
		return
	}
	d.roundPending = true
	next := d.round + 1
	d.sched.After(d.opts.RoundDelay, d.live.Token(), func() { d.startRound(next) })
}

// winRounds pays the round bonus once, then keeps the arena populated until
// the boss milestone.
func (d *Director) winRounds() {
	d.roundsWon = true
	d.addScore(VictoryBonus)
	d.player.SetHealth(entity.PlayerMaxHealth)
	d.deps.Channel.Publish(event.TopicVictory, event.Outcome{Victory: true, Score: d.score, Kills: d.kills})
	d.deps.Logger.Info("rounds won", zap.Int("score", d.score), zap.Int("kills", d.kills))
	d.sched.After(d.opts.RoundDelay, d.live.Token(), func() {
		if d.end == EndNone {
			d.spawnWave(d.opts.RoundEnemies)
		}
	})
}

func (d *Director) storyKill(boss bool) {
	if boss || d.kills >= d.setup.Level.Victory.Value {
		if d.setup.Level.Final() {
			d.finish(EndVictory)
		} else {
			d.finish(EndLevelComplete)
		}
		return
	}
	d.scheduleRespawn()
}

func (d *Director) scheduleRespawn() {
	if d.opts.RespawnDelay <= 0 {
		return
	}
	d.sched.After(d.opts.RespawnDelay, d.live.Token(), func() {
		if d.end == EndNone {
			d.spawn(d.deps.Roster.Regular, d.spawnPoint(d.deps.Rand.Intn(1<<16)))
		}
	})
}

// finish ends the scene once and publishes its outcome.
func (d *Director) finish(end End) {
	if d.end != EndNone {
		return
	}
	d.end = end
	outcome := event.Outcome{Victory: end != EndGameOver, Score: d.score, Kills: d.kills}
	switch end {
	case EndGameOver:
		d.deps.Channel.Publish(event.TopicGameOver, outcome)
		d.record()
	case EndVictory:
		d.deps.Channel.Publish(event.TopicVictory, outcome)
		d.record()
	case EndLevelComplete:
		d.deps.Channel.Publish(event.TopicLevelComplete, outcome)
	case EndTransition:
		d.deps.Channel.Publish(event.TopicMapTransition, event.Transition{
			MapType: level.MapTypeBossTerrace,
			Health:  d.player.Health(),
			Score:   d.score,
			Kills:   d.kills,
		})
	}
	d.deps.Logger.Info("scene ended",
		zap.Stringer("end", end),
		zap.Int("score", d.score),
		zap.Int("kills", d.kills),
	)
}

func (d *Director) record() {
	if d.deps.Scores == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	entry := storage.NewHighScore(d.score, d.setup.CharType, d.deps.Now())
	if err := d.deps.Scores.Record(ctx, entry); err != nil {
		d.deps.Logger.Warn("recording high score failed", zap.Error(err), zap.Int("score", d.score))
	}
}
