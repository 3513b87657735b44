package event

// Topic names a message class. The string values are the wire names shared
// with presentation clients.
type Topic string

// Outbound topics published by the simulation.
const (
	TopicScoreChange      Topic = "score-change"
	TopicHealthChange     Topic = "health-change"
	TopicWeaponChanged    Topic = "weapon-changed"
	TopicAmmoChange       Topic = "ammo-change"
	TopicEnemyDied        Topic = "enemy-died"
	TopicBossDied         Topic = "boss-died"
	TopicBossSpawn        Topic = "boss-spawn"
	TopicBossHealthChange Topic = "boss-health-change"
	TopicBossLowHealth    Topic = "boss-low-health"
	TopicSpawnMinion      Topic = "spawn-minion"
	TopicShowDialogue     Topic = "show-dialogue"
	TopicHideDialogue     Topic = "hide-dialogue"
	TopicGameOver         Topic = "game-over"
	TopicVictory          Topic = "victory"
	TopicRoundStart       Topic = "round-start"
	TopicLevelComplete    Topic = "level-complete"
	TopicMapTransition    Topic = "map-transition"
)

// Inbound topics published by the presentation layer.
const (
	TopicLaunchGame  Topic = "launch-game"
	TopicRestartGame Topic = "restart-game"
	TopicSetVolume   Topic = "set-volume"
)

// Inbound reports whether presentation clients may publish t.
func (t Topic) Inbound() bool {
	switch t {
	case TopicLaunchGame, TopicRestartGame, TopicSetVolume:
		return true
	}
	return false
}

// BossHealth is the payload of boss-spawn and boss-health-change.
type BossHealth struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// SpawnRequest is the payload of spawn-minion, in world units.
type SpawnRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LaunchGame is the payload of launch-game.
type LaunchGame struct {
	CharType string `json:"charType"`
	MapType  string `json:"mapType"`
}

// Outcome is the payload of game-over and victory.
type Outcome struct {
	Victory bool `json:"victory"`
	Score   int  `json:"score"`
	Kills   int  `json:"kills"`
}

// Transition is the payload of map-transition. The receiver rebuilds the
// session on MapType carrying the player's progress.
type Transition struct {
	MapType string `json:"mapType"`
	Health  int    `json:"health"`
	Score   int    `json:"score"`
	Kills   int    `json:"kills"`
}
