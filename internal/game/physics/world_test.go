package physics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/gtil/internal/game/geom"
	"github.com/cory-johannsen/gtil/internal/game/level"
	"github.com/cory-johannsen/gtil/internal/game/physics"
)

func arenaMap(t *testing.T) *level.Map {
	t.Helper()
	data, err := level.ArenaGenerator{}.Generate(20, 10, level.MapTypeArena)
	require.NoError(t, err)
	m, err := level.NewMap(data, level.DefaultCellSize)
	require.NoError(t, err)
	return m
}

func TestStep_SolidBodyStopsAtWall(t *testing.T) {
	m := arenaMap(t)
	w := physics.NewWorld(m)
	b := &physics.Body{Kind: physics.KindPlayer, Pos: geom.V(48, 80), Vel: geom.V(-300, 0), Radius: 14, Enabled: true, Solid: true}
	w.Add(b)
	for i := 0; i < 30; i++ {
		w.Step(16 * time.Millisecond)
	}
	assert.GreaterOrEqual(t, b.Pos.X, 32+14.0, "body must stay out of the border wall")
	assert.Equal(t, 80.0, b.Pos.Y)
}

func TestStep_SolidBodySlidesAlongWall(t *testing.T) {
	m := arenaMap(t)
	w := physics.NewWorld(m)
	b := &physics.Body{Kind: physics.KindEnemy, Pos: geom.V(48, 80), Vel: geom.V(-100, 100), Radius: 14, Enabled: true, Solid: true}
	w.Add(b)
	w.Step(100 * time.Millisecond)
	assert.Equal(t, 48.0, b.Pos.X)
	assert.InDelta(t, 90, b.Pos.Y, 1e-9)
}

func TestStep_ProjectileReportsWallContact(t *testing.T) {
	m := arenaMap(t)
	w := physics.NewWorld(m)
	w.Watch(physics.KindProjectile, physics.KindWall)
	p := &physics.Body{Kind: physics.KindProjectile, Pos: geom.V(40, 80), Vel: geom.V(-800, 0), Radius: 2, Enabled: true}
	w.Add(p)

	contacts := w.Step(16 * time.Millisecond)
	require.Len(t, contacts, 1)
	assert.Equal(t, p, contacts[0].A)
	assert.Nil(t, contacts[0].B)
	assert.Equal(t, physics.KindWall, contacts[0].Tile)
	assert.Equal(t, geom.Cell{X: 0, Y: 2}, contacts[0].Cell)
}

func TestStep_ClosedDoorReportedOpenDoorIgnored(t *testing.T) {
	m := arenaMap(t)
	door := m.Doors()[0]
	w := physics.NewWorld(m)
	w.Watch(physics.KindProjectile, physics.KindDoor)
	p := &physics.Body{Kind: physics.KindProjectile, Pos: door.Pos.Sub(geom.V(20, 0)), Vel: geom.V(800, 0), Radius: 2, Enabled: true}
	w.Add(p)

	contacts := w.Step(16 * time.Millisecond)
	require.Len(t, contacts, 1)
	assert.Equal(t, physics.KindDoor, contacts[0].Tile)

	require.True(t, door.Toggle(0))
	p.Pos = door.Pos.Sub(geom.V(20, 0))
	assert.Empty(t, w.Step(16*time.Millisecond))
}

func TestStep_ContactsFollowRuleOrder(t *testing.T) {
	m := arenaMap(t)
	w := physics.NewWorld(m)
	w.Watch(physics.KindPlayer, physics.KindPickup)
	w.Watch(physics.KindProjectile, physics.KindEnemy)

	player := &physics.Body{Kind: physics.KindPlayer, Pos: geom.V(100, 100), Radius: 14, Enabled: true, Solid: true}
	pickup := &physics.Body{Kind: physics.KindPickup, Pos: geom.V(105, 100), Radius: 10, Enabled: true}
	enemy := &physics.Body{Kind: physics.KindEnemy, Pos: geom.V(200, 100), Radius: 14, Enabled: true, Solid: true}
	shot := &physics.Body{Kind: physics.KindProjectile, Pos: geom.V(200, 100), Radius: 2, Enabled: true}
	off := &physics.Body{Kind: physics.KindProjectile, Pos: geom.V(200, 100), Radius: 2}
	for _, b := range []*physics.Body{shot, off, enemy, pickup, player} {
		w.Add(b)
	}

	contacts := w.Step(0)
	require.Len(t, contacts, 2)
	assert.Equal(t, player, contacts[0].A)
	assert.Equal(t, pickup, contacts[0].B)
	assert.Equal(t, shot, contacts[1].A)
	assert.Equal(t, enemy, contacts[1].B)
}

func TestWorld_AddRemove(t *testing.T) {
	w := physics.NewWorld(arenaMap(t))
	b := &physics.Body{Kind: physics.KindPickup}
	w.Add(b)
	w.Add(b)
	assert.Equal(t, 1, w.Len())
	w.Remove(b)
	assert.Equal(t, 0, w.Len())
}

func TestWatch_TileFirstPanics(t *testing.T) {
	w := physics.NewWorld(arenaMap(t))
	assert.Panics(t, func() { w.Watch(physics.KindWall, physics.KindPlayer) })
}
