package pathfind_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gtil/internal/game/geom"
	"github.com/cory-johannsen/gtil/internal/game/pathfind"
)

type result struct {
	path  *pathfind.Path
	ok    bool
	calls int
}

func (r *result) cb(p *pathfind.Path, ok bool) {
	r.path, r.ok = p, ok
	r.calls++
}

func center(x, y int) geom.Vec2 { return geom.Cell{X: x, Y: y}.Center(32) }

func TestFindPath_SameCellSingleWaypoint(t *testing.T) {
	g := pathfind.NewGrid(10, 10, 32)
	var r result
	g.FindPath(geom.V(40, 40), geom.V(50, 60), r.cb)

	require.Equal(t, 1, r.calls)
	require.True(t, r.ok)
	assert.Equal(t, 1, r.path.Len())
	assert.Equal(t, center(1, 1), r.path.At(0))
	assert.Equal(t, 0, g.Pending())
}

func TestFindPath_OutOfBoundsNoSearch(t *testing.T) {
	g := pathfind.NewGrid(10, 10, 32)
	var r result
	g.FindPath(geom.V(-5, 40), center(3, 3), r.cb)

	require.Equal(t, 1, r.calls)
	assert.False(t, r.ok)
	assert.Nil(t, r.path)
	assert.Equal(t, 0, g.Pending())
	g.Calculate()
	assert.Equal(t, uint64(0), g.Stats().Expanded)
}

func TestFindPath_BlockedEndNoPath(t *testing.T) {
	g := pathfind.NewGrid(10, 10, 32)
	g.Rebuild([]geom.Cell{{X: 5, Y: 5}})
	var r result
	g.FindPath(center(1, 1), center(5, 5), r.cb)
	require.Equal(t, 1, r.calls)
	assert.False(t, r.ok)
}

func TestFindPath_RoutesAroundWall(t *testing.T) {
	g := pathfind.NewGrid(7, 7, 32)
	var walls []geom.Cell
	for y := 0; y < 6; y++ {
		walls = append(walls, geom.Cell{X: 3, Y: y})
	}
	g.Rebuild(walls)

	var r result
	g.FindPath(center(1, 1), center(5, 1), r.cb)
	assert.Equal(t, 0, r.calls, "search is asynchronous")
	g.Calculate()

	require.Equal(t, 1, r.calls)
	require.True(t, r.ok)
	pts := r.path.Points()
	assert.Equal(t, center(1, 1), pts[0])
	assert.Equal(t, center(5, 1), pts[len(pts)-1])
	assert.Contains(t, pts, center(3, 6))
	// 4 across + 5 down + 5 up through the only gap
	assert.Equal(t, 15, len(pts))
	for i := 1; i < len(pts); i++ {
		assert.InDelta(t, 32, pts[i].Dist(pts[i-1]), 1e-9)
	}
}

func TestFindPath_Unreachable(t *testing.T) {
	g := pathfind.NewGrid(5, 5, 32)
	g.Rebuild([]geom.Cell{{X: 2, Y: 0}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 2, Y: 3}, {X: 2, Y: 4}})
	var r result
	g.FindPath(center(0, 0), center(4, 4), r.cb)
	g.Calculate()
	require.Equal(t, 1, r.calls)
	assert.False(t, r.ok)
	assert.Equal(t, uint64(1), g.Stats().NoPath)
}

func TestCalculate_SpreadsAcrossTicks(t *testing.T) {
	g := pathfind.NewGrid(40, 40, 32)
	g.IterationsPerTick = 10
	var r result
	g.FindPath(center(0, 0), center(39, 39), r.cb)

	g.Calculate()
	assert.Equal(t, 0, r.calls)
	assert.Equal(t, 1, g.Pending())
	for i := 0; i < 1000 && r.calls == 0; i++ {
		g.Calculate()
	}
	require.Equal(t, 1, r.calls)
	assert.True(t, r.ok)
	assert.Equal(t, 79, r.path.Len())
}

func TestCalculate_FIFOOrder(t *testing.T) {
	g := pathfind.NewGrid(10, 10, 32)
	var order []int
	g.FindPath(center(0, 0), center(9, 9), func(*pathfind.Path, bool) { order = append(order, 1) })
	g.FindPath(center(0, 0), center(1, 0), func(*pathfind.Path, bool) { order = append(order, 2) })
	g.Calculate()
	assert.Equal(t, []int{1, 2}, order)
}

func TestPath_NextConsumes(t *testing.T) {
	g := pathfind.NewGrid(5, 1, 32)
	var r result
	g.FindPath(center(0, 0), center(2, 0), r.cb)
	g.Calculate()
	require.True(t, r.ok)

	var got []geom.Vec2
	for p, ok := r.path.Next(); ok; p, ok = r.path.Next() {
		got = append(got, p)
	}
	assert.Equal(t, []geom.Vec2{center(0, 0), center(1, 0), center(2, 0)}, got)
	_, ok := r.path.Next()
	assert.False(t, ok)
	assert.Equal(t, 3, r.path.Len())
}

func TestProperty_OutOfBoundsNeverQueues(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		g := pathfind.NewGrid(10, 10, 32)
		x := rapid.Float64Range(-1000, 1000).Draw(rt, "x")
		y := rapid.Float64Range(-1000, 1000).Draw(rt, "y")
		var r result
		g.FindPath(center(5, 5), geom.V(x, y), r.cb)
		c := geom.CellOf(geom.V(x, y), 32)
		inside := c.X >= 0 && c.Y >= 0 && c.X < 10 && c.Y < 10
		if !inside {
			if r.calls != 1 || r.ok || g.Pending() != 0 {
				rt.Fatalf("out-of-bounds target %v queued a search", c)
			}
		}
		g.Calculate()
		if inside && (r.calls != 1 || !r.ok) {
			rt.Fatalf("open grid failed to route to %v", c)
		}
	})
}
