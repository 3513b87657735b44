// Package pathfind provides a tile-grid A* pathfinder whose searches are
// spread across simulation ticks under a fixed node-expansion budget.
package pathfind

import (
	"container/heap"

	"github.com/cory-johannsen/gtil/internal/game/geom"
)

// DefaultIterationsPerTick is the node-expansion budget spent by Calculate.
const DefaultIterationsPerTick = 1000

// Callback receives the outcome of one FindPath request. ok is false when
// no path exists; p is nil in that case.
type Callback func(p *Path, ok bool)

// Stats counts requests and outcomes since the grid was built.
type Stats struct {
	Queries   uint64
	Delivered uint64
	NoPath    uint64
	Expanded  uint64
}

// Grid is a walkability grid plus a FIFO of in-flight searches.
//
// Invariant: the grid never retains or mutates a Path after delivering it.
type Grid struct {
	// IterationsPerTick bounds node expansions per Calculate call.
	IterationsPerTick int

	width, height int
	cellSize      float64
	blocked       []bool
	queue         []*search
	seq           uint64
	stats         Stats
}

// NewGrid returns an all-walkable grid.
//
// Precondition: width > 0, height > 0, cellSize > 0.
func NewGrid(width, height int, cellSize float64) *Grid {
	if width <= 0 || height <= 0 {
		panic("pathfind.NewGrid: width and height must be > 0")
	}
	if cellSize <= 0 {
		panic("pathfind.NewGrid: cellSize must be > 0")
	}
	return &Grid{
		IterationsPerTick: DefaultIterationsPerTick,
		width:             width,
		height:            height,
		cellSize:          cellSize,
		blocked:           make([]bool, width*height),
	}
}

// Rebuild replaces the walkability data: every cell in walls becomes
// unwalkable and every other cell walkable. Out-of-bounds walls are ignored.
func (g *Grid) Rebuild(walls []geom.Cell) {
	for i := range g.blocked {
		g.blocked[i] = false
	}
	for _, c := range walls {
		if g.inBounds(c) {
			g.blocked[g.index(c)] = true
		}
	}
}

func (g *Grid) inBounds(c geom.Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.width && c.Y < g.height
}

func (g *Grid) index(c geom.Cell) int { return c.Y*g.width + c.X }

func (g *Grid) cell(i int) geom.Cell { return geom.Cell{X: i % g.width, Y: i / g.width} }

// Walkable reports whether c is in bounds and not a wall.
func (g *Grid) Walkable(c geom.Cell) bool {
	return g.inBounds(c) && !g.blocked[g.index(c)]
}

// Pending returns the number of queued searches.
func (g *Grid) Pending() int { return len(g.queue) }

// Stats returns the request counters.
func (g *Grid) Stats() Stats { return g.stats }

// FindPath requests a path between two world positions.
//
// Precondition: cb must not be nil.
// Postcondition: An out-of-bounds start or end calls cb(nil, false) before
// returning and queues nothing. A blocked end does the same. Start and end in
// the same cell call cb with a single-waypoint path before returning.
// Otherwise a search is queued and cb runs from a later Calculate.
func (g *Grid) FindPath(start, end geom.Vec2, cb Callback) {
	if cb == nil {
		panic("pathfind.Grid.FindPath: callback must not be nil")
	}
	g.stats.Queries++
	sc, ec := geom.CellOf(start, g.cellSize), geom.CellOf(end, g.cellSize)
	if !g.inBounds(sc) || !g.inBounds(ec) || !g.Walkable(ec) {
		g.deliver(cb, nil)
		return
	}
	if sc == ec {
		g.deliver(cb, []geom.Cell{ec})
		return
	}
	g.queue = append(g.queue, newSearch(g, sc, ec, cb))
}

// Calculate advances queued searches in FIFO order, spending at most
// IterationsPerTick node expansions, and delivers every search that finishes.
func (g *Grid) Calculate() {
	budget := g.IterationsPerTick
	if budget <= 0 {
		budget = DefaultIterationsPerTick
	}
	for budget > 0 && len(g.queue) > 0 {
		s := g.queue[0]
		used, done := s.step(g, budget)
		budget -= used
		g.stats.Expanded += uint64(used)
		if !done {
			return
		}
		g.queue[0] = nil
		g.queue = g.queue[1:]
		g.deliver(s.cb, s.result)
	}
}

func (g *Grid) deliver(cb Callback, cells []geom.Cell) {
	g.stats.Delivered++
	if cells == nil {
		g.stats.NoPath++
		cb(nil, false)
		return
	}
	points := make([]geom.Vec2, len(cells))
	for i, c := range cells {
		points[i] = c.Center(g.cellSize)
	}
	cb(&Path{points: points}, true)
}

type node struct {
	idx int
	f   int
	seq uint64
}

type openSet []node

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].seq < o[j].seq
}
func (o openSet) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o *openSet) Push(x any)   { *o = append(*o, x.(node)) }
func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	*o = old[:n-1]
	return item
}

type search struct {
	start, goal int
	goalCell    geom.Cell
	open        openSet
	cost        map[int]int
	parent      map[int]int
	closed      map[int]bool
	cb          Callback
	result      []geom.Cell
}

func newSearch(g *Grid, start, goal geom.Cell, cb Callback) *search {
	s := &search{
		start:    g.index(start),
		goal:     g.index(goal),
		goalCell: goal,
		cost:     map[int]int{},
		parent:   map[int]int{},
		closed:   map[int]bool{},
		cb:       cb,
	}
	s.cost[s.start] = 0
	g.seq++
	heap.Push(&s.open, node{idx: s.start, f: start.Manhattan(goal), seq: g.seq})
	return s
}

var neighbourOffsets = [4]geom.Cell{{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}}

// step expands up to budget nodes. done is true once the goal is reached or
// the open set is exhausted; result is nil in the latter case.
func (s *search) step(g *Grid, budget int) (used int, done bool) {
	for used < budget {
		if s.open.Len() == 0 {
			return used, true
		}
		cur := heap.Pop(&s.open).(node)
		used++
		if s.closed[cur.idx] {
			continue
		}
		s.closed[cur.idx] = true
		if cur.idx == s.goal {
			s.result = s.reconstruct(g)
			return used, true
		}
		c := g.cell(cur.idx)
		for _, off := range neighbourOffsets {
			n := geom.Cell{X: c.X + off.X, Y: c.Y + off.Y}
			if !g.Walkable(n) {
				continue
			}
			ni := g.index(n)
			if s.closed[ni] {
				continue
			}
			cost := s.cost[cur.idx] + 1
			if old, seen := s.cost[ni]; seen && cost >= old {
				continue
			}
			s.cost[ni] = cost
			s.parent[ni] = cur.idx
			g.seq++
			heap.Push(&s.open, node{idx: ni, f: cost + n.Manhattan(s.goalCell), seq: g.seq})
		}
	}
	return used, false
}

func (s *search) reconstruct(g *Grid) []geom.Cell {
	var rev []geom.Cell
	for i := s.goal; ; {
		rev = append(rev, g.cell(i))
		if i == s.start {
			break
		}
		i = s.parent[i]
	}
	out := make([]geom.Cell, len(rev))
	for i, c := range rev {
		out[len(rev)-1-i] = c
	}
	return out
}
