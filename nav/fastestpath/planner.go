package fastestpath

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/wricardo/mcp-training/arenanav/nav/grid"
	"github.com/wricardo/mcp-training/arenanav/nav/instruction"
	"github.com/wricardo/mcp-training/arenanav/nav/robot"
	"go.uber.org/zap"
)

// DefaultTurnPenalty is the cost of one quarter turn
const DefaultTurnPenalty = 2

var (
	ErrUnreachable        = errors.New("no route to destination")
	ErrInvalidTurnPenalty = errors.New("turn penalty must be positive")
)

// Options controls the cost model and passability rules
type Options struct {
	TurnPenalty     int
	Footprint       bool
	AllowUnexplored bool
	Logger          *zap.Logger
}

// DefaultOptions plans for the 3×3 robot over explored cells only
func DefaultOptions() Options {
	return Options{TurnPenalty: DefaultTurnPenalty, Footprint: true}
}

// Route is a planned path with its instruction string
type Route struct {
	Start        robot.Pose      `json:"start"`
	End          robot.Pose      `json:"end"`
	Cells        []grid.Position `json:"cells"`
	Cost         int             `json:"cost"`
	Turns        int             `json:"turns"`
	Instructions string          `json:"instructions"`
}

// Moves returns the number of forward moves along the route
func (r Route) Moves() int {
	if len(r.Cells) == 0 {
		return 0
	}
	return len(r.Cells) - 1
}

// Planner searches routes on a map it reads but never modifies
type Planner struct {
	grid   *grid.Map
	opts   Options
	logger *zap.Logger
}

// New creates a planner over m
func New(m *grid.Map, opts Options) (*Planner, error) {
	if opts.TurnPenalty <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTurnPenalty, opts.TurnPenalty)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{grid: m, opts: opts, logger: logger}, nil
}

// Passable reports whether the robot may be centred on (row, col)
func (p *Planner) Passable(row, col int) bool {
	if p.opts.Footprint {
		return p.grid.IsSafeCentre(row, col, !p.opts.AllowUnexplored)
	}
	if p.grid.IsBlocked(row, col) {
		return false
	}
	return p.opts.AllowUnexplored || p.grid.IsExplored(row, col)
}

// Plan returns a minimum-cost route from start to goal
func (p *Planner) Plan(start robot.Pose, goal grid.Position) (Route, error) {
	if !p.grid.InBounds(start.Row, start.Col) {
		return Route{}, fmt.Errorf("plan start: %w", grid.ErrOutOfBounds)
	}
	if !start.Direction.Valid() {
		return Route{}, fmt.Errorf("plan start: invalid heading %d", int(start.Direction))
	}
	if !p.grid.InBounds(goal.Row, goal.Col) {
		return Route{}, fmt.Errorf("plan goal %s: %w", goal, grid.ErrOutOfBounds)
	}
	if !p.Passable(goal.Row, goal.Col) {
		return Route{}, fmt.Errorf("goal %s not passable: %w", goal, ErrUnreachable)
	}

	path, cost, ok := p.search(start, goal)
	if !ok {
		p.logger.Debug("no route", zap.Stringer("start", start), zap.Stringer("goal", goal))
		return Route{}, fmt.Errorf("%s -> %s: %w", start, goal, ErrUnreachable)
	}

	route := Route{Start: start, End: path[len(path)-1], Cost: cost}
	route.Cells = append(route.Cells, start.Position())
	for i := 1; i < len(path); i++ {
		prev, cur := path[i-1], path[i]
		if cur.Direction != prev.Direction {
			if i == 1 || path[i-2].Direction == prev.Direction {
				route.Turns++
			}
			continue
		}
		route.Cells = append(route.Cells, cur.Position())
	}

	var err error
	route.Instructions, err = instruction.Encode(start.Direction, route.Cells)
	if err != nil {
		return Route{}, err
	}

	p.logger.Debug("planned route",
		zap.Stringer("start", start),
		zap.Stringer("goal", goal),
		zap.Int("cost", route.Cost),
		zap.String("instructions", route.Instructions))
	return route, nil
}

// PlanVia plans start → waypoint → goal as two legs and joins them
func (p *Planner) PlanVia(start robot.Pose, waypoint, goal grid.Position) (Route, error) {
	first, err := p.Plan(start, waypoint)
	if err != nil {
		return Route{}, fmt.Errorf("to waypoint: %w", err)
	}
	second, err := p.Plan(first.End, goal)
	if err != nil {
		return Route{}, fmt.Errorf("from waypoint: %w", err)
	}

	merged, err := instruction.Merge(first.Instructions, second.Instructions)
	if err != nil {
		return Route{}, err
	}

	cells := make([]grid.Position, 0, len(first.Cells)+len(second.Cells))
	cells = append(cells, first.Cells...)
	cells = append(cells, second.Cells[1:]...)

	return Route{
		Start:        start,
		End:          second.End,
		Cells:        cells,
		Cost:         first.Cost + second.Cost,
		Turns:        first.Turns + second.Turns,
		Instructions: merged,
	}, nil
}

// Reachable returns every passable centre connected to from
func (p *Planner) Reachable(from grid.Position) []grid.Position {
	if !p.grid.InBounds(from.Row, from.Col) || !p.Passable(from.Row, from.Col) {
		return nil
	}

	seen := map[grid.Position]bool{from: true}
	queue := []grid.Position{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range robot.Directions {
			dr, dc := d.Delta()
			next := grid.Position{Row: cur.Row + dr, Col: cur.Col + dc}
			if seen[next] || !p.grid.InBounds(next.Row, next.Col) || !p.Passable(next.Row, next.Col) {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}

	out := make([]grid.Position, 0, len(seen))
	for r := 0; r < p.grid.Rows(); r++ {
		for c := 0; c < p.grid.Cols(); c++ {
			if seen[grid.Position{Row: r, Col: c}] {
				out = append(out, grid.Position{Row: r, Col: c})
			}
		}
	}
	return out
}

// search runs A* over poses and returns the pose sequence to goal. The
// Manhattan distance never overestimates since every forward move costs 1.
func (p *Planner) search(start robot.Pose, goal grid.Position) ([]robot.Pose, int, bool) {
	cols := p.grid.Cols()
	n := p.grid.Size() * 4
	index := func(ps robot.Pose) int {
		return (ps.Row*cols+ps.Col)*4 + int(ps.Direction)
	}

	dist := make([]int, n)
	prev := make([]int, n)
	done := make([]bool, n)
	poses := make([]robot.Pose, n)
	for i := range dist {
		dist[i] = -1
		prev[i] = -1
	}

	src := index(start)
	dist[src] = 0
	poses[src] = start

	pq := poseQueue{}
	heap.Init(&pq)
	heap.Push(&pq, &queueItem{pose: start, cost: 0, priority: grid.ManhattanDistance(start.Position(), goal)})

	for pq.Len() > 0 {
		item := heap.Pop(&pq).(*queueItem)
		u := index(item.pose)
		if done[u] {
			continue
		}
		done[u] = true

		if item.pose.Position() == goal {
			var path []robot.Pose
			for v := u; v != -1; v = prev[v] {
				path = append(path, poses[v])
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path, dist[u], true
		}

		for _, e := range p.edges(item.pose) {
			v := index(e.pose)
			if done[v] {
				continue
			}
			nd := dist[u] + e.cost
			if dist[v] == -1 || nd < dist[v] {
				dist[v] = nd
				prev[v] = u
				poses[v] = e.pose
				heap.Push(&pq, &queueItem{pose: e.pose, cost: nd, priority: nd + grid.ManhattanDistance(e.pose.Position(), goal)})
			}
		}
	}
	return nil, 0, false
}

type edge struct {
	pose robot.Pose
	cost int
}

func (p *Planner) edges(from robot.Pose) []edge {
	out := []edge{
		{pose: from.Turn(1), cost: p.opts.TurnPenalty},
		{pose: from.Turn(-1), cost: p.opts.TurnPenalty},
	}
	next := from.Forward(1)
	if p.grid.InBounds(next.Row, next.Col) && p.Passable(next.Row, next.Col) {
		out = append(out, edge{pose: next, cost: 1})
	}
	return out
}

type queueItem struct {
	pose     robot.Pose
	cost     int
	priority int
}

// poseQueue is a min-heap of queueItem ordered by priority, preferring the
// deeper item on ties
type poseQueue []*queueItem

func (pq poseQueue) Len() int { return len(pq) }
func (pq poseQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].cost > pq[j].cost
}
func (pq poseQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *poseQueue) Push(x interface{}) { *pq = append(*pq, x.(*queueItem)) }
func (pq *poseQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
