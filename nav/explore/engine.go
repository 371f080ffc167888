package explore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/arenanav/nav/fastestpath"
	"github.com/wricardo/mcp-training/arenanav/nav/grid"
	"github.com/wricardo/mcp-training/arenanav/nav/instruction"
	"github.com/wricardo/mcp-training/arenanav/nav/robot"
	"github.com/wricardo/mcp-training/arenanav/nav/sensor"
	"go.uber.org/zap"
)

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithActuator sends every action to a physical robot before it is applied
func WithActuator(a Actuator) Option {
	return func(e *Engine) {
		e.actuator = a
	}
}

// WithObserver registers a callback that receives progress after each step
func WithObserver(fn func(Progress)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// WithClock replaces the wall clock used for the time limit
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithTurnPenalty sets the turn cost used when planning routes
func WithTurnPenalty(penalty int) Option {
	return func(e *Engine) {
		e.turnPenalty = penalty
	}
}

// Engine drives a robot around the arena and records what it discovers in
// the explored map. An Engine runs once; a new run needs a new Engine over
// a reset map.
type Engine struct {
	grid        *grid.Map
	bot         *robot.Robot
	sensor      sensor.Model
	cfg         Config
	planner     *fastestpath.Planner
	logger      *zap.Logger
	actuator    Actuator
	observer    func(Progress)
	now         func() time.Time
	turnPenalty int

	home       grid.Position
	started    bool
	startedAt  time.Time
	steps      int
	failures   int
	phase      Phase
	lastAction robot.Action
	inspected  map[robot.Pose]bool
	target     *robot.Pose
	lapStarted bool
	lapDone    bool
	wallPoses  map[robot.Pose]bool
	homeBound  bool

	mu       sync.RWMutex
	progress Progress
}

// New creates an engine that explores m with bot, reading its surroundings
// from model. The robot's current position is the home cell of the run.
func New(m *grid.Map, bot *robot.Robot, model sensor.Model, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = 20 * m.Size()
	}

	e := &Engine{
		grid:        m,
		bot:         bot,
		sensor:      model,
		cfg:         cfg,
		logger:      zap.NewNop(),
		now:         time.Now,
		turnPenalty: fastestpath.DefaultTurnPenalty,
		home:        bot.Pose().Position(),
		phase:       PhaseStart,
		inspected:   make(map[robot.Pose]bool),
		wallPoses:   make(map[robot.Pose]bool),
	}
	for _, opt := range opts {
		opt(e)
	}

	if !m.InBounds(e.home.Row, e.home.Col) {
		return nil, fmt.Errorf("robot start %s: %w", e.home, grid.ErrOutOfBounds)
	}

	popts := fastestpath.DefaultOptions()
	popts.TurnPenalty = e.turnPenalty
	popts.Logger = e.logger
	planner, err := fastestpath.New(m, popts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	e.planner = planner

	e.progress = Progress{Pose: bot.Pose(), Phase: PhaseStart, State: Running}
	return e, nil
}

// Config returns the effective configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// State reports whether the run is still going
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.progress.State
}

// Progress returns the latest published progress
func (e *Engine) Progress() Progress {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.progress
}

// Result summarises the run so far
func (e *Engine) Result() Result {
	p := e.Progress()
	return Result{
		Reason:         p.Reason,
		Steps:          p.Step,
		Explored:       p.Explored,
		Coverage:       p.Coverage,
		Elapsed:        p.Elapsed,
		Pose:           p.Pose,
		SensorFailures: p.SensorFailures,
	}
}

// Run steps until the run is done or ctx ends
func (e *Engine) Run(ctx context.Context) (Result, error) {
	for {
		err := e.Step(ctx)
		if errors.Is(err, ErrFinished) {
			return e.Result(), nil
		}
		if err != nil {
			return e.Result(), err
		}
		if e.State() == Done {
			return e.Result(), nil
		}

		if e.cfg.StepDelay > 0 {
			timer := time.NewTimer(e.cfg.StepDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return e.Result(), ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// Step performs one action: sense-and-decide on the first call, then one
// move or turn per call, re-sensing after each action
func (e *Engine) Step(ctx context.Context) error {
	if e.State() == Done {
		return ErrFinished
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if !e.started {
		e.started = true
		e.startedAt = e.now()
		pose := e.bot.Pose()
		e.logger.Info("exploration started",
			zap.Stringer("pose", pose),
			zap.Float64("coverage_limit", e.cfg.CoverageLimit),
			zap.Duration("time_limit", e.cfg.TimeLimit))

		e.markFootprint(pose)
		if err := e.sense(ctx, pose); err != nil {
			return e.fail(err)
		}
		if reason, done := e.checkStop(); done {
			e.finish(reason, nil)
			return nil
		}
	}

	action, ok := e.nextAction()
	if !ok {
		reason := Exhausted
		if e.grid.ExploredCount() == e.grid.Size() && e.bot.Pose().Position() == e.home {
			reason = Complete
		}
		e.finish(reason, nil)
		return nil
	}

	if err := e.execute(ctx, action); err != nil {
		return e.fail(err)
	}

	if reason, done := e.checkStop(); done {
		e.finish(reason, &action)
		return nil
	}
	e.publish(Running, NotStopped, &action)
	return nil
}

// nextAction picks the next action by strategy priority
func (e *Engine) nextAction() (robot.Action, bool) {
	pose := e.bot.Pose()

	if !e.homeBound {
		if a, ok := e.frontierAction(pose); ok {
			e.phase = PhaseFrontier
			return a, true
		}
		if !e.lapDone {
			if a, ok := e.wallFollowAction(pose); ok {
				e.phase = PhaseWallFollow
				return a, true
			}
		}
		if a, ok := e.seekAction(pose); ok {
			e.phase = PhaseSeek
			return a, true
		}
	}

	e.phase = PhaseReturnHome
	return e.routeAction(pose, e.home)
}

// frontierAction moves forward or turns in place when that exposes
// unexplored cells to the sensors
func (e *Engine) frontierAction(pose robot.Pose) (robot.Action, bool) {
	next := pose.Forward(1)
	if e.feasible(next.Position()) && e.promising(next) {
		return robot.Forward, true
	}
	for _, q := range []int{1, 3, 2} {
		if e.promising(pose.Turn(q)) {
			a, _ := robot.TurnAction(q)
			return a, true
		}
	}
	return robot.Forward, false
}

// wallFollowAction keeps the wall on the robot's right until the first lap
// brings it back to the home cell
func (e *Engine) wallFollowAction(pose robot.Pose) (robot.Action, bool) {
	pos := pose.Position()
	if pos != e.home {
		e.lapStarted = true
	} else if e.lapStarted {
		e.finishLap("returned home")
		return robot.Forward, false
	}
	if e.wallPoses[pose] {
		e.finishLap("pose repeated")
		return robot.Forward, false
	}
	e.wallPoses[pose] = true

	forward := e.feasible(pose.Forward(1).Position())
	switch {
	case e.lastAction == robot.TurnRight && forward:
		return robot.Forward, true
	case e.feasible(pose.Turn(1).Forward(1).Position()):
		return robot.TurnRight, true
	case forward:
		return robot.Forward, true
	case e.feasible(pose.Turn(-1).Forward(1).Position()):
		return robot.TurnLeft, true
	default:
		return robot.TurnAround, true
	}
}

func (e *Engine) finishLap(why string) {
	e.lapDone = true
	e.logger.Debug("wall following finished", zap.String("why", why), zap.Int("step", e.steps))
}

// seekAction heads for the nearest reachable pose whose sensors would see
// unexplored cells
func (e *Engine) seekAction(pose robot.Pose) (robot.Action, bool) {
	for {
		if e.target != nil && !e.promising(*e.target) {
			e.target = nil
		}
		if e.target == nil {
			t, ok := e.nearestView(pose.Position())
			if !ok {
				return robot.Forward, false
			}
			e.target = &t
			e.logger.Debug("new exploration target", zap.Stringer("target", t))
		}

		target := *e.target
		if pose.Position() == target.Position() {
			if a, ok := robot.TurnAction(pose.Direction.QuarterTurnsTo(target.Direction)); ok {
				return a, true
			}
			// Facing the target view already; it was sensed on arrival
			e.inspected[target] = true
			continue
		}

		if a, ok := e.routeAction(pose, target.Position()); ok {
			return a, true
		}
		e.inspected[target] = true
	}
}

// routeAction returns the first action of the fastest route to dst
func (e *Engine) routeAction(pose robot.Pose, dst grid.Position) (robot.Action, bool) {
	if pose.Position() == dst {
		return robot.Forward, false
	}

	route, err := e.planner.Plan(pose, dst)
	if err != nil {
		e.logger.Debug("no route", zap.Stringer("from", pose), zap.Stringer("to", dst), zap.Error(err))
		return robot.Forward, false
	}

	actions, err := instruction.Actions(route.Instructions)
	if err != nil || len(actions) == 0 {
		return robot.Forward, false
	}
	return actions[0], true
}

// nearestView searches reachable centres breadth-first for a promising view
func (e *Engine) nearestView(from grid.Position) (robot.Pose, bool) {
	seen := map[grid.Position]bool{from: true}
	queue := []grid.Position{from}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, d := range robot.Directions {
			view := robot.Pose{Row: cur.Row, Col: cur.Col, Direction: d}
			if e.promising(view) {
				return view, true
			}
		}

		for _, d := range robot.Directions {
			dr, dc := d.Delta()
			next := grid.Position{Row: cur.Row + dr, Col: cur.Col + dc}
			if seen[next] || !e.feasible(next) {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}
	return robot.Pose{}, false
}

// feasible reports whether the robot may stand on pos using only what has
// been explored
func (e *Engine) feasible(pos grid.Position) bool {
	return e.grid.IsSafeCentre(pos.Row, pos.Col, true)
}

// promising reports whether sensing from pose has not been done yet and
// would reach an unexplored cell
func (e *Engine) promising(pose robot.Pose) bool {
	if e.inspected[pose] {
		return false
	}
	for _, s := range e.bot.Sensors() {
		for _, cell := range s.Ray(pose) {
			if !e.grid.InBounds(cell.Row, cell.Col) {
				break
			}
			if !e.grid.IsExplored(cell.Row, cell.Col) {
				return true
			}
			if e.grid.IsObstacle(cell.Row, cell.Col) {
				break
			}
		}
	}
	return false
}

func (e *Engine) execute(ctx context.Context, a robot.Action) error {
	if e.actuator != nil {
		if err := e.actuator.Execute(ctx, a); err != nil {
			return fmt.Errorf("execute %s: %w", a, err)
		}
	}

	pose := e.bot.Apply(a)
	e.steps++
	e.lastAction = a
	if a == robot.Forward {
		e.markFootprint(pose)
	}
	return e.sense(ctx, pose)
}

func (e *Engine) markFootprint(pose robot.Pose) {
	for _, cell := range pose.Footprint() {
		if e.grid.InBounds(cell.Row, cell.Col) {
			_ = e.grid.SetExplored(cell.Row, cell.Col, true)
		}
	}
}

func (e *Engine) sense(ctx context.Context, pose robot.Pose) error {
	readings, err := e.sensor.Sense(ctx, pose)
	e.inspected[pose] = true
	if err != nil {
		if e.cfg.TolerateSensorLoss && ctx.Err() == nil {
			e.failures++
			e.logger.Warn("sensor reading lost", zap.Stringer("pose", pose), zap.Error(err))
			return nil
		}
		return fmt.Errorf("sense at %s: %w", pose, err)
	}

	if _, err := sensor.Apply(e.grid, pose, e.bot.Sensors(), readings); err != nil {
		if e.cfg.TolerateSensorLoss {
			e.failures++
			e.logger.Warn("sensor reading discarded", zap.Stringer("pose", pose), zap.Error(err))
			return nil
		}
		return fmt.Errorf("apply readings at %s: %w", pose, err)
	}
	return nil
}

// checkStop evaluates the stopping conditions after an action
func (e *Engine) checkStop() (StopReason, bool) {
	elapsed := e.now().Sub(e.startedAt)
	explored := e.grid.ExploredCount()
	coverage := float64(explored) / float64(e.grid.Size())
	atHome := e.bot.Pose().Position() == e.home
	covered := coverage >= e.cfg.CoverageLimit

	switch {
	case explored == e.grid.Size() && atHome:
		return Complete, true
	case covered && (!e.cfg.ReturnHome || atHome):
		return CoverageReached, true
	case e.cfg.TimeLimit > 0 && elapsed >= e.cfg.TimeLimit:
		return TimeLimit, true
	case e.steps >= e.cfg.MaxSteps:
		return StepLimit, true
	case covered && !e.homeBound:
		e.homeBound = true
		e.logger.Info("coverage reached, returning home", zap.Float64("coverage", coverage))
	}
	return NotStopped, false
}

func (e *Engine) fail(err error) error {
	e.logger.Error("exploration failed", zap.Int("step", e.steps), zap.Error(err))
	e.finish(Failed, nil)
	return err
}

func (e *Engine) finish(reason StopReason, action *robot.Action) {
	p := e.publish(Done, reason, action)
	e.logger.Info("exploration finished",
		zap.String("reason", string(reason)),
		zap.Int("steps", p.Step),
		zap.Float64("coverage", p.Coverage),
		zap.Duration("elapsed", p.Elapsed))
}

func (e *Engine) publish(state State, reason StopReason, action *robot.Action) Progress {
	explored := e.grid.ExploredCount()
	p := Progress{
		Step:           e.steps,
		Pose:           e.bot.Pose(),
		Phase:          e.phase,
		Explored:       explored,
		Coverage:       float64(explored) / float64(e.grid.Size()),
		State:          state,
		Reason:         reason,
		SensorFailures: e.failures,
	}
	if e.started {
		p.Elapsed = e.now().Sub(e.startedAt)
	}
	if action != nil {
		p.Action = action.String()
	}

	e.mu.Lock()
	e.progress = p
	e.mu.Unlock()

	if e.observer != nil {
		e.observer(p)
	}
	return p
}
