package explore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/mcp-training/arenanav/nav/grid"
	"github.com/wricardo/mcp-training/arenanav/nav/robot"
	"github.com/wricardo/mcp-training/arenanav/nav/sensor"
	"github.com/wricardo/mcp-training/arenanav/transport/comm"
)

type fixture struct {
	ref      *grid.Map
	explored *grid.Map
	bot      *robot.Robot
	model    sensor.Model
}

func newFixture(t *testing.T, dir robot.Direction, obstacles ...grid.Position) fixture {
	t.Helper()
	ref := grid.NewDefault()
	for _, o := range obstacles {
		require.NoError(t, ref.SetObstacle(o.Row, o.Col, true))
	}
	ref.MarkAllExplored()

	explored := grid.NewDefault()
	explored.ResetExploration()

	bot := robot.New(robot.Pose{Row: 1, Col: 1, Direction: dir}, nil, false)
	return fixture{
		ref:      ref,
		explored: explored,
		bot:      bot,
		model:    sensor.NewSimulated(ref, bot.Sensors()),
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	f := newFixture(t, robot.North)

	for _, cfg := range []Config{
		{CoverageLimit: 0},
		{CoverageLimit: 1.5},
		{CoverageLimit: 1, TimeLimit: -time.Second},
		{CoverageLimit: 1, MaxSteps: -1},
	} {
		_, err := New(f.explored, f.bot, f.model, cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig, "%+v", cfg)
	}

	_, err := New(f.explored, f.bot, f.model, DefaultConfig(), WithTurnPenalty(0))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRun_OpenArenaFullCoverageFromEveryHeading(t *testing.T) {
	for _, dir := range robot.Directions {
		t.Run(dir.String(), func(t *testing.T) {
			f := newFixture(t, dir)
			e, err := New(f.explored, f.bot, f.model, Config{CoverageLimit: 1.0})
			require.NoError(t, err)

			result, err := e.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, Done, e.State())
			assert.Equal(t, CoverageReached, result.Reason)
			assert.Equal(t, f.explored.Size(), f.explored.ExploredCount())
			assert.Equal(t, 1.0, result.Coverage)
			assert.Zero(t, f.explored.ObstacleCount())
		})
	}
}

func TestRun_ReturnHomeAfterCoverage(t *testing.T) {
	f := newFixture(t, robot.North)
	e, err := New(f.explored, f.bot, f.model, Config{CoverageLimit: 1.0, ReturnHome: true})
	require.NoError(t, err)

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Complete, result.Reason)
	assert.Equal(t, grid.Position{Row: 1, Col: 1}, result.Pose.Position())
}

func TestRun_PartialCoverageReturnsHome(t *testing.T) {
	f := newFixture(t, robot.North)
	e, err := New(f.explored, f.bot, f.model, Config{CoverageLimit: 0.5, ReturnHome: true})
	require.NoError(t, err)

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, CoverageReached, result.Reason)
	assert.GreaterOrEqual(t, result.Coverage, 0.5)
	assert.Equal(t, grid.Position{Row: 1, Col: 1}, result.Pose.Position())
}

func TestRun_CoverageLimit(t *testing.T) {
	f := newFixture(t, robot.North)
	e, err := New(f.explored, f.bot, f.model, Config{CoverageLimit: 0.3})
	require.NoError(t, err)

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, CoverageReached, result.Reason)
	assert.GreaterOrEqual(t, result.Coverage, 0.3)
	assert.Less(t, result.Coverage, 1.0)
}

func TestRun_TimeLimit(t *testing.T) {
	f := newFixture(t, robot.North)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tick := ActuatorFunc(func(ctx context.Context, a robot.Action) error {
		now = now.Add(time.Second)
		return nil
	})

	e, err := New(f.explored, f.bot, f.model, Config{CoverageLimit: 1, TimeLimit: 10 * time.Second},
		WithClock(clock), WithActuator(tick))
	require.NoError(t, err)

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TimeLimit, result.Reason)
	assert.Equal(t, 10, result.Steps)
	assert.Equal(t, 10*time.Second, result.Elapsed)
}

func TestRun_StepLimit(t *testing.T) {
	f := newFixture(t, robot.North)
	e, err := New(f.explored, f.bot, f.model, Config{CoverageLimit: 1, MaxSteps: 5})
	require.NoError(t, err)

	result, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepLimit, result.Reason)
	assert.Equal(t, 5, result.Steps)
}

func TestRun_ObstaclesDetectedAndAvoided(t *testing.T) {
	f := newFixture(t, robot.North,
		grid.Position{Row: 5, Col: 5},
		grid.Position{Row: 9, Col: 9},
		grid.Position{Row: 13, Col: 4},
		grid.Position{Row: 7, Col: 12},
	)

	var unsafe []robot.Pose
	observer := func(p Progress) {
		if !f.ref.IsSafeCentre(p.Pose.Row, p.Pose.Col, false) {
			unsafe = append(unsafe, p.Pose)
		}
	}

	e, err := New(f.explored, f.bot, f.model, Config{CoverageLimit: 1, ReturnHome: true}, WithObserver(observer))
	require.NoError(t, err)

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, unsafe, "robot entered an unsafe centre")
	assert.Contains(t, []StopReason{Complete, Exhausted}, result.Reason)
	assert.Equal(t, grid.Position{Row: 1, Col: 1}, result.Pose.Position())

	for r := 0; r < f.ref.Rows(); r++ {
		for c := 0; c < f.ref.Cols(); c++ {
			if f.explored.IsExplored(r, c) {
				assert.Equal(t, f.ref.IsObstacle(r, c), f.explored.IsObstacle(r, c), "cell (%d,%d)", r, c)
			}
		}
	}
	for _, o := range []grid.Position{{Row: 5, Col: 5}, {Row: 9, Col: 9}, {Row: 13, Col: 4}, {Row: 7, Col: 12}} {
		assert.True(t, f.explored.IsObstacle(o.Row, o.Col), "obstacle %s not discovered", o)
	}
}

func TestRun_EnclosedAreaIsExhausted(t *testing.T) {
	var wall []grid.Position
	for c := 0; c < grid.DefaultCols; c++ {
		wall = append(wall, grid.Position{Row: 10, Col: c})
	}
	f := newFixture(t, robot.North, wall...)

	e, err := New(f.explored, f.bot, f.model, Config{CoverageLimit: 1})
	require.NoError(t, err)

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Exhausted, result.Reason)
	assert.Equal(t, grid.Position{Row: 1, Col: 1}, result.Pose.Position())
	assert.False(t, f.explored.IsExplored(14, 7))
	for c := 0; c < grid.DefaultCols; c++ {
		assert.True(t, f.explored.IsExplored(9, c), "row below the wall, col %d", c)
	}
}

type flakySensor struct {
	inner sensor.Model
	calls int
	every int
}

func (f *flakySensor) Sense(ctx context.Context, pose robot.Pose) (sensor.Readings, error) {
	f.calls++
	if f.calls%f.every == 0 {
		return nil, comm.ErrTransportUnavailable
	}
	return f.inner.Sense(ctx, pose)
}

func TestRun_ToleratesSensorLoss(t *testing.T) {
	f := newFixture(t, robot.North)
	flaky := &flakySensor{inner: f.model, every: 4}

	e, err := New(f.explored, f.bot, flaky, Config{CoverageLimit: 1, TolerateSensorLoss: true})
	require.NoError(t, err)

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Done, e.State())
	assert.NotEqual(t, Failed, result.Reason)
	assert.Positive(t, result.SensorFailures)
}

func TestRun_SensorLossIsFatalOnHardware(t *testing.T) {
	f := newFixture(t, robot.North)
	flaky := &flakySensor{inner: f.model, every: 2}

	e, err := New(f.explored, f.bot, flaky, Config{CoverageLimit: 1})
	require.NoError(t, err)

	result, err := e.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, comm.ErrTransportUnavailable)
	assert.Equal(t, Failed, result.Reason)
	assert.Equal(t, Done, e.State())
	assert.Equal(t, 1, result.Steps)
}

func TestStep_RemoteSensorSkipsEmptyAndForeignLines(t *testing.T) {
	f := newFixture(t, robot.North)
	link := comm.NewMemory(8)
	link.Push("", "FP_START", "SDATA -1,-1,-1,-1,-1", "", "SDATA -1,-1,-1,-1,-1", "SDATA -1,-1,-1,-1,-1")

	e, err := New(f.explored, f.bot, sensor.NewRemote(link, len(f.bot.Sensors())), Config{CoverageLimit: 1})
	require.NoError(t, err)

	require.NoError(t, e.Step(context.Background()))
	assert.Equal(t, Running, e.State())
	assert.Equal(t, NotStopped, e.Progress().Reason)
}

func TestRun_ActuatorSeesEveryAction(t *testing.T) {
	f := newFixture(t, robot.North)

	var actions []robot.Action
	act := ActuatorFunc(func(ctx context.Context, a robot.Action) error {
		actions = append(actions, a)
		return nil
	})

	e, err := New(f.explored, f.bot, f.model, Config{CoverageLimit: 0.4}, WithActuator(act))
	require.NoError(t, err)

	result, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, actions, result.Steps)

	replayed := robot.Pose{Row: 1, Col: 1, Direction: robot.North}
	for _, a := range actions {
		replayed = replayed.Apply(a)
	}
	assert.Equal(t, result.Pose, replayed)
}

func TestRun_ActuatorFailureStopsRun(t *testing.T) {
	f := newFixture(t, robot.North)
	boom := errors.New("motor stalled")
	act := ActuatorFunc(func(ctx context.Context, a robot.Action) error { return boom })

	e, err := New(f.explored, f.bot, f.model, DefaultConfig(), WithActuator(act))
	require.NoError(t, err)

	_, err = e.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Failed, e.Result().Reason)
	assert.Equal(t, robot.Pose{Row: 1, Col: 1, Direction: robot.North}, f.bot.Pose())
}

func TestStep_AfterDone(t *testing.T) {
	f := newFixture(t, robot.North)
	e, err := New(f.explored, f.bot, f.model, Config{CoverageLimit: 1, MaxSteps: 1})
	require.NoError(t, err)

	require.NoError(t, e.Step(context.Background()))
	assert.Equal(t, Done, e.State())
	assert.ErrorIs(t, e.Step(context.Background()), ErrFinished)
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t, robot.North)
	e, err := New(f.explored, f.bot, f.model, Config{CoverageLimit: 1, StepDelay: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = e.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Running, e.State())
}

func TestObserver_ReceivesEveryStep(t *testing.T) {
	f := newFixture(t, robot.North)

	var seen []Progress
	e, err := New(f.explored, f.bot, f.model, Config{CoverageLimit: 0.25},
		WithObserver(func(p Progress) { seen = append(seen, p) }))
	require.NoError(t, err)

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, seen)
	assert.Len(t, seen, result.Steps)
	last := seen[len(seen)-1]
	assert.Equal(t, Done, last.State)
	assert.Equal(t, CoverageReached, last.Reason)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i].Explored, seen[i-1].Explored)
	}
}
