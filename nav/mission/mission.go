package mission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wricardo/mcp-training/arenanav/nav/descriptor"
	"github.com/wricardo/mcp-training/arenanav/nav/explore"
	"github.com/wricardo/mcp-training/arenanav/nav/fastestpath"
	"github.com/wricardo/mcp-training/arenanav/nav/grid"
	"github.com/wricardo/mcp-training/arenanav/nav/instruction"
	"github.com/wricardo/mcp-training/arenanav/nav/robot"
	"github.com/wricardo/mcp-training/arenanav/nav/sensor"
	"github.com/wricardo/mcp-training/arenanav/transport/comm"
	"go.uber.org/zap"
)

var ErrInvalidWaypoint = errors.New("invalid waypoint")

// Config controls a hardware run
type Config struct {
	Explore         explore.Config
	TurnPenalty     int
	WaitForCommands bool
}

// Report describes a completed mission
type Report struct {
	Waypoint     grid.Position         `json:"waypoint"`
	Exploration  explore.Result        `json:"exploration"`
	Descriptor   descriptor.Descriptor `json:"descriptor"`
	Route        fastestpath.Route     `json:"route"`
	Instructions string                `json:"instructions"`
}

// Option configures a Mission
type Option func(*Mission)

// WithLogger sets the mission logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Mission) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Mission drives one robot over one transport
type Mission struct {
	transport comm.Transport
	grid      *grid.Map
	bot       *robot.Robot
	cfg       Config
	logger    *zap.Logger
}

// New creates a mission that explores m with bot
func New(transport comm.Transport, m *grid.Map, bot *robot.Robot, cfg Config, opts ...Option) *Mission {
	if cfg.TurnPenalty <= 0 {
		cfg.TurnPenalty = fastestpath.DefaultTurnPenalty
	}
	mi := &Mission{transport: transport, grid: m, bot: bot, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(mi)
	}
	return mi
}

// Run executes the whole sequence
func (m *Mission) Run(ctx context.Context) (Report, error) {
	var report Report

	line, err := m.receive(ctx)
	if err != nil {
		return report, fmt.Errorf("waypoint: %w", err)
	}
	waypoint, err := ParseWaypoint(line, m.grid)
	if err != nil {
		return report, err
	}
	report.Waypoint = waypoint
	m.logger.Info("waypoint received", zap.Stringer("waypoint", waypoint))

	if m.cfg.WaitForCommands {
		if err := m.waitFor(ctx, comm.ExStart); err != nil {
			return report, err
		}
	}

	m.grid.ResetExploration()
	if err := m.transport.SendBare(ctx, comm.BotStart); err != nil {
		return report, err
	}

	cfg := m.cfg.Explore
	cfg.ReturnHome = true
	cfg.TolerateSensorLoss = false

	engine, err := explore.New(m.grid, m.bot,
		sensor.NewRemote(m.transport, len(m.bot.Sensors()), sensor.WithLogger(m.logger)),
		cfg,
		explore.WithLogger(m.logger),
		explore.WithTurnPenalty(m.cfg.TurnPenalty),
		explore.WithActuator(explore.ActuatorFunc(m.execute)),
		explore.WithObserver(func(p explore.Progress) { m.sendPosition(ctx, p.Pose) }),
	)
	if err != nil {
		return report, err
	}

	report.Exploration, err = engine.Run(ctx)
	if err != nil {
		return report, fmt.Errorf("exploration: %w", err)
	}

	report.Descriptor = descriptor.Encode(m.grid)
	if err := m.transport.Send(ctx, comm.MapStrings, report.Descriptor.String()); err != nil {
		return report, err
	}
	if err := m.transport.Send(ctx, comm.BotPos, FormatPose(m.bot.Pose())); err != nil {
		return report, err
	}

	if m.cfg.WaitForCommands {
		if err := m.waitFor(ctx, comm.FpStart); err != nil {
			return report, err
		}
	}

	popts := fastestpath.DefaultOptions()
	popts.TurnPenalty = m.cfg.TurnPenalty
	popts.Logger = m.logger
	planner, err := fastestpath.New(m.grid, popts)
	if err != nil {
		return report, err
	}

	report.Route, err = planner.PlanVia(m.bot.Pose(), waypoint, m.grid.Goal())
	if err != nil {
		return report, fmt.Errorf("fastest path: %w", err)
	}

	report.Instructions = instruction.WithStartMarker(report.Route.Instructions)
	if err := m.transport.Send(ctx, comm.Instructions, report.Instructions); err != nil {
		return report, err
	}

	m.logger.Info("mission complete",
		zap.String("reason", string(report.Exploration.Reason)),
		zap.Float64("coverage", report.Exploration.Coverage),
		zap.String("instructions", report.Instructions))
	return report, nil
}

// execute sends one action to the motor controller
func (m *Mission) execute(ctx context.Context, a robot.Action) error {
	return m.transport.Send(ctx, comm.Instructions, instruction.ActionToken(a))
}

// sendPosition reports the pose to the tablet; failures are left to the
// next command to surface
func (m *Mission) sendPosition(ctx context.Context, pose robot.Pose) {
	if err := m.transport.Send(ctx, comm.BotPos, FormatPose(pose)); err != nil {
		m.logger.Warn("position update failed", zap.Error(err))
	}
}

// receive returns the next non-empty line
func (m *Mission) receive(ctx context.Context) (string, error) {
	for {
		line, err := m.transport.ReceiveLine(ctx)
		if errors.Is(err, comm.ErrNoMessage) {
			continue
		}
		return line, err
	}
}

// waitFor discards lines until the bare command tag arrives
func (m *Mission) waitFor(ctx context.Context, kind comm.Kind) error {
	m.logger.Info("waiting for command", zap.String("kind", string(kind)))
	for {
		line, err := m.receive(ctx)
		if err != nil {
			return fmt.Errorf("wait for %s: %w", kind, err)
		}
		if strings.TrimSpace(line) == string(kind) {
			return nil
		}
		m.logger.Debug("ignoring line", zap.String("line", line), zap.String("waiting_for", string(kind)))
	}
}

// ParseWaypoint reads a "row col" (or "row,col") line and checks it lies
// on m
func ParseWaypoint(line string, m *grid.Map) (grid.Position, error) {
	fields := strings.FieldsFunc(strings.TrimSpace(line), func(r rune) bool { return r == ' ' || r == ',' })
	if len(fields) != 2 {
		return grid.Position{}, fmt.Errorf("%w: %q", ErrInvalidWaypoint, line)
	}

	row, err := strconv.Atoi(fields[0])
	if err != nil {
		return grid.Position{}, fmt.Errorf("%w: row %q", ErrInvalidWaypoint, fields[0])
	}
	col, err := strconv.Atoi(fields[1])
	if err != nil {
		return grid.Position{}, fmt.Errorf("%w: col %q", ErrInvalidWaypoint, fields[1])
	}
	if !m.InBounds(row, col) {
		return grid.Position{}, fmt.Errorf("%w: %w", ErrInvalidWaypoint, grid.ErrOutOfBounds)
	}
	return grid.Position{Row: row, Col: col}, nil
}

// FormatPose renders a pose as "row,col,D" for the tablet
func FormatPose(p robot.Pose) string {
	return fmt.Sprintf("%d,%d,%s", p.Row, p.Col, p.Direction.Letter())
}
