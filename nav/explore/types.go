package explore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/mcp-training/arenanav/nav/robot"
)

// State of an exploration run
type State int

const (
	Running State = iota
	Done
)

func (s State) String() string {
	if s == Done {
		return "done"
	}
	return "running"
}

// MarshalText encodes the state as its name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "running":
		*s = Running
	case "done":
		*s = Done
	default:
		return fmt.Errorf("unknown exploration state %q", text)
	}
	return nil
}

// StopReason explains why a run reached Done
type StopReason string

const (
	NotStopped      StopReason = ""
	CoverageReached StopReason = "coverage_reached"
	TimeLimit       StopReason = "time_limit"
	Complete        StopReason = "complete"
	Exhausted       StopReason = "exhausted"
	StepLimit       StopReason = "step_limit"
	Failed          StopReason = "failed"
)

// Phase names the strategy that chose the latest action
type Phase string

const (
	PhaseStart      Phase = "start"
	PhaseFrontier   Phase = "frontier"
	PhaseWallFollow Phase = "wall_follow"
	PhaseSeek       Phase = "seek"
	PhaseReturnHome Phase = "return_home"
)

var (
	ErrInvalidConfig = errors.New("invalid exploration config")
	ErrFinished      = errors.New("exploration already finished")
)

// Config bounds an exploration run
type Config struct {
	// CoverageLimit is the explored fraction in (0, 1] at which the run stops
	CoverageLimit float64 `json:"coverage_limit" yaml:"coverage_limit"`
	// TimeLimit is the wall-clock budget; zero means unlimited
	TimeLimit time.Duration `json:"time_limit" yaml:"time_limit"`
	// MaxSteps caps the number of actions; zero selects 20 per grid cell
	MaxSteps int `json:"max_steps" yaml:"max_steps"`
	// StepDelay paces Run between actions
	StepDelay time.Duration `json:"step_delay" yaml:"step_delay"`
	// ReturnHome drives back to the start cell once coverage is reached
	ReturnHome bool `json:"return_home" yaml:"return_home"`
	// TolerateSensorLoss treats a failed sensor read as "nothing seen"
	TolerateSensorLoss bool `json:"tolerate_sensor_loss" yaml:"tolerate_sensor_loss"`
}

// DefaultConfig explores the whole arena within an hour
func DefaultConfig() Config {
	return Config{CoverageLimit: 1.0, TimeLimit: time.Hour}
}

// Validate checks the limits
func (c Config) Validate() error {
	if c.CoverageLimit <= 0 || c.CoverageLimit > 1 {
		return fmt.Errorf("%w: coverage limit %.3f outside (0, 1]", ErrInvalidConfig, c.CoverageLimit)
	}
	if c.TimeLimit < 0 {
		return fmt.Errorf("%w: negative time limit", ErrInvalidConfig)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: negative step limit", ErrInvalidConfig)
	}
	if c.StepDelay < 0 {
		return fmt.Errorf("%w: negative step delay", ErrInvalidConfig)
	}
	return nil
}

// Actuator executes an action on a physical robot
type Actuator interface {
	Execute(ctx context.Context, a robot.Action) error
}

// ActuatorFunc adapts a function to Actuator
type ActuatorFunc func(ctx context.Context, a robot.Action) error

// Execute calls f
func (f ActuatorFunc) Execute(ctx context.Context, a robot.Action) error {
	return f(ctx, a)
}

// Progress is published after every step
type Progress struct {
	Step           int           `json:"step"`
	Pose           robot.Pose    `json:"pose"`
	Action         string        `json:"action,omitempty"`
	Phase          Phase         `json:"phase"`
	Explored       int           `json:"explored"`
	Coverage       float64       `json:"coverage"`
	Elapsed        time.Duration `json:"elapsed"`
	State          State         `json:"state"`
	Reason         StopReason    `json:"reason,omitempty"`
	SensorFailures int           `json:"sensor_failures"`
}

// Result summarises a finished run
type Result struct {
	Reason         StopReason    `json:"reason"`
	Steps          int           `json:"steps"`
	Explored       int           `json:"explored"`
	Coverage       float64       `json:"coverage"`
	Elapsed        time.Duration `json:"elapsed"`
	Pose           robot.Pose    `json:"pose"`
	SensorFailures int           `json:"sensor_failures"`
}
