package service

import (
	"time"

	"github.com/wricardo/mcp-training/arenanav/nav/explore"
	"github.com/wricardo/mcp-training/arenanav/nav/fastestpath"
	"github.com/wricardo/mcp-training/arenanav/nav/grid"
	"github.com/wricardo/mcp-training/arenanav/nav/robot"
)

// Event names pushed through the Notifier
const (
	EventProgress = "exploration_progress"
	EventFinished = "exploration_finished"
	EventRoute    = "fastest_path"
	EventMap      = "map_update"
)

// SessionInfo provides information about a navigation session
type SessionInfo struct {
	ID             string          `json:"id"`
	ArenaID        string          `json:"arena_id"`
	ArenaName      string          `json:"arena_name"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
	Rows           int             `json:"rows"`
	Cols           int             `json:"cols"`
	Pose           robot.Pose      `json:"pose"`
	Exploring      bool            `json:"exploring"`
	Explored       int             `json:"explored"`
	Coverage       float64         `json:"coverage"`
	Obstacles      int             `json:"obstacles"`
	Waypoint       *grid.Position  `json:"waypoint,omitempty"`
	LastResult     *explore.Result `json:"last_result,omitempty"`
}

// NavigationState is the full view of a session for rendering
type NavigationState struct {
	SessionID string             `json:"session_id"`
	Map       grid.Snapshot      `json:"map"`
	Reference grid.Snapshot      `json:"reference"`
	Pose      robot.Pose         `json:"pose"`
	Exploring bool               `json:"exploring"`
	Progress  *explore.Progress  `json:"progress,omitempty"`
	Result    *explore.Result    `json:"result,omitempty"`
	Route     *fastestpath.Route `json:"route,omitempty"`
}

// ExploreRequest overrides the arena's exploration defaults. Zero values
// keep the default.
type ExploreRequest struct {
	CoverageLimit    float64 `json:"coverage_limit,omitempty"`
	TimeLimitSeconds float64 `json:"time_limit_seconds,omitempty"`
	MaxSteps         int     `json:"max_steps,omitempty"`
	StepDelayMillis  int     `json:"step_delay_ms,omitempty"`
	ReturnHome       *bool   `json:"return_home,omitempty"`
}

// Config merges the request into base
func (r ExploreRequest) Config(base explore.Config) explore.Config {
	cfg := base
	if r.CoverageLimit != 0 {
		cfg.CoverageLimit = r.CoverageLimit
	}
	if r.TimeLimitSeconds != 0 {
		cfg.TimeLimit = time.Duration(r.TimeLimitSeconds * float64(time.Second))
	}
	if r.MaxSteps != 0 {
		cfg.MaxSteps = r.MaxSteps
	}
	if r.StepDelayMillis != 0 {
		cfg.StepDelay = time.Duration(r.StepDelayMillis) * time.Millisecond
	}
	if r.ReturnHome != nil {
		cfg.ReturnHome = *r.ReturnHome
	}
	return cfg
}

// PathRequest configures a fastest path run
type PathRequest struct {
	// Waypoint defaults to the arena's waypoint; nil plans straight to the goal
	Waypoint *grid.Position `json:"waypoint,omitempty"`
	// Execute moves the robot to the end of the route
	Execute bool `json:"execute,omitempty"`
	// AllowUnexplored lets the route cross cells the robot has not seen
	AllowUnexplored bool `json:"allow_unexplored,omitempty"`
}

// DescriptorInfo is the exported form of an explored map
type DescriptorInfo struct {
	Part1      string  `json:"part1"`
	Part2      string  `json:"part2"`
	Descriptor string  `json:"descriptor"`
	Legacy     string  `json:"legacy"`
	Coverage   float64 `json:"coverage"`
}
