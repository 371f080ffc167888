package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/arenanav/nav/descriptor"
	"github.com/wricardo/mcp-training/arenanav/nav/explore"
	"github.com/wricardo/mcp-training/arenanav/nav/fastestpath"
	"github.com/wricardo/mcp-training/arenanav/nav/grid"
)

// Arena describes a test arena and the defaults used when exploring it
type Arena struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Rows        int    `yaml:"rows" json:"rows"`
	Cols        int    `yaml:"cols" json:"cols"`

	Start grid.Position `yaml:"start" json:"start"`
	Goal  grid.Position `yaml:"goal" json:"goal"`

	// MapFile is a legacy map file, relative to the arena directory
	MapFile string `yaml:"map_file,omitempty" json:"map_file,omitempty"`
	// Layout is an inline legacy map, one line per row starting from the last row
	Layout []string `yaml:"layout,omitempty" json:"layout,omitempty"`

	Waypoint    *grid.Position `yaml:"waypoint,omitempty" json:"waypoint,omitempty"`
	TurnPenalty int            `yaml:"turn_penalty,omitempty" json:"turn_penalty,omitempty"`
	Exploration explore.Config `yaml:"exploration" json:"exploration"`

	dir string
}

// DefaultArena returns the reference 20×15 arena with no obstacles
func DefaultArena() *Arena {
	return &Arena{
		Name:        "default",
		Description: "Empty reference arena",
		Rows:        grid.DefaultRows,
		Cols:        grid.DefaultCols,
		Start:       grid.Position{Row: grid.DefaultStartRow, Col: grid.DefaultStartCol},
		Goal:        grid.Position{Row: grid.DefaultGoalRow, Col: grid.DefaultGoalCol},
		TurnPenalty: fastestpath.DefaultTurnPenalty,
		Exploration: explore.DefaultConfig(),
	}
}

// Validate checks dimensions, zones, limits and the layout
func (a *Arena) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidArena)
	}
	if a.MapFile != "" && len(a.Layout) > 0 {
		return fmt.Errorf("%w: both map_file and layout set", ErrInvalidArena)
	}
	if a.TurnPenalty < 0 {
		return fmt.Errorf("%w: negative turn penalty", ErrInvalidArena)
	}
	if err := a.Exploration.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArena, err)
	}

	m, err := a.NewMap()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArena, err)
	}
	if a.Waypoint != nil && !m.InBounds(a.Waypoint.Row, a.Waypoint.Col) {
		return fmt.Errorf("%w: waypoint %s out of bounds", ErrInvalidArena, a.Waypoint)
	}
	if len(a.Layout) > 0 || a.MapFile != "" {
		if _, err := a.Reference(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArena, err)
		}
	}
	return nil
}

// NewMap creates an empty, fully unexplored map of the arena's shape
func (a *Arena) NewMap() (*grid.Map, error) {
	return grid.New(a.Rows, a.Cols, a.Start, a.Goal)
}

// Reference builds the ground-truth map from the arena's layout or map
// file. An arena without either is an open arena.
func (a *Arena) Reference() (*grid.Map, error) {
	m, err := a.NewMap()
	if err != nil {
		return nil, err
	}

	switch {
	case len(a.Layout) > 0:
		if _, err := descriptor.LoadLegacy(strings.NewReader(strings.Join(a.Layout, "\n")), m); err != nil {
			return nil, err
		}
	case a.MapFile != "":
		if _, err := descriptor.LoadLegacyFile(a.mapPath(), m); err != nil {
			return nil, err
		}
	default:
		m.MarkAllExplored()
	}
	return m, nil
}

// Planner options for routes on this arena
func (a *Arena) PlannerOptions() fastestpath.Options {
	opts := fastestpath.DefaultOptions()
	if a.TurnPenalty > 0 {
		opts.TurnPenalty = a.TurnPenalty
	}
	return opts
}

func (a *Arena) mapPath() string {
	if filepath.IsAbs(a.MapFile) || a.dir == "" {
		return a.MapFile
	}
	return filepath.Join(a.dir, a.MapFile)
}
