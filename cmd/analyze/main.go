// Command analyze prints quick, human-readable heuristics about the arenas
// in the project's arenas directory. It summarizes dimensions, obstacle
// density, the centres reachable by the robot and the fastest path on the
// reference map, then explores each arena with simulated sensors and
// compares the route planned on the explored map.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/wricardo/mcp-training/arenanav/nav/config"
	"github.com/wricardo/mcp-training/arenanav/nav/descriptor"
	"github.com/wricardo/mcp-training/arenanav/nav/explore"
	"github.com/wricardo/mcp-training/arenanav/nav/fastestpath"
	"github.com/wricardo/mcp-training/arenanav/nav/grid"
	"github.com/wricardo/mcp-training/arenanav/nav/robot"
	"github.com/wricardo/mcp-training/arenanav/nav/sensor"
)

// Analysis holds the figures printed for one arena
type Analysis struct {
	Name      string
	Rows      int
	Cols      int
	Obstacles int
	Density   float64
	Reachable int

	Reference   *fastestpath.Route
	Waypoint    *grid.Position
	ViaWaypoint *fastestpath.Route

	Exploration explore.Result
	Descriptor  descriptor.Descriptor
	// Explored is the route planned on the explored map; nil when the goal
	// was not reached through explored cells
	Explored *fastestpath.Route
}

// Overhead is the extra cost of the explored route over the reference
// route, or -1 when either route is missing
func (a Analysis) Overhead() int {
	if a.Reference == nil || a.Explored == nil {
		return -1
	}
	return a.Explored.Cost - a.Reference.Cost
}

func main() {
	arenaDir := "arenas"
	if len(os.Args) > 1 {
		arenaDir = os.Args[1]
	}

	manager, err := config.NewManager(arenaDir)
	if err != nil {
		fmt.Printf("Error opening arenas: %v\n", err)
		os.Exit(1)
	}

	arenas, err := manager.ListArenas()
	if err != nil {
		fmt.Printf("Error listing arenas: %v\n", err)
		os.Exit(1)
	}

	for _, info := range arenas {
		fmt.Printf("\n=== Analyzing %s ===\n", info.Filename)
		arena, err := manager.LoadArena(info.ArenaID)
		if err != nil {
			fmt.Printf("Error loading arena: %v\n", err)
			continue
		}
		analysis, err := analyzeArena(context.Background(), arena)
		if err != nil {
			fmt.Printf("Error analyzing arena: %v\n", err)
			continue
		}
		printAnalysis(analysis)
	}
}

// analyzeArena plans on the reference map, then explores a blank copy with
// simulated sensors and plans again on what was discovered
func analyzeArena(ctx context.Context, arena *config.Arena) (Analysis, error) {
	ref, err := arena.Reference()
	if err != nil {
		return Analysis{}, err
	}

	a := Analysis{
		Name:      arena.Name,
		Rows:      ref.Rows(),
		Cols:      ref.Cols(),
		Obstacles: ref.ObstacleCount(),
		Density:   float64(ref.ObstacleCount()) / float64(ref.Size()),
		Waypoint:  arena.Waypoint,
	}

	planner, err := fastestpath.New(ref, arena.PlannerOptions())
	if err != nil {
		return Analysis{}, err
	}
	home := robot.Pose{Row: arena.Start.Row, Col: arena.Start.Col, Direction: robot.North}
	a.Reachable = len(planner.Reachable(arena.Start))

	if route, err := planner.Plan(home, arena.Goal); err == nil {
		a.Reference = &route
	}
	if arena.Waypoint != nil {
		if route, err := planner.PlanVia(home, *arena.Waypoint, arena.Goal); err == nil {
			a.ViaWaypoint = &route
		}
	}

	m, err := arena.NewMap()
	if err != nil {
		return Analysis{}, err
	}
	bot := robot.New(home, robot.DefaultSensors(), false)

	cfg := arena.Exploration
	cfg.StepDelay = 0
	cfg.TimeLimit = 0
	engine, err := explore.New(m, bot, sensor.NewSimulated(ref, bot.Sensors()), cfg,
		explore.WithTurnPenalty(arena.PlannerOptions().TurnPenalty))
	if err != nil {
		return Analysis{}, err
	}
	a.Exploration, err = engine.Run(ctx)
	if err != nil {
		return Analysis{}, err
	}
	a.Descriptor = descriptor.Encode(m)

	explored, err := fastestpath.New(m, arena.PlannerOptions())
	if err != nil {
		return Analysis{}, err
	}
	if route, err := explored.Plan(home, arena.Goal); err == nil {
		a.Explored = &route
	}

	return a, nil
}

func printAnalysis(a Analysis) {
	fmt.Printf("Name: %s\n", a.Name)
	fmt.Printf("Grid Size: %d x %d\n", a.Rows, a.Cols)
	fmt.Printf("Obstacles: %d (%.1f%%)\n", a.Obstacles, a.Density*100)
	fmt.Printf("Reachable centres: %d\n", a.Reachable)

	if a.Reference != nil {
		fmt.Printf("Fastest path: %d moves, %d turns, cost %d\n", a.Reference.Moves(), a.Reference.Turns, a.Reference.Cost)
		fmt.Printf("  Instructions: %s\n", a.Reference.Instructions)
	} else {
		fmt.Println("Fastest path: GOAL UNREACHABLE")
	}
	if a.Waypoint != nil {
		if a.ViaWaypoint != nil {
			fmt.Printf("Via waypoint %s: %d moves, %d turns, cost %d\n", *a.Waypoint, a.ViaWaypoint.Moves(), a.ViaWaypoint.Turns, a.ViaWaypoint.Cost)
		} else {
			fmt.Printf("Via waypoint %s: UNREACHABLE\n", *a.Waypoint)
		}
	}

	fmt.Printf("Exploration: %s after %d steps, coverage %.1f%%\n", a.Exploration.Reason, a.Exploration.Steps, a.Exploration.Coverage*100)
	fmt.Printf("  Descriptor: %s\n", a.Descriptor)
	switch {
	case a.Explored == nil:
		fmt.Println("  Explored map: goal not reachable through explored cells")
	case a.Overhead() > 0:
		fmt.Printf("  Explored map: route costs %d more than the reference route\n", a.Overhead())
	default:
		fmt.Println("  Explored map: matches the reference route cost")
	}
}
