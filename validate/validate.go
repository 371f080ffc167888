// Command validate checks arena definitions and legacy map files in the
// ../arenas directory (or the directory given as the first argument). It checks:
//   - YAML structure, dimensions, zones and exploration limits
//   - Legacy maps: cell count and the 0/1 alphabet
//   - Obstacles placed inside the start or goal zone (dropped on load)
//   - Connectivity: the goal, and the waypoint if any, are reachable by the
//     3×3 robot from the start zone
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/arenanav/nav/config"
	"github.com/wricardo/mcp-training/arenanav/nav/descriptor"
	"github.com/wricardo/mcp-training/arenanav/nav/fastestpath"
	"github.com/wricardo/mcp-training/arenanav/nav/grid"
	"github.com/wricardo/mcp-training/arenanav/nav/robot"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...any) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateArena loads an arena definition through the arena manager and
// validates its reference map
func validateArena(dir, file string) ValidationResult {
	result := ValidationResult{
		File:   file,
		Valid:  true,
		Errors: []string{},
	}

	manager, err := config.NewManager(dir)
	if err != nil {
		result.fail("Failed to open arena directory: %v", err)
		return result
	}

	arena, err := manager.LoadArena(file)
	if err != nil {
		result.fail("Invalid arena: %v", err)
		return result
	}

	ref, err := arena.NewMap()
	if err != nil {
		result.fail("Invalid dimensions: %v", err)
		return result
	}

	var skipped []grid.Position
	switch {
	case len(arena.Layout) > 0:
		skipped, err = descriptor.LoadLegacy(strings.NewReader(strings.Join(arena.Layout, "\n")), ref)
	case arena.MapFile != "":
		path := arena.MapFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		skipped, err = descriptor.LoadLegacyFile(path, ref)
	default:
		ref.MarkAllExplored()
	}
	if err != nil {
		result.fail("Invalid layout: %v", err)
		return result
	}
	for _, p := range skipped {
		result.fail("Obstacle inside a protected zone at %s", p)
	}

	if result.Valid {
		connectivity := validateConnectivity(ref, arena.PlannerOptions(), arena.Waypoint)
		result.Valid = connectivity.Valid
		result.Errors = append(result.Errors, connectivity.Errors...)
	}

	if result.Valid {
		result.info("Name: %s", arena.Name)
		result.info("Grid: %dx%d", arena.Rows, arena.Cols)
		result.info("Start: %s Goal: %s", arena.Start, arena.Goal)
		result.info("Obstacles: %d", ref.ObstacleCount())
		if arena.Waypoint != nil {
			result.info("Waypoint: %s", *arena.Waypoint)
		}
	}

	return result
}

// validateMapFile validates a standalone legacy map against the default
// arena shape
func validateMapFile(path string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(path),
		Valid:  true,
		Errors: []string{},
	}

	ref := grid.NewDefault()
	skipped, err := descriptor.LoadLegacyFile(path, ref)
	if err != nil {
		if errors.Is(err, descriptor.ErrMalformedDescriptor) {
			result.fail("Malformed legacy map: %v", err)
		} else {
			result.fail("Failed to read file: %v", err)
		}
		return result
	}
	for _, p := range skipped {
		result.fail("Obstacle inside a protected zone at %s", p)
	}

	if result.Valid {
		connectivity := validateConnectivity(ref, fastestpath.DefaultOptions(), nil)
		result.Valid = connectivity.Valid
		result.Errors = append(result.Errors, connectivity.Errors...)
	}
	if result.Valid {
		result.info("Obstacles: %d", ref.ObstacleCount())
	}
	return result
}

// validateConnectivity checks that the robot can reach the goal, through
// the waypoint when one is set, from the start facing north
func validateConnectivity(ref *grid.Map, opts fastestpath.Options, waypoint *grid.Position) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	planner, err := fastestpath.New(ref, opts)
	if err != nil {
		result.fail("Cannot validate connectivity: %v", err)
		return result
	}

	start := ref.Start()
	reachable := planner.Reachable(start)
	result.info("Reachable centres: %d/%d", len(reachable), ref.Size())

	home := robot.Pose{Row: start.Row, Col: start.Col, Direction: robot.North}
	route, err := planner.Plan(home, ref.Goal())
	if err != nil {
		result.fail("Connectivity failure: goal %s unreachable from start %s", ref.Goal(), start)
		return result
	}
	result.info("Connectivity: goal reachable in %d moves, %d turns", route.Moves(), route.Turns)

	if waypoint != nil {
		via, err := planner.PlanVia(home, *waypoint, ref.Goal())
		if err != nil {
			result.fail("Connectivity failure: waypoint %s unreachable", *waypoint)
			return result
		}
		result.info("Waypoint route: %d moves, %d turns, cost %d", via.Moves(), via.Turns, via.Cost)
	}

	return result
}

// main scans the arena directory for arena definitions and standalone
// legacy maps, printing a concise report and exiting with non-zero status
// if any are invalid.
func main() {
	arenaDir := "../arenas"
	if len(os.Args) > 1 {
		arenaDir = os.Args[1]
	}

	entries, err := os.ReadDir(arenaDir)
	if err != nil {
		fmt.Printf("Error reading arena directory: %v\n", err)
		os.Exit(1)
	}

	referenced := referencedMaps(arenaDir)

	var results []ValidationResult
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch strings.ToLower(filepath.Ext(name)) {
		case ".yaml", ".yml":
			results = append(results, validateArena(arenaDir, name))
		case ".txt":
			if !referenced[name] {
				results = append(results, validateMapFile(filepath.Join(arenaDir, name)))
			}
		}
	}

	allValid := true
	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All arenas are valid!")
	} else {
		fmt.Println("❌ Some arenas have errors")
		os.Exit(1)
	}
}

// referencedMaps lists map files already covered by an arena definition
func referencedMaps(dir string) map[string]bool {
	refs := map[string]bool{}
	manager, err := config.NewManager(dir)
	if err != nil {
		return refs
	}
	arenas, err := manager.ListArenas()
	if err != nil {
		return refs
	}
	for _, info := range arenas {
		arena, err := manager.LoadArena(info.ArenaID)
		if err == nil && arena.MapFile != "" {
			refs[filepath.Base(arena.MapFile)] = true
		}
	}
	return refs
}
