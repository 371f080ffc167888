// Package config loads arena definitions for the navigator.
//
// Arenas are YAML files in an arena directory. Each one defines:
//   - Grid dimensions and the start and goal zone centres
//   - An optional obstacle layout, inline or as a legacy map file
//   - An optional waypoint for the fastest path run
//   - Default exploration limits and the planner turn penalty
//
// Example:
//
//	name: sample
//	rows: 20
//	cols: 15
//	start: {row: 1, col: 1}
//	goal: {row: 18, col: 13}
//	map_file: sample.txt
//	waypoint: {row: 10, col: 3}
//	exploration:
//	  coverage_limit: 1.0
//	  time_limit: 6m
//
// Usage:
//
//	manager, err := config.NewManager("arenas")
//	arena, err := manager.LoadArena("sample")
//	reference, err := arena.Reference()
//
// When the directory holds no default.yaml the first valid arena becomes
// the default, falling back to the empty reference arena.
package config
