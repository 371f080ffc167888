// Package grid provides the arena map used by the navigator.
//
// The grid package implements:
//   - A fixed-size rectangular array of cells (reference arena: 20×15)
//   - Obstacle placement with virtual-wall propagation
//   - Protected start and goal zones that never hold obstacles
//   - Explored-state bookkeeping for exploration coverage
//   - Consistent snapshots for read-only observers
//
// Core Types:
//
// Map owns every Cell of the arena. Cells are created once by New and are
// never added or removed afterwards; only their obstacle, virtual-wall and
// explored flags change.
//
// Coordinates:
//
// Row 0 is the bottom row of the arena and column 0 the leftmost column.
// Moving North increases the row index, moving East increases the column.
// The start zone is the 3×3 block around the start cell (by default the
// bottom-left corner) and the goal zone is the 3×3 block around the goal cell.
//
// Virtual Walls:
//
// Every border cell is a virtual wall. Every cell adjacent (8-neighbourhood)
// to an obstacle is a virtual wall. Virtual walls are a safety margin for the
// robot's 3×3 footprint: the robot centre may not stand on one.
//
// Usage:
//
//	m := grid.NewDefault()
//	if err := m.SetObstacle(5, 7, true); err != nil {
//		log.Fatal(err)
//	}
//	blocked := m.IsBlocked(5, 7) // true
//	wall := m.IsVirtualWall(6, 8) // true
//
// Concurrency:
//
// Map is safe for concurrent use. Observers should read through Snapshot,
// which returns a consistent copy while a navigation task keeps mutating.
package grid
