// Package fastestpath computes minimum-cost routes over the explored map.
//
// The search is A* over (row, col, heading) states with the Manhattan
// distance to the goal as heuristic. Moving one cell
// forward costs 1 and each clockwise or anticlockwise quarter turn costs
// Options.TurnPenalty, so straight runs win over zig-zags of the same
// length. The result is optimal under that cost model.
//
// Passability:
//
// In footprint mode (the default) a centre is usable only when the robot's
// whole 3×3 footprint is free of obstacles and virtual walls, and, unless
// AllowUnexplored is set, fully explored. Point mode treats the robot as a
// single cell and only consults grid.Map.IsBlocked.
//
// Two-leg plans:
//
// PlanVia plans start → waypoint and waypoint → goal, continuing the second
// leg from the heading the first leg ends with, and merges the two
// instruction strings with instruction.Merge.
package fastestpath
