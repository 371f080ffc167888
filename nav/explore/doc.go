// Package explore implements the bounded exploration run that discovers an
// unknown arena.
//
// An Engine owns the robot's motion for the duration of a run. Each Step
// performs one action (a single-cell move or an in-place turn), marks the
// robot footprint explored and folds the sensor readings for the new pose
// into the explored map. Actions are chosen by priority:
//
//  1. Frontier: move forward, or turn in place, when sensing from the
//     resulting pose would reach an unexplored cell.
//  2. Wall following: keep the wall on the right until the first lap brings
//     the robot back to its home cell.
//  3. Seek: breadth-first search over reachable centres for the nearest pose
//     with an unexplored view, then follow the fastest route to it.
//  4. Return home along the fastest route.
//
// A move is only taken when the destination footprint is fully explored and
// free of obstacles and virtual walls, so the robot never drives into space
// it has not seen.
//
// Stopping:
//
// The run ends when the explored fraction reaches Config.CoverageLimit, the
// time limit expires (checked after every action), the whole grid is
// explored and the robot is home, nothing reachable is left to inspect, or
// the step limit is hit. A finished Engine does not resume.
package explore
