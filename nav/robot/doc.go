// Package robot models the navigating robot: its heading, its pose on the
// grid, the movement actions it can perform and the sensors mounted on it.
//
// The robot occupies a 3×3 footprint centred on its pose. Headings rotate
// clockwise North → East → South → West; Direction.Delta maps a heading to
// the grid step it produces.
package robot
