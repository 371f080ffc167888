package robot

import (
	"fmt"
	"strings"
)

// Direction is the heading of the robot
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

// Directions lists every heading in clockwise order
var Directions = [4]Direction{North, East, South, West}

func (d Direction) String() string {
	switch d {
	case North:
		return "NORTH"
	case East:
		return "EAST"
	case South:
		return "SOUTH"
	case West:
		return "WEST"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Letter returns the single-letter form used on the wire (N, E, S, W)
func (d Direction) Letter() string {
	return d.String()[:1]
}

// Delta maps a heading to its unit step as (dRow, dCol). North increases
// the row index and East increases the column index.
func (d Direction) Delta() (int, int) {
	switch d {
	case North:
		return 1, 0
	case East:
		return 0, 1
	case South:
		return -1, 0
	case West:
		return 0, -1
	default:
		return 0, 0
	}
}

// Right returns the heading after a clockwise quarter turn
func (d Direction) Right() Direction {
	return (d + 1) % 4
}

// Left returns the heading after an anticlockwise quarter turn
func (d Direction) Left() Direction {
	return (d + 3) % 4
}

// Opposite returns the reverse heading
func (d Direction) Opposite() Direction {
	return (d + 2) % 4
}

// Turn rotates the heading by the given number of clockwise quarter turns
func (d Direction) Turn(quarters int) Direction {
	return Direction(((int(d)+quarters)%4 + 4) % 4)
}

// QuarterTurnsTo returns the number of clockwise quarter turns (0-3) that
// rotate d onto target
func (d Direction) QuarterTurnsTo(target Direction) int {
	return ((int(target)-int(d))%4 + 4) % 4
}

// Valid reports whether d is one of the four headings
func (d Direction) Valid() bool {
	return d >= North && d <= West
}

// ParseDirection accepts full names or single letters, case-insensitive
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "N", "NORTH", "UP":
		return North, nil
	case "E", "EAST", "RIGHT":
		return East, nil
	case "S", "SOUTH", "DOWN":
		return South, nil
	case "W", "WEST", "LEFT":
		return West, nil
	default:
		return North, fmt.Errorf("invalid direction %q", s)
	}
}

// MarshalText encodes the direction by name
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name or letter
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
