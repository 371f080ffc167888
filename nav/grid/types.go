package grid

import (
	"errors"
	"fmt"
)

const (
	// Reference arena dimensions
	DefaultRows = 20
	DefaultCols = 15

	// Robot centre at the start of every run
	DefaultStartRow = 1
	DefaultStartCol = 1

	// Centre of the goal zone
	DefaultGoalRow = DefaultRows - 2
	DefaultGoalCol = DefaultCols - 2

	// ZoneRadius is the distance from a zone centre to its edge (3×3 zones)
	ZoneRadius = 1
)

var (
	ErrOutOfBounds      = errors.New("coordinates out of bounds")
	ErrInvalidPlacement = errors.New("obstacle placement in protected zone")
)

// Position is a row/column coordinate on the grid
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Cell represents a single grid cell
type Cell struct {
	Row         int  `json:"row"`
	Col         int  `json:"col"`
	Obstacle    bool `json:"obstacle"`
	VirtualWall bool `json:"virtual_wall"`
	Explored    bool `json:"explored"`
}

// Position returns the cell's coordinates
func (c Cell) Position() Position {
	return Position{Row: c.Row, Col: c.Col}
}

// Snapshot is a point-in-time copy of the map state for observers
type Snapshot struct {
	Rows     int      `json:"rows"`
	Cols     int      `json:"cols"`
	Start    Position `json:"start"`
	Goal     Position `json:"goal"`
	Cells    [][]Cell `json:"cells"`
	Explored int      `json:"explored"`
	Coverage float64  `json:"coverage"`
}

// outOfBounds wraps ErrOutOfBounds with the offending coordinates
func outOfBounds(row, col int) error {
	return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, row, col)
}
