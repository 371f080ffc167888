package robot

import (
	"fmt"

	"github.com/wricardo/mcp-training/arenanav/nav/grid"
)

// Action is a single movement primitive
type Action int

const (
	Forward Action = iota
	TurnRight
	TurnLeft
	TurnAround
)

func (a Action) String() string {
	switch a {
	case Forward:
		return "forward"
	case TurnRight:
		return "right"
	case TurnLeft:
		return "left"
	case TurnAround:
		return "around"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// QuarterTurns returns the clockwise quarter turns an action performs
func (a Action) QuarterTurns() int {
	switch a {
	case TurnRight:
		return 1
	case TurnAround:
		return 2
	case TurnLeft:
		return 3
	default:
		return 0
	}
}

// TurnAction returns the action that rotates by the given clockwise quarter turns
func TurnAction(quarters int) (Action, bool) {
	switch ((quarters % 4) + 4) % 4 {
	case 1:
		return TurnRight, true
	case 2:
		return TurnAround, true
	case 3:
		return TurnLeft, true
	default:
		return Forward, false
	}
}

// Pose is the robot centre and heading
type Pose struct {
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	Direction Direction `json:"direction"`
}

func (p Pose) String() string {
	return fmt.Sprintf("(%d,%d,%s)", p.Row, p.Col, p.Direction)
}

// Position returns the centre cell of the pose
func (p Pose) Position() grid.Position {
	return grid.Position{Row: p.Row, Col: p.Col}
}

// Forward returns the pose moved n cells along its heading
func (p Pose) Forward(n int) Pose {
	dr, dc := p.Direction.Delta()
	p.Row += dr * n
	p.Col += dc * n
	return p
}

// Turn returns the pose rotated by the given clockwise quarter turns
func (p Pose) Turn(quarters int) Pose {
	p.Direction = p.Direction.Turn(quarters)
	return p
}

// Apply returns the pose after performing an action
func (p Pose) Apply(a Action) Pose {
	if a == Forward {
		return p.Forward(1)
	}
	return p.Turn(a.QuarterTurns())
}

// Relative converts an offset expressed in the robot frame (forward, right)
// into an absolute grid position
func (p Pose) Relative(forward, right int) grid.Position {
	fr, fc := p.Direction.Delta()
	rr, rc := p.Direction.Right().Delta()
	return grid.Position{
		Row: p.Row + forward*fr + right*rr,
		Col: p.Col + forward*fc + right*rc,
	}
}

// Footprint returns the 9 cells covered by the robot, row-major from the
// lowest row
func (p Pose) Footprint() []grid.Position {
	cells := make([]grid.Position, 0, 9)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			cells = append(cells, grid.Position{Row: p.Row + dr, Col: p.Col + dc})
		}
	}
	return cells
}
