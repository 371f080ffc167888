package instruction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/arenanav/nav/grid"
	"github.com/wricardo/mcp-training/arenanav/nav/robot"
)

const (
	// MaxRun is the largest advance a single digit token can carry
	MaxRun = 9

	// StartMarker prefixes sequences sent for physical execution
	StartMarker = "0"

	maxTurn = 'Z' - 'A' + 1
)

var (
	ErrTurnOverflow = errors.New("merged turn exceeds letter range")
	ErrInvalidToken = errors.New("invalid instruction token")
	ErrNotAdjacent  = errors.New("route cells are not adjacent")
)

// TokenKind distinguishes moves from turns
type TokenKind int

const (
	Move TokenKind = iota
	Turn
)

// Token is one parsed instruction
type Token struct {
	Kind  TokenKind
	Value int // cells for Move, clockwise quarter turns for Turn
}

func (t Token) String() string {
	if t.Kind == Turn {
		return string(rune('A' + t.Value - 1))
	}
	return string(rune('0' + t.Value))
}

// TurnToken returns the letter for a clockwise rotation of quarters
func TurnToken(quarters int) (string, error) {
	if quarters < 1 || quarters > maxTurn {
		return "", fmt.Errorf("%w: %d quarter turns", ErrTurnOverflow, quarters)
	}
	return Token{Kind: Turn, Value: quarters}.String(), nil
}

// ActionToken returns the single-token command for one robot action
func ActionToken(a robot.Action) string {
	if a == robot.Forward {
		return "1"
	}
	return Token{Kind: Turn, Value: a.QuarterTurns()}.String()
}

// Encode converts a route, starting with the robot facing startDir, into an
// instruction string. cells[0] is the start cell.
func Encode(startDir robot.Direction, cells []grid.Position) (string, error) {
	var sb strings.Builder
	heading := startDir
	run := 0

	flush := func() {
		if run > 0 {
			sb.WriteByte(byte('0' + run))
			run = 0
		}
	}

	for i := 1; i < len(cells); i++ {
		dir, ok := stepDirection(cells[i-1], cells[i])
		if !ok {
			return "", fmt.Errorf("%w: %s -> %s", ErrNotAdjacent, cells[i-1], cells[i])
		}

		if dir != heading {
			flush()
			sb.WriteString(Token{Kind: Turn, Value: heading.QuarterTurnsTo(dir)}.String())
			heading = dir
		}

		run++
		if run == MaxRun {
			flush()
		}
	}
	flush()

	return sb.String(), nil
}

func stepDirection(from, to grid.Position) (robot.Direction, bool) {
	for _, d := range robot.Directions {
		dr, dc := d.Delta()
		if from.Row+dr == to.Row && from.Col+dc == to.Col {
			return d, true
		}
	}
	return robot.North, false
}

// Merge joins two instruction strings. When a ends in a turn and b starts
// with one, the two letters are replaced by a single letter carrying their
// combined quarter turns.
func Merge(a, b string) (string, error) {
	if a == "" || b == "" {
		return a + b, nil
	}

	last, first := a[len(a)-1], b[0]
	if !isTurn(last) || !isTurn(first) {
		return a + b, nil
	}

	combined := int(last-'A'+1) + int(first-'A'+1)
	letter, err := TurnToken(combined)
	if err != nil {
		return "", fmt.Errorf("merge %q and %q: %w", a, b, err)
	}
	return a[:len(a)-1] + letter + b[1:], nil
}

// WithStartMarker prefixes the start-of-sequence marker for physical runs
func WithStartMarker(s string) string {
	return StartMarker + s
}

// Parse splits an instruction string into tokens
func Parse(s string) ([]Token, error) {
	tokens := make([]Token, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= '0' && ch <= '9':
			tokens = append(tokens, Token{Kind: Move, Value: int(ch - '0')})
		case isTurn(ch):
			tokens = append(tokens, Token{Kind: Turn, Value: int(ch-'A') + 1})
		default:
			return nil, fmt.Errorf("%w: %q at offset %d", ErrInvalidToken, ch, i)
		}
	}
	return tokens, nil
}

// Actions expands an instruction string into single robot actions. Turns
// that amount to a full rotation produce no action.
func Actions(s string) ([]robot.Action, error) {
	tokens, err := Parse(s)
	if err != nil {
		return nil, err
	}

	var actions []robot.Action
	for _, t := range tokens {
		if t.Kind == Move {
			for k := 0; k < t.Value; k++ {
				actions = append(actions, robot.Forward)
			}
			continue
		}
		if a, ok := robot.TurnAction(t.Value); ok {
			actions = append(actions, a)
		}
	}
	return actions, nil
}

// Apply replays an instruction string from pose and returns the end pose
func Apply(pose robot.Pose, s string) (robot.Pose, error) {
	actions, err := Actions(s)
	if err != nil {
		return pose, err
	}
	for _, a := range actions {
		pose = pose.Apply(a)
	}
	return pose, nil
}

func isTurn(ch byte) bool {
	return ch >= 'A' && ch <= 'Z'
}
