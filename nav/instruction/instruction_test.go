package instruction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/mcp-training/arenanav/nav/grid"
	"github.com/wricardo/mcp-training/arenanav/nav/robot"
)

func straight(from grid.Position, dr, dc, n int) []grid.Position {
	cells := []grid.Position{from}
	for i := 1; i <= n; i++ {
		cells = append(cells, grid.Position{Row: from.Row + i*dr, Col: from.Col + i*dc})
	}
	return cells
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		dir   robot.Direction
		cells []grid.Position
		want  string
	}{
		{"empty", robot.North, nil, ""},
		{"single cell", robot.North, []grid.Position{{Row: 1, Col: 1}}, ""},
		{"straight run", robot.North, straight(grid.Position{Row: 1, Col: 1}, 1, 0, 5), "5"},
		{"initial alignment", robot.North, straight(grid.Position{Row: 1, Col: 1}, 0, 1, 3), "A3"},
		{"about face", robot.North, straight(grid.Position{Row: 5, Col: 1}, -1, 0, 2), "B2"},
		{"left turn", robot.East, straight(grid.Position{Row: 1, Col: 1}, 1, 0, 1), "C1"},
		{"run capped at nine", robot.North, straight(grid.Position{Row: 1, Col: 1}, 1, 0, 12), "93"},
		{"exactly nine", robot.North, straight(grid.Position{Row: 1, Col: 1}, 1, 0, 9), "9"},
		{"eighteen", robot.North, straight(grid.Position{Row: 0, Col: 1}, 1, 0, 18), "99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.dir, tt.cells)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_LShape(t *testing.T) {
	cells := append(straight(grid.Position{Row: 1, Col: 1}, 1, 0, 3),
		straight(grid.Position{Row: 4, Col: 1}, 0, 1, 2)[1:]...)

	got, err := Encode(robot.North, cells)
	require.NoError(t, err)
	assert.Equal(t, "3A2", got)
}

func TestEncode_NotAdjacent(t *testing.T) {
	_, err := Encode(robot.North, []grid.Position{{Row: 1, Col: 1}, {Row: 3, Col: 1}})
	assert.ErrorIs(t, err, ErrNotAdjacent)
}

func TestMerge(t *testing.T) {
	tests := []struct {
		a, b, want string
	}{
		{"2A", "B3", "2C3"},
		{"2", "A3", "2A3"},
		{"2A", "3", "2A3"},
		{"", "A3", "A3"},
		{"4", "", "4"},
		{"A", "A", "B"},
		{"3B", "B1", "3D1"},
	}

	for _, tt := range tests {
		got, err := Merge(tt.a, tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%q + %q", tt.a, tt.b)
	}
}

func TestMerge_Overflow(t *testing.T) {
	_, err := Merge("1Z", "A2")
	assert.ErrorIs(t, err, ErrTurnOverflow)

	got, err := Merge("1X", "B2")
	require.NoError(t, err)
	assert.Equal(t, "1Z2", got)
}

func TestWithStartMarker(t *testing.T) {
	assert.Equal(t, "0A3", WithStartMarker("A3"))
}

func TestParse(t *testing.T) {
	tokens, err := Parse("0A93C")
	require.NoError(t, err)
	assert.Equal(t, []Token{
		{Kind: Move, Value: 0},
		{Kind: Turn, Value: 1},
		{Kind: Move, Value: 9},
		{Kind: Move, Value: 3},
		{Kind: Turn, Value: 3},
	}, tokens)

	_, err = Parse("3a")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestApply(t *testing.T) {
	start := robot.Pose{Row: 1, Col: 1, Direction: robot.North}

	end, err := Apply(start, "03A2")
	require.NoError(t, err)
	assert.Equal(t, robot.Pose{Row: 4, Col: 3, Direction: robot.East}, end)

	// D is a full rotation
	end, err = Apply(start, "D1")
	require.NoError(t, err)
	assert.Equal(t, robot.Pose{Row: 2, Col: 1, Direction: robot.North}, end)
}

func TestEncodeApplyRoundTrip(t *testing.T) {
	cells := []grid.Position{
		{Row: 1, Col: 1}, {Row: 2, Col: 1}, {Row: 2, Col: 2}, {Row: 3, Col: 2},
		{Row: 3, Col: 1}, {Row: 2, Col: 1},
	}
	s, err := Encode(robot.South, cells)
	require.NoError(t, err)

	end, err := Apply(robot.Pose{Row: 1, Col: 1, Direction: robot.South}, s)
	require.NoError(t, err)
	assert.Equal(t, cells[len(cells)-1], end.Position())
	assert.Equal(t, robot.South, end.Direction)
}

func TestActionToken(t *testing.T) {
	assert.Equal(t, "1", ActionToken(robot.Forward))
	assert.Equal(t, "A", ActionToken(robot.TurnRight))
	assert.Equal(t, "B", ActionToken(robot.TurnAround))
	assert.Equal(t, "C", ActionToken(robot.TurnLeft))
}
