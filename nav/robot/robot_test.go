package robot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/mcp-training/arenanav/nav/grid"
)

func TestDirection_Delta(t *testing.T) {
	tests := []struct {
		dir    Direction
		dr, dc int
	}{
		{North, 1, 0},
		{East, 0, 1},
		{South, -1, 0},
		{West, 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.dir.String(), func(t *testing.T) {
			dr, dc := tt.dir.Delta()
			assert.Equal(t, tt.dr, dr)
			assert.Equal(t, tt.dc, dc)
		})
	}
}

func TestDirection_Turns(t *testing.T) {
	assert.Equal(t, East, North.Right())
	assert.Equal(t, West, North.Left())
	assert.Equal(t, South, North.Opposite())
	assert.Equal(t, North, West.Right())
	assert.Equal(t, West, North.Turn(-1))
	assert.Equal(t, South, East.Turn(5))

	assert.Equal(t, 0, East.QuarterTurnsTo(East))
	assert.Equal(t, 1, North.QuarterTurnsTo(East))
	assert.Equal(t, 2, North.QuarterTurnsTo(South))
	assert.Equal(t, 3, North.QuarterTurnsTo(West))
	assert.Equal(t, 1, West.QuarterTurnsTo(North))
}

func TestParseDirection(t *testing.T) {
	for input, want := range map[string]Direction{
		"N": North, "north": North, " East ": East, "s": South, "WEST": West, "up": North,
	} {
		got, err := ParseDirection(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseDirection("sideways")
	assert.Error(t, err)
}

func TestDirection_JSON(t *testing.T) {
	data, err := json.Marshal(Pose{Row: 1, Col: 2, Direction: East})
	require.NoError(t, err)
	assert.JSONEq(t, `{"row":1,"col":2,"direction":"EAST"}`, string(data))

	var p Pose
	require.NoError(t, json.Unmarshal([]byte(`{"row":3,"col":4,"direction":"W"}`), &p))
	assert.Equal(t, Pose{Row: 3, Col: 4, Direction: West}, p)
}

func TestPose_Apply(t *testing.T) {
	p := Pose{Row: 1, Col: 1, Direction: North}

	p = p.Apply(Forward)
	assert.Equal(t, Pose{Row: 2, Col: 1, Direction: North}, p)

	p = p.Apply(TurnRight)
	assert.Equal(t, East, p.Direction)

	p = p.Apply(Forward).Apply(Forward)
	assert.Equal(t, Pose{Row: 2, Col: 3, Direction: East}, p)

	p = p.Apply(TurnAround)
	assert.Equal(t, West, p.Direction)

	p = p.Apply(TurnLeft)
	assert.Equal(t, South, p.Direction)
}

func TestTurnAction(t *testing.T) {
	for quarters, want := range map[int]Action{1: TurnRight, 2: TurnAround, 3: TurnLeft, -1: TurnLeft, 5: TurnRight} {
		got, ok := TurnAction(quarters)
		assert.True(t, ok)
		assert.Equal(t, want, got, "quarters %d", quarters)
	}
	_, ok := TurnAction(4)
	assert.False(t, ok)
}

func TestPose_Relative(t *testing.T) {
	p := Pose{Row: 5, Col: 5, Direction: East}

	// Forward is +col, right is -row when facing East
	assert.Equal(t, grid.Position{Row: 5, Col: 7}, p.Relative(2, 0))
	assert.Equal(t, grid.Position{Row: 4, Col: 5}, p.Relative(0, 1))
	assert.Equal(t, grid.Position{Row: 6, Col: 6}, p.Relative(1, -1))
}

func TestPose_Footprint(t *testing.T) {
	p := Pose{Row: 5, Col: 5, Direction: North}

	footprint := p.Footprint()
	assert.Len(t, footprint, 9)
	assert.Contains(t, footprint, grid.Position{Row: 4, Col: 4})
	assert.Contains(t, footprint, grid.Position{Row: 6, Col: 6})
}

func TestSensor_Ray(t *testing.T) {
	p := Pose{Row: 5, Col: 5, Direction: North}
	sensors := DefaultSensors()

	front := sensors[1]
	assert.Equal(t, []grid.Position{{Row: 7, Col: 5}, {Row: 8, Col: 5}}, front.Ray(p))

	right := sensors[3]
	assert.Equal(t, East, right.Direction(p))
	assert.Equal(t, []grid.Position{{Row: 6, Col: 7}, {Row: 6, Col: 8}}, right.Ray(p))

	left := sensors[4]
	assert.Equal(t, West, left.Direction(p))
	assert.Len(t, left.Ray(p), LongRange)
	assert.Equal(t, grid.Position{Row: 6, Col: 3}, left.Ray(p)[0])
}

func TestRobot_Apply(t *testing.T) {
	r := New(Pose{Row: 1, Col: 1, Direction: North}, nil, false)

	assert.Len(t, r.Sensors(), 5)
	assert.False(t, r.Real())

	r.Apply(Forward)
	r.Apply(TurnRight)
	assert.Equal(t, Pose{Row: 2, Col: 1, Direction: East}, r.Pose())

	r.SetPose(Pose{Row: 9, Col: 9, Direction: South})
	assert.Equal(t, Pose{Row: 9, Col: 9, Direction: South}, r.Pose())
}
