package robot

import (
	"sync"

	"github.com/wricardo/mcp-training/arenanav/nav/grid"
)

const (
	// Sensor ranges in cells measured from the footprint edge
	ShortRange = 2
	LongRange  = 4
)

// Sensor describes an obstacle sensor mounted on the robot. Mount is given
// in the robot frame (cells forward and to the right of the centre) and
// Facing in clockwise quarter turns from the robot heading.
type Sensor struct {
	Name    string `json:"name"`
	Forward int    `json:"forward"`
	Right   int    `json:"right"`
	Facing  int    `json:"facing"`
	Range   int    `json:"range"`
}

// Direction returns the absolute heading of the sensor for a pose
func (s Sensor) Direction(p Pose) Direction {
	return p.Direction.Turn(s.Facing)
}

// Ray returns the cells the sensor sees from a pose, nearest first
func (s Sensor) Ray(p Pose) []grid.Position {
	mount := p.Relative(s.Forward, s.Right)
	dr, dc := s.Direction(p).Delta()

	cells := make([]grid.Position, 0, s.Range)
	for k := 1; k <= s.Range; k++ {
		cells = append(cells, grid.Position{Row: mount.Row + k*dr, Col: mount.Col + k*dc})
	}
	return cells
}

// DefaultSensors returns the reference suite: three short-range sensors on
// the front edge, a short-range sensor looking right and a long-range
// sensor looking left
func DefaultSensors() []Sensor {
	return []Sensor{
		{Name: "front_left", Forward: 1, Right: -1, Facing: 0, Range: ShortRange},
		{Name: "front_centre", Forward: 1, Right: 0, Facing: 0, Range: ShortRange},
		{Name: "front_right", Forward: 1, Right: 1, Facing: 0, Range: ShortRange},
		{Name: "right", Forward: 1, Right: 1, Facing: 1, Range: ShortRange},
		{Name: "left", Forward: 1, Right: -1, Facing: 3, Range: LongRange},
	}
}

// Robot holds the current pose and the sensor suite
type Robot struct {
	pose    Pose
	sensors []Sensor
	real    bool
	mu      sync.RWMutex
}

// New creates a robot at the given pose. real marks a physical robot whose
// moves are sent over the transport.
func New(pose Pose, sensors []Sensor, real bool) *Robot {
	if len(sensors) == 0 {
		sensors = DefaultSensors()
	}
	return &Robot{pose: pose, sensors: sensors, real: real}
}

// Pose returns the current pose
func (r *Robot) Pose() Pose {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pose
}

// SetPose moves the robot to a pose without executing actions
func (r *Robot) SetPose(p Pose) {
	r.mu.Lock()
	r.pose = p
	r.mu.Unlock()
}

// Apply performs an action and returns the new pose
func (r *Robot) Apply(a Action) Pose {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pose = r.pose.Apply(a)
	return r.pose
}

// Sensors returns the sensor suite
func (r *Robot) Sensors() []Sensor {
	return r.sensors
}

// Real reports whether the robot is physical
func (r *Robot) Real() bool {
	return r.real
}
