package sensor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wricardo/mcp-training/arenanav/nav/grid"
	"github.com/wricardo/mcp-training/arenanav/nav/robot"
	"github.com/wricardo/mcp-training/arenanav/transport/comm"
	"go.uber.org/zap"
)

// NoObstacle is the reading of a sensor that sees nothing within range
const NoObstacle = -1

var (
	ErrMalformedReading = errors.New("malformed sensor reading")
	ErrReadingCount     = errors.New("reading count does not match sensor count")
)

// Readings holds one distance per sensor, in sensor order. A distance k
// means the k-th cell along the sensor ray holds an obstacle.
type Readings []int

func (r Readings) String() string {
	parts := make([]string, len(r))
	for i, d := range r {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// Model reports what the robot's sensors see from a pose
type Model interface {
	Sense(ctx context.Context, pose robot.Pose) (Readings, error)
}

// Simulated ray-casts the sensor suite against a reference map
type Simulated struct {
	reference *grid.Map
	sensors   []robot.Sensor
}

// NewSimulated creates a model backed by ground truth
func NewSimulated(reference *grid.Map, sensors []robot.Sensor) *Simulated {
	if len(sensors) == 0 {
		sensors = robot.DefaultSensors()
	}
	return &Simulated{reference: reference, sensors: sensors}
}

// Sense returns the distance to the first obstacle on each sensor ray
func (s *Simulated) Sense(ctx context.Context, pose robot.Pose) (Readings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	readings := make(Readings, len(s.sensors))
	for i, sn := range s.sensors {
		readings[i] = NoObstacle
		for k, cell := range sn.Ray(pose) {
			if !s.reference.InBounds(cell.Row, cell.Col) {
				break
			}
			if s.reference.IsObstacle(cell.Row, cell.Col) {
				readings[i] = k + 1
				break
			}
		}
	}
	return readings, nil
}

// RemoteOption configures a Remote model
type RemoteOption func(*Remote)

// WithLogger sets the logger for received readings
func WithLogger(logger *zap.Logger) RemoteOption {
	return func(r *Remote) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Remote reads sensor data lines sent by the robot over the transport
type Remote struct {
	transport comm.Transport
	count     int
	logger    *zap.Logger
}

// NewRemote creates a model that expects count readings per line
func NewRemote(transport comm.Transport, count int, opts ...RemoteOption) *Remote {
	r := &Remote{transport: transport, count: count, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sense blocks until the robot reports its readings for the current pose.
// Empty lines and lines that are not sensor data are skipped; transport
// failures and malformed SDATA lines end the read.
func (r *Remote) Sense(ctx context.Context, pose robot.Pose) (Readings, error) {
	for {
		line, err := r.transport.ReceiveLine(ctx)
		if errors.Is(err, comm.ErrNoMessage) {
			continue
		}
		if err != nil {
			return nil, err
		}

		readings, err := ParseReadings(line, r.count)
		if err != nil {
			if !isSensorLine(line) {
				r.logger.Debug("skipping non-sensor line", zap.String("line", line))
				continue
			}
			r.logger.Warn("discarding sensor line", zap.String("line", line), zap.Error(err))
			return nil, err
		}

		r.logger.Debug("sensed", zap.Stringer("pose", pose), zap.Stringer("readings", readings))
		return readings, nil
	}
}

func isSensorLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), string(comm.SensorData))
}

// ParseReadings parses a line of comma-separated distances, optionally
// preceded by the SDATA tag
func ParseReadings(line string, count int) (Readings, error) {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, string(comm.SensorData))
	line = strings.TrimLeft(line, " :")

	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) != count {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrReadingCount, len(fields), count)
	}

	readings := make(Readings, count)
	for i, f := range fields {
		d, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedReading, f)
		}
		if d <= 0 {
			d = NoObstacle
		}
		readings[i] = d
	}
	return readings, nil
}

// Apply updates the map with what each sensor saw from pose. Cells up to
// and including a hit are marked explored; the hit becomes an obstacle and
// cells beyond it are left untouched. It returns the number of cells that
// became explored.
func Apply(m *grid.Map, pose robot.Pose, sensors []robot.Sensor, readings Readings) (int, error) {
	if len(readings) != len(sensors) {
		return 0, fmt.Errorf("%w: %d readings for %d sensors", ErrReadingCount, len(readings), len(sensors))
	}

	revealed := 0
	for i, sn := range sensors {
		hit := readings[i]
		if hit > sn.Range {
			hit = NoObstacle
		}

		for k, cell := range sn.Ray(pose) {
			if !m.InBounds(cell.Row, cell.Col) {
				break
			}
			if !m.IsExplored(cell.Row, cell.Col) {
				revealed++
				_ = m.SetExplored(cell.Row, cell.Col, true)
			}

			if k+1 == hit {
				err := m.SetObstacle(cell.Row, cell.Col, true)
				if err != nil && !errors.Is(err, grid.ErrInvalidPlacement) {
					return revealed, err
				}
				break
			}
			if m.IsObstacle(cell.Row, cell.Col) {
				_ = m.SetObstacle(cell.Row, cell.Col, false)
			}
		}
	}
	return revealed, nil
}
