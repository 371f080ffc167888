package mission

import (
	"context"
	"fmt"
	"sync"

	"github.com/wricardo/mcp-training/arenanav/nav/grid"
	"github.com/wricardo/mcp-training/arenanav/nav/instruction"
	"github.com/wricardo/mcp-training/arenanav/nav/robot"
	"github.com/wricardo/mcp-training/arenanav/nav/sensor"
	"github.com/wricardo/mcp-training/arenanav/transport/comm"
)

// VirtualRobot plays the robot and tablet side of the link. Scripted lines
// are delivered first; after BOT_START and after every instruction it
// answers with one SDATA line computed from the reference map.
type VirtualRobot struct {
	mu      sync.Mutex
	model   *sensor.Simulated
	pose    robot.Pose
	script  []string
	pending bool
	sent    []string
}

// NewVirtualRobot creates a robot at start over reference
func NewVirtualRobot(reference *grid.Map, start robot.Pose, sensors []robot.Sensor, script ...string) *VirtualRobot {
	return &VirtualRobot{
		model:  sensor.NewSimulated(reference, sensors),
		pose:   start,
		script: script,
	}
}

// Send records the framed message and executes instructions decoded from
// the wire form, as the motor controller does
func (v *VirtualRobot) Send(ctx context.Context, kind comm.Kind, payload string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send: %w: %v", comm.ErrTransportUnavailable, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	msg := comm.Frame(kind, payload)
	v.sent = append(v.sent, msg)

	if kind == comm.Instructions {
		body, err := comm.Unframe(msg)
		if err != nil {
			return fmt.Errorf("send: %w: %v", comm.ErrTransportUnavailable, err)
		}
		pose, err := instruction.Apply(v.pose, body)
		if err != nil {
			return fmt.Errorf("send: %w: %v", comm.ErrTransportUnavailable, err)
		}
		v.pose = pose
		v.pending = true
	}
	return nil
}

// SendBare records the tag; BOT_START triggers the first sensor report
func (v *VirtualRobot) SendBare(ctx context.Context, kind comm.Kind) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send: %w: %v", comm.ErrTransportUnavailable, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.sent = append(v.sent, comm.FrameBare(kind))
	if kind == comm.BotStart {
		v.pending = true
	}
	return nil
}

// ReceiveLine returns a pending sensor report, else the next scripted line
func (v *VirtualRobot) ReceiveLine(ctx context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.pending {
		v.pending = false
		readings, err := v.model.Sense(ctx, v.pose)
		if err != nil {
			return "", fmt.Errorf("receive: %w: %v", comm.ErrTransportUnavailable, err)
		}
		return string(comm.SensorData) + " " + readings.String(), nil
	}

	if len(v.script) == 0 {
		return "", fmt.Errorf("receive: %w: script exhausted", comm.ErrTransportUnavailable)
	}
	line := v.script[0]
	v.script = v.script[1:]
	return line, nil
}

// Pose returns where the virtual robot believes it is
func (v *VirtualRobot) Pose() robot.Pose {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pose
}

// Sent returns every message sent to the robot so far
func (v *VirtualRobot) Sent() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.sent))
	copy(out, v.sent)
	return out
}
