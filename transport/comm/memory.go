package comm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Memory is an in-process Transport. Sent messages are recorded in wire
// form; lines queued with Push are returned by ReceiveLine in order.
type Memory struct {
	mu       sync.Mutex
	sent     []string
	incoming chan string
	closed   bool
}

// NewMemory creates an in-process transport with room for buffer queued lines
func NewMemory(buffer int) *Memory {
	if buffer <= 0 {
		buffer = 64
	}
	return &Memory{incoming: make(chan string, buffer)}
}

// Send records the framed payload
func (m *Memory) Send(ctx context.Context, kind Kind, payload string) error {
	return m.record(ctx, Frame(kind, payload))
}

// SendBare records the bare kind tag
func (m *Memory) SendBare(ctx context.Context, kind Kind) error {
	return m.record(ctx, FrameBare(kind))
}

func (m *Memory) record(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send: %w: %v", ErrTransportUnavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("send: %w: closed", ErrTransportUnavailable)
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Push queues a line for ReceiveLine
func (m *Memory) Push(lines ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for _, line := range lines {
		m.incoming <- line
	}
}

// ReceiveLine returns the next queued line, waiting until one is pushed or
// the context ends
func (m *Memory) ReceiveLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-m.incoming:
		if !ok {
			return "", fmt.Errorf("receive: %w: closed", ErrTransportUnavailable)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return "", ErrNoMessage
		}
		return line, nil
	case <-ctx.Done():
		return "", fmt.Errorf("receive: %w: %v", ErrTransportUnavailable, ctx.Err())
	}
}

// Sent returns a copy of every message sent so far
func (m *Memory) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	copy(out, m.sent)
	return out
}

// Close stops the transport; pending receivers fail
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.incoming)
	}
	return nil
}
