package comm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Transport sends framed messages to the robot link and receives lines from it
type Transport interface {
	Send(ctx context.Context, kind Kind, payload string) error
	SendBare(ctx context.Context, kind Kind) error
	ReceiveLine(ctx context.Context) (string, error)
}

// Option configures a TCP transport
type Option func(*TCP)

// WithLogger sets the logger used for traffic and failures
func WithLogger(logger *zap.Logger) Option {
	return func(t *TCP) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithDialTimeout bounds connection setup in Dial
func WithDialTimeout(d time.Duration) Option {
	return func(t *TCP) {
		t.dialTimeout = d
	}
}

// TCP is a Transport over a stream connection
type TCP struct {
	conn        net.Conn
	reader      *bufio.Reader
	writeMu     sync.Mutex
	readMu      sync.Mutex
	logger      *zap.Logger
	dialTimeout time.Duration
}

// Dial connects to the relay board at addr
func Dial(ctx context.Context, addr string, opts ...Option) (*TCP, error) {
	t := &TCP{logger: zap.NewNop(), dialTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(t)
	}

	dialer := net.Dialer{Timeout: t.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w: %v", addr, ErrTransportUnavailable, err)
	}
	t.attach(conn)

	t.logger.Info("robot link connected", zap.String("addr", addr))
	return t, nil
}

// NewTCP wraps an already open connection
func NewTCP(conn net.Conn, opts ...Option) *TCP {
	t := &TCP{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	t.attach(conn)
	return t
}

func (t *TCP) attach(conn net.Conn) {
	t.conn = conn
	t.reader = bufio.NewReader(conn)
}

// Send frames payload according to kind and writes it
func (t *TCP) Send(ctx context.Context, kind Kind, payload string) error {
	return t.write(ctx, kind, Frame(kind, payload))
}

// SendBare writes the kind tag followed by a line terminator
func (t *TCP) SendBare(ctx context.Context, kind Kind) error {
	return t.write(ctx, kind, FrameBare(kind))
}

func (t *TCP) write(ctx context.Context, kind Kind, msg string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send %s: %w: %v", kind, ErrTransportUnavailable, err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	_ = t.conn.SetWriteDeadline(deadline)

	if _, err := io.WriteString(t.conn, msg); err != nil {
		t.logger.Warn("send failed", zap.String("kind", string(kind)), zap.Error(err))
		return fmt.Errorf("send %s: %w: %v", kind, ErrTransportUnavailable, err)
	}

	t.logger.Debug("sent", zap.String("kind", string(kind)), zap.String("message", msg))
	return nil
}

// ReceiveLine blocks until one line arrives, the context ends or the
// connection fails. The line terminator is stripped.
func (t *TCP) ReceiveLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("receive: %w: %v", ErrTransportUnavailable, err)
	}

	t.readMu.Lock()
	defer t.readMu.Unlock()

	// Unblock the read when the context is cancelled without a deadline
	stop := context.AfterFunc(ctx, func() {
		_ = t.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	deadline, _ := ctx.Deadline()
	_ = t.conn.SetReadDeadline(deadline)

	line, err := t.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		t.logger.Warn("receive failed", zap.Error(err))
		return "", fmt.Errorf("receive: %w: %v", ErrTransportUnavailable, err)
	}

	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", ErrNoMessage
	}

	t.logger.Debug("received", zap.String("line", line))
	return line, nil
}

// Close shuts the connection down
func (t *TCP) Close() error {
	return t.conn.Close()
}
