package comm

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestFrame(t *testing.T) {
	tests := []struct {
		kind    Kind
		payload string
		want    string
	}{
		{MapStrings, "FFC0,00", "ANFFC0,00Q"},
		{BotPos, "1,1,N", "AN1,1,NQ"},
		{Instructions, "05A3", "AR05A3Q"},
		{BotStart, "go", "ARgoQ"},
		{SensorData, "", "ARQ"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, Frame(tt.kind, tt.payload))
		})
	}

	assert.Equal(t, "BOT_START\n", FrameBare(BotStart))
	assert.Equal(t, "EX_START\n", FrameBare(ExStart))
}

func TestUnframe(t *testing.T) {
	payload, err := Unframe("AR05A3Q\n")
	require.NoError(t, err)
	assert.Equal(t, "05A3", payload)

	payload, err = Unframe(Frame(MapStrings, "ABC"))
	require.NoError(t, err)
	assert.Equal(t, "ABC", payload)

	_, err = Unframe("hello")
	assert.Error(t, err)
}

func TestTCP_SendAndReceive(t *testing.T) {
	defer goleak.VerifyNone(t)

	client, server := net.Pipe()
	tr := NewTCP(client)
	defer tr.Close()
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	want := "AR05AQ" + "BOT_START\n"
	done := make(chan struct{})
	got := make([]byte, len(want))
	go func() {
		defer close(done)
		if _, err := io.ReadFull(server, got); err != nil {
			return
		}
		_, _ = server.Write([]byte("SDATA 1,2,-1,3,0\r\n"))
	}()

	require.NoError(t, tr.Send(ctx, Instructions, "05A"))
	require.NoError(t, tr.SendBare(ctx, BotStart))

	line, err := tr.ReceiveLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SDATA 1,2,-1,3,0", line)

	<-done
	assert.Equal(t, want, string(got))
}

func TestTCP_ReceiveEmptyLine(t *testing.T) {
	defer goleak.VerifyNone(t)

	client, server := net.Pipe()
	tr := NewTCP(client)
	defer tr.Close()
	defer server.Close()

	go func() { _, _ = server.Write([]byte("\n")) }()

	_, err := tr.ReceiveLine(context.Background())
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestTCP_ReceiveCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	client, server := net.Pipe()
	tr := NewTCP(client)
	defer tr.Close()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := tr.ReceiveLine(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransportUnavailable)
}

func TestTCP_SendAfterClose(t *testing.T) {
	client, server := net.Pipe()
	server.Close()
	tr := NewTCP(client)
	require.NoError(t, tr.Close())

	err := tr.Send(context.Background(), Instructions, "1")
	assert.True(t, errors.Is(err, ErrTransportUnavailable))
}

func TestDial_Unavailable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Dial(context.Background(), addr, WithDialTimeout(time.Second))
	assert.ErrorIs(t, err, ErrTransportUnavailable)
}

func TestDial_Connects(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	tr, err := Dial(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	defer tr.Close()

	conn := <-accepted
	defer conn.Close()

	require.NoError(t, tr.SendBare(context.Background(), FpStart))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "FP_START\n", line)
}

func TestMemory(t *testing.T) {
	m := NewMemory(4)
	ctx := context.Background()

	require.NoError(t, m.Send(ctx, MapStrings, "FF"))
	require.NoError(t, m.SendBare(ctx, BotStart))
	assert.Equal(t, []string{"ANFFQ", "BOT_START\n"}, m.Sent())

	m.Push("3 4\n", "")
	line, err := m.ReceiveLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3 4", line)

	_, err = m.ReceiveLine(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = m.ReceiveLine(short)
	assert.ErrorIs(t, err, ErrTransportUnavailable)

	require.NoError(t, m.Close())
	_, err = m.ReceiveLine(ctx)
	assert.ErrorIs(t, err, ErrTransportUnavailable)
	assert.ErrorIs(t, m.Send(ctx, Instructions, "1"), ErrTransportUnavailable)
}
