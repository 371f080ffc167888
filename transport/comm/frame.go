package comm

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the purpose of a message on the robot link
type Kind string

const (
	ExStart      Kind = "EX_START"  // tablet -> navigator
	FpStart      Kind = "FP_START"  // tablet -> navigator
	MapStrings   Kind = "MAP"       // navigator -> tablet
	BotPos       Kind = "BOT_POS"   // navigator -> tablet
	BotStart     Kind = "BOT_START" // navigator -> motor controller
	Instructions Kind = "INSTR"     // navigator -> motor controller
	SensorData   Kind = "SDATA"     // motor controller -> navigator
)

const (
	tabletPrefix     = "AN"
	controllerPrefix = "AR"
	frameTerminator  = "Q"
)

var (
	ErrTransportUnavailable = errors.New("transport unavailable")
	ErrNoMessage            = errors.New("no message")
)

// Frame wraps a payload for the wire according to its kind
func Frame(kind Kind, payload string) string {
	switch kind {
	case MapStrings, BotPos:
		return tabletPrefix + payload + frameTerminator
	default:
		return controllerPrefix + payload + frameTerminator
	}
}

// FrameBare returns the wire form of a message without payload
func FrameBare(kind Kind) string {
	return string(kind) + "\n"
}

// Unframe strips the routing prefix and terminator from a framed message
func Unframe(msg string) (string, error) {
	msg = strings.TrimRight(msg, "\r\n")
	if !strings.HasSuffix(msg, frameTerminator) ||
		!(strings.HasPrefix(msg, tabletPrefix) || strings.HasPrefix(msg, controllerPrefix)) {
		return "", fmt.Errorf("unframed message %q", msg)
	}
	return msg[len(tabletPrefix) : len(msg)-len(frameTerminator)], nil
}
