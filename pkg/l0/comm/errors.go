package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned sending while the link is not synced.
	ErrNotReady = errors.New("link not ready")
	// ErrNoReply fails a command whose reply never came: a reply to a
	// later command arrived first, or the link resynced.
	ErrNoReply = errors.New("no reply")
)

// Reason is the optional payload byte of an error reply.
type Reason byte

// Reasons reported by the firmware.
const (
	ReasonUnspecified Reason = iota
	ReasonUnknownCode
	ReasonBadLength
	ReasonBadValue
	ReasonHardware
)

var reasonNames = map[Reason]string{
	ReasonUnknownCode: "unknown code",
	ReasonBadLength:   "bad length",
	ReasonBadValue:    "bad value",
	ReasonHardware:    "hardware fault",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reason %d", byte(r))
}

// CommandError is an error reply to the command Code.
type CommandError struct {
	Code   byte
	Reason Reason
}

// Error implements error.
func (e *CommandError) Error() string {
	if e.Reason == ReasonUnspecified {
		return fmt.Sprintf("command 0x%02x failed", e.Code)
	}
	return fmt.Sprintf("command 0x%02x failed: %v", e.Code, e.Reason)
}
