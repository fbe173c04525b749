// Package wire holds the frame and broadcast shapes shared between
// internal/roundengine and internal/gateway, kept in their own package
// so neither of those two packages has to import the other: the round
// engine returns wire.Broadcast/wire.ClientError, and the gateway both
// feeds it inbound wire.Frame values and fans the resulting broadcast
// out to every client in the room.
package wire

import "fmt"

// Frame is one inbound client message: spec.md section 6's twenty-one
// recognized types plus whatever fields that type needs, decoded once
// at the gateway edge into a loosely typed map so every handler can
// pull the fields it cares about without a twenty-one-case custom
// unmarshaler.
type Frame struct {
	Type   string
	Fields map[string]any
}

// Broadcast is an outbound event sent to every client in a room. Scope
// narrows delivery for the handful of frames that are logically
// role-restricted (the DD answer and the FJ wager/answer submissions
// are sent with ScopeHostOnly); spec.md section 4.3
// explicitly permits broadcasting to the whole group and letting
// clients filter, which is what an empty Scope (ScopeAll) means here.
type Broadcast struct {
	Type    string
	Payload map[string]any
	Scope   Scope
}

// Scope narrows which connected clients a Broadcast reaches.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeHostOnly
)

// ClientError is a per-client, non-fatal error frame: spec.md's
// taxonomy class 1 (validation) and class 3 (conflict) both render as
// this, never as a broadcast and never as a closed connection.
type ClientError struct {
	Message string
}

func (e *ClientError) Error() string { return e.Message }

func NewClientError(format string, args ...any) error {
	return &ClientError{Message: fmt.Sprintf(format, args...)}
}
