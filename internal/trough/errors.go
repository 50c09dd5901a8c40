package trough

import (
	"errors"
	"fmt"
)

var (
	ErrMeasurementSize = errors.New("trough: measurement is not 22 fields")
)

// ConnectionError reports a network-level failure: dial, prologue read,
// send, or a mid-stream closure by the peer. It is fatal to the caller;
// the client never retries internally.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("trough: connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a malformed or unexpected response. For a frame
// that fails parsing (missing ':' or a non-OK status) Line carries the
// received line verbatim. For a get/set whose field count is wrong, Prop
// names the property and Fields carries the coerced fields that arrived.
type ProtocolError struct {
	Line   string
	Prop   string
	Fields Fields
}

func (e *ProtocolError) Error() string {
	if e.Prop != "" {
		return fmt.Sprintf("trough: property %q returned unexpected results: %s", e.Prop, e.Fields)
	}
	return fmt.Sprintf("trough: bad response: %q", e.Line)
}
