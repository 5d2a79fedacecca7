package chat

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure classes the actor distinguishes.
type ErrorKind uint8

const (
	// KindTransport is a failure of the messaging substrate itself.
	KindTransport ErrorKind = iota + 1
	// KindProtocolViolation is a well-formed message the actor cannot act on.
	KindProtocolViolation
	// KindRelayFailure is a relay that timed out or could not be delivered.
	KindRelayFailure
	// KindDecode is a body that is not UTF-8 JSON of a known shape.
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocolViolation:
		return "protocol_violation"
	case KindRelayFailure:
		return "relay_failure"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

var (
	ErrUnknownCommand     = errors.New("neither Send nor History present")
	ErrUnexpectedResponse = errors.New("response outside a pending request")
	ErrUnexpectedReply    = errors.New("relay reply is not an acknowledgment")
)

// Error is the only error type the actor produces.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("chat: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("chat: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Violation reports whether the error is a protocol violation. Decode
// failures count as violations.
func (e *Error) Violation() bool {
	return e.Kind == KindProtocolViolation || e.Kind == KindDecode
}

// IsKind reports whether err is, or wraps, a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}
