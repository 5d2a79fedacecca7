package node

import (
	"errors"
	"fmt"

	"chatd/pkg/address"
)

var (
	ErrNoPendingRequest = errors.New("node: no pending request to answer")
	ErrUnknownProcess   = errors.New("node: unknown process")
	ErrProcessExists    = errors.New("node: process already running")
	ErrNoTransport      = errors.New("node: no transport for remote node")
)

// SendErrorKind classifies a failed delivery.
type SendErrorKind uint8

const (
	// Timeout means no response arrived within the envelope timeout.
	Timeout SendErrorKind = iota + 1
	// Offline means the target could not be reached at all.
	Offline
)

func (k SendErrorKind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case Offline:
		return "offline"
	default:
		return "unknown"
	}
}

// SendError reports a request that did not produce a response.
type SendError struct {
	Kind      SendErrorKind
	Target    address.Address
	MessageID string
	Err       error
}

func (e *SendError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("send %s to %s: %s", e.MessageID, e.Target, e.Kind)
	}
	return fmt.Sprintf("send %s to %s: %s: %v", e.MessageID, e.Target, e.Kind, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
