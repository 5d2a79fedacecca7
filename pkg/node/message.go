// Package node hosts addressed processes and routes request/response
// envelopes between them, locally or through a Transport.
package node

import (
	"time"

	"chatd/pkg/address"
)

// Kind tells requests and responses apart on the wire.
type Kind string

const (
	KindRequest  Kind = "request"
	KindResponse Kind = "response"
)

// DefaultTimeout bounds a request that did not set its own timeout.
const DefaultTimeout = 5 * time.Second

// Message is the envelope exchanged between processes.
type Message struct {
	ID              string          `json:"id"`
	Source          address.Address `json:"source"`
	Target          address.Address `json:"target"`
	Kind            Kind            `json:"kind"`
	ExpectsResponse bool            `json:"expects_response"`
	// Timeout in whole seconds; zero means DefaultTimeout.
	Timeout      uint64   `json:"timeout,omitempty"`
	Body         []byte   `json:"body"`
	Metadata     string   `json:"metadata,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// IsRequest reports whether the envelope carries a request.
func (m Message) IsRequest() bool { return m.Kind != KindResponse }

// Deadline returns the envelope timeout as a duration.
func (m Message) Deadline() time.Duration {
	if m.Timeout == 0 {
		return DefaultTimeout
	}
	return time.Duration(m.Timeout) * time.Second
}

// Request is the outbound half of a request envelope.
type Request struct {
	Body         []byte
	Timeout      time.Duration
	Metadata     string
	Capabilities []string
}

// Response answers the request last returned by Receive.
type Response struct {
	Body         []byte
	Metadata     string
	Capabilities []string
}

func timeoutSeconds(d time.Duration) uint64 {
	if d <= 0 {
		d = DefaultTimeout
	}
	s := uint64(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}
