package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatd/pkg/address"
	"chatd/pkg/node"
)

// RelayTimeout is how long the actor waits on a peer before giving up.
const RelayTimeout = 5 * time.Second

// Relay forwards Send bodies to the chat actor on another node.
type Relay struct {
	rt   Runtime
	self address.Address
}

// NewRelay returns a relay that reaches peers running the same process as
// self.
func NewRelay(rt Runtime, self address.Address) *Relay {
	return &Relay{rt: rt, self: self}
}

// Forward sends the body of msg to the chat actor on target and waits for
// its Ack. Metadata and capabilities travel with it unchanged.
func (r *Relay) Forward(ctx context.Context, target string, msg node.Message) error {
	to := r.self.WithNode(target)
	req := node.Request{
		Body:         msg.Body,
		Timeout:      RelayTimeout,
		Metadata:     msg.Metadata,
		Capabilities: msg.Capabilities,
	}

	start := time.Now()
	reply, err := r.rt.SendAndAwaitResponse(ctx, to, req)
	relayDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		relayTotal.WithLabelValues(relayOutcome(err)).Inc()
		return &Error{Kind: KindRelayFailure, Op: "relay", Err: fmt.Errorf("to %s: %w", to, err)}
	}
	if !IsAck(reply.Body) {
		relayTotal.WithLabelValues("unexpected_reply").Inc()
		return &Error{Kind: KindRelayFailure, Op: "relay", Err: fmt.Errorf("to %s: %w: %q", to, ErrUnexpectedReply, reply.Body)}
	}
	relayTotal.WithLabelValues("ok").Inc()
	return nil
}

func relayOutcome(err error) string {
	var se *node.SendError
	if errors.As(err, &se) {
		return se.Kind.String()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
