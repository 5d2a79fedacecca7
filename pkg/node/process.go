package node

import (
	"context"
	"sync"
	"time"

	"chatd/pkg/address"
)

// sendTimeout bounds fire-and-forget deliveries that set no timeout.
const sendTimeout = 30 * time.Second

type delivery struct {
	msg   Message
	reply chan Message
	err   error
}

// Process is a mailbox owned by one goroutine. Receive and SendResponse
// must be called from that goroutine.
type Process struct {
	node  *Node
	addr  address.Address
	inbox chan delivery

	mu      sync.Mutex
	current *delivery
}

// Address returns the process's own address.
func (p *Process) Address() address.Address { return p.addr }

// Receive blocks until the next delivery. A failed fire-and-forget send is
// returned as a *SendError.
func (p *Process) Receive(ctx context.Context) (Message, error) {
	select {
	case d := <-p.inbox:
		if d.err != nil {
			return Message{}, d.err
		}
		p.mu.Lock()
		if d.msg.IsRequest() {
			p.current = &d
		} else {
			p.current = nil
		}
		p.mu.Unlock()
		return d.msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// SendResponse answers the request last returned by Receive. It is a no-op
// when that request did not expect a response.
func (p *Process) SendResponse(resp Response) error {
	p.mu.Lock()
	d := p.current
	p.current = nil
	p.mu.Unlock()

	if d == nil {
		return ErrNoPendingRequest
	}
	if d.reply == nil {
		return nil
	}
	d.reply <- Message{
		ID:           d.msg.ID,
		Source:       p.addr,
		Target:       d.msg.Source,
		Kind:         KindResponse,
		Body:         resp.Body,
		Metadata:     resp.Metadata,
		Capabilities: resp.Capabilities,
	}
	return nil
}

// SendAndAwaitResponse sends a request to target and blocks until the
// response arrives or the request timeout elapses.
func (p *Process) SendAndAwaitResponse(ctx context.Context, target address.Address, req Request) (Message, error) {
	return p.node.Call(ctx, p.addr, target, req)
}

// Send delivers a request without waiting for an answer. A delivery
// failure is queued for a later Receive.
func (p *Process) Send(ctx context.Context, target address.Address, req Request) {
	msg := p.node.envelope(p.addr, target, req, false)
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = sendTimeout
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		if _, err := p.node.route(ctx, msg); err != nil {
			select {
			case p.inbox <- delivery{err: toSendError(msg, err)}:
			default:
			}
		}
	}()
}

func (p *Process) enqueue(ctx context.Context, d delivery) error {
	select {
	case p.inbox <- d:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
