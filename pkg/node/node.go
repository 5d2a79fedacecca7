package node

import (
	"context"
	"errors"
	"sync"

	"chatd/pkg/address"
	"chatd/pkg/logger"

	"github.com/google/uuid"
)

// Transport carries envelopes to processes on other nodes and returns the
// response envelope.
type Transport interface {
	Deliver(ctx context.Context, msg Message) (Message, error)
}

// InitFunc is the body of a process. our is the process's own address.
type InitFunc func(ctx context.Context, our string, p *Process) error

const inboxSize = 256

// Node hosts processes under a single node name.
type Node struct {
	name      string
	transport Transport

	mu    sync.RWMutex
	procs map[address.ProcessID]*Process
	wg    sync.WaitGroup
}

// New creates a node. transport may be nil for a node that only talks to
// itself.
func New(name string, transport Transport) *Node {
	return &Node{
		name:      name,
		transport: transport,
		procs:     make(map[address.ProcessID]*Process),
	}
}

// Name returns the node name.
func (n *Node) Name() string { return n.name }

// Spawn registers pid and runs init on its own goroutine until it returns
// or ctx is cancelled.
func (n *Node) Spawn(ctx context.Context, pid address.ProcessID, init InitFunc) (*Process, error) {
	n.mu.Lock()
	if _, ok := n.procs[pid]; ok {
		n.mu.Unlock()
		return nil, ErrProcessExists
	}
	p := &Process{
		node:  n,
		addr:  address.Address{Node: n.name, Process: pid},
		inbox: make(chan delivery, inboxSize),
	}
	n.procs[pid] = p
	n.mu.Unlock()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer n.remove(pid)
		logger.Info("process_started", "address", p.addr.String())
		if err := init(ctx, p.addr.String(), p); err != nil {
			logger.Error("process_exited", "address", p.addr.String(), "error", err)
			return
		}
		logger.Info("process_stopped", "address", p.addr.String())
	}()
	return p, nil
}

// Lookup returns the running process registered under pid.
func (n *Node) Lookup(pid address.ProcessID) (*Process, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	p, ok := n.procs[pid]
	return p, ok
}

// Wait blocks until every spawned process has returned.
func (n *Node) Wait() { n.wg.Wait() }

func (n *Node) remove(pid address.ProcessID) {
	n.mu.Lock()
	delete(n.procs, pid)
	n.mu.Unlock()
}

// Deliver hands msg to the local process it targets. Queueing and, for a
// request that expects a response, waiting for the reply are both bounded
// by the envelope timeout.
func (n *Node) Deliver(ctx context.Context, msg Message) (Message, error) {
	p, ok := n.Lookup(msg.Target.Process)
	if !ok {
		return Message{}, ErrUnknownProcess
	}

	ctx, cancel := context.WithTimeout(ctx, msg.Deadline())
	defer cancel()

	if !msg.IsRequest() || !msg.ExpectsResponse {
		return Message{}, p.enqueue(ctx, delivery{msg: msg})
	}

	reply := make(chan Message, 1)
	if err := p.enqueue(ctx, delivery{msg: msg, reply: reply}); err != nil {
		return Message{}, err
	}
	select {
	case resp := <-reply:
		return resp, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Call sends a request from `from` to `to` and waits for the response.
// Failures are reported as *SendError.
func (n *Node) Call(ctx context.Context, from, to address.Address, req Request) (Message, error) {
	msg := n.envelope(from, to, req, true)
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := n.route(ctx, msg)
	if err != nil {
		return Message{}, toSendError(msg, err)
	}
	return resp, nil
}

func (n *Node) envelope(from, to address.Address, req Request, expects bool) Message {
	return Message{
		ID:              uuid.NewString(),
		Source:          from,
		Target:          to,
		Kind:            KindRequest,
		ExpectsResponse: expects,
		Timeout:         timeoutSeconds(req.Timeout),
		Body:            req.Body,
		Metadata:        req.Metadata,
		Capabilities:    req.Capabilities,
	}
}

func (n *Node) route(ctx context.Context, msg Message) (Message, error) {
	if msg.Target.Node == n.name {
		return n.Deliver(ctx, msg)
	}
	if n.transport == nil {
		return Message{}, ErrNoTransport
	}
	return n.transport.Deliver(ctx, msg)
}

func toSendError(msg Message, err error) error {
	var se *SendError
	if errors.As(err, &se) {
		return se
	}
	kind := Offline
	if errors.Is(err, context.DeadlineExceeded) {
		kind = Timeout
	}
	return &SendError{Kind: kind, Target: msg.Target, MessageID: msg.ID, Err: err}
}
