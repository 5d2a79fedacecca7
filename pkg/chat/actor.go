// Package chat implements the chat actor: it receives Send and History
// requests, keeps a per-conversation archive and relays messages to the
// chat actor on peer nodes.
package chat

import (
	"context"
	"errors"
	"log/slog"

	"chatd/pkg/address"
	"chatd/pkg/logger"
	"chatd/pkg/node"
)

// Runtime is the messaging substrate the actor runs on.
type Runtime interface {
	Receive(ctx context.Context) (node.Message, error)
	SendResponse(resp node.Response) error
	SendAndAwaitResponse(ctx context.Context, target address.Address, req node.Request) (node.Message, error)
}

// ActorState is everything the actor owns.
type ActorState struct {
	Identity address.Address
	Archive  *Archive
}

// Actor is a chat process. All methods run on the goroutine calling Run.
type Actor struct {
	state ActorState
	rt    Runtime
	relay *Relay
	pub   Publisher
	log   *slog.Logger
}

// Option configures an Actor.
type Option func(*Actor)

// WithPublisher sets the sink for archive events.
func WithPublisher(p Publisher) Option {
	return func(a *Actor) { a.pub = p }
}

// New builds an actor for the address our. The address is parsed once and
// never changes.
func New(our string, rt Runtime, opts ...Option) *Actor {
	id := address.Parse(our)
	a := &Actor{
		state: ActorState{Identity: id, Archive: NewArchive()},
		rt:    rt,
		relay: NewRelay(rt, id),
		log:   logger.With("actor", id.String()),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init returns a node.InitFunc that runs a chat actor.
func Init(opts ...Option) node.InitFunc {
	return func(ctx context.Context, our string, p *node.Process) error {
		return New(our, p, opts...).Run(ctx)
	}
}

// State exposes the actor's state for inspection.
func (a *Actor) State() *ActorState { return &a.state }

// Run is the dispatch loop. It returns nil once ctx is cancelled; no other
// failure stops it.
func (a *Actor) Run(ctx context.Context) error {
	a.log.Info("chat_started")
	for {
		msg, err := a.rt.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				a.log.Info("chat_stopped")
				return nil
			}
			a.fault(&Error{Kind: KindTransport, Op: "receive", Err: err})
			continue
		}
		if err := a.Handle(ctx, msg); err != nil {
			a.fault(err)
		}
	}
}

// Handle classifies and executes one inbound message.
func (a *Actor) Handle(ctx context.Context, msg node.Message) error {
	if !msg.IsRequest() {
		return &Error{Kind: KindProtocolViolation, Op: "classify", Err: ErrUnexpectedResponse}
	}
	cmd, err := DecodeCommand(msg.Body)
	if err != nil {
		return err
	}
	commandsTotal.WithLabelValues(CommandName(cmd)).Inc()

	switch c := cmd.(type) {
	case SendCommand:
		return a.handleSend(ctx, msg, c)
	case HistoryCommand:
		return a.handleHistory(c)
	default:
		return &Error{Kind: KindProtocolViolation, Op: "classify", Err: ErrUnknownCommand}
	}
}

func (a *Actor) handleSend(ctx context.Context, msg node.Message, c SendCommand) error {
	our := a.state.Identity.Node
	if c.Target == our {
		from := msg.Source.Node
		a.log.Info("message_received", "from", from, "content", c.Message)
		a.archive(from, from, c.Message)
	} else {
		if err := a.relay.Forward(ctx, c.Target, msg); err != nil {
			a.log.Warn("relay_failed", "target", c.Target, "error", err)
		}
		a.archive(c.Target, our, c.Message)
	}
	return a.respond(EncodeAck())
}

func (a *Actor) handleHistory(c HistoryCommand) error {
	if c.Node == nil {
		return a.respond(encodeArchive(a.state.Archive.All()))
	}
	return a.respond(encodeHistory(a.state.Archive.Get(*c.Node)))
}

func (a *Actor) archive(conversation, author, content string) {
	a.state.Archive.Append(conversation, author, content)
	archiveEntries.Inc()
	if a.pub != nil {
		a.pub.Publish(NewMessage{Chat: conversation, Author: author, Content: content})
	}
}

func (a *Actor) respond(body []byte) error {
	if err := a.rt.SendResponse(node.Response{Body: body}); err != nil {
		return &Error{Kind: KindTransport, Op: "respond", Err: err}
	}
	return nil
}

func (a *Actor) fault(err error) {
	var ce *Error
	if !errors.As(err, &ce) {
		a.log.Error("chat_error", "error", err)
		return
	}
	switch {
	case ce.Violation():
		violationsTotal.WithLabelValues(violationReason(ce)).Inc()
		a.log.Warn("protocol_violation", "op", ce.Op, "kind", ce.Kind.String(), "error", ce.Err)
	case ce.Kind == KindTransport:
		transportErrorsTotal.Inc()
		a.log.Error("transport_error", "op", ce.Op, "error", ce.Err)
	default:
		a.log.Error("chat_error", "op", ce.Op, "kind", ce.Kind.String(), "error", ce.Err)
	}
}

func violationReason(e *Error) string {
	switch {
	case e.Kind == KindDecode:
		return "decode"
	case errors.Is(e.Err, ErrUnexpectedResponse):
		return "unexpected_response"
	default:
		return "unknown_command"
	}
}
