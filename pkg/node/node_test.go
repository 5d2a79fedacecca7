package node

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatd/pkg/address"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var echoPID = address.ProcessID{Process: "echo", Package: "chat", Publisher: "template.os"}

// echo answers every request with its own body.
func echo(ctx context.Context, our string, p *Process) error {
	for {
		msg, err := p.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		if msg.IsRequest() {
			_ = p.SendResponse(Response{Body: msg.Body})
		}
	}
}

// silent receives requests and never answers them.
func silent(ctx context.Context, our string, p *Process) error {
	for {
		if _, err := p.Receive(ctx); err != nil && ctx.Err() != nil {
			return nil
		}
	}
}

type fakeTransport struct {
	got []Message
	err error
}

func (f *fakeTransport) Deliver(ctx context.Context, msg Message) (Message, error) {
	f.got = append(f.got, msg)
	if f.err != nil {
		return Message{}, f.err
	}
	return Message{ID: msg.ID, Source: msg.Target, Target: msg.Source, Kind: KindResponse, Body: []byte(`{"Send":null}`)}, nil
}

func TestCallLocalRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := New("alice", nil)
	p, err := n.Spawn(ctx, echoPID, echo)
	require.NoError(t, err)
	assert.Equal(t, "alice@echo:chat:template.os", p.Address().String())

	from := address.Parse("alice@api:chat:template.os")
	resp, err := n.Call(ctx, from, p.Address(), Request{Body: []byte("ping"), Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, KindResponse, resp.Kind)
	assert.Equal(t, []byte("ping"), resp.Body)
	assert.Equal(t, from, resp.Target)
	assert.NotEmpty(t, resp.ID)
}

func TestSpawnDuplicate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := New("alice", nil)
	_, err := n.Spawn(ctx, echoPID, echo)
	require.NoError(t, err)
	_, err = n.Spawn(ctx, echoPID, echo)
	assert.ErrorIs(t, err, ErrProcessExists)
}

func TestCallTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := New("alice", nil)
	p, err := n.Spawn(ctx, echoPID, silent)
	require.NoError(t, err)

	_, err = n.Call(ctx, address.Parse("alice@api:chat:template.os"), p.Address(), Request{Body: []byte("x"), Timeout: 50 * time.Millisecond})
	var se *SendError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, Timeout, se.Kind)
}

func TestCallUnknownProcessIsOffline(t *testing.T) {
	n := New("alice", nil)
	_, err := n.Call(context.Background(), address.Parse("alice@api:chat:template.os"), address.Parse("alice@nope:chat:template.os"), Request{})
	var se *SendError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, Offline, se.Kind)
	assert.ErrorIs(t, err, ErrUnknownProcess)
}

func TestCallRemoteUsesTransport(t *testing.T) {
	tr := &fakeTransport{}
	n := New("alice", tr)
	to := address.Parse("bob@chat:chat:template.os")

	resp, err := n.Call(context.Background(), address.Parse("alice@chat:chat:template.os"), to, Request{Body: []byte("hi"), Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, `{"Send":null}`, string(resp.Body))
	require.Len(t, tr.got, 1)
	assert.Equal(t, to, tr.got[0].Target)
	assert.Equal(t, uint64(5), tr.got[0].Timeout)
	assert.True(t, tr.got[0].ExpectsResponse)
}

func TestCallRemoteWithoutTransport(t *testing.T) {
	n := New("alice", nil)
	_, err := n.Call(context.Background(), address.Parse("alice@chat:chat:template.os"), address.Parse("bob@chat:chat:template.os"), Request{})
	var se *SendError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, Offline, se.Kind)
	assert.ErrorIs(t, err, ErrNoTransport)
}

func TestSendResponseWithoutRequest(t *testing.T) {
	n := New("alice", nil)
	p := &Process{node: n, addr: address.Parse("alice@x:y:z"), inbox: make(chan delivery, 1)}
	assert.ErrorIs(t, p.SendResponse(Response{}), ErrNoPendingRequest)
}

func TestSendResponseOnlyOnce(t *testing.T) {
	n := New("alice", nil)
	p := &Process{node: n, addr: address.Parse("alice@x:y:z"), inbox: make(chan delivery, 1)}
	reply := make(chan Message, 1)
	p.inbox <- delivery{msg: Message{ID: "1", Kind: KindRequest, ExpectsResponse: true}, reply: reply}

	_, err := p.Receive(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.SendResponse(Response{Body: []byte("a")}))
	assert.ErrorIs(t, p.SendResponse(Response{Body: []byte("b")}), ErrNoPendingRequest)
	assert.Equal(t, "1", (<-reply).ID)
}

func TestSendFailureSurfacesOnReceive(t *testing.T) {
	n := New("alice", &fakeTransport{err: errors.New("connection refused")})
	p := &Process{node: n, addr: address.Parse("alice@x:y:z"), inbox: make(chan delivery, 1)}

	p.Send(context.Background(), address.Parse("bob@x:y:z"), Request{Body: []byte("hi")})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := p.Receive(ctx)
	var se *SendError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, Offline, se.Kind)
}

func TestMessageDeadline(t *testing.T) {
	assert.Equal(t, DefaultTimeout, Message{}.Deadline())
	assert.Equal(t, 3*time.Second, Message{Timeout: 3}.Deadline())
	assert.Equal(t, uint64(1), timeoutSeconds(10*time.Millisecond))
	assert.Equal(t, uint64(5), timeoutSeconds(0))
}

func TestDeliverToFullInboxHonoursTimeout(t *testing.T) {
	n := New("alice", nil)
	p := &Process{node: n, addr: address.Parse("alice@echo:chat:template.os"), inbox: make(chan delivery, 1)}
	n.procs[echoPID] = p
	p.inbox <- delivery{}

	msg := Message{Target: p.Address(), Kind: KindRequest, Timeout: 1, Body: []byte("x")}
	start := time.Now()
	_, err := n.Deliver(context.Background(), msg)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = n.Deliver(ctx, Message{Target: p.Address(), Kind: KindResponse})
	assert.ErrorIs(t, err, context.Canceled)
}
