package api

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"chatd/pkg/address"
	"chatd/pkg/chat"
	"chatd/pkg/node"
	"chatd/pkg/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

var chatAddr = address.Parse("alice@chat:chat:template.os")

type fixture struct {
	router *router.Router
	hub    *Hub
	ready  bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &fixture{router: router.New(), hub: NewHub(8), ready: true}
	n := node.New("alice", nil)
	_, err := n.Spawn(ctx, chatAddr.Process, chat.Init(chat.WithPublisher(f.hub)))
	require.NoError(t, err)

	New(Options{
		Node:      n,
		Chat:      chatAddr,
		Events:    f.hub,
		Ready:     func() bool { return f.ready },
		Version:   "test",
		Heartbeat: 50 * time.Millisecond,
	}).RegisterRoutes(f.router)
	return f
}

func (f *fixture) do(method, path, body string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	ctx.Request.SetBodyString(body)
	f.router.Handler(&ctx)
	return &ctx
}

func TestSendToSelfThenHistory(t *testing.T) {
	f := newFixture(t)

	ctx := f.do("POST", "/v1/send", `{"target":"alice","message":"note to self"}`)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, `{"Send":null}`, string(ctx.Response.Body()))

	ctx = f.do("GET", "/v1/history/alice", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"History":[{"author":"alice","content":"note to self"}]}`, string(ctx.Response.Body()))

	ctx = f.do("GET", "/v1/history/bob", "")
	assert.JSONEq(t, `{"History":[]}`, string(ctx.Response.Body()))
}

func TestSendToUnreachablePeerStillAcks(t *testing.T) {
	f := newFixture(t)

	ctx := f.do("POST", "/v1/send", `{"target":"bob","message":"anyone?"}`)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, `{"Send":null}`, string(ctx.Response.Body()))

	ctx = f.do("GET", "/v1/history", "")
	assert.JSONEq(t, `{"History":{"bob":[{"author":"alice","content":"anyone?"}]}}`, string(ctx.Response.Body()))
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, fasthttp.StatusBadRequest, f.do("POST", "/v1/send", `{`).Response.StatusCode())
	assert.Equal(t, fasthttp.StatusBadRequest, f.do("POST", "/v1/send", `{"target":"  ","message":"x"}`).Response.StatusCode())
}

func TestHealthAndReadiness(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, fasthttp.StatusOK, f.do("GET", "/healthz", "").Response.StatusCode())

	ctx := f.do("GET", "/readyz", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"status":"ok","node":"alice","version":"test"}`, string(ctx.Response.Body()))

	f.ready = false
	assert.Equal(t, fasthttp.StatusServiceUnavailable, f.do("GET", "/readyz", "").Response.StatusCode())
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do("GET", "/v1/history", "")

	ctx := f.do("GET", "/metrics", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "chatd_commands_total")
}

func TestEventStream(t *testing.T) {
	f := newFixture(t)

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: f.router.Handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	hc := &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) { return ln.Dial() },
	}}
	resp, err := hc.Get("http://alice/v1/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewReader(resp.Body)
	first, err := lines.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", first)
	require.Eventually(t, func() bool { return f.hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	f.do("POST", "/v1/send", `{"target":"alice","message":"ping"}`)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		line, err := lines.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			assert.JSONEq(t, `{"chat":"alice","author":"alice","content":"ping"}`, strings.TrimPrefix(strings.TrimSpace(line), "data: "))
			return
		}
	}
	t.Fatal("no event received")
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	h := NewHub(1)
	slow, _ := h.Subscribe()
	fast, cancelFast := h.Subscribe()
	defer cancelFast()

	h.Publish(chat.NewMessage{Chat: "bob", Content: "1"})
	<-fast
	h.Publish(chat.NewMessage{Chat: "bob", Content: "2"})

	assert.Equal(t, 1, h.Len())
	m, ok := <-slow
	assert.True(t, ok)
	assert.Equal(t, "1", m.Content)
	_, ok = <-slow
	assert.False(t, ok)
}

func TestHubCloseAndCancel(t *testing.T) {
	h := NewHub(1)
	ch, cancel := h.Subscribe()
	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)

	ch2, _ := h.Subscribe()
	h.Close()
	_, ok = <-ch2
	assert.False(t, ok)

	ch3, _ := h.Subscribe()
	_, ok = <-ch3
	assert.False(t, ok)
	assert.Zero(t, h.Len())
}

func TestCallAbortedByParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := node.New("alice", nil)
	_, err := n.Spawn(ctx, chatAddr.Process, func(ctx context.Context, our string, p *node.Process) error {
		for {
			if _, err := p.Receive(ctx); err != nil && ctx.Err() != nil {
				return nil
			}
		}
	})
	require.NoError(t, err)

	parent, stop := context.WithCancel(context.Background())
	r := router.New()
	New(Options{Node: n, Chat: chatAddr, Context: parent}).RegisterRoutes(r)

	time.AfterFunc(100*time.Millisecond, stop)
	start := time.Now()
	var rctx fasthttp.RequestCtx
	rctx.Request.Header.SetMethod("GET")
	rctx.Request.SetRequestURI("/v1/history")
	r.Handler(&rctx)

	assert.Equal(t, fasthttp.StatusServiceUnavailable, rctx.Response.StatusCode())
	assert.Less(t, time.Since(start), 2*time.Second)
}
