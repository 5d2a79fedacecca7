package cli

import (
	"bytes"
	"encoding/json"
	"net"
	"testing"
	"time"

	"chatd/pkg/router"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type fakeNode struct {
	sent []map[string]string
}

func (f *fakeNode) serve(t *testing.T) *Client {
	t.Helper()
	r := router.New()
	r.POST("/v1/send", func(ctx *fasthttp.RequestCtx) {
		var req map[string]string
		_ = json.Unmarshal(ctx.PostBody(), &req)
		if req["target"] == "" {
			router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "target is required")
			return
		}
		f.sent = append(f.sent, req)
		router.WriteRawJSON(ctx, fasthttp.StatusOK, []byte(`{"Send":null}`))
	})
	r.GET("/v1/history", func(ctx *fasthttp.RequestCtx) {
		router.WriteRawJSON(ctx, fasthttp.StatusOK, []byte(`{"History":{"carol":[{"author":"carol","content":"yo"}],"bob":[{"author":"alice","content":"hi"},{"author":"bob","content":"hey"}]}}`))
	})
	r.GET("/v1/history/{node}", func(ctx *fasthttp.RequestCtx) {
		if router.Param(ctx, "node") != "bob" {
			router.WriteRawJSON(ctx, fasthttp.StatusOK, []byte(`{"History":[]}`))
			return
		}
		router.WriteRawJSON(ctx, fasthttp.StatusOK, []byte(`{"History":[{"author":"alice","content":"hi"}]}`))
	})

	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = (&fasthttp.Server{Handler: r.Handler}).Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	return NewClient("http://alice/", 2*time.Second, func(string) (net.Conn, error) { return ln.Dial() })
}

func runCmd(t *testing.T, c *Client, args ...string) (string, error) {
	t.Helper()
	prev := newClient
	newClient = func(*cobra.Command) *Client { return c }
	defer func() { newClient = prev }()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSendJoinsMessageWords(t *testing.T) {
	f := &fakeNode{}
	c := f.serve(t)

	out, err := runCmd(t, c, "send", "bob", "hello", "there")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, []map[string]string{{"target": "bob", "message": "hello there"}}, f.sent)
}

func TestSendRequiresMessage(t *testing.T) {
	_, err := runCmd(t, (&fakeNode{}).serve(t), "send", "bob")
	assert.Error(t, err)
}

func TestHistoryOutput(t *testing.T) {
	c := (&fakeNode{}).serve(t)

	out, err := runCmd(t, c, "history", "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice: hi\n", out)

	out, err = runCmd(t, c, "history")
	require.NoError(t, err)
	assert.Equal(t, "== bob (2)\nalice: hi\nbob: hey\n\n== carol (1)\ncarol: yo\n", out)
}

func TestExecLine(t *testing.T) {
	f := &fakeNode{}
	c := f.serve(t)
	var out bytes.Buffer

	quit, err := execLine(c, "send bob how are you", &out)
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Equal(t, "how are you", f.sent[0]["message"])

	_, err = execLine(c, "history nobody", &out)
	require.NoError(t, err)
	assert.Empty(t, out.String())

	_, err = execLine(c, "send bob", &out)
	assert.Error(t, err)
	_, err = execLine(c, "dance", &out)
	assert.Error(t, err)

	quit, err = execLine(c, "   ", &out)
	assert.NoError(t, err)
	assert.False(t, quit)

	quit, err = execLine(c, "quit", &out)
	assert.NoError(t, err)
	assert.True(t, quit)
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	c := (&fakeNode{}).serve(t)
	err := c.Send("", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target is required")
}
