// Package api is the operator HTTP surface of a chat node.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"chatd/pkg/address"
	"chatd/pkg/chat"
	"chatd/pkg/logger"
	"chatd/pkg/node"
	"chatd/pkg/router"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Caller sends a request to a process and waits for its response.
type Caller interface {
	Call(ctx context.Context, from, to address.Address, req node.Request) (node.Message, error)
}

// Options wires the API to a node.
type Options struct {
	Node Caller
	// Chat is the address of the local chat actor.
	Chat address.Address
	// Events feeds GET /v1/events; nil disables the stream.
	Events *Hub
	// Ready reports whether the node can serve traffic.
	Ready   func() bool
	Version string
	// Heartbeat is the idle interval between event-stream comments.
	Heartbeat time.Duration
	// Context is the parent of every call into the chat actor.
	Context context.Context
}

// API holds the handlers.
type API struct {
	opts Options
	from address.Address
}

var eventSubscribers = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "chatd_event_subscribers",
		Help: "Open event-stream connections.",
	},
)

func init() {
	prometheus.MustRegister(eventSubscribers)
}

// New builds the API. Requests are sent to the chat actor from the api
// process on the same node.
func New(opts Options) *API {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 15 * time.Second
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Ready == nil {
		opts.Ready = func() bool { return true }
	}
	from := address.Address{Node: opts.Chat.Node, Process: address.ProcessID{Process: "api", Package: "chatd", Publisher: opts.Chat.Process.Publisher}}
	return &API{opts: opts, from: from}
}

// RegisterRoutes mounts every operator route.
func (a *API) RegisterRoutes(r *router.Router) {
	r.GET("/healthz", a.healthz)
	r.GET("/readyz", a.readyz)
	r.GET("/metrics", wrapHTTPHandler(promhttp.Handler()))
	r.GET("/debug/pprof/", wrapHTTPHandler(http.HandlerFunc(pprof.Index)))
	r.GET("/debug/pprof/cmdline", wrapHTTPHandler(http.HandlerFunc(pprof.Cmdline)))
	r.GET("/debug/pprof/profile", wrapHTTPHandler(http.HandlerFunc(pprof.Profile)))
	r.GET("/debug/pprof/symbol", wrapHTTPHandler(http.HandlerFunc(pprof.Symbol)))
	r.GET("/debug/pprof/trace", wrapHTTPHandler(http.HandlerFunc(pprof.Trace)))

	r.POST("/v1/send", a.send)
	r.GET("/v1/history", a.history)
	r.GET("/v1/history/{node}", a.history)
	r.GET("/v1/events", a.events)
}

// wrapHTTPHandler adapts a net/http handler to fasthttp.
func wrapHTTPHandler(h http.Handler) fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(h)
}

func (a *API) healthz(ctx *fasthttp.RequestCtx) {
	router.WriteRawJSON(ctx, fasthttp.StatusOK, []byte(`{"status":"ok"}`))
}

func (a *API) readyz(ctx *fasthttp.RequestCtx) {
	if !a.opts.Ready() {
		router.WriteRawJSON(ctx, fasthttp.StatusServiceUnavailable, []byte(`{"status":"not ready"}`))
		return
	}
	ver := a.opts.Version
	if ver == "" {
		ver = "dev"
	}
	_ = router.WriteJSON(ctx, map[string]string{"status": "ok", "node": a.opts.Chat.Node, "version": ver})
}

type sendRequest struct {
	Target  string `json:"target"`
	Message string `json:"message"`
}

func (a *API) send(ctx *fasthttp.RequestCtx) {
	var req sendRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Target = strings.TrimSpace(req.Target)
	if req.Target == "" {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "target is required")
		return
	}
	a.call(ctx, chat.EncodeSend(req.Target, req.Message))
}

func (a *API) history(ctx *fasthttp.RequestCtx) {
	a.call(ctx, chat.EncodeHistory(router.Param(ctx, "node")))
}

// call forwards body to the chat actor and relays its reply verbatim. The
// actor may itself be relaying for up to 5s, so allow a little longer.
func (a *API) call(ctx *fasthttp.RequestCtx, body []byte) {
	resp, err := a.opts.Node.Call(a.opts.Context, a.from, a.opts.Chat, node.Request{Body: body, Timeout: chat.RelayTimeout + 2*time.Second})
	if err != nil {
		var se *node.SendError
		if errors.As(err, &se) && se.Kind == node.Timeout {
			router.WriteJSONError(ctx, fasthttp.StatusGatewayTimeout, "chat actor did not respond")
			return
		}
		if errors.Is(err, context.Canceled) {
			router.WriteJSONError(ctx, fasthttp.StatusServiceUnavailable, "node shutting down")
			return
		}
		logger.Error("api_call_failed", "target", a.opts.Chat.String(), "error", err)
		router.WriteJSONError(ctx, fasthttp.StatusServiceUnavailable, "chat actor unavailable")
		return
	}
	router.WriteRawJSON(ctx, fasthttp.StatusOK, resp.Body)
}

func (a *API) events(ctx *fasthttp.RequestCtx) {
	if a.opts.Events == nil {
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, "event stream disabled")
		return
	}
	ch, cancel := a.opts.Events.Subscribe()
	heartbeat := a.opts.Heartbeat

	ctx.SetContentType("text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")
	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		eventSubscribers.Inc()
		defer eventSubscribers.Dec()
		defer cancel()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		if _, err := w.WriteString(": connected\n\n"); err != nil || w.Flush() != nil {
			return
		}
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				if err := writeEvent(w, m); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil || w.Flush() != nil {
					return
				}
			}
		}
	})
}

func writeEvent(w *bufio.Writer, m chat.NewMessage) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: message\ndata: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}
