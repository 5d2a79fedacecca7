// Package transport carries node envelopes between nodes over HTTP.
package transport

import (
	"context"
	"encoding/json"
	"errors"

	"chatd/pkg/logger"
	"chatd/pkg/node"
	"chatd/pkg/router"

	"github.com/valyala/fasthttp"
)

// DeliverPath is the ingress endpoint on every node.
const DeliverPath = "/v1/deliver"

// Deliverer hands an envelope to a local process.
type Deliverer interface {
	Deliver(ctx context.Context, msg node.Message) (node.Message, error)
}

// ServerConfig bounds the deliver endpoint.
type ServerConfig struct {
	MaxBodySize int
	RateLimit   RateLimit
	// Context is the parent of every delivery; cancelling it aborts
	// deliveries still waiting on a local process.
	Context context.Context
}

// Server is the receiving half of the transport.
type Server struct {
	node    Deliverer
	cfg     ServerConfig
	limiter *limiterPool
}

// NewServer wraps a local node.
func NewServer(n Deliverer, cfg ServerConfig) *Server {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	return &Server{node: n, cfg: cfg, limiter: newLimiterPool(cfg.RateLimit)}
}

// Register mounts the deliver endpoint.
func (s *Server) Register(r *router.Router) {
	r.POST(DeliverPath, s.handleDeliver)
}

// Shutdown releases background resources.
func (s *Server) Shutdown() {
	s.limiter.Shutdown()
}

func (s *Server) handleDeliver(ctx *fasthttp.RequestCtx) {
	body := ctx.PostBody()
	if s.cfg.MaxBodySize > 0 && len(body) > s.cfg.MaxBodySize {
		s.fail(ctx, fasthttp.StatusRequestEntityTooLarge, "envelope too large")
		return
	}

	var msg node.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		s.fail(ctx, fasthttp.StatusBadRequest, "invalid envelope")
		return
	}
	if !s.limiter.Allow(msg.Source.Node) {
		logger.Warn("deliver_rate_limited", "source", msg.Source.String())
		s.fail(ctx, fasthttp.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	resp, err := s.node.Deliver(s.cfg.Context, msg)
	switch {
	case errors.Is(err, node.ErrUnknownProcess):
		s.fail(ctx, fasthttp.StatusNotFound, "unknown process "+msg.Target.String())
		return
	case errors.Is(err, context.DeadlineExceeded):
		s.fail(ctx, fasthttp.StatusGatewayTimeout, "no response before timeout")
		return
	case errors.Is(err, context.Canceled):
		s.fail(ctx, fasthttp.StatusServiceUnavailable, "node shutting down")
		return
	case err != nil:
		logger.Error("deliver_failed", "target", msg.Target.String(), "error", err)
		s.fail(ctx, fasthttp.StatusInternalServerError, "delivery failed")
		return
	}

	if !msg.IsRequest() || !msg.ExpectsResponse {
		countStatus(fasthttp.StatusAccepted)
		ctx.SetStatusCode(fasthttp.StatusAccepted)
		return
	}
	countStatus(fasthttp.StatusOK)
	if err := router.WriteJSON(ctx, resp); err != nil {
		logger.Error("deliver_write_failed", "error", err)
	}
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, status int, message string) {
	countStatus(status)
	router.WriteJSONError(ctx, status, message)
}
