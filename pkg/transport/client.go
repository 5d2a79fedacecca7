package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"chatd/pkg/node"

	"github.com/valyala/fasthttp"
)

// ErrUnknownPeer is returned for a node missing from the directory.
var ErrUnknownPeer = errors.New("transport: unknown peer")

// ClientOptions configures the sending half of the transport.
type ClientOptions struct {
	DialTimeout time.Duration
	// Dial overrides how connections are opened.
	Dial fasthttp.DialFunc
}

// Client posts envelopes to peer nodes. It implements node.Transport.
type Client struct {
	hc    *fasthttp.Client
	peers *Directory
}

// NewClient builds a client over a peer directory.
func NewClient(peers *Directory, opts ClientOptions) *Client {
	dial := opts.Dial
	if dial == nil {
		timeout := opts.DialTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		dial = func(addr string) (net.Conn, error) {
			return fasthttp.DialTimeout(addr, timeout)
		}
	}
	return &Client{
		hc:    &fasthttp.Client{Name: "chatd", Dial: dial},
		peers: peers,
	}
}

// Deliver sends msg to the node named by its target and returns the
// response envelope.
func (c *Client) Deliver(ctx context.Context, msg node.Message) (node.Message, error) {
	base, ok := c.peers.Lookup(msg.Target.Node)
	if !ok {
		return node.Message{}, fmt.Errorf("%w: %s", ErrUnknownPeer, msg.Target.Node)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return node.Message{}, fmt.Errorf("encode envelope: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(base + DeliverPath)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := c.do(ctx, req, resp, msg.Deadline()); err != nil {
		return node.Message{}, err
	}

	switch code := resp.StatusCode(); code {
	case fasthttp.StatusOK:
		var out node.Message
		if err := json.Unmarshal(resp.Body(), &out); err != nil {
			return node.Message{}, fmt.Errorf("decode response from %s: %w", msg.Target.Node, err)
		}
		return out, nil
	case fasthttp.StatusAccepted:
		return node.Message{}, nil
	case fasthttp.StatusGatewayTimeout:
		return node.Message{}, fmt.Errorf("peer %s: %w", msg.Target.Node, context.DeadlineExceeded)
	case fasthttp.StatusNotFound:
		return node.Message{}, fmt.Errorf("peer %s: %w", msg.Target.Node, node.ErrUnknownProcess)
	default:
		return node.Message{}, fmt.Errorf("peer %s: status %d: %s", msg.Target.Node, code, resp.Body())
	}
}

// Ping checks a peer's health endpoint.
func (c *Client) Ping(ctx context.Context, peer string, timeout time.Duration) error {
	base, ok := c.peers.Lookup(peer)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, peer)
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(base + "/healthz")
	req.Header.SetMethod(fasthttp.MethodGet)
	if err := c.do(ctx, req, resp, timeout); err != nil {
		return err
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return fmt.Errorf("peer %s: status %d", peer, code)
	}
	return nil
}

// do runs the request bounded by the earlier of ctx's deadline and timeout.
func (c *Client) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error {
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}
	err := c.hc.DoTimeout(req, resp, timeout)
	if errors.Is(err, fasthttp.ErrTimeout) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}
