package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"chatd/pkg/chat"

	"github.com/valyala/fasthttp"
)

// Client talks to the operator API of one node.
type Client struct {
	base    string
	hc      *fasthttp.Client
	timeout time.Duration
}

// NewClient builds a client for the node at base. dial may be nil.
func NewClient(base string, timeout time.Duration, dial fasthttp.DialFunc) *Client {
	return &Client{
		base:    strings.TrimRight(base, "/"),
		hc:      &fasthttp.Client{Name: "chatctl", Dial: dial},
		timeout: timeout,
	}
}

// Send asks the node's chat actor to deliver message to target.
func (c *Client) Send(target, message string) error {
	body, err := json.Marshal(map[string]string{"target": target, "message": message})
	if err != nil {
		return err
	}
	reply, err := c.do(fasthttp.MethodPost, "/v1/send", body)
	if err != nil {
		return err
	}
	if !reply.Ack {
		return fmt.Errorf("unexpected reply from %s", c.base)
	}
	return nil
}

// History fetches one conversation, or the whole archive when node is
// empty.
func (c *Client) History(node string) (chat.Reply, error) {
	path := "/v1/history"
	if node != "" {
		path += "/" + url.PathEscape(node)
	}
	return c.do(fasthttp.MethodGet, path, nil)
}

func (c *Client) do(method, path string, body []byte) (chat.Reply, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.base + path)
	req.Header.SetMethod(method)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}
	if err := c.hc.DoTimeout(req, resp, c.timeout); err != nil {
		return chat.Reply{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(resp.Body(), &e) == nil && e.Error != "" {
			return chat.Reply{}, fmt.Errorf("%s %s: %d: %s", method, path, code, e.Error)
		}
		return chat.Reply{}, fmt.Errorf("%s %s: status %d", method, path, code)
	}
	return chat.DecodeReply(resp.Body())
}
