package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync/atomic"

	"chatd/internal/probe"
	"chatd/pkg/address"
	"chatd/pkg/api"
	"chatd/pkg/chat"
	"chatd/pkg/config"
	"chatd/pkg/config/banner"
	"chatd/pkg/logger"
	"chatd/pkg/node"
	"chatd/pkg/router"
	"chatd/pkg/transport"

	"github.com/valyala/fasthttp"
)

// App groups the node, its chat process and the HTTP surface.
type App struct {
	eff     config.EffectiveConfigResult
	version string

	identity address.Address
	peers    *transport.Directory
	client   *transport.Client
	node     *node.Node
	hub      *api.Hub
	deliver  *transport.Server
	prober   *probe.Prober
	router   *router.Router

	srvFast     *fasthttp.Server
	reqCtx      context.Context
	reqCancel   context.CancelFunc
	probeCancel context.CancelFunc
	procCancel  context.CancelFunc
	ready       atomic.Bool
}

// New wires every component from the effective config. Nothing is started
// until Run.
func New(eff config.EffectiveConfigResult, version string) (*App, error) {
	if eff.Config == nil {
		return nil, fmt.Errorf("no configuration")
	}
	cfg := eff.Config

	a := &App{eff: eff, version: version, identity: cfg.Identity()}
	a.reqCtx, a.reqCancel = context.WithCancel(context.Background())
	a.peers = transport.NewDirectory(cfg.Peers)
	a.client = transport.NewClient(a.peers, transport.ClientOptions{DialTimeout: cfg.Transport.DialTimeout.Duration()})
	a.node = node.New(a.identity.Node, a.client)
	a.hub = api.NewHub(64)
	a.deliver = transport.NewServer(a.node, transport.ServerConfig{
		MaxBodySize: int(cfg.Server.MaxBodySize.Int64()),
		RateLimit:   transport.RateLimit{RPS: cfg.Transport.RateLimit.RPS, Burst: cfg.Transport.RateLimit.Burst},
		Context:     a.reqCtx,
	})
	a.prober = probe.New(cfg.Probe, a.peers, a.client)

	a.router = router.New()
	a.deliver.Register(a.router)
	api.New(api.Options{
		Node:    a.node,
		Chat:    a.identity,
		Events:  a.hub,
		Ready:   a.ready.Load,
		Version: version,
		Context: a.reqCtx,
	}).RegisterRoutes(a.router)

	a.srvFast = &fasthttp.Server{
		Name:               "chatd",
		Handler:            a.router.Handler,
		MaxRequestBodySize: int(cfg.Server.MaxBodySize.Int64()) + 1,
		ReadTimeout:        cfg.Server.ReadTimeout.Duration(),
		WriteTimeout:       cfg.Server.WriteTimeout.Duration(),
		CloseOnShutdown:    true,
	}
	return a, nil
}

// Run starts the chat process, probe and HTTP listener and blocks until
// ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp4", a.eff.Config.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.eff.Config.Addr(), err)
	}
	banner.Print(os.Stdout, a.eff, a.version)
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	procCtx, procCancel := context.WithCancel(context.Background())
	a.procCancel = procCancel
	if _, err := a.node.Spawn(procCtx, a.identity.Process, chat.Init(chat.WithPublisher(a.hub))); err != nil {
		return fmt.Errorf("spawn chat process: %w", err)
	}

	a.probeCancel = a.prober.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.srvFast.Serve(ln)
	}()
	a.ready.Store(true)
	logger.Info("chatd_listening", "addr", ln.Addr().String(), "identity", a.identity.String(), "routes", len(a.router.Routes()))

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		a.ready.Store(false)
		return err
	}
}
