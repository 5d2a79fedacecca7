// Package probe periodically checks that configured peers are reachable.
package probe

import (
	"context"
	"sync"
	"time"

	"chatd/pkg/config"
	"chatd/pkg/logger"

	"github.com/adhocore/gronx"
	"github.com/prometheus/client_golang/prometheus"
)

var peerUp = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "chatd_peer_up",
		Help: "1 if the peer answered its last health check, 0 otherwise.",
	},
	[]string{"peer"},
)

func init() {
	prometheus.MustRegister(peerUp)
}

// Pinger checks one peer.
type Pinger interface {
	Ping(ctx context.Context, peer string, timeout time.Duration) error
}

// Peers lists the peers to check.
type Peers interface {
	Names() []string
}

// Prober runs health checks on a cron schedule.
type Prober struct {
	cfg    config.ProbeConfig
	peers  Peers
	pinger Pinger

	mu      sync.Mutex
	running bool
	up      map[string]bool
}

// New builds a prober; call Start to schedule it.
func New(cfg config.ProbeConfig, peers Peers, pinger Pinger) *Prober {
	return &Prober{cfg: cfg, peers: peers, pinger: pinger, up: make(map[string]bool)}
}

// Start runs the schedule loop until ctx or the returned cancel is done.
// A disabled prober returns a no-op cancel.
func (p *Prober) Start(ctx context.Context) context.CancelFunc {
	if !p.cfg.Enabled {
		logger.Info("probe_disabled")
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	logger.Info("probe_enabled", "cron", p.cfg.Cron, "peers", len(p.peers.Names()))
	go p.scheduleLoop(ctx)
	return cancel
}

func (p *Prober) scheduleLoop(ctx context.Context) {
	for {
		next, err := gronx.NextTickAfter(p.cfg.Cron, time.Now(), false)
		if err != nil {
			logger.Error("probe_nexttick_failed", "cron", p.cfg.Cron, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			p.runJob(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Prober) runJob(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	p.RunOnce(ctx)
}

// RunOnce checks every peer now and returns the resulting status.
func (p *Prober) RunOnce(ctx context.Context) map[string]bool {
	timeout := p.cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	for _, peer := range p.peers.Names() {
		err := p.pinger.Ping(ctx, peer, timeout)
		ok := err == nil

		p.mu.Lock()
		prev, seen := p.up[peer]
		p.up[peer] = ok
		p.mu.Unlock()

		if ok {
			peerUp.WithLabelValues(peer).Set(1)
		} else {
			peerUp.WithLabelValues(peer).Set(0)
		}
		switch {
		case !seen && ok:
			logger.Info("peer_up", "peer", peer)
		case !seen:
			logger.Warn("peer_down", "peer", peer, "error", err)
		case prev != ok && ok:
			logger.Info("peer_recovered", "peer", peer)
		case prev != ok:
			logger.Warn("peer_lost", "peer", peer, "error", err)
		}
	}
	return p.Status()
}

// Status returns the last known state of every checked peer.
func (p *Prober) Status() map[string]bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]bool, len(p.up))
	for k, v := range p.up {
		out[k] = v
	}
	return out
}
