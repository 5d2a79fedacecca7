package transport

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimit is the per-source-node allowance on the deliver endpoint.
// A non-positive RPS disables limiting.
type RateLimit struct {
	RPS   float64
	Burst int
}

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// limiterPool keeps one token bucket per key and forgets keys that have
// been idle longer than ttl.
type limiterPool struct {
	mu            sync.Mutex
	m             map[string]*limiterEntry
	cfg           RateLimit
	startCleanup  sync.Once
	ttl           time.Duration
	cleanupPeriod time.Duration
	stopOnce      sync.Once
	stopCh        chan struct{}
}

func newLimiterPool(cfg RateLimit) *limiterPool {
	return &limiterPool{
		m:             make(map[string]*limiterEntry),
		cfg:           cfg,
		ttl:           10 * time.Minute,
		cleanupPeriod: time.Minute,
		stopCh:        make(chan struct{}),
	}
}

func (p *limiterPool) get(key string, now time.Time) *rate.Limiter {
	p.startCleanup.Do(func() { go p.cleanupLoop() })

	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.m[key]; ok {
		e.lastSeen = now
		return e.l
	}
	burst := p.cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	l := rate.NewLimiter(rate.Limit(p.cfg.RPS), burst)
	p.m[key] = &limiterEntry{l: l, lastSeen: now}
	return l
}

// Allow reports whether key may make another request now.
func (p *limiterPool) Allow(key string) bool {
	if p.cfg.RPS <= 0 {
		return true
	}
	now := time.Now()
	return p.get(key, now).AllowN(now, 1)
}

// Shutdown stops the cleanup goroutine.
func (p *limiterPool) Shutdown() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

func (p *limiterPool) cleanupLoop() {
	ticker := time.NewTicker(p.cleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			p.sweep(now)
		case <-p.stopCh:
			return
		}
	}
}

func (p *limiterPool) sweep(now time.Time) {
	cutoff := now.Add(-p.ttl)
	p.mu.Lock()
	for k, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, k)
		}
	}
	p.mu.Unlock()
}
