package transport

import (
	"sort"
	"strings"
	"sync"
)

// Directory maps peer node names to their base URLs.
type Directory struct {
	mu    sync.RWMutex
	peers map[string]string
}

// NewDirectory copies peers into a new directory.
func NewDirectory(peers map[string]string) *Directory {
	d := &Directory{peers: make(map[string]string, len(peers))}
	for name, url := range peers {
		d.Set(name, url)
	}
	return d
}

// Set adds or replaces a peer.
func (d *Directory) Set(name, baseURL string) {
	d.mu.Lock()
	d.peers[name] = strings.TrimRight(baseURL, "/")
	d.mu.Unlock()
}

// Lookup returns the base URL for a peer.
func (d *Directory) Lookup(name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.peers[name]
	return u, ok
}

// Names returns every peer name, sorted.
func (d *Directory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.peers))
	for name := range d.peers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
