// Package discovery implements the periodic UDP broadcast sender and
// receiver (C4): each peer advertises its own interface addresses and
// listens for others, building an observable set of peers.
package discovery

import (
	"net"
	"sync"
	"time"
)

// PeerSet is a mapping of IPv4 address to last-heard timestamp. It is
// mutated by the receiver loop only; every access goes through a
// read/write mutex, so any number of goroutines may call Snapshot
// concurrently with that writer.
type PeerSet struct {
	mu    sync.RWMutex
	peers map[string]time.Time
}

// NewPeerSet builds an empty peer set.
func NewPeerSet() *PeerSet {
	return &PeerSet{peers: make(map[string]time.Time)}
}

// add records addr as last heard now. Duplicates are allowed — this just
// refreshes the timestamp.
func (p *PeerSet) add(addr net.IP, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.peers[addr.String()] = now
}

// Snapshot returns a copy of the current peer set.
func (p *PeerSet) Snapshot() map[string]time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]time.Time, len(p.peers))
	for k, v := range p.peers {
		out[k] = v
	}
	return out
}
