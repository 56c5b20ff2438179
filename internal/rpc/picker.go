// Package rpc chooses which JSON-RPC endpoint of a network to talk to.
package rpc

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNoHealthyRPC is returned when no endpoint is usable.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Endpoints more than this many blocks behind the highest one are stale.
	staleBlockThreshold = 3
	// How long a fastest-pick winner is reused before probing again.
	cacheTTL = 5 * time.Minute
)

// ParseAlgorithm parses a configured algorithm name. Empty means fastest.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return AlgorithmFastest, nil
	case AlgorithmFastest, AlgorithmRoundRobin, AlgorithmFailover:
		return a, nil
	}
	return "", fmt.Errorf("unknown RPC algorithm %q", s)
}

// Endpoint is a probed RPC URL.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Err         error // nil when the probe succeeded
}

// Healthy reports whether the probe succeeded.
func (e Endpoint) Healthy() bool { return e.Err == nil }

// Picker selects an endpoint according to its algorithm. It is safe for
// concurrent use; round-robin state and the fastest-pick cache live here.
type Picker struct {
	algo Algorithm

	mu        sync.Mutex
	next      int
	cached    string
	cachedTil time.Time
	now       func() time.Time
}

// NewPicker creates a Picker.
func NewPicker(algo Algorithm) *Picker {
	return &Picker{algo: algo, now: time.Now}
}

// Algorithm returns the picker's algorithm.
func (p *Picker) Algorithm() Algorithm { return p.algo }

// Cached returns the URL of a still-fresh fastest pick, if any.
func (p *Picker) Cached() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached == "" || !p.now().Before(p.cachedTil) {
		return "", false
	}
	return p.cached, true
}

// Pick selects one of endpoints. Unhealthy and stale endpoints are never
// picked.
func (p *Picker) Pick(endpoints []Endpoint) (Endpoint, error) {
	live := usable(endpoints)
	if len(live) == 0 {
		return Endpoint{}, ErrNoHealthyRPC
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.algo {
	case AlgorithmFailover:
		return live[0], nil
	case AlgorithmRoundRobin:
		e := live[p.next%len(live)]
		p.next = (p.next + 1) % len(live)
		return e, nil
	default:
		sort.SliceStable(live, func(i, j int) bool {
			if live[i].Latency != live[j].Latency {
				return live[i].Latency < live[j].Latency
			}
			return live[i].BlockNumber > live[j].BlockNumber
		})
		p.cached = live[0].URL
		p.cachedTil = p.now().Add(cacheTTL)
		return live[0], nil
	}
}

// usable keeps healthy endpoints within staleBlockThreshold of the highest
// block, in their original order.
func usable(endpoints []Endpoint) []Endpoint {
	var best uint64
	for _, e := range endpoints {
		if e.Healthy() && e.BlockNumber > best {
			best = e.BlockNumber
		}
	}
	out := make([]Endpoint, 0, len(endpoints))
	for _, e := range endpoints {
		if !e.Healthy() || best-e.BlockNumber > staleBlockThreshold {
			continue
		}
		out = append(out, e)
	}
	return out
}
