package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Mohsinsiddi/tsender/internal/chain"
)

// ErrWrongChain is returned when an endpoint serves a different chain ID
// than the network it was configured for.
var ErrWrongChain = errors.New("endpoint serves a different chain")

// probeTimeout bounds a single endpoint probe.
const probeTimeout = 5 * time.Second

// Probe checks url: it must answer eth_chainId with wantChainID (skipped
// when 0) and report a block number. Latency is the block number round trip.
func Probe(ctx context.Context, url string, wantChainID int64) Endpoint {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	ep := Endpoint{URL: url}
	c := chain.NewEVMClient(url)

	if wantChainID != 0 {
		id, err := c.ChainID(ctx)
		if err != nil {
			ep.Err = err
			return ep
		}
		if id != wantChainID {
			ep.Err = fmt.Errorf("%w: got %d, want %d", ErrWrongChain, id, wantChainID)
			return ep
		}
	}

	ep.Latency, ep.BlockNumber, ep.Err = c.Ping(ctx)
	return ep
}

// ProbeAll probes every URL in parallel. Results keep the order of urls.
func ProbeAll(ctx context.Context, urls []string, wantChainID int64) []Endpoint {
	out := make([]Endpoint, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()
			out[idx] = Probe(ctx, url, wantChainID)
		}(i, u)
	}
	wg.Wait()
	return out
}
