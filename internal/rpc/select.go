package rpc

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Mohsinsiddi/tsender/internal/chain"
)

// Candidates lists the URLs to try for ch: an explicit override alone, or
// the custom URLs followed by the built-in ones, without duplicates.
func Candidates(ch *chain.Chain, custom []string, override string) []string {
	if override != "" {
		return []string{override}
	}
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{custom, ch.RPCs} {
		for _, u := range list {
			u = strings.TrimSpace(u)
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

// Select probes urls against ch's chain ID and returns the endpoint the
// picker chooses. A single URL is still probed so a wrong-chain endpoint
// is caught before anything is signed for it.
func Select(ctx context.Context, p *Picker, ch *chain.Chain, urls []string) (Endpoint, error) {
	if len(urls) == 0 {
		return Endpoint{}, fmt.Errorf("%s: %w", ch.Name, ErrNoHealthyRPC)
	}
	if url, ok := p.Cached(); ok && slices.Contains(urls, url) {
		return Endpoint{URL: url}, nil
	}

	endpoints := ProbeAll(ctx, urls, ch.ChainID)
	ep, err := p.Pick(endpoints)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%s: %w%s", ch.Name, err, firstFailure(endpoints))
	}
	return ep, nil
}

func firstFailure(endpoints []Endpoint) string {
	for _, e := range endpoints {
		if e.Err != nil {
			return fmt.Sprintf(" (%s: %v)", e.URL, e.Err)
		}
	}
	return ""
}
