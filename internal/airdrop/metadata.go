package airdrop

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

// TokenInfoSource fetches token display metadata.
type TokenInfoSource interface {
	TokenInfo(ctx context.Context, token common.Address) (*chain.TokenInfo, error)
}

// MetadataCache holds token metadata keyed by token address. Fetches run in
// the background and only feed display fields, never the submission itself.
type MetadataCache struct {
	src    TokenInfoSource
	logger *slog.Logger

	mu      sync.Mutex
	entries map[common.Address]*metaEntry
}

type metaEntry struct {
	done chan struct{} // closed when the fetch finishes
	info *chain.TokenInfo
	err  error
}

// NewMetadataCache creates an empty cache backed by src.
func NewMetadataCache(src TokenInfoSource, logger *slog.Logger) *MetadataCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetadataCache{
		src:     src,
		logger:  logger,
		entries: make(map[common.Address]*metaEntry),
	}
}

// Refresh starts a background fetch for token unless one is in flight or a
// previous fetch succeeded. Failed fetches are retried on the next call.
func (c *MetadataCache) Refresh(ctx context.Context, token common.Address) {
	c.start(ctx, token)
}

// Get returns the cached metadata for token without blocking.
func (c *MetadataCache) Get(token common.Address) (*chain.TokenInfo, bool) {
	c.mu.Lock()
	e, ok := c.entries[token]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	select {
	case <-e.done:
		return e.info, e.err == nil && e.info != nil
	default:
		return nil, false
	}
}

// Wait returns the metadata for token, fetching it if needed and blocking
// until the fetch completes or ctx is done.
func (c *MetadataCache) Wait(ctx context.Context, token common.Address) (*chain.TokenInfo, error) {
	e := c.start(ctx, token)
	select {
	case <-e.done:
		return e.info, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *MetadataCache) start(ctx context.Context, token common.Address) *metaEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[token]; ok {
		select {
		case <-e.done:
			if e.err == nil {
				return e
			}
		default:
			return e
		}
	}

	e := &metaEntry{done: make(chan struct{})}
	c.entries[token] = e
	go func() {
		defer close(e.done)
		e.info, e.err = c.src.TokenInfo(context.WithoutCancel(ctx), token)
		if e.err != nil {
			c.logger.Debug("token metadata fetch failed", "token", token.Hex(), "error", e.err)
		}
	}()
	return e
}
