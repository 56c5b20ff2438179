// Package sync pulls TSender deployment addresses from a remote manifest
// into the config's contract overrides.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/Mohsinsiddi/tsender/internal/config"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNoSource is returned by Run when no manifest URL is configured.
var ErrNoSource = errors.New("no sync source configured, run: tsender sync set-source <url>")

// contractName is the manifest key holding TSender deployments.
const contractName = "tsender"

// Manifest is the structure of a deployments.json manifest:
// contract name → network name → entry.
type Manifest struct {
	Contracts map[string]map[string]ManifestEntry `json:"contracts"`
}

// ManifestEntry is a single contract deployment entry.
type ManifestEntry struct {
	Address string `json:"address"`
}

// Result summarises a sync run.
type Result struct {
	Updated []string // networks whose override changed
	Skipped []string // "network: reason"
}

// Syncer fetches a manifest and applies it to the config.
type Syncer struct {
	cfg    *config.Config
	reg    *chain.Registry
	client *http.Client
	logger *slog.Logger
}

// New creates a new Syncer.
func New(cfg *config.Config, reg *chain.Registry, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		cfg:    cfg,
		reg:    reg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Run fetches the manifest from the configured source, applies its TSender
// entries as contract overrides and saves the config.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	if s.cfg.SyncSource == "" {
		return nil, ErrNoSource
	}

	manifest, err := s.fetchManifest(ctx, s.cfg.SyncSource)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}

	res := s.apply(manifest)
	s.cfg.LastSynced = time.Now().UTC().Format(time.RFC3339)
	if err := s.cfg.Save(); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}
	return res, nil
}

// SetSource sets the remote manifest URL.
func (s *Syncer) SetSource(url string) error {
	s.cfg.SyncSource = url
	return s.cfg.Save()
}

// Watch runs Run on a ticker until ctx is cancelled. Failures after the
// first run are logged and retried on the next tick.
func (s *Syncer) Watch(ctx context.Context, interval time.Duration) error {
	if _, err := s.Run(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			res, err := s.Run(ctx)
			if err != nil {
				s.logger.Warn("sync failed", "source", s.cfg.SyncSource, "error", err)
				continue
			}
			if len(res.Updated) > 0 {
				s.logger.Info("contracts updated", "networks", res.Updated)
			}
		}
	}
}

func (s *Syncer) apply(m *Manifest) *Result {
	res := &Result{}
	entries := m.Contracts[contractName]

	networks := make([]string, 0, len(entries))
	for n := range entries {
		networks = append(networks, n)
	}
	sort.Strings(networks)

	for _, network := range networks {
		addr := entries[network].Address
		if _, err := s.reg.GetByName(network); err != nil {
			res.Skipped = append(res.Skipped, network+": unknown network")
			continue
		}
		if !common.IsHexAddress(addr) {
			res.Skipped = append(res.Skipped, fmt.Sprintf("%s: invalid address %q", network, addr))
			continue
		}
		checksummed := common.HexToAddress(addr).Hex()
		if s.cfg.Contracts[network] == checksummed {
			continue
		}
		s.cfg.Contracts[network] = checksummed
		res.Updated = append(res.Updated, network)
	}
	return res
}

func (s *Syncer) fetchManifest(ctx context.Context, url string) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}
