// Package config loads and saves ~/.tsender/config.json and overlays
// TSENDER_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/kelseyhightower/envconfig"
)

const (
	defaultNetwork        = "anvil"
	defaultAlgorithm      = "fastest"
	defaultApprovalPolicy = "exact"
	defaultConfirmTimeout = 180
	defaultServerAddr     = "127.0.0.1:8080"
	defaultLogLevel       = "warn"

	configFile  = "config.json"
	walletsFile = "wallets.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TSENDER"
)

var (
	rpcAlgorithms    = []string{"fastest", "round-robin", "failover"}
	approvalPolicies = []string{"exact", "unlimited"}
	logLevels        = []string{"debug", "info", "warn", "error"}
)

// Load reads config from dir (or creates defaults). dir defaults to ~/.tsender.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".tsender")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	path := filepath.Join(dir, configFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	if cfg.Contracts == nil {
		cfg.Contracts = make(map[string]string)
	}
	return cfg, nil
}

// ReadEnv reads the TSENDER_* environment.
func ReadEnv() (*Env, error) {
	var e Env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	return &e, nil
}

// ApplyEnv overlays the non-empty fields of e. Overlaid values are runtime
// only: Save writes the file values back unless the field was changed
// after the overlay.
func (c *Config) ApplyEnv(e *Env) {
	if e == nil {
		return
	}
	base := *c
	c.env, c.preEnv = e, &base
	if e.Network != "" {
		c.DefaultNetwork = e.Network
	}
	if e.Wallet != "" {
		c.DefaultWallet = e.Wallet
	}
	if e.RPCURL != "" {
		c.rpcOverride = e.RPCURL
	}
	if e.ApprovalPolicy != "" {
		c.ApprovalPolicy = e.ApprovalPolicy
	}
	if e.ConfirmTimeout > 0 {
		c.ConfirmTimeout = e.ConfirmTimeout
	}
	if e.ServerAddr != "" {
		c.ServerAddr = e.ServerAddr
	}
	if e.LogLevel != "" {
		c.LogLevel = e.LogLevel
	}
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c.persisted(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// persisted returns c with env-overlaid values swapped back for the ones
// loaded from disk.
func (c *Config) persisted() *Config {
	if c.env == nil || c.preEnv == nil {
		return c
	}
	out := *c
	e, base := c.env, c.preEnv
	restore := func(field *string, envVal, orig string) {
		if envVal != "" && *field == envVal {
			*field = orig
		}
	}
	restore(&out.DefaultNetwork, e.Network, base.DefaultNetwork)
	restore(&out.DefaultWallet, e.Wallet, base.DefaultWallet)
	restore(&out.ApprovalPolicy, e.ApprovalPolicy, base.ApprovalPolicy)
	restore(&out.ServerAddr, e.ServerAddr, base.ServerAddr)
	restore(&out.LogLevel, e.LogLevel, base.LogLevel)
	if e.ConfirmTimeout > 0 && out.ConfirmTimeout == e.ConfirmTimeout {
		out.ConfirmTimeout = base.ConfirmTimeout
	}
	return &out
}

// Set updates a single key from its string form, validating the value.
// "contracts.<chain>" sets a TSender override and "rpc.<chain>" adds a
// custom RPC.
func (c *Config) Set(key, value string) error {
	switch {
	case strings.HasPrefix(key, "contracts."):
		name := strings.TrimPrefix(key, "contracts.")
		if value == "" {
			delete(c.Contracts, name)
			return nil
		}
		c.Contracts[name] = value
		return nil
	case strings.HasPrefix(key, "rpc."):
		return c.AddRPC(strings.TrimPrefix(key, "rpc."), value)
	}

	switch key {
	case "default_network":
		c.DefaultNetwork = value
	case "default_wallet":
		c.DefaultWallet = value
	case "rpc_algorithm":
		if !slices.Contains(rpcAlgorithms, value) {
			return fmt.Errorf("invalid rpc_algorithm %q (use %s)", value, strings.Join(rpcAlgorithms, ", "))
		}
		c.RPCAlgorithm = value
	case "approval_policy":
		if !slices.Contains(approvalPolicies, value) {
			return fmt.Errorf("invalid approval_policy %q (use %s)", value, strings.Join(approvalPolicies, ", "))
		}
		c.ApprovalPolicy = value
	case "confirm_timeout":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid confirm_timeout %q (seconds, > 0)", value)
		}
		c.ConfirmTimeout = n
	case "server_addr":
		c.ServerAddr = value
	case "sync_source":
		c.SyncSource = value
	case "log_level":
		if !slices.Contains(logLevels, value) {
			return fmt.Errorf("invalid log_level %q (use %s)", value, strings.Join(logLevels, ", "))
		}
		c.LogLevel = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// AddRPC adds a custom RPC URL for a chain.
func (c *Config) AddRPC(chain, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[chain], url) {
		return fmt.Errorf("RPC %s already exists for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = append(c.CustomRPCs[chain], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a chain.
func (c *Config) RemoveRPC(chain, url string) error {
	rpcs := c.CustomRPCs[chain]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for chain %s", url, chain)
	}
	c.CustomRPCs[chain] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a chain.
func (c *Config) GetRPCs(chain string) []string {
	return c.CustomRPCs[chain]
}

// RPCOverride returns the TSENDER_RPC_URL value, if any.
func (c *Config) RPCOverride() string { return c.rpcOverride }

// ContractTable returns the built-in TSender deployments with the
// configured overrides applied. Override keys are chain names.
func (c *Config) ContractTable(reg *chain.Registry) (chain.ContractTable, error) {
	overrides := make(map[int64]string, len(c.Contracts))
	for name, addr := range c.Contracts {
		ch, err := reg.GetByName(name)
		if err != nil {
			return nil, fmt.Errorf("contracts.%s: unknown network %q", name, name)
		}
		overrides[ch.ChainID] = addr
	}
	return chain.DefaultContracts().With(overrides), nil
}

// ConfirmTimeoutDuration returns ConfirmTimeout as a duration.
func (c *Config) ConfirmTimeoutDuration() time.Duration {
	if c.ConfirmTimeout <= 0 {
		return defaultConfirmTimeout * time.Second
	}
	return time.Duration(c.ConfirmTimeout) * time.Second
}

// Entries returns every key and its current value, sorted by key, for
// `config show`.
func (c *Config) Entries() [][2]string {
	out := [][2]string{
		{"default_network", c.DefaultNetwork},
		{"default_wallet", c.DefaultWallet},
		{"rpc_algorithm", c.RPCAlgorithm},
		{"approval_policy", c.ApprovalPolicy},
		{"confirm_timeout", strconv.Itoa(c.ConfirmTimeout)},
		{"server_addr", c.ServerAddr},
		{"log_level", c.LogLevel},
		{"sync_source", c.SyncSource},
	}
	for name, addr := range c.Contracts {
		out = append(out, [2]string{"contracts." + name, addr})
	}
	for name, urls := range c.CustomRPCs {
		if len(urls) > 0 {
			out = append(out, [2]string{"rpc." + name, strings.Join(urls, ", ")})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is the wallet registry file.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

func defaults(dir string) *Config {
	return &Config{
		DefaultNetwork: defaultNetwork,
		RPCAlgorithm:   defaultAlgorithm,
		ApprovalPolicy: defaultApprovalPolicy,
		ConfirmTimeout: defaultConfirmTimeout,
		ServerAddr:     defaultServerAddr,
		LogLevel:       defaultLogLevel,
		CustomRPCs:     make(map[string][]string),
		Contracts:      make(map[string]string),
		configDir:      dir,
	}
}
