package chain

import (
	"errors"
	"sort"
	"strings"
)

// ErrChainNotFound is returned when a chain is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// Chain holds all metadata for a single EVM network.
type Chain struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	ChainID        int64    `json:"chain_id"`
	NativeCurrency string   `json:"native_currency"`
	RPCs           []string `json:"rpcs"`
	Explorer       string   `json:"explorer"`
	Testnet        bool     `json:"testnet"`
}

// TxURL returns the explorer link for a transaction hash, or "" when the
// chain has no explorer.
func (c *Chain) TxURL(hash string) string {
	if c.Explorer == "" {
		return ""
	}
	return c.Explorer + "/tx/" + hash
}

// Registry is the chain registry.
type Registry struct {
	chains []Chain
	byName map[string]*Chain
	byID   map[int64]*Chain
}

// NewRegistry returns the registry of every network tsender knows about.
func NewRegistry() *Registry {
	chains := allChains()
	r := &Registry{
		chains: chains,
		byName: make(map[string]*Chain, len(chains)),
		byID:   make(map[int64]*Chain, len(chains)),
	}
	for i := range r.chains {
		c := &r.chains[i]
		r.byName[c.Name] = c
		r.byID[c.ChainID] = c
	}
	return r
}

// All returns every chain in the registry.
func (r *Registry) All() []Chain {
	return r.chains
}

// GetByName finds a chain by its slug name (e.g. "base", "ethereum").
func (r *Registry) GetByName(name string) (*Chain, error) {
	c, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// GetByChainID finds a chain by its numeric chain ID.
func (r *Registry) GetByChainID(id int64) (*Chain, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// ContractTable maps a chain ID to the TSender contract deployed on it.
// A chain without an entry is unsupported.
type ContractTable map[int64]string

// DefaultContracts returns the known TSender deployments.
func DefaultContracts() ContractTable {
	return ContractTable{
		31337: "0x5FbDB2315678afecb367f032d93F642f64180aa3", // anvil, first deployment from the default key
		1:     "0x3aD9F29AB266E4828450B33df7a9B9D7355Cd821",
		10:    "0xAaf523DF9455cC7B6ca5637D01624BC00a5e9fAa",
		324:   "0x7e645Ea4386deb2E9e510D805461aA12db83fb5E",
		8453:  "0x31801c3e09708549c1b2c9E1CFbF001399a1B9fa",
		42161: "0xA2b5aEDF7EEF6469AB9cBD99DE24a6881702Eb19",
	}
}

// Lookup returns the TSender address for chainID.
func (t ContractTable) Lookup(chainID int64) (string, bool) {
	addr, ok := t[chainID]
	if !ok || addr == "" {
		return "", false
	}
	return addr, true
}

// With returns a copy of t with overrides applied on top.
func (t ContractTable) With(overrides map[int64]string) ContractTable {
	out := make(ContractTable, len(t)+len(overrides))
	for id, addr := range t {
		out[id] = addr
	}
	for id, addr := range overrides {
		out[id] = addr
	}
	return out
}

// ChainIDs returns the supported chain IDs in ascending order.
func (t ContractTable) ChainIDs() []int64 {
	ids := make([]int64, 0, len(t))
	for id, addr := range t {
		if addr != "" {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// --- chain data ---

func allChains() []Chain {
	return []Chain{
		{
			Name: "anvil", DisplayName: "Anvil", ChainID: 31337,
			NativeCurrency: "ETH",
			RPCs:           []string{"http://127.0.0.1:8545"},
			Testnet:        true,
		},
		{
			Name: "ethereum", DisplayName: "Ethereum", ChainID: 1,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com"},
			Explorer:       "https://etherscan.io",
		},
		{
			Name: "sepolia", DisplayName: "Sepolia", ChainID: 11155111,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://rpc.sepolia.org", "https://sepolia.gateway.tenderly.co"},
			Explorer:       "https://sepolia.etherscan.io",
			Testnet:        true,
		},
		{
			Name: "arbitrum", DisplayName: "Arbitrum One", ChainID: 42161,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://arb1.arbitrum.io/rpc", "https://arbitrum-one-rpc.publicnode.com"},
			Explorer:       "https://arbiscan.io",
		},
		{
			Name: "optimism", DisplayName: "Optimism", ChainID: 10,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://mainnet.optimism.io", "https://optimism-rpc.publicnode.com"},
			Explorer:       "https://optimistic.etherscan.io",
		},
		{
			Name: "base", DisplayName: "Base", ChainID: 8453,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://mainnet.base.org", "https://base.llamarpc.com"},
			Explorer:       "https://basescan.org",
		},
		{
			Name: "zksync", DisplayName: "zkSync Era", ChainID: 324,
			NativeCurrency: "ETH",
			RPCs:           []string{"https://mainnet.era.zksync.io"},
			Explorer:       "https://explorer.zksync.io",
		},
	}
}
