// Package ens resolves ENS names in a recipient list to addresses.
package ens

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/tsender/internal/amount"
	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/Mohsinsiddi/tsender/internal/contract"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// RegistryAddr is the ENS registry, the same on Ethereum mainnet and Sepolia.
const RegistryAddr = "0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e"

// ErrNotFound is returned when a name has no resolver or no address record.
var ErrNotFound = errors.New("ENS name not found")

// Resolution records one resolved name.
type Resolution struct {
	Name    string
	Address common.Address
}

// Resolver resolves names through the registry on one network.
type Resolver struct {
	caller   *contract.Caller
	registry common.Address
}

// NewResolver creates a Resolver that talks to client, which must be
// connected to a network with the ENS registry deployed.
func NewResolver(client *chain.EVMClient) *Resolver {
	return &Resolver{
		caller:   contract.NewCaller(client),
		registry: common.HexToAddress(RegistryAddr),
	}
}

// IsName reports whether s looks like an ENS name rather than an address.
func IsName(s string) bool {
	s = strings.TrimSpace(s)
	return strings.Contains(s, ".") && !strings.HasPrefix(strings.ToLower(s), "0x")
}

// HasNames reports whether any entry of a recipient list is an ENS name.
func HasNames(recipients string) bool {
	for _, r := range amount.Split(recipients) {
		if IsName(r) {
			return true
		}
	}
	return false
}

// Resolve returns the address record of name.
func (r *Resolver) Resolve(ctx context.Context, name string) (common.Address, error) {
	node := Namehash(name)

	out, err := r.caller.Call(ctx, "ens-registry", r.registry, "resolver", [32]byte(node))
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS registry for %q: %w", name, err)
	}
	resolver, _ := out[0].(common.Address)
	if resolver == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: no resolver set for %q", ErrNotFound, name)
	}

	out, err = r.caller.Call(ctx, "ens-resolver", resolver, "addr", [32]byte(node))
	if err != nil {
		return common.Address{}, fmt.Errorf("querying ENS resolver for %q: %w", name, err)
	}
	addr, _ := out[0].(common.Address)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: no address record for %q", ErrNotFound, name)
	}
	return addr, nil
}

// ExpandRecipients replaces every ENS name in a recipient list with its
// address and returns the list newline-separated. Addresses pass through
// untouched and order is preserved. Repeated names are resolved once.
func (r *Resolver) ExpandRecipients(ctx context.Context, recipients string) (string, []Resolution, error) {
	entries := amount.Split(recipients)
	seen := make(map[string]common.Address)
	var resolved []Resolution

	for i, e := range entries {
		if !IsName(e) {
			continue
		}
		name := strings.ToLower(e)
		addr, ok := seen[name]
		if !ok {
			var err error
			if addr, err = r.Resolve(ctx, name); err != nil {
				return "", nil, fmt.Errorf("recipient %d: %w", i+1, err)
			}
			seen[name] = addr
			resolved = append(resolved, Resolution{Name: name, Address: addr})
		}
		entries[i] = addr.Hex()
	}
	return strings.Join(entries, "\n"), resolved, nil
}

// Namehash implements the EIP-137 namehash of a lower-cased name.
func Namehash(name string) common.Hash {
	var node common.Hash
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := crypto.Keccak256([]byte(labels[i]))
		node = common.BytesToHash(crypto.Keccak256(node[:], label))
	}
	return node
}
