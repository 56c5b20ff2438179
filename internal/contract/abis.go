package contract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// BuiltinKind describes a contract interface whose ABI is embedded in the
// binary. New built-ins register themselves via init() in their own file.
type BuiltinKind struct {
	ID          string  // machine key, e.g. "erc20", "tsender"
	Name        string  // human label
	Description string  // one-line summary
	ABI         abi.ABI // parsed ABI, ready to pack/unpack
}

var builtinRegistry = map[string]BuiltinKind{}

// RegisterBuiltin parses abiJSON and adds it to the registry. It panics on a
// malformed ABI since built-ins are compiled in.
func RegisterBuiltin(id, name, description, abiJSON string) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(fmt.Sprintf("contract: builtin %q has an invalid ABI: %v", id, err))
	}
	builtinRegistry[id] = BuiltinKind{
		ID:          id,
		Name:        name,
		Description: description,
		ABI:         parsed,
	}
}

// GetBuiltin returns a built-in by ID. ok is false if not found.
func GetBuiltin(id string) (BuiltinKind, bool) {
	b, ok := builtinRegistry[id]
	return b, ok
}

// MustBuiltinABI returns the ABI of a registered built-in.
func MustBuiltinABI(id string) abi.ABI {
	b, ok := builtinRegistry[id]
	if !ok {
		panic(fmt.Sprintf("contract: builtin %q not registered", id))
	}
	return b.ABI
}

// AllBuiltins returns all registered built-ins sorted by ID.
func AllBuiltins() []BuiltinKind {
	out := make([]BuiltinKind, 0, len(builtinRegistry))
	for _, b := range builtinRegistry {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
