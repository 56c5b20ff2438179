package contract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrEmptyResult is returned when a read call comes back with no data,
// which usually means the target address has no code.
var ErrEmptyResult = errors.New("empty call result")

// Caller calls read-only (view/pure) functions of built-in contracts.
type Caller struct {
	client *chain.EVMClient
}

// NewCaller creates a Caller on top of an RPC client.
func NewCaller(client *chain.EVMClient) *Caller {
	return &Caller{client: client}
}

// Call packs method with args using the ABI of the built-in kind, runs it
// with eth_call against to and returns the unpacked outputs.
func (c *Caller) Call(ctx context.Context, kind string, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	b, ok := GetBuiltin(kind)
	if !ok {
		return nil, fmt.Errorf("unknown contract kind %q", kind)
	}
	fn, ok := b.ABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("function %q not found in %s ABI", method, kind)
	}
	if !fn.IsConstant() {
		return nil, fmt.Errorf("function %q is not a read function (stateMutability: %s)", method, fn.StateMutability)
	}

	calldata, err := b.ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}

	result, err := c.client.CallContract(ctx, to.Hex(), hexutil.Encode(calldata))
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}

	raw, err := hexutil.Decode(result)
	if err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", method, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s on %s: %w", method, to.Hex(), ErrEmptyResult)
	}

	out, err := b.ABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", method, err)
	}
	return out, nil
}

// Allowance returns how much of token spender may move on owner's behalf.
func (c *Caller) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := c.Call(ctx, "erc20", token, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	n, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("allowance: unexpected output %T", out[0])
	}
	return n, nil
}

// BalanceOf returns the token balance of account.
func (c *Caller) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	out, err := c.Call(ctx, "erc20", token, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	n, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf: unexpected output %T", out[0])
	}
	return n, nil
}

// TokenInfo reads name, symbol and decimals. decimals is required; name and
// symbol fall back to the bytes32 variant and then to "".
func (c *Caller) TokenInfo(ctx context.Context, token common.Address) (*chain.TokenInfo, error) {
	out, err := c.Call(ctx, "erc20", token, "decimals")
	if err != nil {
		return nil, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return nil, fmt.Errorf("decimals: unexpected output %T", out[0])
	}

	return &chain.TokenInfo{
		Address:  token.Hex(),
		Name:     c.textField(ctx, token, "name"),
		Symbol:   c.textField(ctx, token, "symbol"),
		Decimals: decimals,
	}, nil
}

func (c *Caller) textField(ctx context.Context, token common.Address, method string) string {
	if out, err := c.Call(ctx, "erc20", token, method); err == nil {
		if s, ok := out[0].(string); ok {
			return s
		}
	}
	if out, err := c.Call(ctx, "erc20-bytes32", token, method); err == nil {
		if b, ok := out[0].([32]byte); ok {
			return string(bytes.TrimRight(b[:], "\x00"))
		}
	}
	return ""
}
