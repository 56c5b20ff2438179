package contract

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/Mohsinsiddi/tsender/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultConfirmTimeout bounds how long WaitForReceipt waits for mining.
const DefaultConfirmTimeout = 3 * time.Minute

// Client is the chain client the airdrop workflow runs against: ERC-20
// reads, approve / airdropERC20 writes and receipt waiting, all over one
// JSON-RPC endpoint.
type Client struct {
	evm            *chain.EVMClient
	caller         *Caller
	sender         *Sender
	confirmTimeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithConfirmTimeout overrides DefaultConfirmTimeout.
func WithConfirmTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.confirmTimeout = d
		}
	}
}

// NewClient builds a Client. signer may be nil for a read-only client, in
// which case writes fail with ErrReadOnly.
func NewClient(evm *chain.EVMClient, signer *wallet.Signer, chainID int64, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		evm:            evm,
		caller:         NewCaller(evm),
		confirmTimeout: DefaultConfirmTimeout,
	}
	if signer != nil {
		c.sender = NewSender(evm, signer, chainID, logger)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Allowance reads token.allowance(owner, spender).
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return c.caller.Allowance(ctx, token, owner, spender)
}

// BalanceOf reads token.balanceOf(account).
func (c *Client) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	return c.caller.BalanceOf(ctx, token, account)
}

// TokenInfo reads the token's name, symbol and decimals.
func (c *Client) TokenInfo(ctx context.Context, token common.Address) (*chain.TokenInfo, error) {
	return c.caller.TokenInfo(ctx, token)
}

// Approve submits token.approve(spender, amount).
func (c *Client) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (string, error) {
	if c.sender == nil {
		return "", ErrReadOnly
	}
	data, err := MustBuiltinABI("erc20").Pack("approve", spender, amount)
	if err != nil {
		return "", fmt.Errorf("encoding approve: %w", err)
	}
	return c.sender.Send(ctx, token, data)
}

// Airdrop submits tsender.airdropERC20(token, recipients, amounts, total).
func (c *Client) Airdrop(ctx context.Context, tsender, token common.Address, recipients []common.Address, amounts []*big.Int, total *big.Int) (string, error) {
	if c.sender == nil {
		return "", ErrReadOnly
	}
	data, err := MustBuiltinABI("tsender").Pack("airdropERC20", token, recipients, amounts, total)
	if err != nil {
		return "", fmt.Errorf("encoding airdropERC20: %w", err)
	}
	return c.sender.Send(ctx, tsender, data)
}

// WaitForReceipt blocks until hash is mined, the confirm timeout passes or
// ctx is cancelled.
func (c *Client) WaitForReceipt(ctx context.Context, hash string) (*chain.TxReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()
	return c.evm.WaitForReceipt(ctx, hash)
}

// ListsValid asks the TSender contract whether recipients and amounts form a
// batch it would accept. The check is pure and costs no gas.
func (c *Client) ListsValid(ctx context.Context, tsender common.Address, recipients []common.Address, amounts []*big.Int) (bool, error) {
	out, err := c.caller.Call(ctx, "tsender", tsender, "areListsValid", recipients, amounts)
	if err != nil {
		return false, err
	}
	ok, _ := out[0].(bool)
	return ok, nil
}
