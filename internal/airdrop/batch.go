package airdrop

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/tsender/internal/amount"
	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

// Env is the wallet and network context a submission runs in.
type Env struct {
	ChainID   int64
	Account   string // connected account; "" when no wallet is connected
	Contracts chain.ContractTable
}

// Request is the raw form input: a token address plus the recipient and
// amount lists as typed or pasted (comma or newline separated).
type Request struct {
	Token      string `json:"token"`
	Recipients string `json:"recipients"`
	Amounts    string `json:"amounts"`
}

// Batch is a validated Request, ready to submit.
type Batch struct {
	ChainID    int64
	TSender    common.Address
	Token      common.Address
	Account    common.Address
	Recipients []common.Address
	Amounts    []*big.Int
	Total      *big.Int
}

// Prepare resolves the TSender contract for env.ChainID and validates req.
// It never touches the network.
func Prepare(env Env, req Request) (*Batch, error) {
	return prepare(env, req, true)
}

// PrepareReadOnly is Prepare without the connected-account requirement, for
// previews and on-chain list checks. Batch.Account is zero when env has no
// account.
func PrepareReadOnly(env Env, req Request) (*Batch, error) {
	return prepare(env, req, false)
}

// ResolveTSender returns the TSender contract for env.ChainID. Callers that
// read the chain before Prepare, such as recipient name resolution, check it
// first so an unsupported network makes no calls at all.
func ResolveTSender(env Env) (common.Address, error) {
	tsender, ok := env.Contracts.Lookup(env.ChainID)
	if !ok {
		return common.Address{}, fmt.Errorf("%w (chain id %d)", ErrUnsupportedChain, env.ChainID)
	}
	addr, ok := parseAddress(tsender)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: TSender contract %q for chain id %d", ErrInvalidAddress, tsender, env.ChainID)
	}
	return addr, nil
}

func prepare(env Env, req Request, needAccount bool) (*Batch, error) {
	tsender, err := ResolveTSender(env)
	if err != nil {
		return nil, err
	}

	b := &Batch{ChainID: env.ChainID, TSender: tsender}
	if needAccount || env.Account != "" {
		if strings.TrimSpace(env.Account) == "" {
			return nil, ErrNotConnected
		}
		acct, ok := parseAddress(env.Account)
		if !ok {
			return nil, fmt.Errorf("%w: account %q", ErrInvalidAddress, env.Account)
		}
		b.Account = acct
	}

	var ok bool
	if b.Token, ok = parseAddress(req.Token); !ok {
		return nil, fmt.Errorf("%w: token %q", ErrInvalidAddress, req.Token)
	}

	entries := amount.Split(req.Recipients)
	b.Recipients = make([]common.Address, 0, len(entries))
	for i, e := range entries {
		addr, ok := parseAddress(e)
		if !ok {
			return nil, fmt.Errorf("%w: recipient %d (%q)", ErrInvalidAddress, i+1, e)
		}
		b.Recipients = append(b.Recipients, addr)
	}

	if b.Amounts, b.Total, err = amount.ParseWei(req.Amounts); err != nil {
		return nil, err
	}
	if len(b.Recipients) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(b.Recipients) != len(b.Amounts) {
		return nil, fmt.Errorf("%w: %d recipients, %d amounts", ErrLengthMismatch, len(b.Recipients), len(b.Amounts))
	}
	return b, nil
}

// parseAddress accepts 0x-prefixed 20-byte hex in any letter case.
func parseAddress(s string) (common.Address, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, false
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}
