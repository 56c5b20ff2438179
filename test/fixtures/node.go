// Package fixtures provides an in-process EVM node for the integration and
// end-to-end tests.
package fixtures

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Mohsinsiddi/tsender/internal/contract"
)

// AnvilKey is the first anvil dev account, funded on Node by default.
const (
	AnvilKey  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	AnvilAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	TokenAddr = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
)

// Token is the ERC-20 the node serves at TokenAddr.
type Token struct {
	Name     string
	Symbol   string
	Decimals uint8
}

type allowanceKey struct{ owner, spender common.Address }

type receipt struct {
	status uint64
	block  uint64
}

// Node plays a single-token EVM chain over JSON-RPC. approve transactions
// set allowances, airdropERC20 transactions spend them and move balances,
// and an airdrop without enough allowance is mined as reverted.
type Node struct {
	URL     string
	ChainID int64
	Token   Token

	mu         sync.Mutex
	block      uint64
	nonces     map[common.Address]uint64
	allowances map[allowanceKey]*big.Int
	balances   map[common.Address]*big.Int
	receipts   map[string]receipt
	sent       []*types.Transaction
	failing    map[string]string
	calls      int
}

// NewNode starts a node for chainID that is shut down with the test.
func NewNode(t *testing.T, chainID int64) *Node {
	t.Helper()
	n := &Node{
		ChainID:    chainID,
		Token:      Token{Name: "Mock Token", Symbol: "MOCK", Decimals: 18},
		block:      100,
		nonces:     map[common.Address]uint64{},
		allowances: map[allowanceKey]*big.Int{},
		balances:   map[common.Address]*big.Int{},
		receipts:   map[string]receipt{},
		failing:    map[string]string{},
	}
	n.balances[common.HexToAddress(AnvilAddr)] = new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)
	srv := httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(srv.Close)
	n.URL = srv.URL
	return n
}

// Fail makes every call to the JSON-RPC method return message as an error.
func (n *Node) Fail(method, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failing[method] = message
}

// SetAllowance sets the allowance owner has granted spender on the token.
func (n *Node) SetAllowance(owner, spender string, amount *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.allowances[allowanceKey{common.HexToAddress(owner), common.HexToAddress(spender)}] = new(big.Int).Set(amount)
}

// Allowance returns the allowance owner has granted spender.
func (n *Node) Allowance(owner, spender string) *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.allowance(common.HexToAddress(owner), common.HexToAddress(spender))
}

// Balance returns the token balance of account.
func (n *Node) Balance(account string) *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if b, ok := n.balances[common.HexToAddress(account)]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Sent returns the decoded transactions the node accepted, in order.
func (n *Node) Sent() []*types.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*types.Transaction(nil), n.sent...)
}

// Calls counts the JSON-RPC requests the node has answered.
func (n *Node) Calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

// SentMethods names the contract method of every accepted transaction.
func (n *Node) SentMethods() []string {
	var out []string
	for _, tx := range n.Sent() {
		out = append(out, methodName(tx.Data()))
	}
	return out
}

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     json.RawMessage   `json:"id"`
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	result, err := n.handle(req)

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if err != nil {
		resp["error"] = map[string]interface{}{"code": -32000, "message": err.Error()}
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (n *Node) handle(req rpcRequest) (interface{}, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++

	if msg, ok := n.failing[req.Method]; ok {
		return nil, fmt.Errorf("%s", msg)
	}

	switch req.Method {
	case "eth_chainId":
		return hexutil.EncodeBig(big.NewInt(n.ChainID)), nil
	case "eth_blockNumber":
		return hexutil.EncodeUint64(n.block), nil
	case "eth_gasPrice":
		return "0x3b9aca00", nil
	case "eth_maxPriorityFeePerGas":
		return "0x1", nil
	case "eth_getBlockByNumber":
		return map[string]string{"number": hexutil.EncodeUint64(n.block), "baseFeePerGas": "0x3b9aca00"}, nil
	case "eth_estimateGas":
		return "0x30d40", nil
	case "eth_getTransactionCount":
		var addr string
		_ = json.Unmarshal(req.Params[0], &addr)
		return hexutil.EncodeUint64(n.nonces[common.HexToAddress(addr)]), nil
	case "eth_call":
		var call struct {
			To   string `json:"to"`
			Data string `json:"data"`
		}
		if err := json.Unmarshal(req.Params[0], &call); err != nil {
			return nil, err
		}
		data, err := hexutil.Decode(call.Data)
		if err != nil {
			return nil, err
		}
		out, err := n.call(data)
		if err != nil {
			return nil, err
		}
		return hexutil.Encode(out), nil
	case "eth_sendRawTransaction":
		var raw string
		_ = json.Unmarshal(req.Params[0], &raw)
		return n.apply(raw)
	case "eth_getTransactionReceipt":
		var hash string
		_ = json.Unmarshal(req.Params[0], &hash)
		rc, ok := n.receipts[strings.ToLower(hash)]
		if !ok {
			return nil, nil
		}
		return map[string]string{
			"transactionHash": hash,
			"status":          hexutil.EncodeUint64(rc.status),
			"blockNumber":     hexutil.EncodeUint64(rc.block),
			"gasUsed":         "0x1d4c0",
		}, nil
	}
	return nil, fmt.Errorf("method %s not supported", req.Method)
}

func (n *Node) call(data []byte) ([]byte, error) {
	m, kind, err := lookupMethod(data)
	if err != nil {
		return nil, err
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	switch kind + "." + m.Name {
	case "erc20.name":
		return m.Outputs.Pack(n.Token.Name)
	case "erc20.symbol":
		return m.Outputs.Pack(n.Token.Symbol)
	case "erc20.decimals":
		return m.Outputs.Pack(n.Token.Decimals)
	case "erc20.allowance":
		return m.Outputs.Pack(n.allowance(args[0].(common.Address), args[1].(common.Address)))
	case "erc20.balanceOf":
		bal := n.balances[args[0].(common.Address)]
		if bal == nil {
			bal = new(big.Int)
		}
		return m.Outputs.Pack(bal)
	case "tsender.areListsValid":
		recipients := args[0].([]common.Address)
		amounts := args[1].([]*big.Int)
		return m.Outputs.Pack(len(recipients) > 0 && len(recipients) == len(amounts))
	}
	return nil, fmt.Errorf("execution reverted: %s is not callable", m.Name)
}

func (n *Node) apply(raw string) (interface{}, error) {
	b, err := hexutil.Decode(raw)
	if err != nil {
		return nil, err
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(b); err != nil {
		return nil, err
	}
	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(n.ChainID)), tx)
	if err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if tx.Nonce() != n.nonces[from] {
		return nil, fmt.Errorf("nonce too low: have %d, want %d", tx.Nonce(), n.nonces[from])
	}
	n.nonces[from]++
	n.block++
	n.sent = append(n.sent, tx)

	status := uint64(1)
	if !n.execute(from, tx) {
		status = 0
	}
	hash := tx.Hash().Hex()
	n.receipts[strings.ToLower(hash)] = receipt{status: status, block: n.block}
	return hash, nil
}

// execute applies tx to the token state and reports whether it succeeded.
func (n *Node) execute(from common.Address, tx *types.Transaction) bool {
	m, kind, err := lookupMethod(tx.Data())
	if err != nil {
		return false
	}
	args, err := m.Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		return false
	}
	switch kind + "." + m.Name {
	case "erc20.approve":
		n.allowances[allowanceKey{from, args[0].(common.Address)}] = args[1].(*big.Int)
		return true
	case "tsender.airdropERC20":
		recipients := args[1].([]common.Address)
		amounts := args[2].([]*big.Int)
		total := args[3].(*big.Int)
		key := allowanceKey{from, *tx.To()}
		allowed := n.allowance(from, *tx.To())
		if allowed.Cmp(total) < 0 || len(recipients) != len(amounts) {
			return false
		}
		n.allowances[key] = new(big.Int).Sub(allowed, total)
		for i, to := range recipients {
			n.move(from, to, amounts[i])
		}
		return true
	}
	return false
}

func (n *Node) move(from, to common.Address, amount *big.Int) {
	if n.balances[from] == nil {
		n.balances[from] = new(big.Int)
	}
	if n.balances[to] == nil {
		n.balances[to] = new(big.Int)
	}
	n.balances[from].Sub(n.balances[from], amount)
	n.balances[to].Add(n.balances[to], amount)
}

func (n *Node) allowance(owner, spender common.Address) *big.Int {
	if a, ok := n.allowances[allowanceKey{owner, spender}]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

func lookupMethod(data []byte) (*abi.Method, string, error) {
	if len(data) < 4 {
		return nil, "", fmt.Errorf("execution reverted: no selector")
	}
	for _, kind := range []string{"erc20", "tsender"} {
		parsed := contract.MustBuiltinABI(kind)
		if m, err := parsed.MethodById(data[:4]); err == nil {
			return m, kind, nil
		}
	}
	return nil, "", fmt.Errorf("execution reverted: unknown selector %x", data[:4])
}

func methodName(data []byte) string {
	m, _, err := lookupMethod(data)
	if err != nil {
		return ""
	}
	return m.Name
}
