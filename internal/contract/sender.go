package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/Mohsinsiddi/tsender/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrReadOnly is returned when a write is attempted without a signer.
var ErrReadOnly = errors.New("no signing wallet configured")

// gasBufferPercent is added on top of eth_estimateGas.
const gasBufferPercent = 20

// Sender signs and broadcasts contract write transactions.
type Sender struct {
	client  *chain.EVMClient
	signer  *wallet.Signer
	chainID *big.Int
	logger  *slog.Logger
}

// NewSender creates a Sender.
func NewSender(client *chain.EVMClient, signer *wallet.Signer, chainID int64, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		client:  client,
		signer:  signer,
		chainID: big.NewInt(chainID),
		logger:  logger,
	}
}

// Send builds an EIP-1559 transaction calling to with calldata, signs it and
// broadcasts it. Returns the transaction hash. A failing gas estimate is an
// error: the call would revert on chain.
func (s *Sender) Send(ctx context.Context, to common.Address, calldata []byte) (string, error) {
	if s.signer == nil {
		return "", ErrReadOnly
	}
	from := s.signer.Address()

	gas, err := s.client.EstimateGas(ctx, from.Hex(), to.Hex(), hexutil.Encode(calldata))
	if err != nil {
		return "", err
	}
	gas += gas * gasBufferPercent / 100

	fees, err := s.client.SuggestFees(ctx)
	if err != nil {
		return "", fmt.Errorf("getting fees: %w", err)
	}

	nonce, err := s.client.PendingNonce(ctx, from.Hex())
	if err != nil {
		return "", fmt.Errorf("getting nonce: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: fees.GasTipCap,
		GasFeeCap: fees.GasFeeCap,
		Gas:       gas,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      calldata,
	})

	signed, err := s.signer.SignTx(tx, s.chainID)
	if err != nil {
		return "", fmt.Errorf("signing transaction: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encoding transaction: %w", err)
	}

	hash, err := s.client.SendRawTransaction(ctx, hexutil.Encode(raw))
	if err != nil {
		return "", fmt.Errorf("broadcasting transaction: %w", err)
	}

	s.logger.Debug("transaction broadcast",
		"hash", hash,
		"to", to.Hex(),
		"nonce", nonce,
		"gas", gas,
		"fee_cap_gwei", chain.WeiToGwei(fees.GasFeeCap),
	)
	return hash, nil
}
