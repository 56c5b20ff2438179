package chain

import (
	"context"
	"math/big"
)

// Fees are the EIP-1559 fee parameters for a new transaction.
type Fees struct {
	BaseFee   *big.Int // nil on chains without EIP-1559
	GasTipCap *big.Int
	GasFeeCap *big.Int
}

// BaseFee returns the base fee of the latest block, or nil when the chain
// does not report one.
func (c *EVMClient) BaseFee(ctx context.Context) (*big.Int, error) {
	var header *struct {
		BaseFeePerGas string `json:"baseFeePerGas"`
	}
	if err := c.call(ctx, &header, "eth_getBlockByNumber", "latest", false); err != nil {
		return nil, err
	}
	if header == nil || header.BaseFeePerGas == "" {
		return nil, nil
	}
	bf, ok := parseBigHex(header.BaseFeePerGas)
	if !ok {
		return nil, nil
	}
	return bf, nil
}

// SuggestFees returns a tip and fee cap for a transaction that should land
// within a few blocks: feeCap = 2*baseFee + tip. Chains that do not expose a
// base fee or a priority fee fall back to eth_gasPrice for both values.
func (c *EVMClient) SuggestFees(ctx context.Context) (*Fees, error) {
	baseFee, err := c.BaseFee(ctx)
	if err != nil || baseFee == nil {
		return c.legacyFees(ctx)
	}
	tip, err := c.MaxPriorityFee(ctx)
	if err != nil {
		return c.legacyFees(ctx)
	}
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	feeCap.Add(feeCap, tip)
	return &Fees{BaseFee: baseFee, GasTipCap: tip, GasFeeCap: feeCap}, nil
}

func (c *EVMClient) legacyFees(ctx context.Context) (*Fees, error) {
	gp, err := c.GasPrice(ctx)
	if err != nil {
		return nil, err
	}
	return &Fees{GasTipCap: gp, GasFeeCap: new(big.Int).Set(gp)}, nil
}

// WeiToGwei converts a wei amount to gwei for display.
func WeiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e9)).Float64()
	return f
}
