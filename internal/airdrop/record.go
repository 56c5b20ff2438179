package airdrop

import (
	"math/big"

	"github.com/Mohsinsiddi/tsender/internal/amount"
	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/google/uuid"
)

// Status is the outcome of a submission.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Record describes one submission attempt. It lives in memory only and a
// new attempt always starts from a fresh Record.
type Record struct {
	ID              string          `json:"id"`
	ChainID         int64           `json:"chain_id"`
	Hash            string          `json:"hash,omitempty"`
	ApprovalHash    string          `json:"approval_hash,omitempty"`
	Status          Status          `json:"status"`
	Token           chain.TokenInfo `json:"token"`
	Total           *big.Int        `json:"total"`
	FormattedAmount string          `json:"formatted_amount"`
	RecipientCount  int             `json:"recipient_count"`
	GasUsed         uint64          `json:"gas_used,omitempty"`
	BlockNumber     uint64          `json:"block_number,omitempty"`
	Err             string          `json:"error,omitempty"`
}

func newRecord(b *Batch) *Record {
	r := &Record{
		ID:             uuid.NewString(),
		ChainID:        b.ChainID,
		Status:         StatusPending,
		Token:          chain.TokenInfo{Address: b.Token.Hex()},
		Total:          new(big.Int).Set(b.Total),
		RecipientCount: len(b.Recipients),
	}
	r.FormattedAmount = FormatAmount(r.Total, nil)
	return r
}

func (r *Record) setToken(info *chain.TokenInfo) {
	if info == nil {
		return
	}
	r.Token = *info
	r.FormattedAmount = FormatAmount(r.Total, info)
}

// FormatAmount renders a raw total in whole tokens with the symbol, or in
// wei when the token metadata is unknown.
func FormatAmount(total *big.Int, info *chain.TokenInfo) string {
	if info == nil {
		return amount.FormatUnits(total, 0) + " wei"
	}
	s := amount.FormatUnits(total, int(info.Decimals))
	if info.Symbol != "" {
		s += " " + info.Symbol
	}
	return s
}
