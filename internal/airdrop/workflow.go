// Package airdrop runs the approve-then-airdrop submission against a
// TSender contract.
package airdrop

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/Mohsinsiddi/tsender/internal/amount"
	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/ethereum/go-ethereum/common"
)

// Client is the chain access the workflow needs.
type Client interface {
	TokenInfoSource
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (string, error)
	Airdrop(ctx context.Context, tsender, token common.Address, recipients []common.Address, amounts []*big.Int, total *big.Int) (string, error)
	WaitForReceipt(ctx context.Context, hash string) (*chain.TxReceipt, error)
}

// ApprovalPolicy decides how much to approve when the allowance is short.
type ApprovalPolicy string

const (
	// ApproveExact approves exactly the batch total.
	ApproveExact ApprovalPolicy = "exact"
	// ApproveUnlimited approves 2^256-1 so later batches skip the approval.
	ApproveUnlimited ApprovalPolicy = "unlimited"
)

// ParseApprovalPolicy parses "exact" or "unlimited". Empty means exact.
func ParseApprovalPolicy(s string) (ApprovalPolicy, error) {
	switch ApprovalPolicy(s) {
	case "", ApproveExact:
		return ApproveExact, nil
	case ApproveUnlimited:
		return ApproveUnlimited, nil
	}
	return "", fmt.Errorf("unknown approval policy %q (use exact or unlimited)", s)
}

// maxUint256 is 2^256-1, the largest ERC-20 allowance.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func (p ApprovalPolicy) amount(total *big.Int) *big.Int {
	if p == ApproveUnlimited {
		return new(big.Int).Set(maxUint256)
	}
	return new(big.Int).Set(total)
}

// Workflow submits airdrops one at a time.
type Workflow struct {
	client   Client
	cache    *MetadataCache
	policy   ApprovalPolicy
	observer Observer
	logger   *slog.Logger

	inflight sync.Mutex
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithApprovalPolicy sets the approval policy. The default is ApproveExact.
func WithApprovalPolicy(p ApprovalPolicy) Option {
	return func(w *Workflow) { w.policy = p }
}

// WithObserver registers an observer for step events.
func WithObserver(o Observer) Option {
	return func(w *Workflow) { w.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

// WithMetadataCache shares a metadata cache with other consumers.
func WithMetadataCache(c *MetadataCache) Option {
	return func(w *Workflow) { w.cache = c }
}

// New creates a Workflow over client.
func New(client Client, opts ...Option) *Workflow {
	w := &Workflow{
		client: client,
		policy: ApproveExact,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.cache == nil {
		w.cache = NewMetadataCache(client, w.logger)
	}
	return w
}

// Metadata returns the workflow's token metadata cache.
func (w *Workflow) Metadata() *MetadataCache { return w.cache }

// Submit validates req, approves the TSender contract if the current
// allowance is below the total, submits the airdrop and waits for it to be
// mined.
//
// Validation errors return a nil Record. Once a chain call has been made,
// failures return a failed Record alongside a *StepError. A confirmed
// approval is left in place when a later step fails.
func (w *Workflow) Submit(ctx context.Context, env Env, req Request) (*Record, error) {
	if !w.inflight.TryLock() {
		return nil, ErrBusy
	}
	defer w.inflight.Unlock()

	b, err := Prepare(env, req)
	if err != nil {
		return nil, err
	}

	rec := newRecord(b)
	w.cache.Refresh(ctx, b.Token)
	log := w.logger.With("id", rec.ID, "chain_id", b.ChainID, "token", b.Token.Hex())

	start := time.Now()
	allowance, err := w.client.Allowance(ctx, b.Token, b.Account, b.TSender)
	if err != nil {
		return w.fail(rec, b, StepAllowance, err)
	}
	log.Debug("allowance read", "allowance", allowance, "total", b.Total)
	w.emit(rec, StepAllowance, "", start)

	if allowance.Cmp(b.Total) < 0 {
		start = time.Now()
		hash, err := w.client.Approve(ctx, b.Token, b.TSender, w.policy.amount(b.Total))
		if err != nil {
			return w.fail(rec, b, StepApprove, err)
		}
		rec.ApprovalHash = hash
		log.Debug("approval submitted", "hash", hash, "policy", w.policy)
		w.emit(rec, StepApprove, hash, start)

		start = time.Now()
		if _, err := w.confirm(ctx, hash); err != nil {
			return w.fail(rec, b, StepApproveConfirmed, err)
		}
		log.Debug("approval confirmed", "hash", hash)
		w.emit(rec, StepApproveConfirmed, hash, start)
	}

	start = time.Now()
	hash, err := w.client.Airdrop(ctx, b.TSender, b.Token, b.Recipients, b.Amounts, b.Total)
	if err != nil {
		return w.fail(rec, b, StepAirdrop, err)
	}
	rec.Hash = hash
	log.Debug("airdrop submitted", "hash", hash, "recipients", len(b.Recipients))
	w.emit(rec, StepAirdrop, hash, start)

	start = time.Now()
	receipt, err := w.confirm(ctx, hash)
	if receipt != nil {
		rec.GasUsed = receipt.GasUsed
		rec.BlockNumber = receipt.BlockNumber
	}
	if err != nil {
		return w.fail(rec, b, StepAirdropConfirmed, err)
	}

	if info, err := w.cache.Wait(ctx, b.Token); err == nil {
		rec.setToken(info)
	}
	rec.Status = StatusSuccess
	log.Debug("airdrop confirmed", "hash", hash, "block", rec.BlockNumber, "gas_used", rec.GasUsed)
	w.emit(rec, StepAirdropConfirmed, hash, start)
	return rec, nil
}

// confirm waits for hash and treats a mined-but-reverted receipt as an error.
func (w *Workflow) confirm(ctx context.Context, hash string) (*chain.TxReceipt, error) {
	receipt, err := w.client.WaitForReceipt(ctx, hash)
	if err != nil {
		return receipt, err
	}
	if !receipt.Succeeded() {
		return receipt, fmt.Errorf("%w (hash: %s)", chain.ErrTxReverted, hash)
	}
	return receipt, nil
}

func (w *Workflow) fail(rec *Record, b *Batch, step Step, err error) (*Record, error) {
	stepErr := &StepError{Step: step, Err: err}
	rec.Status = StatusFailed
	rec.Err = stepErr.Error()
	if info, ok := w.cache.Get(b.Token); ok {
		rec.setToken(info)
	}
	w.logger.Warn("airdrop failed", "id", rec.ID, "step", step, "error", err)
	if w.observer != nil {
		w.observer.OnStep(Event{
			Step:     StepFailed,
			RecordID: rec.ID,
			ChainID:  rec.ChainID,
			Token:    rec.Token.Address,
			Hash:     rec.Hash,
			Err:      stepErr,
		})
	}
	return rec, stepErr
}

func (w *Workflow) emit(rec *Record, step Step, hash string, start time.Time) {
	if w.observer == nil {
		return
	}
	w.observer.OnStep(Event{
		Step:     step,
		RecordID: rec.ID,
		ChainID:  rec.ChainID,
		Token:    rec.Token.Address,
		Hash:     hash,
		Elapsed:  time.Since(start),
	})
}

// Preview is what a submission would do, computed without sending anything.
type Preview struct {
	ChainID         int64            `json:"chain_id"`
	TSender         string           `json:"tsender"`
	Token           *chain.TokenInfo `json:"token"`
	RecipientCount  int              `json:"recipient_count"`
	Total           *big.Int         `json:"total"`
	TotalFloat      float64          `json:"total_float"`
	FormattedAmount string           `json:"formatted_amount"`
	Allowance       *big.Int         `json:"allowance,omitempty"`
	NeedsApproval   bool             `json:"needs_approval"`
}

// Preview validates req and reads the token metadata, plus the current
// allowance when env has an account. It does not take the submission lock.
func (w *Workflow) Preview(ctx context.Context, env Env, req Request) (*Preview, error) {
	b, err := PrepareReadOnly(env, req)
	if err != nil {
		return nil, err
	}

	p := &Preview{
		ChainID:        b.ChainID,
		TSender:        b.TSender.Hex(),
		RecipientCount: len(b.Recipients),
		Total:          b.Total,
		TotalFloat:     amount.CalculateTotal(req.Amounts),
	}

	info, err := w.cache.Wait(ctx, b.Token)
	if err != nil {
		return nil, &StepError{Step: StepMetadata, Err: err}
	}
	p.Token = info
	p.FormattedAmount = FormatAmount(b.Total, info)

	if b.Account != (common.Address{}) {
		allowance, err := w.client.Allowance(ctx, b.Token, b.Account, b.TSender)
		if err != nil {
			return nil, &StepError{Step: StepAllowance, Err: err}
		}
		p.Allowance = allowance
		p.NeedsApproval = allowance.Cmp(b.Total) < 0
	}
	return p, nil
}
