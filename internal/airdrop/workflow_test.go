package airdrop

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	account   = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	tokenAddr = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
	tsender   = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	alice     = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	bob       = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"

	approveHash = "0xaaaa"
	airdropHash = "0xbbbb"
)

// ---------------------------------------------------------------------------
// fake chain client
// ---------------------------------------------------------------------------

type fakeClient struct {
	mu    sync.Mutex
	calls []string

	allowance    *big.Int
	allowanceErr error
	approveErr   error
	airdropErr   error
	receipts     map[string]*chain.TxReceipt

	info       *chain.TokenInfo
	infoErr    error
	infoCalls  int
	infoGate   chan struct{}
	allowGate  chan struct{}
	allowEnter chan struct{}

	approved *big.Int
	batch    struct {
		tsender, token common.Address
		recipients     []common.Address
		amounts        []*big.Int
		total          *big.Int
	}
}

func newFakeClient(allowance int64) *fakeClient {
	return &fakeClient{
		allowance: big.NewInt(allowance),
		receipts: map[string]*chain.TxReceipt{
			approveHash: {Hash: approveHash, Status: 1, BlockNumber: 9, GasUsed: 46_000},
			airdropHash: {Hash: airdropHash, Status: 1, BlockNumber: 10, GasUsed: 81_000},
		},
		info: &chain.TokenInfo{Address: tokenAddr, Name: "Mock Token", Symbol: "MOCK", Decimals: 18},
	}
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) TokenInfo(ctx context.Context, token common.Address) (*chain.TokenInfo, error) {
	if f.infoGate != nil {
		<-f.infoGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoCalls++
	return f.info, f.infoErr
}

func (f *fakeClient) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	f.record("allowance")
	if f.allowEnter != nil {
		close(f.allowEnter)
	}
	if f.allowGate != nil {
		<-f.allowGate
	}
	return f.allowance, f.allowanceErr
}

func (f *fakeClient) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (string, error) {
	f.record("approve")
	f.approved = amount
	if f.approveErr != nil {
		return "", f.approveErr
	}
	return approveHash, nil
}

func (f *fakeClient) Airdrop(ctx context.Context, ts, token common.Address, recipients []common.Address, amounts []*big.Int, total *big.Int) (string, error) {
	f.record("airdrop")
	f.batch.tsender, f.batch.token = ts, token
	f.batch.recipients, f.batch.amounts, f.batch.total = recipients, amounts, total
	if f.airdropErr != nil {
		return "", f.airdropErr
	}
	return airdropHash, nil
}

func (f *fakeClient) WaitForReceipt(ctx context.Context, hash string) (*chain.TxReceipt, error) {
	f.record("wait " + hash)
	return f.receipts[hash], nil
}

func testEnv() Env {
	return Env{
		ChainID:   31337,
		Account:   account,
		Contracts: chain.ContractTable{31337: tsender},
	}
}

func testRequest() Request {
	return Request{
		Token:      tokenAddr,
		Recipients: alice + ",\n" + bob,
		Amounts:    "10000000000000000000\n50000000000000000000",
	}
}

var total60 = new(big.Int).Mul(big.NewInt(60), big.NewInt(1e18))

// ---------------------------------------------------------------------------
// approval branch
// ---------------------------------------------------------------------------

func TestSubmitSkipsApprovalWhenAllowanceCovers(t *testing.T) {
	fc := newFakeClient(0)
	fc.allowance = new(big.Int).Set(total60)

	rec, err := New(fc).Submit(context.Background(), testEnv(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{"allowance", "airdrop", "wait " + airdropHash}, fc.Calls())
	assert.Nil(t, fc.approved)

	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Equal(t, airdropHash, rec.Hash)
	assert.Empty(t, rec.ApprovalHash)
	assert.Equal(t, uint64(81_000), rec.GasUsed)
	assert.Equal(t, uint64(10), rec.BlockNumber)
	assert.Equal(t, 2, rec.RecipientCount)
	assert.Equal(t, 0, rec.Total.Cmp(total60))
	assert.Equal(t, "Mock Token", rec.Token.Name)
	assert.Equal(t, "60 MOCK", rec.FormattedAmount)
	assert.NotEmpty(t, rec.ID)
}

func TestSubmitApprovesBeforeAirdrop(t *testing.T) {
	fc := newFakeClient(5)

	rec, err := New(fc).Submit(context.Background(), testEnv(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"allowance",
		"approve",
		"wait " + approveHash,
		"airdrop",
		"wait " + airdropHash,
	}, fc.Calls())
	assert.Equal(t, 0, fc.approved.Cmp(total60), "exact policy approves the total")
	assert.Equal(t, approveHash, rec.ApprovalHash)

	assert.Equal(t, common.HexToAddress(tsender), fc.batch.tsender)
	assert.Equal(t, common.HexToAddress(tokenAddr), fc.batch.token)
	assert.Equal(t, []common.Address{common.HexToAddress(alice), common.HexToAddress(bob)}, fc.batch.recipients)
	assert.Equal(t, 0, fc.batch.total.Cmp(total60))
}

func TestSubmitUnlimitedApproval(t *testing.T) {
	fc := newFakeClient(0)

	_, err := New(fc, WithApprovalPolicy(ApproveUnlimited)).Submit(context.Background(), testEnv(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, 0, fc.approved.Cmp(maxUint256))
	assert.Equal(t, 256, fc.approved.BitLen())
}

func TestSubmitAllowanceEqualToTotalSkipsApproval(t *testing.T) {
	fc := newFakeClient(0)
	fc.allowance = new(big.Int).Set(total60)
	_, err := New(fc).Submit(context.Background(), testEnv(), testRequest())
	require.NoError(t, err)
	assert.NotContains(t, fc.Calls(), "approve")
}

// ---------------------------------------------------------------------------
// configuration and validation
// ---------------------------------------------------------------------------

func TestSubmitUnsupportedChainMakesNoCalls(t *testing.T) {
	fc := newFakeClient(0)
	env := testEnv()
	env.ChainID = 11155111

	rec, err := New(fc).Submit(context.Background(), env, testRequest())
	require.ErrorIs(t, err, ErrUnsupportedChain)
	assert.Nil(t, rec)
	assert.Empty(t, fc.Calls())
	assert.Equal(t, KindConfig, Kind(err))
}

func TestSubmitValidationMakesNoCalls(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Env, *Request)
		want   error
	}{
		{"not connected", func(e *Env, _ *Request) { e.Account = "" }, ErrNotConnected},
		{"bad account", func(e *Env, _ *Request) { e.Account = "0x123" }, ErrInvalidAddress},
		{"bad token", func(_ *Env, r *Request) { r.Token = "not-an-address" }, ErrInvalidAddress},
		{"token without prefix", func(_ *Env, r *Request) { r.Token = tokenAddr[2:] }, ErrInvalidAddress},
		{"bad tsender mapping", func(e *Env, _ *Request) { e.Contracts = chain.ContractTable{31337: "0xnope"} }, ErrInvalidAddress},
		{"bad recipient", func(_ *Env, r *Request) { r.Recipients = alice + ",0xzz" }, ErrInvalidAddress},
		{"bad amount", func(_ *Env, r *Request) { r.Amounts = "10,abc" }, ErrInvalidAmount},
		{"decimal amount", func(_ *Env, r *Request) { r.Amounts = "10,2.5" }, ErrInvalidAmount},
		{"count mismatch", func(_ *Env, r *Request) { r.Amounts = "10" }, ErrLengthMismatch},
		{"empty batch", func(_ *Env, r *Request) { r.Recipients, r.Amounts = "", "" }, ErrEmptyBatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFakeClient(0)
			env, req := testEnv(), testRequest()
			tt.mutate(&env, &req)

			rec, err := New(fc).Submit(context.Background(), env, req)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, rec)
			assert.Empty(t, fc.Calls())
			assert.Equal(t, KindValidation, Kind(err))
		})
	}
}

// ---------------------------------------------------------------------------
// remote failures
// ---------------------------------------------------------------------------

func TestSubmitAllowanceReadFails(t *testing.T) {
	fc := newFakeClient(0)
	fc.allowanceErr = errors.New("connection refused")

	rec, err := New(fc).Submit(context.Background(), testEnv(), testRequest())
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepAllowance, stepErr.Step)
	assert.Equal(t, KindRemote, Kind(err))
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, []string{"allowance"}, fc.Calls())
}

func TestSubmitRevertedApprovalAborts(t *testing.T) {
	fc := newFakeClient(0)
	fc.receipts[approveHash].Status = 0

	rec, err := New(fc).Submit(context.Background(), testEnv(), testRequest())
	require.ErrorIs(t, err, chain.ErrTxReverted)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepApproveConfirmed, stepErr.Step)
	assert.NotContains(t, fc.Calls(), "airdrop")
	assert.Equal(t, approveHash, rec.ApprovalHash)
	assert.Equal(t, StatusFailed, rec.Status)
}

func TestSubmitAirdropFailureKeepsApprovalAndCachedMetadata(t *testing.T) {
	fc := newFakeClient(0)
	fc.airdropErr = errors.New("nonce too low")

	cache := NewMetadataCache(fc, nil)
	_, err := cache.Wait(context.Background(), common.HexToAddress(tokenAddr))
	require.NoError(t, err)

	rec, err := New(fc, WithMetadataCache(cache)).Submit(context.Background(), testEnv(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonce too low")

	assert.Equal(t, []string{"allowance", "approve", "wait " + approveHash, "airdrop"}, fc.Calls())
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, approveHash, rec.ApprovalHash)
	assert.Empty(t, rec.Hash)
	assert.Equal(t, "MOCK", rec.Token.Symbol)
	assert.Equal(t, "60 MOCK", rec.FormattedAmount)
	assert.Contains(t, rec.Err, "airdrop: nonce too low")
}

func TestSubmitRevertedAirdropRecordsReceipt(t *testing.T) {
	fc := newFakeClient(0)
	fc.allowance = new(big.Int).Set(total60)
	fc.receipts[airdropHash].Status = 0

	rec, err := New(fc).Submit(context.Background(), testEnv(), testRequest())
	require.ErrorIs(t, err, chain.ErrTxReverted)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, airdropHash, rec.Hash)
	assert.Equal(t, uint64(81_000), rec.GasUsed)
	assert.Equal(t, uint64(10), rec.BlockNumber)
}

func TestSubmitWithoutMetadataFormatsWei(t *testing.T) {
	fc := newFakeClient(0)
	fc.allowanceErr = errors.New("boom")
	fc.infoGate = make(chan struct{})
	defer close(fc.infoGate)

	rec, err := New(fc).Submit(context.Background(), testEnv(), testRequest())
	require.Error(t, err)
	assert.Equal(t, "60000000000000000000 wei", rec.FormattedAmount)
	assert.Equal(t, common.HexToAddress(tokenAddr).Hex(), rec.Token.Address)
}

// ---------------------------------------------------------------------------
// concurrency
// ---------------------------------------------------------------------------

func TestSubmitRejectsOverlap(t *testing.T) {
	fc := newFakeClient(0)
	fc.allowance = new(big.Int).Set(total60)
	fc.allowEnter = make(chan struct{})
	fc.allowGate = make(chan struct{})

	w := New(fc)
	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background(), testEnv(), testRequest())
		done <- err
	}()

	select {
	case <-fc.allowEnter:
	case <-time.After(2 * time.Second):
		t.Fatal("first submission never reached the chain")
	}

	rec, err := w.Submit(context.Background(), testEnv(), testRequest())
	require.ErrorIs(t, err, ErrBusy)
	assert.Nil(t, rec)
	assert.Equal(t, KindBusy, Kind(err))

	close(fc.allowGate)
	require.NoError(t, <-done)

	// The guard is released once the first submission returns.
	fc.allowEnter, fc.allowGate = nil, nil
	_, err = w.Submit(context.Background(), testEnv(), testRequest())
	require.NoError(t, err)
}

func TestRecordIDsAreUniquePerAttempt(t *testing.T) {
	fc := newFakeClient(0)
	w := New(fc)
	a, err := w.Submit(context.Background(), testEnv(), testRequest())
	require.NoError(t, err)
	b, err := w.Submit(context.Background(), testEnv(), testRequest())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

// ---------------------------------------------------------------------------
// observer
// ---------------------------------------------------------------------------

func TestObserverSeesStepsInOrder(t *testing.T) {
	fc := newFakeClient(0)
	var mu sync.Mutex
	var steps []Step
	obs := ObserverFunc(func(e Event) {
		mu.Lock()
		steps = append(steps, e.Step)
		mu.Unlock()
	})

	_, err := New(fc, WithObserver(obs)).Submit(context.Background(), testEnv(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, []Step{StepAllowance, StepApprove, StepApproveConfirmed, StepAirdrop, StepAirdropConfirmed}, steps)
}

func TestObserverSeesFailure(t *testing.T) {
	fc := newFakeClient(0)
	fc.approveErr = errors.New("user rejected")
	var events []Event
	obs := Observers{ObserverFunc(func(e Event) { events = append(events, e) }), nil}

	_, err := New(fc, WithObserver(obs)).Submit(context.Background(), testEnv(), testRequest())
	require.Error(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, StepAllowance, events[0].Step)
	assert.Equal(t, StepFailed, events[1].Step)

	var stepErr *StepError
	require.ErrorAs(t, events[1].Err, &stepErr)
	assert.Equal(t, StepApprove, stepErr.Step)
}

// ---------------------------------------------------------------------------
// preview
// ---------------------------------------------------------------------------

func TestPreviewWithoutAccount(t *testing.T) {
	fc := newFakeClient(0)
	env := testEnv()
	env.Account = ""

	p, err := New(fc).Preview(context.Background(), env, testRequest())
	require.NoError(t, err)
	assert.Empty(t, fc.Calls())
	assert.Equal(t, 2, p.RecipientCount)
	assert.Equal(t, 6e19, p.TotalFloat)
	assert.Equal(t, "60 MOCK", p.FormattedAmount)
	assert.Nil(t, p.Allowance)
	assert.False(t, p.NeedsApproval)
	assert.Equal(t, common.HexToAddress(tsender).Hex(), p.TSender)
}

func TestPreviewReportsApprovalNeed(t *testing.T) {
	fc := newFakeClient(7)
	p, err := New(fc).Preview(context.Background(), testEnv(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.Allowance.Int64())
	assert.True(t, p.NeedsApproval)
	assert.Equal(t, []string{"allowance"}, fc.Calls())
}

func TestPreviewMetadataFailure(t *testing.T) {
	fc := newFakeClient(0)
	fc.infoErr = errors.New("execution reverted")
	_, err := New(fc).Preview(context.Background(), testEnv(), testRequest())
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepMetadata, stepErr.Step)
}

// ---------------------------------------------------------------------------
// misc
// ---------------------------------------------------------------------------

func TestParseApprovalPolicy(t *testing.T) {
	p, err := ParseApprovalPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ApproveExact, p)

	p, err = ParseApprovalPolicy("unlimited")
	require.NoError(t, err)
	assert.Equal(t, ApproveUnlimited, p)

	_, err = ParseApprovalPolicy("buffered")
	require.Error(t, err)
}

func TestKind(t *testing.T) {
	assert.Equal(t, KindNone, Kind(nil))
	assert.Equal(t, KindRemote, Kind(errors.New("dial tcp: refused")))
	assert.Equal(t, KindValidation, Kind(ErrEmptyBatch))
}

func TestFormatAmount(t *testing.T) {
	info := &chain.TokenInfo{Symbol: "USDC", Decimals: 6}
	assert.Equal(t, "1.5 USDC", FormatAmount(big.NewInt(1_500_000), info))
	assert.Equal(t, "1500000 wei", FormatAmount(big.NewInt(1_500_000), nil))
	assert.Equal(t, "0.000001", FormatAmount(big.NewInt(1), &chain.TokenInfo{Decimals: 6}))
}

func TestPrepareReadOnly(t *testing.T) {
	env := testEnv()
	env.Account = ""

	_, err := Prepare(env, testRequest())
	assert.ErrorIs(t, err, ErrNotConnected)

	b, err := PrepareReadOnly(env, testRequest())
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, b.Account)
	assert.Equal(t, 0, b.Total.Cmp(total60))

	env.Account = "not-an-address"
	_, err = PrepareReadOnly(env, testRequest())
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestResolveTSender(t *testing.T) {
	addr, err := ResolveTSender(testEnv())
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(tsender), addr)

	env := testEnv()
	env.ChainID = 11155111
	_, err = ResolveTSender(env)
	assert.ErrorIs(t, err, ErrUnsupportedChain)
	assert.Equal(t, KindConfig, Kind(err))

	env = testEnv()
	env.Contracts = chain.ContractTable{31337: "0x1234"}
	_, err = ResolveTSender(env)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}
