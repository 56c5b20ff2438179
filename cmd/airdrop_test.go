package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/tsender/internal/airdrop"
	"github.com/Mohsinsiddi/tsender/internal/chain"
)

const (
	testToken   = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
	testAlice   = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	testAccount = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestFormValidatorUsesCommandContext(t *testing.T) {
	env := airdrop.Env{ChainID: 31337, Account: testAccount, Contracts: chain.DefaultContracts()}
	req := airdrop.Request{Token: testToken, Recipients: "alice.eth", Amounts: "10"}

	var sawDeadline bool
	expand := func(ctx context.Context, text string) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		_, sawDeadline = ctx.Deadline()
		return testAlice, nil
	}

	require.NoError(t, formValidator(context.Background(), env, expand)(req))
	assert.True(t, sawDeadline)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, formValidator(ctx, env, expand)(req), context.Canceled)
}

func TestExpanderRejectsUnsupportedChainOffline(t *testing.T) {
	sepolia, err := chain.NewRegistry().GetByName("sepolia")
	require.NoError(t, err)
	// No EVM client: any RPC attempt would panic.
	s := &session{chain: sepolia, contracts: chain.DefaultContracts()}

	_, err = recipientExpander(s, false)(context.Background(), "vitalik.eth")
	assert.ErrorIs(t, err, airdrop.ErrUnsupportedChain)
	assert.Contains(t, err.Error(), "contracts.sepolia")

	plain, err := recipientExpander(s, false)(context.Background(), testAlice)
	require.NoError(t, err)
	assert.Equal(t, testAlice, plain)
}
