package wallet

import (
	"math/big"
	"testing"

	"github.com/99designs/keyring"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	signerKeyHex  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	signerAddrHex = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

// testKeystore returns a file-backed Keystore isolated to a temp directory.
// Using the FileBackend avoids OS keychain prompts in CI.
func testKeystore(t *testing.T) *Keystore {
	t.Helper()
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      "tsender-test",
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          t.TempDir(),
		FilePasswordFunc: func(string) (string, error) { return "testpass", nil },
	})
	require.NoError(t, err)
	return NewKeystore(ring)
}

func dynamicTx() *types.Transaction {
	to := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(31337),
		Nonce:     0,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2_000_000_000),
		Gas:       100_000,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      []byte{0x09, 0x5e, 0xa7, 0xb3},
	})
}

func TestSignerAddress(t *testing.T) {
	w := &Wallet{Name: "w", Address: signerAddrHex, Type: KindSigning}
	s := NewSigner(w, NewMemoryKeystore())
	assert.Equal(t, common.HexToAddress(signerAddrHex), s.Address())
	assert.Same(t, w, s.Wallet())
}

func TestSignTxWatchOnlyError(t *testing.T) {
	w := &Wallet{Name: "watcher", Address: signerAddrHex, Type: KindWatchOnly}
	_, err := NewSigner(w, NewMemoryKeystore()).SignTx(dynamicTx(), big.NewInt(31337))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch-only")
}

func TestSignTxMissingKey(t *testing.T) {
	w := &Wallet{Name: "w", Address: signerAddrHex, Type: KindSigning, KeyRef: "tsender.w"}
	_, err := NewSigner(w, NewMemoryKeystore()).SignTx(dynamicTx(), big.NewInt(31337))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSignTxRecoversSender(t *testing.T) {
	ks := NewMemoryKeystore()
	ref, err := ks.Store("w", signerKeyHex)
	require.NoError(t, err)

	w := &Wallet{Name: "w", Address: signerAddrHex, Type: KindSigning, KeyRef: ref}
	chainID := big.NewInt(31337)
	signed, err := NewSigner(w, ks).SignTx(dynamicTx(), chainID)
	require.NoError(t, err)

	from, err := types.Sender(types.NewLondonSigner(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(signerAddrHex), from)
}

func TestKeystoreFileBackendRoundTrip(t *testing.T) {
	ks := testKeystore(t)

	ref, err := ks.Store("alice", signerKeyHex)
	require.NoError(t, err)
	assert.Equal(t, "tsender.alice", ref)

	got, err := ks.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, signerKeyHex, got)

	require.NoError(t, ks.Delete(ref))
	_, err = ks.Retrieve(ref)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// deleting twice is not an error
	assert.NoError(t, ks.Delete(ref))
}

func TestKeystoreSignsThroughManager(t *testing.T) {
	ks := testKeystore(t)
	mgr := NewManager(WithInMemoryStore(), WithKeystore(ks))

	w, err := mgr.Import("alice", "0x"+signerKeyHex)
	require.NoError(t, err)

	signed, err := NewSigner(w, mgr.Keystore()).SignTx(dynamicTx(), big.NewInt(31337))
	require.NoError(t, err)
	assert.NotNil(t, signed)
}
