package wallet_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Mohsinsiddi/tsender/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known Hardhat/Anvil test account #0. Never fund it on mainnet.
const (
	testPrivKeyHex = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testSignerAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestAddWatchOnlyWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	err := mgr.AddWatchOnly("mywallet", "0x1234567890abcdef1234567890abcdef12345678")
	require.NoError(t, err)

	w, err := mgr.Get("mywallet")
	require.NoError(t, err)
	assert.Equal(t, "mywallet", w.Name)
	assert.Equal(t, wallet.KindWatchOnly, w.Type)
	assert.False(t, w.CanSign())
	assert.NotEmpty(t, w.CreatedAt)
}

func TestAddWatchOnlyRejectsBadAddress(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	err := mgr.AddWatchOnly("bad", "0x123")
	assert.ErrorIs(t, err, wallet.ErrInvalidAddress)
}

func TestAddDuplicateWalletErrors(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())

	require.NoError(t, mgr.AddWatchOnly("dup", testSignerAddr))
	err := mgr.AddWatchOnly("dup", testSignerAddr)
	assert.ErrorIs(t, err, wallet.ErrWalletExists)

	_, err = mgr.Import("dup", testPrivKeyHex)
	assert.ErrorIs(t, err, wallet.ErrWalletExists)
}

func TestImportSigningWallet(t *testing.T) {
	ks := wallet.NewMemoryKeystore()
	mgr := wallet.NewManager(wallet.WithInMemoryStore(), wallet.WithKeystore(ks))

	w, err := mgr.Import("signer", testPrivKeyHex)
	require.NoError(t, err)
	assert.Equal(t, wallet.KindSigning, w.Type)
	assert.Equal(t, testSignerAddr, w.Address)

	stored, err := ks.Retrieve(w.KeyRef)
	require.NoError(t, err)
	assert.Equal(t, testPrivKeyHex, stored)
}

func TestImportInvalidKey(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := mgr.Import("bad", "0xnothex")
	assert.ErrorIs(t, err, wallet.ErrInvalidKey)
}

func TestRemoveDeletesKey(t *testing.T) {
	ks := wallet.NewMemoryKeystore()
	mgr := wallet.NewManager(wallet.WithInMemoryStore(), wallet.WithKeystore(ks))

	w, err := mgr.Import("signer", testPrivKeyHex)
	require.NoError(t, err)

	require.NoError(t, mgr.Remove("signer"))
	_, err = mgr.Get("signer")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)

	_, err = ks.Retrieve(w.KeyRef)
	assert.ErrorIs(t, err, wallet.ErrKeyNotFound)
}

func TestRemoveUnknownWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	assert.ErrorIs(t, mgr.Remove("ghost"), wallet.ErrWalletNotFound)
}

func TestDefaultWallet(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	assert.Nil(t, mgr.Default())

	require.NoError(t, mgr.AddWatchOnly("a", "0x1111111111111111111111111111111111111111"))
	// single wallet falls back as default
	require.NotNil(t, mgr.Default())
	assert.Equal(t, "a", mgr.Default().Name)

	require.NoError(t, mgr.AddWatchOnly("b", "0x2222222222222222222222222222222222222222"))
	assert.Nil(t, mgr.Default(), "no default when several wallets and none marked")

	require.NoError(t, mgr.SetDefault("b"))
	assert.Equal(t, "b", mgr.Default().Name)

	assert.ErrorIs(t, mgr.SetDefault("ghost"), wallet.ErrWalletNotFound)
}

func TestResolve(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	require.NoError(t, mgr.AddWatchOnly("alice", "0x1111111111111111111111111111111111111111"))
	require.NoError(t, mgr.AddWatchOnly("bob", "0x2222222222222222222222222222222222222222"))
	require.NoError(t, mgr.SetDefault("bob"))

	w, err := mgr.Resolve("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", w.Name)

	w, err = mgr.Resolve("0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, "alice", w.Name)

	w, err = mgr.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "bob", w.Name)

	_, err = mgr.Resolve("carol")
	assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
}

func TestListSorted(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	require.NoError(t, mgr.AddWatchOnly("zed", "0x1111111111111111111111111111111111111111"))
	require.NoError(t, mgr.AddWatchOnly("amy", "0x2222222222222222222222222222222222222222"))

	list := mgr.List()
	require.Len(t, list, 2)
	assert.Equal(t, "amy", list[0].Name)
	assert.Equal(t, "zed", list[1].Name)
}

func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")

	mgr := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)))
	require.NoError(t, mgr.AddWatchOnly("alice", "0x1111111111111111111111111111111111111111"))
	require.NoError(t, mgr.SetDefault("alice"))

	reloaded := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)))
	w, err := reloaded.Get("alice")
	require.NoError(t, err)
	assert.True(t, w.IsDefault)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", w.Address)
}

func TestJSONStoreMissingFile(t *testing.T) {
	store := wallet.NewJSONStore(filepath.Join(t.TempDir(), "nope.json"))
	wallets, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, wallets)
}

func TestImportSameKeyTwiceErrors(t *testing.T) {
	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	_, err := mgr.Import("first", testPrivKeyHex)
	require.NoError(t, err)

	_, err = mgr.Import("second", strings.TrimPrefix(testPrivKeyHex, "0x"))
	assert.ErrorIs(t, err, wallet.ErrWalletExists)
	assert.Contains(t, err.Error(), "first")
}

func TestJSONStorePersistsAcrossManagers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wallets.json")

	mgr := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)))
	require.NoError(t, mgr.AddWatchOnly("watcher", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"))
	require.NoError(t, mgr.SetDefault("watcher"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded := wallet.NewManager(wallet.WithStore(wallet.NewJSONStore(path)))
	w := reloaded.Default()
	require.NotNil(t, w)
	assert.Equal(t, "watcher", w.Name)
	assert.Equal(t, wallet.KindWatchOnly, w.Type)
	assert.False(t, w.CanSign())
}

func TestJSONStoreMissingFileIsEmpty(t *testing.T) {
	s := wallet.NewJSONStore(filepath.Join(t.TempDir(), "wallets.json"))
	wallets, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, wallets)
}
