package e2e_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/tsender/test/fixtures"
)

var binaryPath string

const (
	alice = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	bob   = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
)

func TestMain(m *testing.M) {
	// Build the binary before all E2E tests.
	tmp, err := os.MkdirTemp("", "tsender-e2e-test")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmp)

	binaryPath = filepath.Join(tmp, "tsender")
	// Build from the module root (two levels up from test/e2e/).
	moduleRoot, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		panic(err)
	}
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = moduleRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("build failed: " + string(out))
	}

	os.Exit(m.Run())
}

func command(configDir string, env []string, args ...string) *exec.Cmd {
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "TSENDER_CONFIG_DIR="+configDir)
	cmd.Env = append(cmd.Env, env...)
	return cmd
}

func runCLI(t *testing.T, configDir string, args ...string) (string, error) {
	t.Helper()
	out, err := command(configDir, nil, args...).CombinedOutput()
	return string(out), err
}

// nodeEnv points the CLI at node on the anvil network.
func nodeEnv(node *fixtures.Node, extra ...string) []string {
	return append([]string{"TSENDER_NETWORK=anvil", "TSENDER_RPC_URL=" + node.URL}, extra...)
}

func exitStatus(t *testing.T, err error) int {
	t.Helper()
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "expected a non-zero exit, got %v", err)
	return exitErr.ExitCode()
}

func TestVersionFlag(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "tsender")
	assert.Contains(t, out, "0.1.0")
}

func TestHelpCommand(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "--help")
	require.NoError(t, err)
	for _, sub := range []string{"airdrop", "preview", "form", "allowance", "chains", "wallet", "config", "serve"} {
		assert.Contains(t, out, sub)
	}
}

func TestChainsList(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "chains")
	require.NoError(t, err)
	for _, c := range []string{"anvil", "ethereum", "arbitrum", "optimism", "base", "zksync"} {
		assert.Contains(t, strings.ToLower(out), c)
	}
	assert.Contains(t, out, "31337")
}

func TestConfigShowDefaults(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "default_network")
	assert.Contains(t, out, "approval_policy")
	assert.Contains(t, out, "exact")
}

func TestConfigSetPersists(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "config", "set", "approval_policy", "unlimited")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "unlimited")
}

func TestConfigSetRejectsBadValue(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "config", "set", "rpc_algorithm", "random")
	assert.Error(t, err)
}

func TestWalletAddUseRemove(t *testing.T) {
	dir := t.TempDir()

	_, err := runCLI(t, dir, "wallet", "add", "watcher", alice)
	require.NoError(t, err)
	_, err = runCLI(t, dir, "wallet", "use", "watcher")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "wallet", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "watcher")
	assert.Contains(t, out, "0x7099")

	_, err = runCLI(t, dir, "wallet", "remove", "watcher", "--yes")
	require.NoError(t, err)

	out, err = runCLI(t, dir, "wallet", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "watcher")

	cfgOut, err := runCLI(t, dir, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, cfgOut, "watcher")
}

func TestPreviewJSON(t *testing.T) {
	node := fixtures.NewNode(t, 31337)
	cmd := command(t.TempDir(), nodeEnv(node),
		"preview", "--json",
		"--token", fixtures.TokenAddr,
		"--recipients", alice+","+bob,
		"--amounts", "100,200")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	require.NoError(t, cmd.Run())

	var p struct {
		RecipientCount int     `json:"recipient_count"`
		TotalFloat     float64 `json:"total_float"`
		Token          struct {
			Symbol string `json:"symbol"`
		} `json:"token"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &p))
	assert.Equal(t, 2, p.RecipientCount)
	assert.Equal(t, 300.0, p.TotalFloat)
	assert.Equal(t, "MOCK", p.Token.Symbol)
}

func TestPreviewValidationExitCode(t *testing.T) {
	node := fixtures.NewNode(t, 31337)
	out, err := command(t.TempDir(), nodeEnv(node),
		"preview",
		"--token", fixtures.TokenAddr,
		"--recipients", alice+","+bob,
		"--amounts", "100").CombinedOutput()
	assert.Equal(t, 2, exitStatus(t, err))
	assert.Contains(t, string(out), "differ")
}

func TestAirdropUnsupportedChainExitCode(t *testing.T) {
	node := fixtures.NewNode(t, 11155111)
	_, err := command(t.TempDir(),
		[]string{"TSENDER_NETWORK=sepolia", "TSENDER_RPC_URL=" + node.URL, "TSENDER_PRIVATE_KEY=" + fixtures.AnvilKey},
		"airdrop", "--yes",
		"--token", fixtures.TokenAddr,
		"--recipients", alice,
		"--amounts", "1").CombinedOutput()
	assert.Equal(t, 3, exitStatus(t, err))
	assert.Empty(t, node.Sent())
}

func TestPreviewUnsupportedChainSkipsENS(t *testing.T) {
	node := fixtures.NewNode(t, 11155111)
	out, err := command(t.TempDir(),
		[]string{"TSENDER_NETWORK=sepolia", "TSENDER_RPC_URL=" + node.URL},
		"preview",
		"--token", fixtures.TokenAddr,
		"--recipients", "vitalik.eth",
		"--amounts", "1").CombinedOutput()
	assert.Equal(t, 3, exitStatus(t, err))
	assert.Contains(t, string(out), "contracts.sepolia")
	assert.Zero(t, node.Calls())
}

func TestAirdropWithEnvKey(t *testing.T) {
	node := fixtures.NewNode(t, 31337)
	cmd := command(t.TempDir(), nodeEnv(node, "TSENDER_PRIVATE_KEY="+fixtures.AnvilKey),
		"airdrop", "--yes", "--json",
		"--token", fixtures.TokenAddr,
		"--recipients", alice+"\n"+bob,
		"--amounts", "100\n200")
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	require.NoError(t, cmd.Run(), stderr.String())

	var rec struct {
		Status       string `json:"status"`
		Hash         string `json:"hash"`
		ApprovalHash string `json:"approval_hash"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rec))
	assert.Equal(t, "success", rec.Status)
	assert.NotEmpty(t, rec.Hash)
	assert.NotEmpty(t, rec.ApprovalHash)

	assert.Equal(t, []string{"approve", "airdropERC20"}, node.SentMethods())
	assert.Equal(t, big.NewInt(200), node.Balance(bob))
}

func TestAirdropJSONNeedsYes(t *testing.T) {
	node := fixtures.NewNode(t, 31337)
	out, err := command(t.TempDir(), nodeEnv(node, "TSENDER_PRIVATE_KEY="+fixtures.AnvilKey),
		"airdrop", "--json",
		"--token", fixtures.TokenAddr,
		"--recipients", alice,
		"--amounts", "1").CombinedOutput()
	require.Error(t, err)
	assert.Contains(t, string(out), "--yes")
	assert.Empty(t, node.Sent())
}

func TestAllowanceCommand(t *testing.T) {
	node := fixtures.NewNode(t, 31337)
	node.SetAllowance(alice, "0x5FbDB2315678afecb367f032d93F642f64180aa3", big.NewInt(4242))
	out, err := command(t.TempDir(), nodeEnv(node),
		"allowance", "--token", fixtures.TokenAddr, "--owner", alice).CombinedOutput()
	require.NoError(t, err, string(out))
	assert.Contains(t, string(out), "4242")
}
