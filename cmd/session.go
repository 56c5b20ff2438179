package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Mohsinsiddi/tsender/internal/airdrop"
	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/Mohsinsiddi/tsender/internal/config"
	"github.com/Mohsinsiddi/tsender/internal/contract"
	"github.com/Mohsinsiddi/tsender/internal/ens"
	"github.com/Mohsinsiddi/tsender/internal/rpc"
	"github.com/Mohsinsiddi/tsender/internal/ui"
	"github.com/Mohsinsiddi/tsender/internal/wallet"
)

// envWalletName names the ephemeral wallet built from TSENDER_PRIVATE_KEY.
const envWalletName = "env"

// walletMode says what a command needs from the wallet.
type walletMode int

const (
	// walletOptional uses the wallet address when one is configured.
	walletOptional walletMode = iota
	// walletAuto signs when the wallet can, and runs read-only otherwise.
	walletAuto
	// walletSigner requires a signing wallet.
	walletSigner
)

// session is everything a command needs to talk to one network.
type session struct {
	chain     *chain.Chain
	evm       *chain.EVMClient
	contracts chain.ContractTable
	wallet    *wallet.Wallet // nil when no wallet is configured
	client    *contract.Client
	signing   bool
}

func (s *session) env() airdrop.Env {
	e := airdrop.Env{ChainID: s.chain.ChainID, Contracts: s.contracts}
	if s.wallet != nil {
		e.Account = s.wallet.Address
	}
	return e
}

// openSession resolves the network, picks an RPC endpoint and loads the
// wallet according to mode.
func openSession(ctx context.Context, network, walletName string, mode walletMode) (*session, error) {
	reg := chain.NewRegistry()
	ch, err := resolveNetwork(reg, network)
	if err != nil {
		return nil, err
	}
	contracts, err := cfg.ContractTable(reg)
	if err != nil {
		return nil, err
	}

	w, keys, err := resolveWallet(walletName, mode)
	if err != nil {
		return nil, err
	}

	evm, err := connect(ctx, ch)
	if err != nil {
		return nil, err
	}

	s := &session{chain: ch, evm: evm, contracts: contracts, wallet: w}
	var signer *wallet.Signer
	if w != nil && keys != nil && w.CanSign() {
		signer = wallet.NewSigner(w, keys)
		s.signing = true
	}
	s.client = contract.NewClient(evm, signer, ch.ChainID, logger,
		contract.WithConfirmTimeout(cfg.ConfirmTimeoutDuration()))
	return s, nil
}

// openBatchSession is openSession for commands that send or preview a batch.
// It fails before any RPC traffic when the network has no TSender contract.
func openBatchSession(ctx context.Context, network, walletName string, mode walletMode) (*session, error) {
	reg := chain.NewRegistry()
	ch, err := resolveNetwork(reg, network)
	if err != nil {
		return nil, err
	}
	contracts, err := cfg.ContractTable(reg)
	if err != nil {
		return nil, err
	}
	if _, err := airdrop.ResolveTSender(airdrop.Env{ChainID: ch.ChainID, Contracts: contracts}); err != nil {
		return nil, tsenderHint(err, ch)
	}
	return openSession(ctx, network, walletName, mode)
}

func tsenderHint(err error, ch *chain.Chain) error {
	if !errors.Is(err, airdrop.ErrUnsupportedChain) {
		return err
	}
	return fmt.Errorf("%w\n  Set one with: tsender config set contracts.%s <address>", err, ch.Name)
}

func resolveNetwork(reg *chain.Registry, name string) (*chain.Chain, error) {
	if name == "" {
		name = cfg.DefaultNetwork
	}
	ch, err := reg.GetByName(name)
	if err != nil {
		return nil, fmt.Errorf("unknown network %q\n  List networks with: tsender chains", name)
	}
	return ch, nil
}

// connect selects an RPC endpoint for ch using the configured algorithm.
func connect(ctx context.Context, ch *chain.Chain) (*chain.EVMClient, error) {
	algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
	if err != nil {
		return nil, err
	}
	urls := rpc.Candidates(ch, cfg.GetRPCs(ch.Name), cfg.RPCOverride())

	ctx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()
	ep, err := rpc.Select(ctx, rpc.NewPicker(algo), ch, urls)
	if err != nil {
		return nil, fmt.Errorf("%w\n  Add an RPC with: tsender config set rpc.%s <url>", err, ch.Name)
	}
	logger.Debug("rpc selected", "network", ch.Name, "url", ep.URL, "latency", ep.Latency, "algorithm", algo)
	return chain.NewEVMClient(ep.URL), nil
}

// resolveWallet finds the wallet to use. TSENDER_PRIVATE_KEY wins over
// everything and never touches the wallet store or the OS keychain.
func resolveWallet(name string, mode walletMode) (*wallet.Wallet, wallet.Backend, error) {
	if envCfg != nil && envCfg.PrivateKey != "" {
		mgr := wallet.NewManager()
		w, err := mgr.Import(envWalletName, envCfg.PrivateKey)
		if err != nil {
			return nil, nil, fmt.Errorf("TSENDER_PRIVATE_KEY: %w", err)
		}
		return w, mgr.Keystore(), nil
	}

	if name == "" {
		name = cfg.DefaultWallet
	}
	mgr, err := newWalletManager(false)
	if err != nil {
		return nil, nil, err
	}
	w, err := mgr.Resolve(name)
	switch {
	case errors.Is(err, wallet.ErrWalletNotFound) && name == "" && mode != walletSigner:
		return nil, nil, nil
	case errors.Is(err, wallet.ErrWalletNotFound) && name == "":
		return nil, nil, errors.New("no wallet configured\n  Import one with: tsender wallet import <name>\n  Or set TSENDER_PRIVATE_KEY")
	case err != nil:
		return nil, nil, fmt.Errorf("wallet %q not found, run `tsender wallet list` or set a default with `tsender wallet use <name>`", name)
	}

	if !w.CanSign() {
		if mode == walletSigner {
			return nil, nil, fmt.Errorf("wallet %q is watch-only and cannot sign transactions\n  To add a signing wallet: tsender wallet import <name>", w.Name)
		}
		return w, nil, nil
	}
	if mode == walletOptional {
		return w, nil, nil
	}

	ks, err := wallet.OpenKeystore(cfg.Dir())
	if err != nil {
		return nil, nil, err
	}
	return w, ks, nil
}

// newWalletManager creates a Manager backed by the config-dir JSON store,
// with the OS keychain when withKeys is set.
func newWalletManager(withKeys bool) (*wallet.Manager, error) {
	opts := []wallet.Option{wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath()))}
	if withKeys {
		ks, err := wallet.OpenKeystore(cfg.Dir())
		if err != nil {
			return nil, err
		}
		opts = append(opts, wallet.WithKeystore(ks))
	}
	return wallet.NewManager(opts...), nil
}

// newWorkflow builds a workflow over the session's contract client.
func newWorkflow(s *session, unlimited bool, observers ...airdrop.Observer) (*airdrop.Workflow, error) {
	policy, err := airdrop.ParseApprovalPolicy(cfg.ApprovalPolicy)
	if err != nil {
		return nil, err
	}
	if unlimited {
		policy = airdrop.ApproveUnlimited
	}
	return airdrop.New(s.client,
		airdrop.WithApprovalPolicy(policy),
		airdrop.WithObserver(airdrop.Observers(observers)),
		airdrop.WithLogger(logger),
	), nil
}

// recipientExpander resolves ENS names in recipient lists. Names resolve
// on the session network when it is Ethereum or Sepolia, and on Ethereum
// mainnet otherwise. The mainnet connection is opened on first use.
func recipientExpander(s *session, verboseOut bool) func(ctx context.Context, text string) (string, error) {
	var resolver *ens.Resolver
	return func(ctx context.Context, text string) (string, error) {
		if !ens.HasNames(text) {
			return text, nil
		}
		if _, err := airdrop.ResolveTSender(s.env()); err != nil {
			return "", tsenderHint(err, s.chain)
		}
		if resolver == nil {
			evm := s.evm
			if s.chain.Name != "ethereum" && s.chain.Name != "sepolia" {
				mainnet, err := chain.NewRegistry().GetByName("ethereum")
				if err != nil {
					return "", err
				}
				if evm, err = connect(ctx, mainnet); err != nil {
					return "", fmt.Errorf("resolving ENS names: %w", err)
				}
			}
			resolver = ens.NewResolver(evm)
		}

		expanded, resolved, err := resolver.ExpandRecipients(ctx, text)
		if err != nil {
			return "", err
		}
		if verboseOut {
			for _, r := range resolved {
				fmt.Fprintln(os.Stderr, ui.Meta(fmt.Sprintf("  %s → %s", r.Name, r.Address.Hex())))
			}
		}
		return expanded, nil
	}
}

// readList returns inline, or the contents of file when set ("-" reads
// stdin).
func readList(inline, file string) (string, error) {
	if file == "" {
		return inline, nil
	}
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file, err)
	}
	return strings.TrimSpace(string(data)), nil
}
