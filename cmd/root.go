package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tsender/internal/airdrop"
	"github.com/Mohsinsiddi/tsender/internal/config"
	"github.com/Mohsinsiddi/tsender/internal/ui"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/tsender/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir   string
	cfg      *config.Config
	envCfg   *config.Env
	verbose  bool
	logLevel string
	logger   = slog.Default()
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "tsender",
	Short: "Batch-send ERC-20 tokens in one transaction",
	Long: `tsender sends an ERC-20 token to many recipients in a single transaction
through the TSender airdrop contract.

  It checks the token allowance, approves the TSender contract when the
  allowance is short, submits the airdrop and waits for it to be mined.

Recipients and amounts are comma or newline separated lists. Amounts are in
the token's smallest unit (wei).

Environment overrides use the TSENDER_ prefix, for example TSENDER_NETWORK,
TSENDER_RPC_URL or TSENDER_PRIVATE_KEY.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		envCfg, err = config.ReadEnv()
		if err != nil {
			return err
		}
		cfg.ApplyEnv(envCfg)

		logger = setupLogger(effectiveLogLevel(), cmd.Name() == "serve")
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status: 2 for invalid input,
// 3 for configuration problems, 4 when a submission is already running and
// 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, ui.ErrFormCancelled) {
		return 1
	}
	switch airdrop.Kind(err) {
	case airdrop.KindValidation:
		return 2
	case airdrop.KindConfig:
		return 3
	case airdrop.KindBusy:
		return 4
	}
	return 1
}

func effectiveLogLevel() string {
	switch {
	case logLevel != "":
		return logLevel
	case verbose:
		return "debug"
	}
	return cfg.LogLevel
}

func init() {
	// TSENDER_CONFIG_DIR env var sets the default for --config.
	if envDir := os.Getenv("TSENDER_CONFIG_DIR"); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.tsender)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		airdropCmd,
		previewCmd,
		formCmd,
		allowanceCmd,
		chainsCmd,
		walletCmd,
		configCmd,
		serveCmd,
		syncCmd,
	)
}
