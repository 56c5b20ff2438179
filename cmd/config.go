package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tsender/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"list"},
	Short:   "Show the effective configuration",
	Long: `Show every setting, including values overridden by TSENDER_ environment
variables for this run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(ui.KeyValueBlock("Configuration", cfg.Entries()))
		fmt.Println(ui.Meta("Config directory: " + cfg.Dir()))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set and persist a configuration value.

Keys:
  default_network   network used when --network is omitted
  default_wallet    wallet used when --wallet is omitted
  rpc_algorithm     fastest, round-robin or failover
  approval_policy   exact or unlimited
  confirm_timeout   seconds to wait for each receipt
  server_addr       listen address for 'tsender serve'
  log_level         debug, info, warn or error
  sync_source       deployments manifest URL
  rpc.<network>     add a custom RPC URL for a network
  contracts.<network>  TSender address for a network ("" removes the override)

Examples:
  tsender config set default_network sepolia
  tsender config set contracts.sepolia 0xYourDeployment
  tsender config set rpc.base https://base.example.org`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s set to %q", key, value)))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
}
