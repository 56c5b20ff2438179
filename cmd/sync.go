package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tsender/internal/chain"
	csync "github.com/Mohsinsiddi/tsender/internal/sync"
	"github.com/Mohsinsiddi/tsender/internal/ui"
)

var (
	syncWatch    bool
	syncInterval time.Duration
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync TSender deployments from a remote manifest",
	Long: `Fetch a deployments manifest and store its TSender addresses as contract
overrides. The manifest looks like:

  {"contracts": {"tsender": {"sepolia": {"address": "0x..."}}}}`,
}

var syncSetSourceCmd = &cobra.Command{
	Use:   "set-source <url>",
	Short: "Set the remote deployments manifest URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return fmt.Errorf("sync source must be an http(s) URL, got %q", url)
		}
		syncer := csync.New(cfg, chain.NewRegistry(), logger)
		if err := syncer.SetSource(url); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Sync source set to: %s", url)))
		return nil
	},
}

var syncRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch the manifest and update contract overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		syncer := csync.New(cfg, chain.NewRegistry(), logger)

		if syncWatch {
			if syncInterval <= 0 {
				return fmt.Errorf("--interval must be positive, got %s", syncInterval)
			}
			fmt.Println(ui.Meta(fmt.Sprintf("Syncing every %s. Press Ctrl+C to stop.", syncInterval)))
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return syncer.Watch(ctx, syncInterval)
		}

		spin := ui.NewSpinner("Syncing deployments...")
		spin.Start()
		res, err := syncer.Run(cmd.Context())
		spin.Stop()
		if err != nil {
			return err
		}

		if len(res.Updated) == 0 {
			fmt.Println(ui.Success("Deployments already up to date."))
		} else {
			fmt.Println(ui.Success("Updated TSender for: " + strings.Join(res.Updated, ", ")))
		}
		for _, skipped := range res.Skipped {
			fmt.Println(ui.Warn("Skipped " + skipped))
		}
		return nil
	},
}

func init() {
	syncRunCmd.Flags().BoolVar(&syncWatch, "watch", false, "keep syncing on an interval")
	syncRunCmd.Flags().DurationVar(&syncInterval, "interval", 5*time.Minute, "interval for --watch")
	syncCmd.AddCommand(syncSetSourceCmd, syncRunCmd)
}
