package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tsender/internal/airdrop"
	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/Mohsinsiddi/tsender/internal/config"
	"github.com/Mohsinsiddi/tsender/internal/ui"
)

// batchFlags are the inputs shared by airdrop, preview and form.
type batchFlags struct {
	token          string
	recipients     string
	recipientsFile string
	amounts        string
	amountsFile    string
	network        string
	wallet         string
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.token, "token", "", "ERC-20 token address")
	cmd.Flags().StringVar(&f.recipients, "recipients", "", "recipient addresses or ENS names, comma or newline separated")
	cmd.Flags().StringVar(&f.recipientsFile, "recipients-file", "", "read recipients from a file (- for stdin)")
	cmd.Flags().StringVar(&f.amounts, "amounts", "", "amounts in wei, comma or newline separated")
	cmd.Flags().StringVar(&f.amountsFile, "amounts-file", "", "read amounts from a file (- for stdin)")
	cmd.Flags().StringVar(&f.network, "network", "", "network to use (default from config)")
	cmd.Flags().StringVar(&f.wallet, "wallet", "", "wallet name or address (default from config)")
	cmd.MarkFlagsMutuallyExclusive("recipients", "recipients-file")
	cmd.MarkFlagsMutuallyExclusive("amounts", "amounts-file")
}

func (f *batchFlags) request() (airdrop.Request, error) {
	if f.recipientsFile == "-" && f.amountsFile == "-" {
		return airdrop.Request{}, errors.New("only one of --recipients-file and --amounts-file can read stdin")
	}
	recipients, err := readList(f.recipients, f.recipientsFile)
	if err != nil {
		return airdrop.Request{}, err
	}
	amounts, err := readList(f.amounts, f.amountsFile)
	if err != nil {
		return airdrop.Request{}, err
	}
	return airdrop.Request{Token: f.token, Recipients: recipients, Amounts: amounts}, nil
}

var (
	airdropFlags     batchFlags
	airdropYes       bool
	airdropUnlimited bool
	airdropJSON      bool

	previewFlags batchFlags
	previewJSON  bool

	formFlags     batchFlags
	formUnlimited bool
)

var airdropCmd = &cobra.Command{
	Use:   "airdrop",
	Short: "Send an ERC-20 token to many recipients in one transaction",
	Long: `Preview the batch, confirm, then approve the TSender contract if needed and
submit the airdrop.

Examples:
  tsender airdrop --token 0xToken --recipients 0xA,0xB --amounts 100,200
  tsender airdrop --token 0xToken --recipients-file list.txt --amounts-file amounts.txt --yes
  tsender airdrop --token 0xToken --recipients vitalik.eth --amounts 1000 --network sepolia`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := airdropFlags.request()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		s, err := openBatchSession(ctx, airdropFlags.network, airdropFlags.wallet, walletSigner)
		if err != nil {
			return err
		}
		return submit(ctx, s, req, submitOptions{
			yes:       airdropYes,
			unlimited: airdropUnlimited,
			jsonOut:   airdropJSON,
		})
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show what an airdrop would send without sending it",
	Long: `Validate the batch and show the token, the total (as a float sum and in
exact wei), the recipient count and, when a wallet is configured, the current
allowance towards the TSender contract.

Examples:
  tsender preview --token 0xToken --recipients 0xA,0xB --amounts 100,200`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := previewFlags.request()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		s, err := openBatchSession(ctx, previewFlags.network, previewFlags.wallet, walletOptional)
		if err != nil {
			return err
		}
		if req.Recipients, err = recipientExpander(s, !previewJSON)(ctx, req.Recipients); err != nil {
			return err
		}
		wf, err := newWorkflow(s, false)
		if err != nil {
			return err
		}

		spin := ui.NewSpinner("Reading token...")
		spin.Start()
		p, err := wf.Preview(ctx, s.env(), req)
		spin.Stop()
		if err != nil {
			return err
		}

		if previewJSON {
			return printJSON(p)
		}
		fmt.Println(ui.PreviewBlock(p, s.chain.DisplayName))
		checkLists(ctx, s, req)
		if s.wallet == nil {
			fmt.Println(ui.Hint("Configure a wallet to see the current allowance: tsender wallet import <name>"))
		}
		return nil
	},
}

var formCmd = &cobra.Command{
	Use:   "form",
	Short: "Fill in an airdrop interactively",
	Long: `Open an interactive form with token, recipients and amounts fields and a
live preview. Submitting the form runs the same flow as 'tsender airdrop'.

Flags prefill the form.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		initial, err := formFlags.request()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		s, err := openBatchSession(ctx, formFlags.network, formFlags.wallet, walletSigner)
		if err != nil {
			return err
		}
		expand := recipientExpander(s, false)

		fetch := func(ctx context.Context, token string) (*chain.TokenInfo, error) {
			return s.client.TokenInfo(ctx, common.HexToAddress(token))
		}
		req, err := ui.RunAirdropForm(initial, fetch, formValidator(ctx, s.env(), expand))
		if err != nil {
			return err
		}
		return submit(ctx, s, *req, submitOptions{unlimited: formUnlimited})
	},
}

// formValidator expands and validates a form submission. Each call is
// bounded by MetadataTimeout and cancelled with ctx.
func formValidator(ctx context.Context, env airdrop.Env, expand func(context.Context, string) (string, error)) func(airdrop.Request) error {
	return func(r airdrop.Request) error {
		ctx, cancel := context.WithTimeout(ctx, config.MetadataTimeout)
		defer cancel()
		var err error
		if r.Recipients, err = expand(ctx, r.Recipients); err != nil {
			return err
		}
		_, err = airdrop.Prepare(env, r)
		return err
	}
}

type submitOptions struct {
	yes       bool
	unlimited bool
	jsonOut   bool
}

// submit previews req, asks for confirmation and runs the workflow with a
// spinner following its steps.
func submit(ctx context.Context, s *session, req airdrop.Request, opts submitOptions) error {
	if opts.jsonOut && !opts.yes {
		return errors.New("--json needs --yes, the confirmation prompt would mix with the JSON output")
	}
	var err error
	if req.Recipients, err = recipientExpander(s, !opts.jsonOut)(ctx, req.Recipients); err != nil {
		return err
	}

	spin := ui.NewSpinner("Checking allowance...")
	wf, err := newWorkflow(s, opts.unlimited, airdrop.ObserverFunc(func(e airdrop.Event) {
		spin.Update(ui.StepMessage(e))
	}))
	if err != nil {
		return err
	}

	p, err := wf.Preview(ctx, s.env(), req)
	if err != nil {
		return err
	}
	if !opts.jsonOut {
		fmt.Println(ui.PreviewBlock(p, s.chain.DisplayName))
	}
	if !opts.yes && !ui.Confirm(fmt.Sprintf("Send %s to %d recipients?", p.FormattedAmount, p.RecipientCount)) {
		fmt.Println(ui.Meta("Cancelled."))
		return nil
	}

	if !opts.jsonOut {
		spin.Start()
	}
	rec, err := wf.Submit(ctx, s.env(), req)
	spin.Stop()

	if opts.jsonOut {
		if rec != nil {
			if jerr := printJSON(rec); jerr != nil {
				return jerr
			}
		}
		return err
	}
	if rec != nil {
		fmt.Println(ui.RecordBlock(rec, s.chain))
	}
	if err != nil {
		if rec != nil && rec.ApprovalHash != "" && rec.Hash == "" {
			fmt.Println(ui.Hint("The approval stays in place; rerunning skips it if it was mined."))
		}
		return err
	}
	fmt.Println(ui.Success(fmt.Sprintf("Airdropped %s to %d recipients", rec.FormattedAmount, rec.RecipientCount)))
	return nil
}

// checkLists asks the TSender contract whether it accepts the batch. Older
// deployments lack the check, so failures only log.
func checkLists(ctx context.Context, s *session, req airdrop.Request) {
	b, err := airdrop.PrepareReadOnly(s.env(), req)
	if err != nil {
		return
	}
	ok, err := s.client.ListsValid(ctx, b.TSender, b.Recipients, b.Amounts)
	if err != nil {
		logger.Debug("list check unavailable", "tsender", b.TSender.Hex(), "error", err)
		return
	}
	if !ok {
		fmt.Println(ui.Warn("TSender rejects these lists (duplicate or zero-address recipients, or zero amounts)"))
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	airdropFlags.register(airdropCmd)
	airdropCmd.Flags().BoolVarP(&airdropYes, "yes", "y", false, "skip the confirmation prompt")
	airdropCmd.Flags().BoolVar(&airdropUnlimited, "unlimited", false, "approve the maximum amount instead of the batch total")
	airdropCmd.Flags().BoolVar(&airdropJSON, "json", false, "print the transaction record as JSON")

	previewFlags.register(previewCmd)
	previewCmd.Flags().BoolVar(&previewJSON, "json", false, "print the preview as JSON")

	formFlags.register(formCmd)
	formCmd.Flags().BoolVar(&formUnlimited, "unlimited", false, "approve the maximum amount instead of the batch total")
}
