package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tsender/internal/amount"
	"github.com/Mohsinsiddi/tsender/internal/ui"
)

var (
	allowanceToken   string
	allowanceOwner   string
	allowanceNetwork string
)

var allowanceCmd = &cobra.Command{
	Use:   "allowance",
	Short: "Show how much of a token the TSender contract may spend",
	Long: `Query the ERC-20 allowance an owner has granted the network's TSender
contract.

Examples:
  tsender allowance --token 0xToken
  tsender allowance --token 0xToken --owner 0xOwner --network base`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !common.IsHexAddress(allowanceToken) {
			return fmt.Errorf("--token must be an ERC-20 contract address, got %q", allowanceToken)
		}
		ctx := cmd.Context()

		walletName := allowanceOwner
		if common.IsHexAddress(allowanceOwner) {
			walletName = ""
		}
		s, err := openSession(ctx, allowanceNetwork, walletName, walletOptional)
		if err != nil {
			return err
		}

		owner := allowanceOwner
		if !common.IsHexAddress(owner) {
			if s.wallet == nil {
				return fmt.Errorf("--owner is required or set a default wallet")
			}
			owner = s.wallet.Address
		}

		tsender, ok := s.contracts.Lookup(s.chain.ChainID)
		if !ok {
			return fmt.Errorf("no TSender contract on %s\n  Set one with: tsender config set contracts.%s <address>", s.chain.Name, s.chain.Name)
		}

		token := common.HexToAddress(allowanceToken)
		spin := ui.NewSpinner("Querying allowance...")
		spin.Start()
		allowance, err := s.client.Allowance(ctx, token, common.HexToAddress(owner), common.HexToAddress(tsender))
		if err != nil {
			spin.Stop()
			return fmt.Errorf("querying allowance: %w", err)
		}
		info, infoErr := s.client.TokenInfo(ctx, token)
		spin.Stop()

		formatted := allowance.String() + " wei"
		if infoErr == nil {
			formatted = amount.FormatUnits(allowance, int(info.Decimals))
			if info.Symbol != "" {
				formatted += " " + info.Symbol
			}
		} else {
			logger.Debug("token metadata unavailable", "token", token.Hex(), "error", infoErr)
		}

		fmt.Println(ui.KeyValueBlock("ERC-20 Allowance", [][2]string{
			{"Token", ui.Addr(token.Hex())},
			{"Owner", ui.Addr(common.HexToAddress(owner).Hex())},
			{"Spender (TSender)", ui.Addr(tsender)},
			{"Allowance", ui.Val(formatted)},
			{"Raw", allowance.String()},
			{"Network", s.chain.DisplayName},
		}))
		return nil
	},
}

func init() {
	allowanceCmd.Flags().StringVar(&allowanceToken, "token", "", "ERC-20 token address")
	allowanceCmd.Flags().StringVar(&allowanceOwner, "owner", "", "owner address or wallet name (default wallet when empty)")
	allowanceCmd.Flags().StringVar(&allowanceNetwork, "network", "", "network to use (default from config)")
	allowanceCmd.MarkFlagRequired("token") //nolint:errcheck
}
