package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/Mohsinsiddi/tsender/internal/ui"
)

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List networks and their TSender contracts",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := chain.NewRegistry()
		contracts, err := cfg.ContractTable(reg)
		if err != nil {
			return err
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Network", Width: 12},
			{Title: "Chain ID", Width: 10},
			{Title: "TSender", Width: 44},
			{Title: "Default", Width: 8},
		})
		supported := 0
		for _, c := range reg.All() {
			tsender, ok := contracts.Lookup(c.ChainID)
			if ok {
				supported++
			} else {
				tsender = "-"
			}
			def := ""
			if c.Name == cfg.DefaultNetwork {
				def = "✓"
			}
			t.AddRow(ui.Row{c.Name, strconv.FormatInt(c.ChainID, 10), tsender, def})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d of %d networks have a TSender contract", supported, len(reg.All()))))
		fmt.Println(ui.Hint("Override a deployment with: tsender config set contracts.<network> <address>"))
		return nil
	},
}
