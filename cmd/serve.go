package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/tsender/internal/chain"
	"github.com/Mohsinsiddi/tsender/internal/metrics"
	"github.com/Mohsinsiddi/tsender/internal/server"
	"github.com/Mohsinsiddi/tsender/internal/ui"
)

// serveWriteSlack is added to the receipt waits when bounding a request.
const serveWriteSlack = time.Minute

var (
	serveAddr    string
	serveNetwork string
	serveWallet  string
	serveOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the airdrop API over HTTP",
	Long: `Start a local HTTP front end for one network and wallet.

Endpoints:
  GET  /api/chains        networks and their TSender contracts
  POST /api/preview       {"token","recipients","amounts"} → preview
  POST /api/airdrop       same body, runs the airdrop (409 while one is running)
  GET  /api/airdrop/{id}  a record from this session
  GET  /healthz
  GET  /metrics           Prometheus metrics

POST bodies must be sent as application/json. Browser calls are accepted
from the server's own origin and from each --allow-origin.

With a watch-only wallet the server previews but every submission fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openSession(ctx, serveNetwork, serveWallet, walletAuto)
		if err != nil {
			return err
		}

		promReg := prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.NewMetrics(promReg)

		wf, err := newWorkflow(s, false, m)
		if err != nil {
			return err
		}

		addr := cfg.ServerAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		fmt.Println(ui.Banner(Version))
		fmt.Println(ui.KeyValueBlock("Serving", [][2]string{
			{"Address", "http://" + addr},
			{"Network", ui.ChainName(s.chain.DisplayName)},
			{"Wallet", walletLabel(s)},
		}))
		if !s.signing {
			fmt.Println(ui.Warn("No signing wallet: /api/airdrop will fail, previews still work"))
		}

		srv := server.New(server.Options{
			Addr:           addr,
			Network:        s.chain,
			Env:            s.env(),
			Registry:       chain.NewRegistry(),
			Workflow:       wf,
			Expand:         recipientExpander(s, false),
			AllowedOrigins: serveOrigins,
			Metrics:        m,
			Gatherer:       promReg,
			Logger:         logger,
			WriteTimeout:   2*cfg.ConfirmTimeoutDuration() + serveWriteSlack,
		})
		return srv.Run(ctx)
	},
}

func walletLabel(s *session) string {
	switch {
	case s.wallet == nil:
		return "none"
	case s.signing:
		return fmt.Sprintf("%s (%s)", s.wallet.Name, s.wallet.Address)
	}
	return fmt.Sprintf("%s (%s, watch-only)", s.wallet.Name, s.wallet.Address)
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	serveCmd.Flags().StringVar(&serveNetwork, "network", "", "network to serve (default from config)")
	serveCmd.Flags().StringVar(&serveWallet, "wallet", "", "wallet name or address (default from config)")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "allow-origin", nil, "extra browser origin allowed to call the API, e.g. http://localhost:3000 (repeatable)")
}
