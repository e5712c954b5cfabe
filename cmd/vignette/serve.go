package main

import (
	"context"
	"os"
	"strings"

	"github.com/aretw0/vignette"
	"github.com/aretw0/vignette/internal/cli"
	"github.com/aretw0/vignette/internal/presentation/tui"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  `Serves the vignette REST API, with Prometheus metrics on /metrics unless disabled.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(app *cli.App) error {
				addr := app.Config.HTTP.Listen
				if cmd.Flags().Changed("listen") {
					addr, _ = cmd.Flags().GetString("listen")
				}
				if noMetrics, _ := cmd.Flags().GetBool("no-metrics"); noMetrics {
					app.Config.HTTP.Metrics = false
				}

				if tui.IsTerminal(os.Stderr) {
					tui.PrintBanner(os.Stderr, strings.TrimSpace(vignette.Version))
				}

				sc := cli.NewSignalContext(context.Background())
				defer sc.Cancel()
				if err := cli.Serve(sc, app, addr, nil); err != nil {
					return err
				}
				if sig := sc.Signal(); sig != nil {
					app.Logger.Info("stopped by signal", "signal", sig.String())
				}
				return nil
			})
		},
	}

	serveCmd.Flags().StringP("listen", "l", ":8080", "Address to listen on")
	serveCmd.Flags().Bool("no-metrics", false, "Do not expose /metrics")
	return serveCmd
}
