package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aretw0/vignette/internal/cli"
	"github.com/aretw0/vignette/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Exposes vignette to AI agents as MCP tools (generate_variants, submit_qc,
mark_best, get_run) and the vignette://document resource.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			transport, _ := cmd.Flags().GetString("transport")
			listen, _ := cmd.Flags().GetString("listen")
			baseURL, _ := cmd.Flags().GetString("base-url")

			return withApp(cmd, func(app *cli.App) error {
				srv := mcp.NewServer(app.Engine, mcp.WithLogger(app.Logger))

				switch transport {
				case "stdio":
					// Ensure logs don't corrupt JSON-RPC on Stdout
					log.SetOutput(os.Stderr)
					app.Logger.Info("Starting vignette MCP Server (Stdio)", "store", app.Config.Store.Describe())
					return srv.ServeStdio()
				case "sse":
					if baseURL == "" {
						baseURL = "http://localhost" + listen
					}
					sc := cli.NewSignalContext(context.Background())
					defer sc.Cancel()
					return srv.ServeSSE(sc, listen, baseURL)
				default:
					return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
				}
			})
		},
	}

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("listen", ":8081", "Address to listen on (only for SSE)")
	mcpCmd.Flags().String("base-url", "", "Public base URL of the SSE server (default http://localhost<listen>)")
	return mcpCmd
}
