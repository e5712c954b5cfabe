package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/vignette/internal/cli"
	"github.com/spf13/cobra"
)

// newRootCmd builds the whole command tree.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vignette",
		Short: "Vignette generates and grades reproducible prompt variants",
		Long: `Vignette turns a locked character/style core, a scene card and a technique into
reproducible batches of prompt variants, grades them against a weighted QC rubric and
tracks the best pick of every run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./vignette.yaml when present)")
	rootCmd.PersistentFlags().String("store", "", "Store location: file path, sqlite path or redis address")
	rootCmd.PersistentFlags().String("backend", "", "Store backend: file, memory, redis or sqlite")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newServeCmd(),
		newMCPCmd(),
		newGenerateCmd(),
		newQCCmd(),
		newBestCmd(),
		newShowCmd(),
		newExportCmd(),
		newSceneCmd(),
		newTechniqueCmd(),
		newCoreCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		os.Exit(1)
	}
}

// openApp builds the engine from the persistent flags.
func openApp(cmd *cobra.Command) (*cli.App, error) {
	configPath, _ := cmd.Flags().GetString("config")
	storePath, _ := cmd.Flags().GetString("store")
	backend, _ := cmd.Flags().GetString("backend")
	logLevel, _ := cmd.Flags().GetString("log-level")

	return cli.Open(cli.Options{
		ConfigPath: configPath,
		StorePath:  storePath,
		Backend:    backend,
		LogLevel:   logLevel,
		LogOutput:  cmd.ErrOrStderr(),
	})
}

// withApp opens the engine, runs fn and closes the backend.
func withApp(cmd *cobra.Command, fn func(app *cli.App) error) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			app.Logger.Warn("close failed", "err", err)
		}
	}()
	return fn(app)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
