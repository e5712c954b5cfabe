package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/vignette"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of vignette",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vignette version %s\n", strings.TrimSpace(vignette.Version))
		},
	}
}
