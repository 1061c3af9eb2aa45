package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/nagarikta/internal/ocrengine"
	"github.com/MeKo-Tech/nagarikta/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, version.Current())
		_, _ = fmt.Fprintf(out, "Engines: %v\n", ocrengine.DefaultRegistry().Names())
	},
}
