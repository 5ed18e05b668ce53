package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"prism/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "prism",
	Short: "Prism incremental diagnostics engine",
	Long:  `Prism runs incremental analyzers over compilation fixtures and reports diagnostics`,
}

func main() {
	rootCmd.Version = version.Version
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(cfgCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 0, "maximum number of diagnostics to keep (0=config)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether the file is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// colorEnabled resolves the --color mode against the output stream.
func colorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "on", "always":
		return true
	case "off", "never":
		return false
	}
	return isTerminal(f)
}
