package main

import (
	"github.com/spf13/cobra"

	"mashclust/internal/version"
)

var (
	// configPath is the --config flag value
	configPath string
	verbosity  int
	quiet      bool
	logFile    string
	logFormat  string
	// outputFormat selects how command summaries are printed
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "mashclust",
	Short: "mashclust - cluster genome assemblies by mash distance",
	Long: `mashclust groups genome assemblies whose pairwise mash distance is within
an identity threshold and selects a bounded, reproducible set of
representatives per cluster.

The full pipeline is download -> sketch -> distances -> cluster -> visualize
-> finalize; "mashclust run" chains sketch through visualize.`,
	Version:       version.Version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.SetVersionTemplate("mashclust version {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default: ./mashclust.toml, then ~/.config/mashclust/mashclust.toml)")
	pf.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v debug)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
	pf.StringVar(&logFile, "log-file", "", "Also append logs to this file")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json (default from config)")
	pf.StringVar(&outputFormat, "format", string(FormatHuman), "Summary output format (human, json)")
}
