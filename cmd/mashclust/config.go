package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"mashclust/internal/config"
	mcerrors "mashclust/internal/errors"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage mashclust configuration",
	Long:  "Create and inspect mashclust.toml",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with defaults",
	Long: `Write mashclust.toml with every default value.

Examples:
  mashclust config init
  mashclust config init ~/.config/mashclust/mashclust.toml --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  "Print the configuration after merging defaults, the config file and MASHCLUST_* environment variables.",
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.FileName + ".toml"
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !configForce {
		return mcerrors.New(mcerrors.InvalidConfig, "config file already exists: "+path, nil,
			mcerrors.FixAction{Type: mcerrors.RunCommand, Command: "mashclust config init --force", Description: "overwrite it"})
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return mcerrors.New(mcerrors.ExportFailed, "failed to write config file", err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	s, err := setup(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	shown := *s.cfg
	if shown.Download.APIKey != "" {
		shown.Download.APIKey = "<set>"
	}
	if OutputFormat(outputFormat) == FormatJSON {
		return printResponse(&shown)
	}
	data, err := toml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
