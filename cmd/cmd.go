package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/wenzapen/scout/cmd/infer"
	"github.com/wenzapen/scout/cmd/run"
	"github.com/wenzapen/scout/config"
	"github.com/wenzapen/scout/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version",
	Long:  "print version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version.Get().Fprint(cmd.OutOrStdout())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "print a starter config file",
	Long:  "print the default configuration as TOML, ready to save as scout.toml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.Encode(cmd.OutOrStdout(), config.Default())
	},
}

func NewRootCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:          "scout",
		Short:        "declarative scraping recipes and selector inference",
		SilenceUsage: true,
		Version:      version.Get().Short(),
	}
	rootCmd.AddCommand(run.RunCmd, infer.InferCmd, configCmd, versionCmd)
	return rootCmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
