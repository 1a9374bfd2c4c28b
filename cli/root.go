package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var defaultConfigPath string
var dbPath string
var chainName string

func init() {
	rootCmd.PersistentFlags().StringVar(&defaultConfigPath, "config", "./config/config.toml", "Path to the config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "badger", "./badger", "Path to the BadgerDB state directory")
	rootCmd.PersistentFlags().StringVar(&chainName, "chainname", "golos-worker", "Chain ID used by init genesis")
}

var rootCmd = &cobra.Command{
	Use:          "golos",
	Short:        "Worker funding chain node",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNode(cmd.Context())
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
