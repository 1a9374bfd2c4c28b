package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kedgaks/golos/cfg"
	"github.com/kedgaks/golos/yggdrasil"
)

var yggWait time.Duration

var testYggdrasilCmd = &cobra.Command{
	Use:   "testYggdrasil",
	Short: "Check Yggdrasil connectivity without starting Tendermint",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := cfg.LoadViperConfig(defaultConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if err := yggdrasil.TestConnectivity(cmd.Context(), v, yggWait); err != nil {
			return fmt.Errorf("test failed: %w", err)
		}
		fmt.Println("Yggdrasil connectivity test successful")
		return nil
	},
}

func init() {
	testYggdrasilCmd.Flags().DurationVar(&yggWait, "wait", 5*time.Second, "How long to wait for peers")
	rootCmd.AddCommand(testYggdrasilCmd)
}
