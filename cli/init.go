package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kedgaks/golos/blockchain"
	"github.com/kedgaks/golos/cfg"
)

var statePath string

var initCmd = &cobra.Command{
	Use:   "init [genesis|join] [genesis-path]",
	Short: "Initialize a node: genesis or join",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "genesis":
			config, v, err := cfg.InitGenesis(chainName, defaultConfigPath, statePath)
			if err != nil {
				return err
			}
			params, err := cfg.WorkerParams(v)
			if err != nil {
				return err
			}
			nodeinfo, err := blockchain.GetNodeInfo(config, blockchain.Options{DBPath: dbPath, Params: params})
			if err != nil {
				return err
			}
			if err := cfg.UpdateGenesisJson(nodeinfo, v, filepath.Dir(defaultConfigPath)); err != nil {
				return fmt.Errorf("update genesis.json: %w", err)
			}
			fmt.Println("Genesis node initialized.")
		case "join":
			if len(args) < 2 {
				return fmt.Errorf("path to genesis.json is required")
			}
			if _, err := cfg.InitJoiner(defaultConfigPath, args[1]); err != nil {
				return err
			}
			fmt.Println("Joiner node initialized.")
		default:
			return fmt.Errorf("unknown init mode: %s", args[0])
		}
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&statePath, "state", "", "YAML genesis state: accounts, witnesses, posts and fund (genesis only)")
	rootCmd.AddCommand(initCmd)
}
