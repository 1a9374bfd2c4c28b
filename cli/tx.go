package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kedgaks/golos/protocol"
)

var (
	keyPath string
	txNonce uint64
)

var txCmd = &cobra.Command{
	Use:   "tx <operation> <json>",
	Short: "Sign an operation and broadcast it",
	Long: `Sign an operation and broadcast it to a node, for example

  golos tx worker_proposal '{"author":"alice","permlink":"idea","kind":"task"}' --key alice.key

The nonce defaults to the signer's last nonce plus one.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := protocol.DecodeOperation(args[0], []byte(args[1]))
		if err != nil {
			return err
		}
		if err := op.Validate(); err != nil {
			return err
		}
		key, err := readKey(keyPath)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		nonce := txNonce
		if nonce == 0 {
			acc, err := c.account(cmd.Context(), op.Authority())
			if err != nil {
				return fmt.Errorf("look up nonce of %s: %w", op.Authority(), err)
			}
			nonce = acc.Nonce + 1
		}
		tx, err := protocol.SignTx(op, nonce, key)
		if err != nil {
			return err
		}
		res, err := c.broadcast(cmd.Context(), tx)
		if err != nil {
			return err
		}
		fmt.Printf("Committed %s at height %d, tx %s\n", op.Type(), res.Height, res.Hash)
		return nil
	},
}

func init() {
	txCmd.Flags().StringVar(&keyPath, "key", "", "Signer's private key file")
	txCmd.Flags().Uint64Var(&txNonce, "nonce", 0, "Transaction nonce, 0 looks it up")
	txCmd.Flags().StringVar(&nodeAddr, "node", "tcp://127.0.0.1:26657", "Tendermint RPC address")
	_ = txCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(txCmd)
}
