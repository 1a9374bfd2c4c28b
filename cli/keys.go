package cli

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage account signing keys",
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate <key-file>",
	Short: "Generate an ed25519 key pair and print the public key for the genesis state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err == nil {
			return fmt.Errorf("%s already exists", args[0])
		}
		pub, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(args[0]), 0o700); err != nil {
			return err
		}
		if err := os.WriteFile(args[0], []byte(base64.StdEncoding.EncodeToString(priv)), 0o600); err != nil {
			return err
		}
		fmt.Println(base64.StdEncoding.EncodeToString(pub))
		return nil
	},
}

var keysShowCmd = &cobra.Command{
	Use:   "show <key-file>",
	Short: "Print the public key of a key file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		priv, err := readKey(args[0])
		if err != nil {
			return err
		}
		fmt.Println(base64.StdEncoding.EncodeToString(priv.Public().(ed25519.PublicKey)))
		return nil
	},
}

// readKey loads a base64 ed25519 private key written by keys generate.
func readKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base64: %w", path, err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, errors.New(path + ": not an ed25519 private key")
	}
	return ed25519.PrivateKey(raw), nil
}

func init() {
	keysCmd.AddCommand(keysGenerateCmd, keysShowCmd)
	rootCmd.AddCommand(keysCmd)
}
