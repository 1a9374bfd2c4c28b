package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gologme/log"

	"github.com/kedgaks/golos/blockchain"
	"github.com/kedgaks/golos/cfg"
	"github.com/kedgaks/golos/yggdrasil"
)

const notInitialized = `config file not found: %v

The node does not look initialized yet. Create the files with one of:

  golos init genesis --state state.yaml   # start a new chain
  golos init join <genesis.json>          # join an existing chain

The config file is looked up at: %s
`

func runNode(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	v, err := cfg.LoadViperConfig(defaultConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, notInitialized, err, defaultConfigPath)
		return errors.New("node is not initialized")
	}
	config, err := cfg.ReadConfig(defaultConfigPath)
	if err != nil {
		return fmt.Errorf("config not read: %w", err)
	}
	params, err := cfg.WorkerParams(v)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	laddrReturner := make(chan string, 2)
	go func() {
		if err := yggdrasil.Yggdrasil(ctx, v, laddrReturner); err != nil {
			log.Errorln("Yggdrasil stopped:", err)
			cancel()
		}
	}()

	return blockchain.Run(ctx, config, blockchain.Options{
		DBPath:     dbPath,
		Params:     params,
		HTTPListen: cfg.HTTPListen(v),
	}, laddrReturner)
}
