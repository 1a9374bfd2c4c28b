package blockchain

import (
	"context"
	"fmt"
	"os"

	"github.com/dgraph-io/badger"
	abci "github.com/tendermint/tendermint/abci/types"
	cfg "github.com/tendermint/tendermint/config"
	"github.com/tendermint/tendermint/libs/log"
	nm "github.com/tendermint/tendermint/node"
	"github.com/tendermint/tendermint/p2p"
	"github.com/tendermint/tendermint/privval"
	"github.com/tendermint/tendermint/proxy"
	tmTypes "github.com/tendermint/tendermint/types"

	"github.com/kedgaks/golos/worker"
	"github.com/kedgaks/golos/workerapi"
)

// Options configure a node run.
type Options struct {
	DBPath string
	Params worker.Params
	// HTTPListen is the address of the worker read API. Empty disables it.
	HTTPListen string
}

func openBadger(path string) (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions(path).WithTruncate(true))
}

// NewLogger returns the node logger filtered to config.LogLevel.
func NewLogger(config *cfg.Config) log.Logger {
	logger := log.NewTMLogger(log.NewSyncWriter(os.Stdout))
	opt, err := log.AllowLevel(config.LogLevel)
	if err != nil {
		logger.Error("Unknown log level, using info", "log_level", config.LogLevel)
		opt = log.AllowInfo()
	}
	return log.NewFilter(logger, opt)
}

func loadPrivValidator(config *cfg.Config, logger log.Logger) tmTypes.PrivValidator {
	if _, err := os.Stat(config.PrivValidatorKeyFile()); err == nil {
		return privval.LoadFilePV(
			config.PrivValidatorKeyFile(),
			config.PrivValidatorStateFile(),
		)
	}
	logger.Info("priv_validator_key.json not found. Node will run as non-validator.")
	return tmTypes.NewMockPV()
}

func newTendermint(app abci.Application, config *cfg.Config, logger log.Logger) (*nm.Node, error) {
	nodeKey, err := p2p.LoadNodeKey(config.NodeKeyFile())
	if err != nil {
		return nil, fmt.Errorf("load node key: %w", err)
	}

	return nm.NewNode(
		config,
		loadPrivValidator(config, logger),
		nodeKey,
		proxy.NewLocalClientCreator(app),
		nm.DefaultGenesisDocProviderFunc(config),
		nm.DefaultDBProvider,
		nm.DefaultMetricsProvider(config.Instrumentation),
		logger,
	)
}

// GetNodeInfo builds, without starting, a node over the local database to
// learn its p2p identity.
func GetNodeInfo(config *cfg.Config, opts Options) (p2p.NodeInfo, error) {
	db, err := openBadger(opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db to get node info: %w", err)
	}
	defer db.Close()

	logger := NewLogger(config)
	app, err := NewWorkerApp(db, opts.Params, logger)
	if err != nil {
		return nil, err
	}

	config.P2P.PersistentPeers = ""
	node, err := newTendermint(app, config, logger)
	if err != nil {
		return nil, err
	}
	return node.NodeInfo(), nil
}

// Run starts the node and blocks until ctx is done or the node quits. The
// first two values read from laddrReturner are the p2p listen address and
// the persistent peers provided by the overlay transport.
func Run(ctx context.Context, config *cfg.Config, opts Options, laddrReturner <-chan string) error {
	db, err := openBadger(opts.DBPath)
	if err != nil {
		return fmt.Errorf("open badger db: %w", err)
	}
	defer db.Close()

	logger := NewLogger(config)
	app, err := NewWorkerApp(db, opts.Params, logger)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	select {
	case laddr := <-laddrReturner:
		config.P2P.ListenAddress = "tcp://" + laddr
	case <-ctx.Done():
		return nil
	}
	select {
	case peers := <-laddrReturner:
		config.P2P.PersistentPeers = peers
	case <-ctx.Done():
		return nil
	}

	node, err := newTendermint(app, config, logger)
	if err != nil {
		return fmt.Errorf("build node: %w", err)
	}
	if err := node.Start(); err != nil {
		return fmt.Errorf("start node: %w", err)
	}
	defer func() {
		if err := node.Stop(); err != nil {
			logger.Error("Node stop", "err", err)
		}
		node.Wait()
	}()

	apiErr := make(chan error, 1)
	if opts.HTTPListen != "" {
		go func() {
			apiErr <- workerapi.ListenAndServe(ctx, opts.HTTPListen, workerapi.NewRouter(app), logger)
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case <-node.Quit():
		return nil
	case err := <-apiErr:
		if err != nil {
			return fmt.Errorf("worker api: %w", err)
		}
		<-ctx.Done()
		return nil
	}
}
