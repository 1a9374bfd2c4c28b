// Package cfg reads and writes the node configuration: the Tendermint
// config.toml with its [yggdrasil] and [worker] sections, genesis.json and
// the YAML genesis state.
package cfg

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
	cfg "github.com/tendermint/tendermint/config"
	"github.com/tendermint/tendermint/p2p"

	"github.com/kedgaks/golos/worker"
	"github.com/kedgaks/golos/yggdrasil"
)

type Config = cfg.Config

const yggListenPort = 4224

func DefaultConfig() *Config {
	return cfg.DefaultConfig()
}

// yggKeyPath keeps the overlay key next to config.toml.
func yggKeyPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "yggdrasil.key")
}

func writeYggdrasilKey(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	bytes := yggdrasil.GeneratePrivateKey()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(hex.EncodeToString(bytes[:])), 0600)
}

// WriteConfig writes config.toml for config. Persistent peers come from
// genesis.json when it lists any, otherwise this node is announced as the
// only peer.
func WriteConfig(config *Config, configPath string, nodeInfo p2p.NodeInfo) (*viper.Viper, error) {
	keyPath := yggKeyPath(configPath)
	if err := writeYggdrasilKey(keyPath); err != nil {
		return nil, fmt.Errorf("write yggdrasil key: %w", err)
	}
	pubkey, err := yggdrasil.GetPublicKey(keyPath)
	if err != nil {
		return nil, fmt.Errorf("yggdrasil key not found: %w", err)
	}
	fmt.Printf("Yggdrasil node domain: %s.pk.ygg\n", hex.EncodeToString(pubkey))

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	v.Set("moniker", config.Moniker)
	v.Set("db_backend", config.DBBackend)
	v.Set("db_dir", config.DBDir())
	v.Set("log_level", config.LogLevel)
	v.Set("log_format", config.LogFormat)
	v.Set("genesis_file", config.GenesisFile())
	v.Set("node_key_file", config.NodeKeyFile())
	v.Set("abci", config.ABCI)
	v.Set("filter_peers", config.FilterPeers)

	v.Set("priv_validator", map[string]any{
		"key_file":                config.PrivValidatorKeyFile(),
		"state_file":              config.PrivValidatorStateFile(),
		"laddr":                   config.PrivValidatorListenAddr,
		"client_certificate_file": "",
		"client_key_file":         "",
		"root_ca_file":            "",
	})

	v.Set("yggdrasil", map[string]any{
		"admin_listen":        "none",
		"peers":               "auto",
		"allowed_public_keys": []string{},
		"private_key_file":    keyPath,
	})

	if peers := ReadP2Peers(configPath); peers != "" {
		config.P2P.PersistentPeers = peers
	} else if nodeInfo != nil {
		addr, err := yggdrasil.GetYggdrasilAddress(v)
		if err != nil {
			return nil, err
		}
		config.P2P.PersistentPeers = peerString(nodeInfo, addr)
	}

	v.Set("p2p", map[string]any{
		"use_legacy":       false,
		"queue_type":       "priority",
		"laddr":            strconv.Itoa(yggListenPort) + ":127.0.0.1:8000",
		"external_address": "",
		"upnp":             false,
		"bootstrap_peers":  "",
		"persistent_peers": config.P2P.PersistentPeers,
		"addr_book_file":   "config/addrbook.json",
		"addr_book_strict": false,
	})

	setWorkerDefaults(v)
	if err := v.WriteConfigAs(configPath); err != nil {
		return nil, fmt.Errorf("error writing config: %w", err)
	}
	return v, nil
}

func peerString(nodeInfo p2p.NodeInfo, yggAddr string) string {
	return fmt.Sprintf("%s@ygg://[%s]:%d", nodeInfo.ID(), yggAddr, yggListenPort)
}

func setWorkerDefaults(v *viper.Viper) {
	p := worker.DefaultParams()
	v.SetDefault("worker.activation_height", p.ActivationHeight)
	v.SetDefault("worker.techspec_approve_term", p.TechspecApproveTerm.String())
	v.SetDefault("worker.result_approve_term", p.ResultApproveTerm.String())
	v.SetDefault("worker.top_witnesses", worker.DefaultTopWitnesses)
	v.SetDefault("worker.http_listen", "")
}

// LoadViperConfig reads config.toml into a fresh viper instance.
func LoadViperConfig(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	err := v.ReadInConfig()
	return v, err
}

// ReadConfig returns the Tendermint config stored in configFile. RootDir is
// the parent of the config directory.
func ReadConfig(configFile string) (*Config, error) {
	v, err := LoadViperConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("viper read config: %w", err)
	}
	return configFrom(v, configFile)
}

func configFrom(v *viper.Viper, configFile string) (*Config, error) {
	config := cfg.DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("viper unmarshal: %w", err)
	}
	config.SetRoot(filepath.Dir(filepath.Dir(configFile)))
	if err := config.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("config invalid: %w", err)
	}
	return config, nil
}

// WorkerParams reads the [worker] section. Majority thresholds default to
// the quorum of top_witnesses.
func WorkerParams(v *viper.Viper) (worker.Params, error) {
	setWorkerDefaults(v)
	top := v.GetInt("worker.top_witnesses")
	if top < 1 {
		return worker.Params{}, fmt.Errorf("worker.top_witnesses must be positive, got %d", top)
	}
	p := worker.ParamsFor(top)
	p.ActivationHeight = v.GetInt64("worker.activation_height")

	var err error
	if p.TechspecApproveTerm, err = duration(v, "worker.techspec_approve_term"); err != nil {
		return worker.Params{}, err
	}
	if p.ResultApproveTerm, err = duration(v, "worker.result_approve_term"); err != nil {
		return worker.Params{}, err
	}
	if v.IsSet("worker.majority") {
		p.Majority = v.GetInt("worker.majority")
	}
	if v.IsSet("worker.super_majority") {
		p.SuperMajority = v.GetInt("worker.super_majority")
	}
	if err := p.Validate(); err != nil {
		return worker.Params{}, fmt.Errorf("[worker]: %w", err)
	}
	return p, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// HTTPListen is the address of the worker read API; empty disables it.
func HTTPListen(v *viper.Viper) string {
	return v.GetString("worker.http_listen")
}

// ReadP2Peers returns the p2peers entry that the genesis node added to the
// genesis.json next to configFile.
func ReadP2Peers(configFile string) string {
	var genesis map[string]any
	genesisJson, err := os.ReadFile(filepath.Join(filepath.Dir(configFile), "genesis.json"))
	if err != nil {
		return ""
	}
	_ = json.Unmarshal(genesisJson, &genesis)
	p2peers, _ := genesis["p2peers"].(string)
	return p2peers
}
