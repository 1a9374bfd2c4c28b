package cfg

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"github.com/tendermint/tendermint/p2p"
	"github.com/tendermint/tendermint/privval"
	tmTypes "github.com/tendermint/tendermint/types"
	"gopkg.in/yaml.v3"

	"github.com/kedgaks/golos/blockchain/types"
	"github.com/kedgaks/golos/yggdrasil"
)

// LoadGenesisState reads the YAML genesis state: accounts, witnesses, posts
// and the worker fund.
func LoadGenesisState(path string) (types.GenesisState, error) {
	var state types.GenesisState
	data, err := os.ReadFile(path)
	if err != nil {
		return state, err
	}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := state.Validate(); err != nil {
		return state, fmt.Errorf("genesis state %s: %w", path, err)
	}
	return state, nil
}

// InitTendermintFiles creates the validator and node keys and, for a genesis
// node, genesis.json carrying appState.
func InitTendermintFiles(config *Config, isGenesis bool, chainName string, appState json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(config.PrivValidatorKeyFile()), 0700); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(config.RootDir, "data"), 0700); err != nil {
		return err
	}

	pv := privval.GenFilePV(
		config.PrivValidatorKeyFile(),
		config.PrivValidatorStateFile(),
	)
	if _, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile()); err != nil {
		return err
	}
	key, err := pv.GetPubKey()
	if err != nil {
		return err
	}
	pv.Save()

	if !isGenesis {
		return nil
	}
	genDoc := &tmTypes.GenesisDoc{
		ChainID:         chainName,
		GenesisTime:     time.Now().UTC(),
		ConsensusParams: tmTypes.DefaultConsensusParams(),
		Validators: []tmTypes.GenesisValidator{
			{
				Address: key.Address(),
				PubKey:  key,
				Power:   10,
				Name:    config.Moniker,
			},
		},
		AppHash:  []byte{},
		AppState: appState,
	}
	return genDoc.SaveAs(config.GenesisFile())
}

// UpdateGenesisJson records this node as the p2peers entry of genesis.json
// so that joiners find it.
func UpdateGenesisJson(nodeInfo p2p.NodeInfo, v *viper.Viper, configDir string) error {
	genesisJsonPath := filepath.Join(configDir, "genesis.json")
	file, err := os.ReadFile(genesisJsonPath)
	if err != nil {
		return err
	}

	var dat map[string]any
	if err := json.Unmarshal(file, &dat); err != nil {
		return fmt.Errorf("parse genesis.json: %w", err)
	}

	myPeer, err := yggdrasil.GetYggdrasilAddress(v)
	if err != nil {
		return err
	}
	dat["p2peers"] = peerString(nodeInfo, myPeer)

	out, err := json.MarshalIndent(dat, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(genesisJsonPath, out, 0o644)
}

func newConfig(configPath string) *Config {
	config := DefaultConfig()
	config.SetRoot(filepath.Dir(filepath.Dir(configPath)))
	return config
}

// InitGenesis writes config.toml, keys and genesis.json for a new chain
// whose app state is read from statePath. An empty statePath starts the
// chain with no accounts.
func InitGenesis(chainName, configPath, statePath string) (*Config, *viper.Viper, error) {
	var appState json.RawMessage
	if statePath != "" {
		state, err := LoadGenesisState(statePath)
		if err != nil {
			return nil, nil, err
		}
		if appState, err = json.Marshal(state); err != nil {
			return nil, nil, err
		}
	}

	config := newConfig(configPath)
	v, err := WriteConfig(config, configPath, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := InitTendermintFiles(config, true, chainName, appState); err != nil {
		return nil, nil, fmt.Errorf("failed to init files: %w", err)
	}
	return config, v, nil
}

// InitJoiner prepares a node joining the chain described by genesisPath.
func InitJoiner(configPath, genesisPath string) (*Config, error) {
	config := newConfig(configPath)
	if err := copyFile(genesisPath, config.GenesisFile()); err != nil {
		return nil, fmt.Errorf("copy genesis.json: %w", err)
	}
	if _, err := WriteConfig(config, configPath, nil); err != nil {
		return nil, err
	}
	if err := InitTendermintFiles(config, false, "", nil); err != nil {
		return nil, fmt.Errorf("failed to init files: %w", err)
	}
	return config, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err = os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Sync()
		_ = out.Close()
	}()

	_, err = io.Copy(out, in)
	return err
}
