package yggdrasil

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/gologme/log"
	"github.com/spf13/viper"

	yggConfig "github.com/yggdrasil-network/yggdrasil-go/src/config"
	"github.com/yggdrasil-network/yggdrasil-go/src/core"
)

func GeneratePrivateKey() yggConfig.KeyBytes {
	return yggConfig.GenerateConfig().PrivateKey
}

func readPrivateKey(keyPath string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	decoded, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key hex: %w", err)
	}
	if len(decoded) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key size: got %d, expected %d", len(decoded), ed25519.PrivateKeySize)
	}
	return ed25519.PrivateKey(decoded), nil
}

func GetPublicKey(keyPath string) (ed25519.PublicKey, error) {
	key, err := readPrivateKey(keyPath)
	if err != nil {
		return nil, err
	}
	return key.Public().(ed25519.PublicKey), nil
}

// loadNodeConfig builds the overlay node config from the [yggdrasil]
// section, using the key stored in private_key_file.
func loadNodeConfig(ygg *viper.Viper) (*yggConfig.NodeConfig, error) {
	cfg := yggConfig.GenerateConfig()
	cfg.AdminListen = ygg.GetString("admin_listen")
	cfg.Listen = ygg.GetStringSlice("listen")
	cfg.AllowedPublicKeys = ygg.GetStringSlice("allowed_public_keys")
	cfg.PrivateKeyPath = ygg.GetString("private_key_file")

	if cfg.PrivateKeyPath != "" {
		key, err := readPrivateKey(cfg.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		copy(cfg.PrivateKey[:], key)
		if err := cfg.GenerateSelfSignedCertificate(); err != nil {
			return nil, fmt.Errorf("failed to generate certificate from private key: %w", err)
		}
	}
	return cfg, nil
}

func newCore(cfg *yggConfig.NodeConfig, logger *log.Logger) (*core.Core, error) {
	options := []core.SetupOption{
		core.NodeInfo(cfg.NodeInfo),
		core.NodeInfoPrivacy(cfg.NodeInfoPrivacy),
	}
	for _, addr := range cfg.Listen {
		options = append(options, core.ListenAddress(addr))
	}
	for _, peer := range cfg.Peers {
		options = append(options, core.Peer{URI: peer})
	}
	for intf, peers := range cfg.InterfacePeers {
		for _, peer := range peers {
			options = append(options, core.Peer{URI: peer, SourceInterface: intf})
		}
	}
	for _, allowed := range cfg.AllowedPublicKeys {
		k, err := hex.DecodeString(allowed)
		if err != nil {
			return nil, fmt.Errorf("allowed public key %q: %w", allowed, err)
		}
		options = append(options, core.AllowedPublicKey(k[:]))
	}
	return core.New(cfg.Certificate, logger, options...)
}

// GetYggdrasilAddress returns the overlay IPv6 address derived from the
// node key, without connecting to any peer.
func GetYggdrasilAddress(config *viper.Viper) (string, error) {
	ygg := config.Sub("yggdrasil")
	if ygg == nil {
		return "", fmt.Errorf("no [yggdrasil] section in config")
	}
	cfg, err := loadNodeConfig(ygg)
	if err != nil {
		return "", err
	}
	c, err := newCore(cfg, log.Default())
	if err != nil {
		return "", err
	}
	defer c.Stop()
	return c.Address().String(), nil
}
