package yggdrasil

import (
	"context"
	"fmt"
	"time"

	"github.com/gologme/log"
	"github.com/spf13/viper"
)

// TestConnectivity starts a temporary overlay node with the configured key
// and peers, and reports an error unless a peer connects within wait.
func TestConnectivity(ctx context.Context, config *viper.Viper, wait time.Duration) error {
	ygg := config.Sub("yggdrasil")
	if ygg == nil {
		return fmt.Errorf("no [yggdrasil] section in config")
	}
	cfg, err := loadNodeConfig(ygg)
	if err != nil {
		return err
	}
	cfg.Peers = resolvePeers(ygg)

	c, err := newCore(cfg, log.Default())
	if err != nil {
		return err
	}
	defer c.Stop()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	if len(c.GetPeers()) == 0 {
		return fmt.Errorf("no peers connected out of %d configured", len(cfg.Peers))
	}
	return nil
}
