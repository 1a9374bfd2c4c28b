package yggdrasil

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"

	"github.com/gologme/log"
	"github.com/spf13/viper"

	"github.com/yggdrasil-network/yggdrasil-go/src/admin"
	yggConfig "github.com/yggdrasil-network/yggdrasil-go/src/config"
	"github.com/yggdrasil-network/yggdrasil-go/src/core"
	"github.com/yggdrasil-network/yggdrasil-go/src/multicast"
	"github.com/yggdrasil-network/yggstack/src/netstack"
	"github.com/yggdrasil-network/yggstack/src/types"

	"github.com/kedgaks/golos/persistentpeersparser"
)

type node struct {
	core      *core.Core
	multicast *multicast.Multicast
	admin     *admin.AdminSocket
}

func (n *node) stop() {
	if n.admin != nil {
		_ = n.admin.Stop()
	}
	if n.multicast != nil {
		_ = n.multicast.Stop()
	}
	if n.core != nil {
		n.core.Stop()
	}
}

// resolvePeers picks the overlay peers: three of the closest public peers
// when peers is "auto", the configured list otherwise.
func resolvePeers(ygg *viper.Viper) []string {
	if ygg.GetString("peers") != "auto" {
		return ygg.GetStringSlice("peers")
	}
	var urls []string
	for _, u := range RandomPick(GetClosestPeers(getPublicPeers(), 20), 3) {
		urls = append(urls, u.String())
	}
	return urls
}

// Yggdrasil starts the overlay node and tunnels Tendermint p2p traffic
// through it. It sends two values on ch: the local address Tendermint must
// listen on, then the comma separated persistent peers rewritten to local
// tunnel ends. It blocks until ctx is done.
func Yggdrasil(ctx context.Context, config *viper.Viper, ch chan<- string) error {
	var remoteTcp types.TCPRemoteMappings

	ygg := config.Sub("yggdrasil")
	if ygg == nil {
		return fmt.Errorf("no [yggdrasil] section in config")
	}
	p2p := config.Sub("p2p")
	if p2p == nil {
		return fmt.Errorf("no [p2p] section in config")
	}

	logger := log.New(os.Stdout, "", log.Flags())

	if err := remoteTcp.Set(p2p.GetString("laddr")); err != nil {
		return fmt.Errorf("p2p.laddr: %w", err)
	}
	ch <- remoteTcp[0].Mapped.String()

	parsed, err := persistentpeersparser.ParseEntries(p2p.GetString("persistent_peers"))
	if err != nil {
		logger.Warnln("Persistent peers are malformed, starting without them:", err)
		parsed = nil
	}

	cfg, err := loadNodeConfig(ygg)
	if err != nil {
		return err
	}
	cfg.Peers = resolvePeers(ygg)
	logger.Infof("Yggdrasil peers: %s", cfg.Peers)

	n := &node{}
	defer n.stop()

	if n.core, err = newCore(cfg, logger); err != nil {
		return fmt.Errorf("start yggdrasil core: %w", err)
	}
	address, subnet := n.core.Address(), n.core.Subnet()
	publicstr := hex.EncodeToString(n.core.PublicKey())
	logger.Printf("Your public key is %s", publicstr)
	logger.Printf("Your IPv6 address is %s", address.String())
	logger.Printf("Your IPv6 subnet is %s", subnet.String())
	logger.Printf("Your Yggstack resolver name is %s%s", publicstr, types.NameMappingSuffix)

	if err := n.setupAdmin(cfg, logger); err != nil {
		return err
	}
	if err := n.setupMulticast(cfg, logger); err != nil {
		return err
	}

	s, err := netstack.CreateYggdrasilNetstack(n.core)
	if err != nil {
		return fmt.Errorf("create netstack: %w", err)
	}

	// Local ends for remote peers: Tendermint dials 127.0.0.1:<port> and
	// the connection is carried to the peer over the overlay.
	var peersList []string
	for _, p := range parsed {
		mapped := p.TCPAddr()
		if !p.Overlay() || mapped == nil {
			logger.Warnf("Skipping peer %s: only ygg://[addr]:port peers are tunneled", p.ID)
			continue
		}
		listener, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
		if err != nil {
			return fmt.Errorf("listen for peer %s: %w", p.ID, err)
		}
		realPort := listener.Addr().(*net.TCPAddr).Port
		peersList = append(peersList, p.Via(realPort))

		logger.Infof("Mapping local TCP port %d to Ygg %s", realPort, mapped.String())
		go func() {
			<-ctx.Done()
			listener.Close()
		}()
		go func() {
			for {
				c, err := listener.Accept()
				if err != nil {
					return
				}
				r, err := s.DialTCP(mapped)
				if err != nil {
					logger.Errorf("Failed to connect to %s: %s", mapped.String(), err)
					_ = c.Close()
					continue
				}
				go types.ProxyTCP(n.core.MTU(), c, r)
			}
		}()
	}
	ch <- strings.Join(peersList, ",")

	// Overlay ends of this node: connections to the overlay port are
	// forwarded to the local Tendermint listener.
	for _, mapping := range remoteTcp {
		listener, err := s.ListenTCP(mapping.Listen)
		if err != nil {
			return fmt.Errorf("listen on overlay port %d: %w", mapping.Listen.Port, err)
		}
		logger.Infof("Mapping Yggdrasil TCP port %d to %s", mapping.Listen.Port, mapping.Mapped)
		go func() {
			<-ctx.Done()
			listener.Close()
		}()
		go func(mapping types.TCPMapping) {
			for {
				c, err := listener.Accept()
				if err != nil {
					return
				}
				r, err := net.DialTCP("tcp", nil, mapping.Mapped)
				if err != nil {
					logger.Errorf("Failed to connect to %s: %s", mapping.Mapped, err)
					_ = c.Close()
					continue
				}
				go types.ProxyTCP(n.core.MTU(), c, r)
			}
		}(mapping)
	}

	<-ctx.Done()
	return nil
}

func (n *node) setupAdmin(cfg *yggConfig.NodeConfig, logger *log.Logger) error {
	options := []admin.SetupOption{
		admin.ListenAddress(cfg.AdminListen),
	}
	if cfg.LogLookups {
		options = append(options, admin.LogLookups{})
	}
	var err error
	if n.admin, err = admin.New(n.core, logger, options...); err != nil {
		return fmt.Errorf("admin socket: %w", err)
	}
	if n.admin != nil {
		n.admin.SetupAdminHandlers()
	}
	return nil
}

func (n *node) setupMulticast(cfg *yggConfig.NodeConfig, logger *log.Logger) error {
	options := []multicast.SetupOption{}
	for _, intf := range cfg.MulticastInterfaces {
		options = append(options, multicast.MulticastInterface{
			Regex:    regexp.MustCompile(intf.Regex),
			Beacon:   intf.Beacon,
			Listen:   intf.Listen,
			Port:     intf.Port,
			Priority: uint8(intf.Priority),
			Password: intf.Password,
		})
	}
	var err error
	if n.multicast, err = multicast.New(n.core, logger, options...); err != nil {
		return fmt.Errorf("multicast: %w", err)
	}
	if n.admin != nil && n.multicast != nil {
		n.multicast.SetupAdminHandlers(n.admin)
	}
	return nil
}
