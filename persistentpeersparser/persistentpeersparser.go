// Package persistentpeersparser reads Tendermint persistent_peers values of
// the form "<node id>@[proto://]host[:port]", including the ygg:// peers
// written by init.
package persistentpeersparser

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// OverlayProto marks peers reachable only through the Yggdrasil overlay.
const OverlayProto = "ygg"

// Peer is one persistent peer entry. Host never carries IPv6 brackets and
// Port is zero when the entry gives none.
type Peer struct {
	ID    string
	Proto string
	Host  string
	Port  uint16
}

// Overlay reports whether the peer has to be tunneled through the overlay.
func (p Peer) Overlay() bool {
	return p.Proto == OverlayProto && p.Port != 0
}

// TCPAddr is the overlay address to dial; nil when Host is not an IP.
func (p Peer) TCPAddr() *net.TCPAddr {
	ip := net.ParseIP(p.Host)
	if ip == nil {
		return nil
	}
	return &net.TCPAddr{IP: ip, Port: int(p.Port)}
}

// Via renders the entry Tendermint should dial instead: the same node id at
// a local tunnel port.
func (p Peer) Via(localPort int) string {
	return fmt.Sprintf("%s@127.0.0.1:%d", p.ID, localPort)
}

// ParseEntries parses a comma separated persistent_peers value. Empty
// entries are skipped.
func ParseEntries(input string) ([]Peer, error) {
	var peers []Peer
	for _, entry := range strings.Split(input, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		p, err := parseEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid entry %q: %w", entry, err)
		}
		peers = append(peers, p)
	}
	return peers, nil
}

func parseEntry(entry string) (Peer, error) {
	id, addr, ok := strings.Cut(entry, "@")
	if !ok {
		return Peer{}, fmt.Errorf("missing node id")
	}
	if id == "" || strings.Trim(id, "0123456789abcdefABCDEF") != "" {
		return Peer{}, fmt.Errorf("node id is not hex")
	}
	p := Peer{ID: id}
	if proto, rest, ok := strings.Cut(addr, "://"); ok {
		p.Proto, addr = proto, rest
	}

	host, port := addr, ""
	switch {
	case strings.HasPrefix(addr, "["):
		end := strings.Index(addr, "]")
		if end < 0 {
			return Peer{}, fmt.Errorf("unclosed bracket")
		}
		host, port = addr[1:end], addr[end+1:]
		if port != "" && !strings.HasPrefix(port, ":") {
			return Peer{}, fmt.Errorf("garbage after address")
		}
		port = strings.TrimPrefix(port, ":")
	case strings.Contains(addr, ":"):
		var err error
		if host, port, err = net.SplitHostPort(addr); err != nil {
			return Peer{}, err
		}
	}
	if host == "" {
		return Peer{}, fmt.Errorf("empty host")
	}
	p.Host = host

	if port != "" {
		n, err := strconv.ParseUint(port, 10, 16)
		if err != nil || n == 0 {
			return Peer{}, fmt.Errorf("bad port %q", port)
		}
		p.Port = uint16(n)
	}
	return p, nil
}
