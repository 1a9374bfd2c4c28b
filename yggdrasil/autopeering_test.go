package yggdrasil

import (
	"net"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadPeersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peers.txt")
	content := "tcp://1.2.3.4:5000\n\n# comment\ntls://[200::1]:443\nnot a peer\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	peers := readPeersFile(path)
	require.Len(t, peers, 2)
	require.Equal(t, "1.2.3.4:5000", peers[0].Host)
	require.Equal(t, "tls", peers[1].Scheme)

	require.Nil(t, readPeersFile(filepath.Join(t.TempDir(), "missing.txt")))
}

func TestRandomPick(t *testing.T) {
	var peers []url.URL
	for _, h := range []string{"a:1", "b:2", "c:3", "d:4", "e:5"} {
		peers = append(peers, url.URL{Scheme: "tcp", Host: h})
	}
	require.Len(t, RandomPick(peers, 10), 5)

	picked := RandomPick(peers, 3)
	require.Len(t, picked, 3)
	seen := map[string]bool{}
	for _, p := range picked {
		require.Contains(t, peers, p)
		require.False(t, seen[p.Host])
		seen[p.Host] = true
	}
}

func TestGetClosestPeersSkipsOffline(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	offline := closed.Addr().String()
	closed.Close()

	peers := []url.URL{
		{Scheme: "tcp", Host: offline},
		{Scheme: "tcp", Host: l.Addr().String()},
		{Scheme: "quic", Host: l.Addr().String()},
	}
	got := GetClosestPeers(peers, 5)
	require.Equal(t, []url.URL{{Scheme: "tcp", Host: l.Addr().String()}}, got)
}
