package ledger

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kedgaks/golos/protocol"
	"github.com/kedgaks/golos/store"
)

func newLedger(t *testing.T) (*store.DB, *Ledger) {
	t.Helper()
	db := store.NewDB()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(db, func() time.Time { return now })
	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := l.CreateAccount(name, "", protocol.Native(100))
		require.NoError(t, err)
	}
	return db, l
}

func TestAdjustBalance(t *testing.T) {
	_, l := newLedger(t)

	require.NoError(t, l.AdjustBalance("alice", protocol.Native(-40)))
	acc, ok := l.Account("alice")
	require.True(t, ok)
	require.Equal(t, protocol.Native(60), acc.Balance)

	require.ErrorIs(t, l.AdjustBalance("alice", protocol.Native(-61)), ErrInsufficientBalance)
	require.ErrorIs(t, l.AdjustBalance("nobody", protocol.Native(1)), ErrUnknownAccount)

	_, err := l.CreateAccount("alice", "", protocol.Native(0))
	require.ErrorIs(t, err, ErrAccountExists)
}

func TestNonceSequence(t *testing.T) {
	_, l := newLedger(t)

	require.NoError(t, l.UseNonce("bob", 1))
	require.ErrorIs(t, l.UseNonce("bob", 1), ErrBadNonce)
	require.ErrorIs(t, l.UseNonce("bob", 3), ErrBadNonce)
	require.NoError(t, l.UseNonce("bob", 2))
}

func TestPublicKey(t *testing.T) {
	_, l := newLedger(t)
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	_, err = l.CreateAccount("dave", base64.StdEncoding.EncodeToString(pub), protocol.Native(0))
	require.NoError(t, err)
	got, err := l.PublicKey("dave")
	require.NoError(t, err)
	require.Equal(t, pub, got)

	_, err = l.PublicKey("alice")
	require.Error(t, err)
}

func TestWitnesses(t *testing.T) {
	_, l := newLedger(t)

	require.NoError(t, l.SetWitness("bob", true))
	require.NoError(t, l.SetWitness("alice", true))
	require.NoError(t, l.SetWitness("carol", false))
	require.ErrorIs(t, l.SetWitness("nobody", true), ErrUnknownAccount)

	require.True(t, l.IsTopWitness("alice"))
	require.True(t, l.IsTopWitness("bob"))
	require.False(t, l.IsTopWitness("carol"))

	require.NoError(t, l.SetWitness("bob", false))
	require.False(t, l.IsTopWitness("bob"))
	require.True(t, l.IsTopWitness("alice"))
	require.False(t, l.IsTopWitness("nobody"))
}

func TestPosts(t *testing.T) {
	_, l := newLedger(t)

	require.NoError(t, l.ApplyPost(protocol.Post{Author: "alice", Permlink: "root"}))
	require.NoError(t, l.ApplyPost(protocol.Post{Author: "bob", Permlink: "reply", ParentAuthor: "alice", ParentPermlink: "root"}))
	require.ErrorIs(t, l.ApplyPost(protocol.Post{Author: "bob", Permlink: "orphan", ParentAuthor: "alice", ParentPermlink: "none"}), ErrUnknownPost)
	require.ErrorIs(t, l.ApplyPost(protocol.Post{Author: "nobody", Permlink: "x"}), ErrUnknownAccount)

	// edit keeps the post
	require.NoError(t, l.ApplyPost(protocol.Post{Author: "alice", Permlink: "root"}))
	require.ErrorIs(t, l.ApplyPost(protocol.Post{Author: "bob", Permlink: "reply"}), ErrParentMismatch)

	root, ok := l.FindPost("alice", "root")
	require.True(t, ok)
	require.True(t, root.IsTopLevel())
	reply, ok := l.FindPost("bob", "reply")
	require.True(t, ok)
	require.False(t, reply.IsTopLevel())
}

func TestVotesUpdateRshares(t *testing.T) {
	_, l := newLedger(t)
	require.NoError(t, l.ApplyPost(protocol.Post{Author: "alice", Permlink: "root"}))

	var seen []int64
	l.OnRshares(func(p Post) error {
		seen = append(seen, p.NetRshares)
		return nil
	})

	require.NoError(t, l.ApplyVote(protocol.Vote{Voter: "bob", Author: "alice", Permlink: "root", Weight: 50}))
	require.NoError(t, l.ApplyVote(protocol.Vote{Voter: "carol", Author: "alice", Permlink: "root", Weight: -20}))
	require.NoError(t, l.ApplyVote(protocol.Vote{Voter: "bob", Author: "alice", Permlink: "root", Weight: 10}))
	require.NoError(t, l.ApplyVote(protocol.Vote{Voter: "carol", Author: "alice", Permlink: "root", Weight: 0}))
	// unchanged weight fires no hook
	require.NoError(t, l.ApplyVote(protocol.Vote{Voter: "bob", Author: "alice", Permlink: "root", Weight: 10}))

	require.Equal(t, []int64{50, 30, -10, 10}, seen)
	post, _ := l.FindPost("alice", "root")
	require.Equal(t, int64(10), post.NetRshares)

	require.ErrorIs(t, l.ApplyVote(protocol.Vote{Voter: "bob", Author: "alice", Permlink: "none", Weight: 1}), ErrUnknownPost)
}

func TestLedgerUndo(t *testing.T) {
	db, l := newLedger(t)

	s := db.StartUndoSession()
	require.NoError(t, l.AdjustBalance("alice", protocol.Native(-100)))
	require.NoError(t, l.ApplyPost(protocol.Post{Author: "alice", Permlink: "root"}))
	s.Undo()

	acc, _ := l.Account("alice")
	require.Equal(t, protocol.Native(100), acc.Balance)
	_, ok := l.FindPost("alice", "root")
	require.False(t, ok)
}
