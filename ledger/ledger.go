// Package ledger holds the accounts, posts and witnesses that the worker
// subsystem references.
package ledger

import (
	"cmp"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/kedgaks/golos/protocol"
	"github.com/kedgaks/golos/store"
)

var (
	ErrUnknownAccount      = errors.New("unknown account")
	ErrAccountExists       = errors.New("account already exists")
	ErrUnknownPost         = errors.New("unknown post")
	ErrUnknownWitness      = errors.New("unknown witness")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBadNonce            = errors.New("bad nonce")
	ErrParentMismatch      = errors.New("post parent cannot be changed")
)

// RsharesHook is called after a vote changed a post's net rshares.
type RsharesHook func(post Post) error

type Ledger struct {
	now func() time.Time

	accounts       *store.Table[Account]
	accountsByName *store.Index[Account]

	posts          *store.Table[Post]
	postsByLink    *store.Index[Post]
	votes          *store.Table[PostVote]
	votesByPost    *store.Index[PostVote]
	witnesses      *store.Table[Witness]
	witnessByOwner *store.Index[Witness]

	rsharesHooks []RsharesHook
}

// New registers the ledger tables in db. now returns the current block time.
func New(db *store.DB, now func() time.Time) *Ledger {
	l := &Ledger{now: now}

	l.accounts = store.NewTable(db, "account", func(a *Account) *store.ID { return &a.ID })
	l.accountsByName = l.accounts.AddIndex("by_name", true, func(a, b Account) bool {
		return a.Name < b.Name
	})

	l.posts = store.NewTable(db, "post", func(p *Post) *store.ID { return &p.ID })
	l.postsByLink = l.posts.AddIndex("by_permlink", true, func(a, b Post) bool {
		if c := cmp.Compare(a.Author, b.Author); c != 0 {
			return c < 0
		}
		return a.Permlink < b.Permlink
	})

	l.votes = store.NewTable(db, "post_vote", func(v *PostVote) *store.ID { return &v.ID })
	l.votesByPost = l.votes.AddIndex("by_post_voter", true, func(a, b PostVote) bool {
		if a.Post != b.Post {
			return a.Post < b.Post
		}
		return a.Voter < b.Voter
	})

	l.witnesses = store.NewTable(db, "witness", func(w *Witness) *store.ID { return &w.ID })
	l.witnessByOwner = l.witnesses.AddIndex("by_owner", true, func(a, b Witness) bool {
		return a.Owner < b.Owner
	})
	return l
}

// OnRshares registers a hook run after every net rshares change.
func (l *Ledger) OnRshares(hook RsharesHook) {
	l.rsharesHooks = append(l.rsharesHooks, hook)
}

func (l *Ledger) CreateAccount(name, pubkey string, balance protocol.Asset) (Account, error) {
	if err := protocol.ValidateAccountName(name); err != nil {
		return Account{}, err
	}
	if pubkey != "" {
		if _, err := protocol.DecodePublicKey(pubkey); err != nil {
			return Account{}, fmt.Errorf("account %s: %w", name, err)
		}
	}
	if l.HasAccount(name) {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountExists, name)
	}
	return l.accounts.Create(func(a *Account) {
		a.Name = name
		a.PubKey = pubkey
		a.Balance = balance
		if a.Balance.Symbol == "" {
			a.Balance.Symbol = protocol.NativeSymbol
		}
	})
}

func (l *Ledger) Account(name string) (Account, bool) {
	return l.accountsByName.Find(Account{Name: name})
}

func (l *Ledger) HasAccount(name string) bool {
	return l.accountsByName.Has(Account{Name: name})
}

// AdjustBalance adds delta (which may be negative) to the account balance.
func (l *Ledger) AdjustBalance(name string, delta protocol.Asset) error {
	acc, ok := l.Account(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, name)
	}
	if acc.Balance.Add(delta).Amount < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, name, acc.Balance, protocol.Native(-delta.Amount))
	}
	_, err := l.accounts.Modify(acc.ID, func(a *Account) {
		a.Balance = a.Balance.Add(delta)
	})
	return err
}

// PublicKey returns the account's signing key.
func (l *Ledger) PublicKey(name string) (ed25519.PublicKey, error) {
	acc, ok := l.Account(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, name)
	}
	if acc.PubKey == "" {
		return nil, fmt.Errorf("account %s has no signing key", name)
	}
	return protocol.DecodePublicKey(acc.PubKey)
}

// UseNonce accepts nonce if it is the next one for the account.
func (l *Ledger) UseNonce(name string, nonce uint64) error {
	acc, ok := l.Account(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, name)
	}
	if nonce != acc.Nonce+1 {
		return fmt.Errorf("%w: %s expects %d, got %d", ErrBadNonce, name, acc.Nonce+1, nonce)
	}
	_, err := l.accounts.Modify(acc.ID, func(a *Account) {
		a.Nonce = nonce
	})
	return err
}

// SetWitness creates or updates the witness owned by name.
func (l *Ledger) SetWitness(name string, topTier bool) error {
	if !l.HasAccount(name) {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, name)
	}
	if w, ok := l.witnessByOwner.Find(Witness{Owner: name}); ok {
		_, err := l.witnesses.Modify(w.ID, func(w *Witness) {
			w.TopTier = topTier
		})
		return err
	}
	_, err := l.witnesses.Create(func(w *Witness) {
		w.Owner = name
		w.TopTier = topTier
	})
	return err
}

func (l *Ledger) Witness(name string) (Witness, bool) {
	return l.witnessByOwner.Find(Witness{Owner: name})
}

// IsTopWitness reports whether name currently is a top-tier witness.
func (l *Ledger) IsTopWitness(name string) bool {
	w, ok := l.Witness(name)
	return ok && w.TopTier
}

func (l *Ledger) FindPost(author, permlink string) (Post, bool) {
	return l.postsByLink.Find(Post{Author: author, Permlink: permlink})
}

func (l *Ledger) Post(id store.ID) (Post, bool) {
	return l.posts.Get(id)
}
