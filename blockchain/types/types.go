package types

// Types subpackage.
// Shared by the ABCI application and RPC clients of the worker chain.

import (
	"errors"
	"fmt"

	"github.com/kedgaks/golos/protocol"
)

// Response codes of CheckTx, DeliverTx and Query.
const (
	CodeOK uint32 = iota
	CodeTxDecode
	CodeInvalidParameter
	CodeUnauthorized
	CodeFeatureNotActive
	CodeMissingObject
	CodeAlreadyExists
	CodeLogicViolation
	CodeUnknownQuery
	CodeInternal
)

const Codespace = "worker"

// Query paths. Worker API methods are served below WorkerQueryPrefix, an
// account below AccountQueryPrefix.
const (
	WorkerQueryPrefix  = "/worker/"
	AccountQueryPrefix = "/account/"
)

// Attribute keys of the reward events returned from EndBlock.
const (
	AttrID        = "id"
	AttrRecipient = "recipient"
	AttrAuthor    = "author"
	AttrPermlink  = "permlink"
	AttrAmount    = "amount"
)

type GenesisAccount struct {
	Name    string `json:"name" yaml:"name"`
	PubKey  string `json:"pubkey" yaml:"pubkey"`
	Balance int64  `json:"balance" yaml:"balance"`
}

type GenesisWitness struct {
	Name    string `json:"name" yaml:"name"`
	TopTier bool   `json:"top_tier" yaml:"top_tier"`
}

type GenesisPost struct {
	Author         string `json:"author" yaml:"author"`
	Permlink       string `json:"permlink" yaml:"permlink"`
	ParentAuthor   string `json:"parent_author,omitempty" yaml:"parent_author,omitempty"`
	ParentPermlink string `json:"parent_permlink,omitempty" yaml:"parent_permlink,omitempty"`
}

type GenesisFund struct {
	Balance         int64 `json:"balance" yaml:"balance"`
	RevenuePerMonth int64 `json:"revenue_per_month" yaml:"revenue_per_month"`
}

// GenesisState is the app_state of genesis.json.
type GenesisState struct {
	Accounts  []GenesisAccount `json:"accounts" yaml:"accounts"`
	Witnesses []GenesisWitness `json:"witnesses" yaml:"witnesses"`
	Posts     []GenesisPost    `json:"posts,omitempty" yaml:"posts,omitempty"`
	Fund      GenesisFund      `json:"fund" yaml:"fund"`
}

// Validate checks the state without building it. Cross references, such
// as a witness without an account, are reported by InitChain.
func (g GenesisState) Validate() error {
	seen := make(map[string]bool, len(g.Accounts))
	for _, a := range g.Accounts {
		if err := protocol.ValidateAccountName(a.Name); err != nil {
			return err
		}
		if seen[a.Name] {
			return fmt.Errorf("account %s listed twice", a.Name)
		}
		seen[a.Name] = true
		if a.Balance < 0 {
			return fmt.Errorf("account %s has negative balance", a.Name)
		}
	}
	for _, p := range g.Posts {
		if err := protocol.ValidatePermlink(p.Permlink); err != nil {
			return fmt.Errorf("post %s/%s: %w", p.Author, p.Permlink, err)
		}
	}
	if g.Fund.Balance < 0 || g.Fund.RevenuePerMonth < 0 {
		return errors.New("fund amounts must not be negative")
	}
	return nil
}
