package ledger

import (
	"time"

	"github.com/kedgaks/golos/protocol"
	"github.com/kedgaks/golos/store"
)

type Account struct {
	ID      store.ID       `json:"id"`
	Name    string         `json:"name"`
	PubKey  string         `json:"pubkey"`
	Balance protocol.Asset `json:"balance"`
	Nonce   uint64         `json:"nonce"`
}

// Post is a content post. ParentAuthor is empty for top-level posts.
type Post struct {
	ID             store.ID  `json:"id"`
	Author         string    `json:"author"`
	Permlink       string    `json:"permlink"`
	ParentAuthor   string    `json:"parent_author"`
	ParentPermlink string    `json:"parent_permlink"`
	Created        time.Time `json:"created"`
	NetRshares     int64     `json:"net_rshares"`
}

func (p Post) IsTopLevel() bool { return p.ParentAuthor == "" }

type PostVote struct {
	ID     store.ID `json:"id"`
	Post   store.ID `json:"post"`
	Voter  string   `json:"voter"`
	Weight int64    `json:"weight"`
}

// Witness is a block producer. Only TopTier witnesses may approve worker
// techspecs and results.
type Witness struct {
	ID      store.ID `json:"id"`
	Owner   string   `json:"owner"`
	TopTier bool     `json:"top_tier"`
}

// Fund is the shared worker fund. Balance is what can still be paid out;
// ConsumptionPerMonth is the sum of month consumption of techspecs in
// payment; RevenuePerMonth is how much the fund receives per month.
type Fund struct {
	Balance             protocol.Asset `json:"balance" yaml:"balance"`
	ConsumptionPerMonth protocol.Asset `json:"consumption_per_month" yaml:"consumption_per_month"`
	RevenuePerMonth     protocol.Asset `json:"revenue_per_month" yaml:"revenue_per_month"`
}

func NewFund(balance, revenue int64) *Fund {
	return &Fund{
		Balance:             protocol.Native(balance),
		ConsumptionPerMonth: protocol.Native(0),
		RevenuePerMonth:     protocol.Native(revenue),
	}
}
