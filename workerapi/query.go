package workerapi

import (
	"fmt"
	"slices"

	"github.com/kedgaks/golos/protocol"
	"github.com/kedgaks/golos/worker"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type ProposalSort string

const (
	ProposalsByCreated    ProposalSort = "by_created"
	ProposalsByNetRshares ProposalSort = "by_net_rshares"
)

type TechspecSort string

const (
	TechspecsByCreated     TechspecSort = "by_created"
	TechspecsByNetRshares  TechspecSort = "by_net_rshares"
	TechspecsByApproves    TechspecSort = "by_approves"
	TechspecsByDisapproves TechspecSort = "by_disapproves"
)

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", protocol.ErrInvalidParameter, field, fmt.Sprintf(format, args...))
}

// Cursor selects the first object of a page. Author and Permlink are given
// together or not at all.
type Cursor struct {
	StartAuthor   string `json:"start_author,omitempty"`
	StartPermlink string `json:"start_permlink,omitempty"`
}

func (c Cursor) has() bool { return c.StartAuthor != "" }

func (c Cursor) validate() error {
	if c.StartAuthor != "" {
		if err := protocol.ValidateAccountName(c.StartAuthor); err != nil {
			return invalid("start_author", "%v", err)
		}
		if c.StartPermlink == "" {
			return invalid("start_permlink", "start_author without start_permlink is useless")
		}
	}
	if c.StartPermlink != "" {
		if err := protocol.ValidatePermlink(c.StartPermlink); err != nil {
			return invalid("start_permlink", "%v", err)
		}
		if c.StartAuthor == "" {
			return invalid("start_author", "start_permlink without start_author is useless")
		}
	}
	return nil
}

func validateLimit(limit *int) error {
	if *limit == 0 {
		*limit = DefaultLimit
	}
	if *limit < 0 || *limit > MaxLimit {
		return invalid("limit", "must be 1 to %d", MaxLimit)
	}
	return nil
}

func validateAuthors(authors []string) error {
	for _, a := range authors {
		if err := protocol.ValidateAccountName(a); err != nil {
			return invalid("select_authors", "%v", err)
		}
	}
	return nil
}

type ProposalQuery struct {
	Limit int `json:"limit,omitempty"`
	Cursor
	SelectAuthors []string                `json:"select_authors,omitempty"`
	SelectStates  []worker.ProposalState  `json:"select_states,omitempty"`
	SelectKinds   []protocol.ProposalKind `json:"select_kinds,omitempty"`
	Sort          ProposalSort            `json:"sort,omitempty"`
}

// Validate checks the query and fills in defaults.
func (q *ProposalQuery) Validate() error {
	if err := validateLimit(&q.Limit); err != nil {
		return err
	}
	if err := q.Cursor.validate(); err != nil {
		return err
	}
	if err := validateAuthors(q.SelectAuthors); err != nil {
		return err
	}
	for _, k := range q.SelectKinds {
		if !k.Valid() {
			return invalid("select_kinds", "this value is reserved")
		}
	}
	switch q.Sort {
	case "":
		q.Sort = ProposalsByCreated
	case ProposalsByCreated, ProposalsByNetRshares:
	default:
		return invalid("sort", "unknown proposal sort %q", q.Sort)
	}
	return nil
}

func (q *ProposalQuery) match(p worker.Proposal) bool {
	return in(q.SelectAuthors, p.Author) && in(q.SelectStates, p.State) && in(q.SelectKinds, p.Kind)
}

type TechspecQuery struct {
	Limit int `json:"limit,omitempty"`
	Cursor
	SelectAuthors    []string               `json:"select_authors,omitempty"`
	SelectStates     []worker.TechspecState `json:"select_states,omitempty"`
	ProposalAuthor   string                 `json:"proposal_author,omitempty"`
	ProposalPermlink string                 `json:"proposal_permlink,omitempty"`
	Sort             TechspecSort           `json:"sort,omitempty"`
}

func (q *TechspecQuery) Validate() error {
	if err := validateLimit(&q.Limit); err != nil {
		return err
	}
	if err := q.Cursor.validate(); err != nil {
		return err
	}
	if err := validateAuthors(q.SelectAuthors); err != nil {
		return err
	}
	if q.ProposalAuthor != "" {
		if err := protocol.ValidateAccountName(q.ProposalAuthor); err != nil {
			return invalid("proposal_author", "%v", err)
		}
		if q.ProposalPermlink == "" {
			return invalid("proposal_permlink", "proposal_author without proposal_permlink is useless")
		}
	}
	if q.ProposalPermlink != "" {
		if err := protocol.ValidatePermlink(q.ProposalPermlink); err != nil {
			return invalid("proposal_permlink", "%v", err)
		}
		if q.ProposalAuthor == "" {
			return invalid("proposal_author", "proposal_permlink without proposal_author is useless")
		}
	}
	switch q.Sort {
	case "":
		q.Sort = TechspecsByCreated
	case TechspecsByCreated, TechspecsByNetRshares, TechspecsByApproves, TechspecsByDisapproves:
	default:
		return invalid("sort", "unknown techspec sort %q", q.Sort)
	}
	return nil
}

// PostQuery names a post; Limit bounds the returned list.
type PostQuery struct {
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
	Limit    int    `json:"limit,omitempty"`
}

func (q *PostQuery) Validate() error {
	if err := validateLimit(&q.Limit); err != nil {
		return err
	}
	if err := protocol.ValidateAccountName(q.Author); err != nil {
		return invalid("author", "%v", err)
	}
	if err := protocol.ValidatePermlink(q.Permlink); err != nil {
		return invalid("permlink", "%v", err)
	}
	return nil
}

// in reports whether v is in set; an empty set matches everything.
func in[T comparable](set []T, v T) bool {
	return len(set) == 0 || slices.Contains(set, v)
}
