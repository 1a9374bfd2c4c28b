// Package workerapi serves read-only queries over the worker objects.
package workerapi

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kedgaks/golos/ledger"
	"github.com/kedgaks/golos/store"
	"github.com/kedgaks/golos/worker"
)

var ErrUnknownMethod = errors.New("unknown worker api method")

// Service answers queries from the current worker state. Callers serialize
// access with the writer of that state.
type Service struct {
	db    *worker.Database
	posts worker.Posts
	fund  *ledger.Fund
}

func NewService(db *worker.Database, posts worker.Posts, fund *ledger.Fund) *Service {
	return &Service{db: db, posts: posts, fund: fund}
}

// page walks idx from the cursor row, or from the start, and keeps rows
// accepted by match until limit is reached.
func page[T any](idx *store.Index[T], start *T, limit int, match func(T) bool) []T {
	out := make([]T, 0, limit)
	visit := func(v T) bool {
		if match(v) {
			out = append(out, v)
		}
		return len(out) < limit
	}
	if start != nil {
		idx.AscendFrom(*start, visit)
	} else {
		idx.Ascend(visit)
	}
	return out
}

func (s *Service) GetProposals(q ProposalQuery) ([]worker.Proposal, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	idx := s.db.ProposalsByCreated
	if q.Sort == ProposalsByNetRshares {
		idx = s.db.ProposalsByRshares
	}
	var start *worker.Proposal
	if q.has() {
		p, ok := s.db.FindProposal(q.StartAuthor, q.StartPermlink)
		if !ok {
			return []worker.Proposal{}, nil
		}
		start = &p
	}
	return page(idx, start, q.Limit, q.match), nil
}

func (s *Service) GetTechspecs(q TechspecQuery) ([]worker.Techspec, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var idx *store.Index[worker.Techspec]
	switch q.Sort {
	case TechspecsByNetRshares:
		idx = s.db.TechspecsByRshares
	case TechspecsByApproves:
		idx = s.db.TechspecsByApproves
	case TechspecsByDisapproves:
		idx = s.db.TechspecsByDisapproves
	default:
		idx = s.db.TechspecsByCreated
	}

	var proposal store.ID
	if q.ProposalAuthor != "" {
		p, ok := s.db.FindProposal(q.ProposalAuthor, q.ProposalPermlink)
		if !ok {
			return []worker.Techspec{}, nil
		}
		proposal = p.ID
	}
	var start *worker.Techspec
	if q.has() {
		t, ok := s.db.FindTechspec(q.StartAuthor, q.StartPermlink)
		if !ok {
			return []worker.Techspec{}, nil
		}
		start = &t
	}
	return page(idx, start, q.Limit, func(t worker.Techspec) bool {
		return in(q.SelectAuthors, t.Author) && in(q.SelectStates, t.State) &&
			(proposal == 0 || t.Proposal == proposal)
	}), nil
}

func limited[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	if items == nil {
		return []T{}
	}
	return items
}

// GetTechspecApprovals lists the witness decisions pending on a techspec.
func (s *Service) GetTechspecApprovals(q PostQuery) ([]worker.Approval, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	t, ok := s.db.FindTechspec(q.Author, q.Permlink)
	if !ok {
		return []worker.Approval{}, nil
	}
	return limited(worker.Approvals(s.db.TechspecApprovalsByPost, t.Post), q.Limit), nil
}

// GetResultApprovals lists the witness decisions pending on a worker result
// post.
func (s *Service) GetResultApprovals(q PostQuery) ([]worker.Approval, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	post, ok := s.posts.FindPost(q.Author, q.Permlink)
	if !ok {
		return []worker.Approval{}, nil
	}
	return limited(worker.Approvals(s.db.ResultApprovalsByPost, post.ID), q.Limit), nil
}

// GetIntermediates lists the intermediate results of a techspec.
func (s *Service) GetIntermediates(q PostQuery) ([]worker.Intermediate, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	t, ok := s.db.FindTechspec(q.Author, q.Permlink)
	if !ok {
		return []worker.Intermediate{}, nil
	}
	return limited(s.db.TechspecIntermediates(t.ID), q.Limit), nil
}

func (s *Service) GetFund() ledger.Fund {
	return *s.fund
}

// Methods lists the names Handle accepts.
var Methods = []string{
	"get_proposals",
	"get_techspecs",
	"get_techspec_approvals",
	"get_result_approvals",
	"get_intermediates",
	"get_fund",
}

func decode(params []byte, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return invalid("params", "%v", err)
	}
	return nil
}

// Handle runs method with JSON params and returns the JSON result.
func (s *Service) Handle(method string, params []byte) ([]byte, error) {
	var (
		res any
		err error
	)
	switch method {
	case "get_proposals":
		var q ProposalQuery
		if err = decode(params, &q); err == nil {
			res, err = s.GetProposals(q)
		}
	case "get_techspecs":
		var q TechspecQuery
		if err = decode(params, &q); err == nil {
			res, err = s.GetTechspecs(q)
		}
	case "get_techspec_approvals":
		var q PostQuery
		if err = decode(params, &q); err == nil {
			res, err = s.GetTechspecApprovals(q)
		}
	case "get_result_approvals":
		var q PostQuery
		if err = decode(params, &q); err == nil {
			res, err = s.GetResultApprovals(q)
		}
	case "get_intermediates":
		var q PostQuery
		if err = decode(params, &q); err == nil {
			res, err = s.GetIntermediates(q)
		}
	case "get_fund":
		res = s.GetFund()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(res)
}
