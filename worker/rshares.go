package worker

import "github.com/kedgaks/golos/ledger"

// UpdateRshares mirrors a post's net rshares to the proposal or techspec
// anchored on it.
func (e *Evaluator) UpdateRshares(post ledger.Post) error {
	if p, ok := e.db.FindProposal(post.Author, post.Permlink); ok {
		if _, err := e.db.Proposals.Modify(p.ID, func(p *Proposal) {
			p.NetRshares = post.NetRshares
		}); err != nil {
			return err
		}
	}
	if t, ok := e.db.FindTechspec(post.Author, post.Permlink); ok {
		if _, err := e.db.Techspecs.Modify(t.ID, func(t *Techspec) {
			t.NetRshares = post.NetRshares
		}); err != nil {
			return err
		}
	}
	return nil
}
