package worker

import (
	"github.com/kedgaks/golos/protocol"
)

// ApplySubmitProposal creates a proposal on a top-level post, or changes the
// kind of an existing one while it is still open for techspecs.
func (e *Evaluator) ApplySubmitProposal(op protocol.SubmitProposal) error {
	if err := e.checkActive(op); err != nil {
		return err
	}
	post, err := e.getPost(op.Author, op.Permlink)
	if err != nil {
		return err
	}
	if !post.IsTopLevel() {
		return logic(ProposalOnlyOnPost, "worker proposal can be created only on post")
	}
	now := e.now()

	if p, ok := e.db.FindProposal(op.Author, op.Permlink); ok {
		if p.State != ProposalCreated {
			return logic(CannotEditProposalWithApprovedTechspec, "cannot edit worker proposal with approved techspec")
		}
		_, err := e.db.Proposals.Modify(p.ID, func(p *Proposal) {
			p.Kind = op.Kind
			p.Modified = now
		})
		return err
	}
	if err := e.checkPostUnused(post); err != nil {
		return err
	}

	_, err = e.db.Proposals.Create(func(p *Proposal) {
		p.Post = post.ID
		p.Author = op.Author
		p.Permlink = op.Permlink
		p.Kind = op.Kind
		p.State = ProposalCreated
		p.Created = now
		p.Modified = now
		p.NetRshares = post.NetRshares
	})
	return err
}

func (e *Evaluator) ApplyDeleteProposal(op protocol.DeleteProposal) error {
	if err := e.checkActive(op); err != nil {
		return err
	}
	p, err := e.getProposal(op.Author, op.Permlink)
	if err != nil {
		return err
	}
	if p.State != ProposalCreated {
		return logic(CannotDeleteProposalWithApprovedTechspec, "cannot delete worker proposal with approved techspec")
	}
	if e.db.TechspecsByProposal.Has(Techspec{Proposal: p.ID}) {
		return logic(CannotDeleteProposalWithTechspecs, "cannot delete worker proposal with techspecs")
	}
	return e.db.Proposals.Remove(p.ID)
}
