package worker

import (
	"time"

	"github.com/kedgaks/golos/protocol"
)

// ApplySubmitTechspec creates a techspec for a proposal, or edits the
// author's existing techspec for it while it awaits approval.
func (e *Evaluator) ApplySubmitTechspec(op protocol.SubmitTechspec) error {
	if err := e.checkActive(op); err != nil {
		return err
	}
	post, err := e.getPost(op.Author, op.Permlink)
	if err != nil {
		return err
	}
	if !post.IsTopLevel() {
		return logic(TechspecOnlyOnPost, "worker techspec can be created only on post")
	}
	proposal, err := e.getProposal(op.ProposalAuthor, op.ProposalPermlink)
	if err != nil {
		return err
	}
	if proposal.State != ProposalCreated {
		return logic(ProposalAlreadyHasApprovedTechspec, "this worker proposal already has approved techspec")
	}
	now := e.now()

	if t, ok := e.db.TechspecsByProposalAuthor.Find(Techspec{Proposal: proposal.ID, Author: op.Author}); ok {
		if t.Permlink != op.Permlink {
			return logic(TechspecPermlinkMismatch, "author already has techspec %s for this proposal", t.Permlink)
		}
		if t.State != TechspecCreated {
			return logic(TechspecAlreadyApprovedOrClosed, "techspec is already approved or closed")
		}
		if t.SpecificationCost.Symbol != op.SpecificationCost.Symbol || t.DevelopmentCost.Symbol != op.DevelopmentCost.Symbol {
			return logic(CannotChangeCostSymbol, "cannot change cost symbol")
		}
		_, err := e.db.Techspecs.Modify(t.ID, func(t *Techspec) {
			t.Modified = now
			t.SpecificationCost = op.SpecificationCost
			t.DevelopmentCost = op.DevelopmentCost
			t.PaymentsCount = op.PaymentsCount
			t.PaymentsInterval = op.PaymentsInterval
		})
		return err
	}
	if _, ok := e.db.FindTechspec(op.Author, op.Permlink); ok {
		return exists("worker techspec", op.Author, op.Permlink)
	}
	if err := e.checkPostUnused(post); err != nil {
		return err
	}

	_, err = e.db.Techspecs.Create(func(t *Techspec) {
		t.Post = post.ID
		t.Author = op.Author
		t.Permlink = op.Permlink
		t.Proposal = proposal.ID
		t.State = TechspecCreated
		t.Created = now
		t.Modified = now
		t.SpecificationCost = op.SpecificationCost
		t.DevelopmentCost = op.DevelopmentCost
		t.PaymentsCount = op.PaymentsCount
		t.PaymentsInterval = op.PaymentsInterval
		t.NextCashoutTime = Never
		t.MonthConsumption = protocol.Native(0)
		t.NetRshares = post.NetRshares
	})
	return err
}

// ApplyDeleteTechspec removes a techspec that is not being paid. Deleting the
// approved techspec reopens its proposal.
func (e *Evaluator) ApplyDeleteTechspec(op protocol.DeleteTechspec) error {
	if err := e.checkActive(op); err != nil {
		return err
	}
	t, err := e.getTechspec(op.Author, op.Permlink)
	if err != nil {
		return err
	}
	if t.State >= TechspecPayment && t.State != TechspecClosed {
		return logic(CannotDeleteTechspecInPayment, "cannot delete worker techspec for paying proposal")
	}
	proposal := e.db.Proposals.MustGet(t.Proposal)

	if err := clearApprovals(e.db.TechspecApprovals, e.db.TechspecApprovalsByPost, t.Post); err != nil {
		return err
	}
	if err := clearApprovals(e.db.ResultApprovals, e.db.ResultApprovalsByPost, t.WorkerResult); err != nil {
		return err
	}
	if err := e.removeIntermediates(t.ID); err != nil {
		return err
	}
	if proposal.ApprovedTechspec == t.ID {
		_, err := e.db.Proposals.Modify(proposal.ID, func(p *Proposal) {
			p.State = ProposalCreated
			p.ApprovedTechspec = 0
			p.Modified = e.now()
		})
		if err != nil {
			return err
		}
	}
	return e.db.Techspecs.Remove(t.ID)
}

// ApplyApproveTechspec records a top witness decision on a techspec and
// applies the quorum outcome.
func (e *Evaluator) ApplyApproveTechspec(op protocol.ApproveTechspec) error {
	if err := e.checkActive(op); err != nil {
		return err
	}
	if !e.env.Witnesses.IsTopWitness(op.Approver) {
		return logic(ApproverNotTopWitness, "approver of techspec should be in top witnesses")
	}
	t, err := e.getTechspec(op.Author, op.Permlink)
	if err != nil {
		return err
	}
	proposal := e.db.Proposals.MustGet(t.Proposal)
	if proposal.ApprovedTechspec != 0 {
		return logic(ProposalAlreadyHasApprovedTechspec, "this worker proposal already has approved techspec")
	}
	if t.State != TechspecCreated {
		return logic(TechspecAlreadyApprovedOrClosed, "techspec is already approved or closed")
	}

	decision := e.decide(e.tally(e.db.TechspecApprovalsByPost, t.Post, op.Approver, op.State))

	old, err := setApproval(e.db.TechspecApprovals, e.db.TechspecApprovalsByPost, t.Post, op.Approver, op.State)
	if err != nil {
		return err
	}
	now := e.now()

	switch decision {
	case approved:
		if err := clearApprovals(e.db.TechspecApprovals, e.db.TechspecApprovalsByPost, t.Post); err != nil {
			return err
		}
		if _, err := e.db.Proposals.Modify(proposal.ID, func(p *Proposal) {
			p.ApprovedTechspec = t.ID
			p.State = ProposalTechspecApproved
			p.Modified = now
		}); err != nil {
			return err
		}
		_, err = e.db.Techspecs.Modify(t.ID, func(t *Techspec) {
			t.State = TechspecApproved
			t.Approves, t.Disapproves = 0, 0
			t.Modified = now
		})
		e.logger.Info("Techspec approved", "author", t.Author, "permlink", t.Permlink)
	case rejected:
		if err := clearApprovals(e.db.TechspecApprovals, e.db.TechspecApprovalsByPost, t.Post); err != nil {
			return err
		}
		_, err = e.db.Techspecs.Modify(t.ID, func(t *Techspec) {
			t.State = TechspecClosed
			t.Approves, t.Disapproves = 0, 0
			t.Modified = now
		})
		e.logger.Info("Techspec disapproved", "author", t.Author, "permlink", t.Permlink)
	default:
		_, err = e.db.Techspecs.Modify(t.ID, func(t *Techspec) {
			countApproval(t, old, op.State)
		})
	}
	return err
}

// ApplyAssignWorker assigns a worker to an approved task techspec, or with an
// empty worker returns a techspec in work to approved.
func (e *Evaluator) ApplyAssignWorker(op protocol.AssignWorker) error {
	if err := e.checkActive(op); err != nil {
		return err
	}
	t, err := e.getTechspec(op.TechspecAuthor, op.TechspecPermlink)
	if err != nil {
		return err
	}
	proposal := e.db.Proposals.MustGet(t.Proposal)
	now := e.now()

	if op.Worker == "" {
		if t.State != TechspecWork {
			return logic(WorkerUnassignedOnlyInWork, "worker can be unassigned only from proposal in work")
		}
		if op.Assigner != t.Author && op.Assigner != t.Worker {
			return logic(UnassignOnlyByAuthorOrWorker, "worker can be unassigned only by techspec author or the worker")
		}
		if _, err := e.db.Techspecs.Modify(t.ID, func(t *Techspec) {
			t.State = TechspecApproved
			t.Worker = ""
			t.WorkBeginningTime = time.Time{}
			t.Modified = now
		}); err != nil {
			return err
		}
		_, err = e.db.Proposals.Modify(proposal.ID, func(p *Proposal) {
			p.State = ProposalTechspecApproved
			p.Modified = now
		})
		return err
	}

	if proposal.Kind == protocol.PremadeWork {
		return logic(WorkerCannotBeAssignedToPremade, "worker cannot be assigned to premade proposal")
	}
	if t.State != TechspecApproved {
		return logic(WorkerAssignedOnlyToApproved, "worker can be assigned only to approved proposal")
	}
	if !e.env.Accounts.HasAccount(op.Worker) {
		return &Error{Kind: MissingObject, Msg: "account " + op.Worker + " does not exist"}
	}
	if _, err := e.db.Techspecs.Modify(t.ID, func(t *Techspec) {
		t.State = TechspecWork
		t.Worker = op.Worker
		t.WorkBeginningTime = now
		t.Modified = now
	}); err != nil {
		return err
	}
	_, err = e.db.Proposals.Modify(proposal.ID, func(p *Proposal) {
		p.State = ProposalWork
		p.Modified = now
	})
	return err
}
