package worker

import (
	"time"

	"github.com/kedgaks/golos/ledger"
	"github.com/kedgaks/golos/protocol"
	"github.com/kedgaks/golos/store"
)

func (e *Evaluator) ApplySubmitIntermediate(op protocol.SubmitIntermediate) error {
	if err := e.checkActive(op); err != nil {
		return err
	}
	post, err := e.getPost(op.Author, op.Permlink)
	if err != nil {
		return err
	}
	if !post.IsTopLevel() {
		return logic(IntermediateOnlyOnPost, "worker intermediate can be created only on post")
	}
	if _, ok := e.db.FindIntermediate(op.Author, op.Permlink); ok {
		return exists("worker intermediate", op.Author, op.Permlink)
	}
	t, err := e.getTechspec(op.Author, op.TechspecPermlink)
	if err != nil {
		return err
	}
	if t.State != TechspecWork || t.WorkerResult != 0 {
		return logic(IntermediateOnlyForTechspecInWork, "worker intermediate can be created only for techspec in work")
	}
	if err := e.checkPostUnused(post); err != nil {
		return err
	}
	_, err = e.db.Intermediates.Create(func(i *Intermediate) {
		i.Post = post.ID
		i.Author = op.Author
		i.Permlink = op.Permlink
		i.Techspec = t.ID
		i.Created = e.now()
	})
	return err
}

func (e *Evaluator) ApplyDeleteIntermediate(op protocol.DeleteIntermediate) error {
	if err := e.checkActive(op); err != nil {
		return err
	}
	i, ok := e.db.FindIntermediate(op.Author, op.Permlink)
	if !ok {
		return missing("worker intermediate", op.Author, op.Permlink)
	}
	return e.db.Intermediates.Remove(i.ID)
}

func (e *Evaluator) removeIntermediates(techspec store.ID) error {
	for _, i := range e.db.TechspecIntermediates(techspec) {
		if err := e.db.Intermediates.Remove(i.ID); err != nil {
			return err
		}
	}
	return nil
}

// ApplySubmitResult reports the work on a techspec as complete and puts it
// under witnesses review. A premade techspec takes its result right after
// approval and its author becomes the worker.
func (e *Evaluator) ApplySubmitResult(op protocol.SubmitResult) error {
	if err := e.checkActive(op); err != nil {
		return err
	}
	now := e.now()
	completion := op.CompletionDate
	if completion.IsZero() {
		completion = now
	}
	if completion.After(now) {
		return logic(CompletionDateInFuture, "work completion date cannot be in future")
	}

	post, err := e.getPost(op.Author, op.Permlink)
	if err != nil {
		return err
	}
	if !post.IsTopLevel() {
		return logic(ResultOnlyOnPost, "worker result can be created only on post")
	}
	t, err := e.getTechspec(op.Author, op.TechspecPermlink)
	if err != nil {
		return err
	}
	if _, ok := e.db.FindResult(post.ID); ok {
		return logic(PostAlreadyUsedAsResult, "this post already used as worker result")
	}
	if err := e.checkPostUnused(post); err != nil {
		return err
	}
	proposal := e.db.Proposals.MustGet(t.Proposal)
	premade := proposal.Kind == protocol.PremadeWork
	switch {
	case premade && t.State != TechspecApproved:
		return logic(ResultOnlyForApprovedPremade, "premade worker result can be created only for approved techspec")
	case !premade && t.State != TechspecWork:
		return logic(ResultOnlyForTechspecInWork, "worker result can be created only for techspec in work")
	}

	if err := e.removeIntermediates(t.ID); err != nil {
		return err
	}
	if _, err := e.db.Techspecs.Modify(t.ID, func(t *Techspec) {
		t.WorkerResult = post.ID
		t.WorkerResultPermlink = op.Permlink
		t.CompletionDate = completion
		t.State = TechspecComplete
		if premade {
			t.Worker = t.Author
			t.WorkBeginningTime = now
		}
		t.Modified = now
	}); err != nil {
		return err
	}
	_, err = e.db.Proposals.Modify(proposal.ID, func(p *Proposal) {
		p.State = ProposalWitnessesReview
		p.Modified = now
	})
	return err
}

// ApplyDeleteResult withdraws a result that is not being paid yet.
func (e *Evaluator) ApplyDeleteResult(op protocol.DeleteResult) error {
	if err := e.checkActive(op); err != nil {
		return err
	}
	_, t, err := e.getResult(op.Author, op.Permlink)
	if err != nil {
		return err
	}
	if t.State >= TechspecPayment {
		return logic(CannotDeleteResultForPaying, "cannot delete worker result for paying proposal")
	}
	return e.clearResult(t)
}

// clearResult returns a techspec from review to the state it took its
// result in.
func (e *Evaluator) clearResult(t Techspec) error {
	if err := clearApprovals(e.db.ResultApprovals, e.db.ResultApprovalsByPost, t.WorkerResult); err != nil {
		return err
	}
	if err := e.removeIntermediates(t.ID); err != nil {
		return err
	}
	proposal := e.db.Proposals.MustGet(t.Proposal)
	premade := proposal.Kind == protocol.PremadeWork
	now := e.now()

	if _, err := e.db.Techspecs.Modify(t.ID, func(t *Techspec) {
		t.WorkerResult = 0
		t.WorkerResultPermlink = ""
		t.CompletionDate = time.Time{}
		t.Approves, t.Disapproves = 0, 0
		// a premade techspec never passes through Work
		if premade {
			t.State = TechspecApproved
			t.Worker = ""
			t.WorkBeginningTime = time.Time{}
		} else {
			t.State = TechspecWork
		}
		t.Modified = now
	}); err != nil {
		return err
	}
	_, err := e.db.Proposals.Modify(proposal.ID, func(p *Proposal) {
		if premade {
			p.State = ProposalTechspecApproved
		} else {
			p.State = ProposalWork
		}
		p.Modified = now
	})
	return err
}

// ApplyApproveResult records a top witness decision on a worker result. An
// approved result starts the payment of its techspec if the fund can afford
// it; a rejected one returns a task to work and a premade proposal to its
// very beginning.
func (e *Evaluator) ApplyApproveResult(op protocol.ApproveResult) error {
	if err := e.checkActive(op); err != nil {
		return err
	}
	if !e.env.Witnesses.IsTopWitness(op.Approver) {
		return logic(ApproverNotTopWitness, "approver of result should be in top witnesses")
	}
	post, t, err := e.getResult(op.Author, op.Permlink)
	if err != nil {
		return err
	}
	if t.State != TechspecComplete {
		return logic(ResultNotUnderReview, "worker result is not under witnesses review")
	}
	now := e.now()
	if now.After(t.CompletionDate.Add(e.params.ResultApproveTerm)) {
		return logic(ApproveTermExpired, "approve term has expired")
	}

	decision := e.decide(e.tally(e.db.ResultApprovalsByPost, post.ID, op.Approver, op.State))
	var mc protocol.Asset
	if decision == approved {
		mc = MonthConsumption(t)
		if !canAfford(*e.env.Fund, mc, paymentsPeriod(t)) {
			return logic(InsufficientFundsToApproveResult, "insufficient funds to approve worker result")
		}
	}

	old, err := setApproval(e.db.ResultApprovals, e.db.ResultApprovalsByPost, post.ID, op.Approver, op.State)
	if err != nil {
		return err
	}

	switch decision {
	case approved:
		if err := clearApprovals(e.db.ResultApprovals, e.db.ResultApprovalsByPost, post.ID); err != nil {
			return err
		}
		if _, err := e.db.Techspecs.Modify(t.ID, func(t *Techspec) {
			t.State = TechspecPayment
			t.MonthConsumption = mc
			t.PaymentBeginningTime = now
			t.NextCashoutTime = now.Add(time.Duration(t.PaymentsInterval) * time.Second)
			t.Approves, t.Disapproves = 0, 0
			t.Modified = now
		}); err != nil {
			return err
		}
		if _, err := e.db.Proposals.Modify(t.Proposal, func(p *Proposal) {
			p.State = ProposalPayment
			p.Modified = now
		}); err != nil {
			return err
		}
		e.modifyFund(func(f *ledger.Fund) {
			f.ConsumptionPerMonth = f.ConsumptionPerMonth.Add(mc)
		})
		e.logger.Info("Worker result approved", "author", t.Author, "permlink", t.Permlink, "month_consumption", mc.String())
		return nil
	case rejected:
		e.logger.Info("Worker result disapproved", "author", t.Author, "permlink", t.Permlink)
		if e.db.Proposals.MustGet(t.Proposal).Kind == protocol.PremadeWork {
			return e.reopenPremade(t)
		}
		return e.clearResult(t)
	}
	_, err = e.db.Techspecs.Modify(t.ID, func(t *Techspec) {
		countApproval(t, old, op.State)
	})
	return err
}

// reopenPremade returns a premade proposal and its techspec to created.
func (e *Evaluator) reopenPremade(t Techspec) error {
	if err := e.clearResult(t); err != nil {
		return err
	}
	now := e.now()
	if _, err := e.db.Techspecs.Modify(t.ID, func(t *Techspec) {
		t.State = TechspecCreated
		t.Modified = now
	}); err != nil {
		return err
	}
	_, err := e.db.Proposals.Modify(t.Proposal, func(p *Proposal) {
		p.State = ProposalCreated
		p.ApprovedTechspec = 0
		p.Modified = now
	})
	return err
}
