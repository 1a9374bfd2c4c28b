package worker

import (
	"fmt"
	"time"

	"github.com/kedgaks/golos/ledger"
	"github.com/kedgaks/golos/protocol"
	"github.com/kedgaks/golos/store"
)

// dueTechspecs lists techspecs whose cashout time is not after now, earliest
// first and by id on ties.
func (e *Evaluator) dueTechspecs(now time.Time) []store.ID {
	var due []store.ID
	e.db.TechspecsByCashout.Ascend(func(t Techspec) bool {
		if t.NextCashoutTime.After(now) {
			return false
		}
		due = append(due, t.ID)
		return true
	})
	return due
}

// rewards returns the author and worker parts of the next payment. The last
// payment takes whatever integer division left over.
func rewards(t Techspec) (author, worker protocol.Asset) {
	count := int64(t.PaymentsCount)
	finished := int64(t.FinishedPaymentsCount)
	author = protocol.Asset{Amount: t.SpecificationCost.Amount / count, Symbol: t.SpecificationCost.Symbol}
	worker = protocol.Asset{Amount: t.DevelopmentCost.Amount / count, Symbol: t.DevelopmentCost.Symbol}
	if count-finished == 1 {
		author.Amount = t.SpecificationCost.Amount - author.Amount*finished
		worker.Amount = t.DevelopmentCost.Amount - worker.Amount*finished
	}
	return author, worker
}

// ProcessCashout pays every due techspec in cashout order. When the fund
// cannot cover a payment the sweep stops, leaving that techspec and every
// later one due for a future block.
func (e *Evaluator) ProcessCashout() error {
	if !e.Active() {
		return nil
	}
	now := e.now()
	for _, id := range e.dueTechspecs(now) {
		t := e.db.Techspecs.MustGet(id)
		author, worker := rewards(t)
		total := author.Add(worker)
		if e.env.Fund.Balance.Less(total) {
			e.logger.Info("Worker fund is short, cashout deferred",
				"author", t.Author, "permlink", t.Permlink,
				"need", total.String(), "balance", e.env.Fund.Balance.String())
			return nil
		}
		if err := e.pay(t, author, worker); err != nil {
			return fmt.Errorf("cashout %s/%s: %w", t.Author, t.Permlink, err)
		}
	}
	return nil
}

func (e *Evaluator) pay(t Techspec, author, worker protocol.Asset) error {
	final := t.PaymentsCount-t.FinishedPaymentsCount == 1

	e.modifyFund(func(f *ledger.Fund) {
		f.Balance = f.Balance.Sub(author.Add(worker))
		if final {
			f.ConsumptionPerMonth = f.ConsumptionPerMonth.Sub(t.MonthConsumption)
		}
	})
	if err := e.env.Accounts.AdjustBalance(t.Author, author); err != nil {
		return err
	}
	if err := e.env.Accounts.AdjustBalance(t.Worker, worker); err != nil {
		return err
	}

	if _, err := e.db.Techspecs.Modify(t.ID, func(t *Techspec) {
		t.FinishedPaymentsCount++
		if final {
			t.State = TechspecPaymentComplete
			t.NextCashoutTime = Never
			t.MonthConsumption = protocol.Native(0)
		} else {
			t.NextCashoutTime = t.NextCashoutTime.Add(time.Duration(t.PaymentsInterval) * time.Second)
		}
	}); err != nil {
		return err
	}
	if final {
		if _, err := e.db.Proposals.Modify(t.Proposal, func(p *Proposal) {
			p.State = ProposalClosed
			p.Modified = e.now()
		}); err != nil {
			return err
		}
	}

	e.env.Events.Emit(Event{Type: TechspecRewardEvent, Recipient: t.Author, Author: t.Author, Permlink: t.Permlink, Amount: author})
	e.env.Events.Emit(Event{Type: WorkerRewardEvent, Recipient: t.Worker, Author: t.Author, Permlink: t.Permlink, Amount: worker})
	e.logger.Debug("Techspec paid", "author", t.Author, "permlink", t.Permlink,
		"payment", t.FinishedPaymentsCount+1, "of", t.PaymentsCount,
		"author_reward", author.String(), "worker_reward", worker.String())
	return nil
}
