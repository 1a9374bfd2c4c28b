package worker

import (
	"github.com/kedgaks/golos/protocol"
	"github.com/kedgaks/golos/store"
)

// Tally counts the approvals of a post by witnesses that are top-tier now.
type Tally struct {
	Approves    int
	Disapproves int
}

type outcome uint8

const (
	pending outcome = iota
	approved
	rejected
)

// tally recounts the records of post as if approver had just voted state.
// Records of witnesses that left the top tier do not count.
func (e *Evaluator) tally(idx *store.Index[Approval], post store.ID, approver string, state protocol.ApproveState) Tally {
	var t Tally
	count := func(who string, s protocol.ApproveState) {
		if !e.env.Witnesses.IsTopWitness(who) {
			return
		}
		switch s {
		case protocol.Approve:
			t.Approves++
		case protocol.Disapprove:
			t.Disapproves++
		}
	}
	for _, a := range Approvals(idx, post) {
		if a.Approver != approver {
			count(a.Approver, a.State)
		}
	}
	count(approver, state)
	return t
}

// Tally recounts the current approvals of a post.
func (e *Evaluator) Tally(idx *store.Index[Approval], post store.ID) Tally {
	return e.tally(idx, post, "", protocol.Abstain)
}

func (e *Evaluator) decide(t Tally) outcome {
	switch {
	case t.Approves >= e.params.Majority:
		return approved
	case t.Disapproves >= e.params.SuperMajority:
		return rejected
	}
	return pending
}

// setApproval stores approver's state for post and returns the previous one.
// Abstain removes the record.
func setApproval(table *store.Table[Approval], idx *store.Index[Approval], post store.ID, approver string, state protocol.ApproveState) (protocol.ApproveState, error) {
	existing, ok := idx.Find(Approval{Post: post, Approver: approver})
	if !ok {
		if state == protocol.Abstain {
			return protocol.Abstain, nil
		}
		_, err := table.Create(func(a *Approval) {
			a.Post = post
			a.Approver = approver
			a.State = state
		})
		return protocol.Abstain, err
	}
	if state == protocol.Abstain {
		return existing.State, table.Remove(existing.ID)
	}
	_, err := table.Modify(existing.ID, func(a *Approval) { a.State = state })
	return existing.State, err
}

// clearApprovals removes every approval record of post.
func clearApprovals(table *store.Table[Approval], idx *store.Index[Approval], post store.ID) error {
	for _, a := range Approvals(idx, post) {
		if err := table.Remove(a.ID); err != nil {
			return err
		}
	}
	return nil
}

// countApproval moves the raw display counters from old to new state.
func countApproval(t *Techspec, old, new protocol.ApproveState) {
	if old == new {
		return
	}
	switch old {
	case protocol.Approve:
		t.Approves--
	case protocol.Disapprove:
		t.Disapproves--
	}
	switch new {
	case protocol.Approve:
		t.Approves++
	case protocol.Disapprove:
		t.Disapproves++
	}
}
