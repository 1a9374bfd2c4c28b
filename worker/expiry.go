package worker

import "github.com/kedgaks/golos/store"

// ProcessExpiry closes techspecs that stayed unapproved longer than the
// techspec approve term, dropping their approvals.
func (e *Evaluator) ProcessExpiry() error {
	if !e.Active() {
		return nil
	}
	deadline := e.now().Add(-e.params.TechspecApproveTerm)

	var expired []store.ID
	e.db.TechspecsByStateCreated.AscendFrom(Techspec{State: TechspecCreated}, func(t Techspec) bool {
		if t.State != TechspecCreated || t.Created.After(deadline) {
			return false
		}
		expired = append(expired, t.ID)
		return true
	})

	for _, id := range expired {
		t := e.db.Techspecs.MustGet(id)
		if err := clearApprovals(e.db.TechspecApprovals, e.db.TechspecApprovalsByPost, t.Post); err != nil {
			return err
		}
		if _, err := e.db.Techspecs.Modify(id, func(t *Techspec) {
			t.State = TechspecClosed
			t.Approves, t.Disapproves = 0, 0
			t.Modified = e.now()
		}); err != nil {
			return err
		}
		e.logger.Info("Techspec approve term expired", "author", t.Author, "permlink", t.Permlink)
	}
	return nil
}
