package worker

import (
	"cmp"
	"time"

	"github.com/kedgaks/golos/store"
)

// Database holds the worker tables and their secondary indexes.
type Database struct {
	db *store.DB

	Proposals           *store.Table[Proposal]
	ProposalsByPermlink *store.Index[Proposal]
	ProposalsByCreated  *store.Index[Proposal]
	ProposalsByRshares  *store.Index[Proposal]

	Techspecs                 *store.Table[Techspec]
	TechspecsByPermlink       *store.Index[Techspec]
	TechspecsByProposal       *store.Index[Techspec]
	TechspecsByProposalAuthor *store.Index[Techspec]
	TechspecsByResult         *store.Index[Techspec]
	TechspecsByCashout        *store.Index[Techspec]
	TechspecsByStateCreated   *store.Index[Techspec]
	TechspecsByCreated        *store.Index[Techspec]
	TechspecsByRshares        *store.Index[Techspec]
	TechspecsByApproves       *store.Index[Techspec]
	TechspecsByDisapproves    *store.Index[Techspec]

	TechspecApprovals       *store.Table[Approval]
	TechspecApprovalsByPost *store.Index[Approval]
	ResultApprovals         *store.Table[Approval]
	ResultApprovalsByPost   *store.Index[Approval]

	Intermediates           *store.Table[Intermediate]
	IntermediatesByPermlink *store.Index[Intermediate]
	IntermediatesByTechspec *store.Index[Intermediate]
}

func byPermlink(aAuthor, aPermlink, bAuthor, bPermlink string) bool {
	if c := cmp.Compare(aAuthor, bAuthor); c != 0 {
		return c < 0
	}
	return aPermlink < bPermlink
}

func byTime(a, b time.Time) bool { return a.Before(b) }

// NewDatabase registers the worker tables in db.
func NewDatabase(db *store.DB) *Database {
	d := &Database{db: db}

	d.Proposals = store.NewTable(db, "worker_proposal", func(p *Proposal) *store.ID { return &p.ID })
	d.ProposalsByPermlink = d.Proposals.AddIndex("by_permlink", true, func(a, b Proposal) bool {
		return byPermlink(a.Author, a.Permlink, b.Author, b.Permlink)
	})
	d.ProposalsByCreated = d.Proposals.AddIndex("by_created", false, func(a, b Proposal) bool {
		return byTime(a.Created, b.Created)
	})
	d.ProposalsByRshares = d.Proposals.AddIndex("by_net_rshares", false, func(a, b Proposal) bool {
		return a.NetRshares > b.NetRshares
	})

	d.Techspecs = store.NewTable(db, "worker_techspec", func(t *Techspec) *store.ID { return &t.ID })
	d.TechspecsByPermlink = d.Techspecs.AddIndex("by_permlink", true, func(a, b Techspec) bool {
		return byPermlink(a.Author, a.Permlink, b.Author, b.Permlink)
	})
	d.TechspecsByProposal = d.Techspecs.AddIndex("by_proposal", false, func(a, b Techspec) bool {
		return a.Proposal < b.Proposal
	})
	d.TechspecsByProposalAuthor = d.Techspecs.AddIndex("by_proposal_author", true, func(a, b Techspec) bool {
		if a.Proposal != b.Proposal {
			return a.Proposal < b.Proposal
		}
		return a.Author < b.Author
	})
	d.TechspecsByResult = d.Techspecs.AddIndex("by_worker_result", false, func(a, b Techspec) bool {
		return a.WorkerResult < b.WorkerResult
	})
	d.TechspecsByCashout = d.Techspecs.AddIndex("by_next_cashout_time", false, func(a, b Techspec) bool {
		return byTime(a.NextCashoutTime, b.NextCashoutTime)
	})
	d.TechspecsByStateCreated = d.Techspecs.AddIndex("by_state_created", false, func(a, b Techspec) bool {
		if a.State != b.State {
			return a.State < b.State
		}
		return byTime(a.Created, b.Created)
	})
	d.TechspecsByCreated = d.Techspecs.AddIndex("by_created", false, func(a, b Techspec) bool {
		return byTime(a.Created, b.Created)
	})
	d.TechspecsByRshares = d.Techspecs.AddIndex("by_net_rshares", false, func(a, b Techspec) bool {
		return a.NetRshares > b.NetRshares
	})
	d.TechspecsByApproves = d.Techspecs.AddIndex("by_approves", false, func(a, b Techspec) bool {
		return a.Approves > b.Approves
	})
	d.TechspecsByDisapproves = d.Techspecs.AddIndex("by_disapproves", false, func(a, b Techspec) bool {
		return a.Disapproves > b.Disapproves
	})

	d.TechspecApprovals = store.NewTable(db, "worker_techspec_approve", func(a *Approval) *store.ID { return &a.ID })
	d.TechspecApprovalsByPost = d.TechspecApprovals.AddIndex("by_post_approver", true, approvalLess)
	d.ResultApprovals = store.NewTable(db, "worker_result_approve", func(a *Approval) *store.ID { return &a.ID })
	d.ResultApprovalsByPost = d.ResultApprovals.AddIndex("by_post_approver", true, approvalLess)

	d.Intermediates = store.NewTable(db, "worker_intermediate", func(i *Intermediate) *store.ID { return &i.ID })
	d.IntermediatesByPermlink = d.Intermediates.AddIndex("by_permlink", true, func(a, b Intermediate) bool {
		return byPermlink(a.Author, a.Permlink, b.Author, b.Permlink)
	})
	d.IntermediatesByTechspec = d.Intermediates.AddIndex("by_techspec", false, func(a, b Intermediate) bool {
		return a.Techspec < b.Techspec
	})
	return d
}

// approvalLess orders by post, then approver. A probe with an empty approver
// sorts before every record of its post.
func approvalLess(a, b Approval) bool {
	if a.Post != b.Post {
		return a.Post < b.Post
	}
	return a.Approver < b.Approver
}

// Store returns the substrate the tables live in.
func (d *Database) Store() *store.DB { return d.db }

func (d *Database) FindProposal(author, permlink string) (Proposal, bool) {
	return d.ProposalsByPermlink.Find(Proposal{Author: author, Permlink: permlink})
}

func (d *Database) FindTechspec(author, permlink string) (Techspec, bool) {
	return d.TechspecsByPermlink.Find(Techspec{Author: author, Permlink: permlink})
}

// FindResult returns the techspec whose worker result is the given post.
func (d *Database) FindResult(post store.ID) (Techspec, bool) {
	if post == 0 {
		return Techspec{}, false
	}
	return d.TechspecsByResult.Find(Techspec{WorkerResult: post})
}

func (d *Database) FindIntermediate(author, permlink string) (Intermediate, bool) {
	return d.IntermediatesByPermlink.Find(Intermediate{Author: author, Permlink: permlink})
}

func (d *Database) TechspecIntermediates(techspec store.ID) []Intermediate {
	return d.IntermediatesByTechspec.Collect(Intermediate{Techspec: techspec})
}

// Approvals returns the approval records of post in approver order.
func Approvals(idx *store.Index[Approval], post store.ID) []Approval {
	var out []Approval
	idx.AscendFrom(Approval{Post: post}, func(a Approval) bool {
		if a.Post != post {
			return false
		}
		out = append(out, a)
		return true
	})
	return out
}
