package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Operation is implemented only by the operation types of this package.
type Operation interface {
	// Type is the wire name of the operation.
	Type() string
	// Authority is the account whose signature the operation requires.
	Authority() string
	// Validate performs the structural checks that need no chain state.
	Validate() error
	// Accept dispatches the operation to the matching Visitor method.
	Accept(v Visitor) error
}

// Visitor has one method per operation type. Adding an operation without
// extending Visitor fails to compile in Accept, and every Visitor
// implementation must then handle it.
type Visitor interface {
	ApplySubmitProposal(op SubmitProposal) error
	ApplyDeleteProposal(op DeleteProposal) error
	ApplySubmitTechspec(op SubmitTechspec) error
	ApplyDeleteTechspec(op DeleteTechspec) error
	ApplyApproveTechspec(op ApproveTechspec) error
	ApplyAssignWorker(op AssignWorker) error
	ApplySubmitIntermediate(op SubmitIntermediate) error
	ApplyDeleteIntermediate(op DeleteIntermediate) error
	ApplySubmitResult(op SubmitResult) error
	ApplyDeleteResult(op DeleteResult) error
	ApplyApproveResult(op ApproveResult) error
	ApplyPost(op Post) error
	ApplyVote(op Vote) error
}

type SubmitProposal struct {
	Author   string       `json:"author"`
	Permlink string       `json:"permlink"`
	Kind     ProposalKind `json:"kind"`
}

type DeleteProposal struct {
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
}

type SubmitTechspec struct {
	Author            string `json:"author"`
	Permlink          string `json:"permlink"`
	ProposalAuthor    string `json:"proposal_author"`
	ProposalPermlink  string `json:"proposal_permlink"`
	SpecificationCost Asset  `json:"specification_cost"`
	DevelopmentCost   Asset  `json:"development_cost"`
	PaymentsCount     uint16 `json:"payments_count"`
	PaymentsInterval  uint32 `json:"payments_interval"`
}

type DeleteTechspec struct {
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
}

type ApproveTechspec struct {
	Approver string       `json:"approver"`
	Author   string       `json:"author"`
	Permlink string       `json:"permlink"`
	State    ApproveState `json:"state"`
}

// AssignWorker assigns Worker to a techspec, or unassigns the current worker
// when Worker is empty.
type AssignWorker struct {
	Assigner         string `json:"assigner"`
	TechspecAuthor   string `json:"techspec_author"`
	TechspecPermlink string `json:"techspec_permlink"`
	Worker           string `json:"worker"`
}

type SubmitIntermediate struct {
	Author           string `json:"author"`
	Permlink         string `json:"permlink"`
	TechspecPermlink string `json:"techspec_permlink"`
}

type DeleteIntermediate struct {
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
}

// SubmitResult reports the work of the author's techspec TechspecPermlink as
// done in post Permlink. A zero CompletionDate means "now".
type SubmitResult struct {
	Author           string    `json:"author"`
	Permlink         string    `json:"permlink"`
	TechspecPermlink string    `json:"techspec_permlink"`
	CompletionDate   time.Time `json:"completion_date"`
}

type DeleteResult struct {
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
}

type ApproveResult struct {
	Approver string       `json:"approver"`
	Author   string       `json:"author"`
	Permlink string       `json:"permlink"`
	State    ApproveState `json:"state"`
}

// Post publishes a content post. An empty ParentAuthor makes it top-level.
type Post struct {
	Author         string `json:"author"`
	Permlink       string `json:"permlink"`
	ParentAuthor   string `json:"parent_author"`
	ParentPermlink string `json:"parent_permlink"`
}

// Vote sets the voter's weight on a post. Weight is signed; zero removes the
// vote.
type Vote struct {
	Voter    string `json:"voter"`
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
	Weight   int64  `json:"weight"`
}

func (SubmitProposal) Type() string     { return "worker_proposal" }
func (DeleteProposal) Type() string     { return "worker_proposal_delete" }
func (SubmitTechspec) Type() string     { return "worker_techspec" }
func (DeleteTechspec) Type() string     { return "worker_techspec_delete" }
func (ApproveTechspec) Type() string    { return "worker_techspec_approve" }
func (AssignWorker) Type() string       { return "worker_assign" }
func (SubmitIntermediate) Type() string { return "worker_intermediate" }
func (DeleteIntermediate) Type() string { return "worker_intermediate_delete" }
func (SubmitResult) Type() string       { return "worker_result" }
func (DeleteResult) Type() string       { return "worker_result_delete" }
func (ApproveResult) Type() string      { return "worker_result_approve" }
func (Post) Type() string               { return "post" }
func (Vote) Type() string               { return "vote" }

func (op SubmitProposal) Authority() string     { return op.Author }
func (op DeleteProposal) Authority() string     { return op.Author }
func (op SubmitTechspec) Authority() string     { return op.Author }
func (op DeleteTechspec) Authority() string     { return op.Author }
func (op ApproveTechspec) Authority() string    { return op.Approver }
func (op AssignWorker) Authority() string       { return op.Assigner }
func (op SubmitIntermediate) Authority() string { return op.Author }
func (op DeleteIntermediate) Authority() string { return op.Author }
func (op SubmitResult) Authority() string       { return op.Author }
func (op DeleteResult) Authority() string       { return op.Author }
func (op ApproveResult) Authority() string      { return op.Approver }
func (op Post) Authority() string               { return op.Author }
func (op Vote) Authority() string               { return op.Voter }

func (op SubmitProposal) Accept(v Visitor) error     { return v.ApplySubmitProposal(op) }
func (op DeleteProposal) Accept(v Visitor) error     { return v.ApplyDeleteProposal(op) }
func (op SubmitTechspec) Accept(v Visitor) error     { return v.ApplySubmitTechspec(op) }
func (op DeleteTechspec) Accept(v Visitor) error     { return v.ApplyDeleteTechspec(op) }
func (op ApproveTechspec) Accept(v Visitor) error    { return v.ApplyApproveTechspec(op) }
func (op AssignWorker) Accept(v Visitor) error       { return v.ApplyAssignWorker(op) }
func (op SubmitIntermediate) Accept(v Visitor) error { return v.ApplySubmitIntermediate(op) }
func (op DeleteIntermediate) Accept(v Visitor) error { return v.ApplyDeleteIntermediate(op) }
func (op SubmitResult) Accept(v Visitor) error       { return v.ApplySubmitResult(op) }
func (op DeleteResult) Accept(v Visitor) error       { return v.ApplyDeleteResult(op) }
func (op ApproveResult) Accept(v Visitor) error      { return v.ApplyApproveResult(op) }
func (op Post) Accept(v Visitor) error               { return v.ApplyPost(op) }
func (op Vote) Accept(v Visitor) error               { return v.ApplyVote(op) }

// IsWorkerOperation reports whether op belongs to the worker subsystem and is
// therefore gated by its activation height.
func IsWorkerOperation(op Operation) bool {
	switch op.(type) {
	case Post, Vote:
		return false
	}
	return true
}

var decoders = map[string]func(raw []byte) (Operation, error){}

func register[T Operation]() {
	var zero T
	decoders[zero.Type()] = func(raw []byte) (Operation, error) {
		var op T
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&op); err != nil {
			return nil, err
		}
		return op, nil
	}
}

func init() {
	register[SubmitProposal]()
	register[DeleteProposal]()
	register[SubmitTechspec]()
	register[DeleteTechspec]()
	register[ApproveTechspec]()
	register[AssignWorker]()
	register[SubmitIntermediate]()
	register[DeleteIntermediate]()
	register[SubmitResult]()
	register[DeleteResult]()
	register[ApproveResult]()
	register[Post]()
	register[Vote]()
}

// DecodeOperation decodes the JSON form of the operation named typ.
func DecodeOperation(typ string, raw []byte) (Operation, error) {
	decode, ok := decoders[typ]
	if !ok {
		return nil, fmt.Errorf("unknown operation type %q", typ)
	}
	op, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", typ, err)
	}
	return op, nil
}
