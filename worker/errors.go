package worker

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	InvalidParameter Kind = iota + 1
	FeatureNotActive
	MissingObject
	ObjectAlreadyExists
	LogicViolation
)

func (k Kind) String() string {
	switch k {
	case InvalidParameter:
		return "invalid parameter"
	case FeatureNotActive:
		return "feature not active"
	case MissingObject:
		return "missing object"
	case ObjectAlreadyExists:
		return "object already exists"
	case LogicViolation:
		return "logic violation"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Reason names the rule a LogicViolation broke.
type Reason string

const (
	ProposalOnlyOnPost                       Reason = "worker_proposal_can_be_created_only_on_post"
	CannotEditProposalWithApprovedTechspec   Reason = "cannot_edit_worker_proposal_with_approved_techspec"
	CannotDeleteProposalWithApprovedTechspec Reason = "cannot_delete_worker_proposal_with_approved_techspec"
	CannotDeleteProposalWithTechspecs        Reason = "cannot_delete_worker_proposal_with_techspecs"
	PostAlreadyUsed                          Reason = "post_already_used_by_worker_object"

	TechspecOnlyOnPost                 Reason = "worker_techspec_can_be_created_only_on_post"
	ProposalAlreadyHasApprovedTechspec Reason = "this_worker_proposal_already_has_approved_techspec"
	TechspecPermlinkMismatch           Reason = "worker_techspec_can_be_edited_only_on_its_post"
	CannotChangeCostSymbol             Reason = "cannot_change_cost_symbol"
	TechspecAlreadyApprovedOrClosed    Reason = "techspec_is_already_approved_or_closed"
	CannotDeleteTechspecInPayment      Reason = "cannot_delete_worker_techspec_for_paying_proposal"
	ApproverNotTopWitness              Reason = "approver_should_be_in_top_witnesses"

	WorkerCannotBeAssignedToPremade   Reason = "worker_cannot_be_assigned_to_premade_proposal"
	WorkerAssignedOnlyToApproved      Reason = "worker_can_be_assigned_only_to_approved_proposal"
	WorkerUnassignedOnlyInWork        Reason = "worker_can_be_unassigned_only_from_proposal_in_work"
	UnassignOnlyByAuthorOrWorker      Reason = "worker_can_be_unassigned_only_by_techspec_author_or_worker"
	IntermediateOnlyOnPost            Reason = "worker_intermediate_can_be_created_only_on_post"
	IntermediateOnlyForTechspecInWork Reason = "worker_intermediate_can_be_created_only_for_techspec_in_work"

	CompletionDateInFuture           Reason = "work_completion_date_cannot_be_in_future"
	ResultOnlyOnPost                 Reason = "worker_result_can_be_created_only_on_post"
	PostAlreadyUsedAsResult          Reason = "this_post_already_used_as_worker_result"
	ResultOnlyForTechspecInWork      Reason = "worker_result_can_be_created_only_for_techspec_in_work"
	ResultOnlyForApprovedPremade     Reason = "premade_worker_result_can_be_created_only_for_approved_techspec"
	CannotDeleteResultForPaying      Reason = "cannot_delete_worker_result_for_paying_proposal"
	ResultNotUnderReview             Reason = "worker_result_is_not_under_witnesses_review"
	ApproveTermExpired               Reason = "approve_term_has_expired"
	InsufficientFundsToApproveResult Reason = "insufficient_funds_to_approve_worker_result"
)

// Error is an operation rejection. Reason is set for LogicViolation only.
type Error struct {
	Kind   Kind
	Reason Reason
	Msg    string
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Reason, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is matches another *Error of the same kind whose reason is empty or equal,
// so errors.Is(err, &Error{Kind: MissingObject}) matches any missing object.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

// ReasonOf returns the reason of a LogicViolation, or "" for other errors.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

func logic(reason Reason, format string, args ...any) error {
	return &Error{Kind: LogicViolation, Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

func missing(object, author, permlink string) error {
	return &Error{Kind: MissingObject, Msg: fmt.Sprintf("%s %s/%s does not exist", object, author, permlink)}
}

func exists(object, author, permlink string) error {
	return &Error{Kind: ObjectAlreadyExists, Msg: fmt.Sprintf("%s %s/%s already exists", object, author, permlink)}
}
