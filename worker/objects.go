package worker

import (
	"fmt"
	"time"

	"github.com/kedgaks/golos/protocol"
	"github.com/kedgaks/golos/store"
)

// Never is the cashout time of a techspec that is not scheduled for payment.
var Never = time.Unix(1<<32-1, 0).UTC()

// ProposalState values are ordered by lifecycle position.
type ProposalState uint8

const (
	ProposalCreated ProposalState = iota
	ProposalTechspecApproved
	ProposalWork
	ProposalWitnessesReview
	ProposalPayment
	ProposalClosed
)

var proposalStateNames = []string{"created", "techspec_approved", "work", "witnesses_review", "payment", "closed"}

func (s ProposalState) String() string {
	if int(s) < len(proposalStateNames) {
		return proposalStateNames[s]
	}
	return fmt.Sprintf("proposal_state(%d)", uint8(s))
}

func (s ProposalState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *ProposalState) UnmarshalText(text []byte) error {
	v, err := ParseProposalState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParseProposalState(name string) (ProposalState, error) {
	for i, n := range proposalStateNames {
		if n == name {
			return ProposalState(i), nil
		}
	}
	return 0, fmt.Errorf("unknown proposal state %q", name)
}

// TechspecState values are ordered by lifecycle position.
type TechspecState uint8

const (
	TechspecCreated TechspecState = iota
	TechspecApproved
	TechspecWork
	TechspecComplete
	TechspecPayment
	TechspecPaymentComplete
	TechspecClosed
)

var techspecStateNames = []string{"created", "approved", "work", "complete", "payment", "payment_complete", "closed"}

func (s TechspecState) String() string {
	if int(s) < len(techspecStateNames) {
		return techspecStateNames[s]
	}
	return fmt.Sprintf("techspec_state(%d)", uint8(s))
}

func (s TechspecState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *TechspecState) UnmarshalText(text []byte) error {
	v, err := ParseTechspecState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func ParseTechspecState(name string) (TechspecState, error) {
	for i, n := range techspecStateNames {
		if n == name {
			return TechspecState(i), nil
		}
	}
	return 0, fmt.Errorf("unknown techspec state %q", name)
}

type Proposal struct {
	ID               store.ID              `json:"id"`
	Post             store.ID              `json:"post"`
	Author           string                `json:"author"`
	Permlink         string                `json:"permlink"`
	Kind             protocol.ProposalKind `json:"kind"`
	State            ProposalState         `json:"state"`
	ApprovedTechspec store.ID              `json:"approved_techspec"`
	Created          time.Time             `json:"created"`
	Modified         time.Time             `json:"modified"`
	NetRshares       int64                 `json:"net_rshares"`
}

type Techspec struct {
	ID       store.ID      `json:"id"`
	Post     store.ID      `json:"post"`
	Author   string        `json:"author"`
	Permlink string        `json:"permlink"`
	Proposal store.ID      `json:"proposal"`
	State    TechspecState `json:"state"`
	Created  time.Time     `json:"created"`
	Modified time.Time     `json:"modified"`

	SpecificationCost protocol.Asset `json:"specification_cost"`
	DevelopmentCost   protocol.Asset `json:"development_cost"`
	PaymentsCount     uint16         `json:"payments_count"`
	PaymentsInterval  uint32         `json:"payments_interval"`

	// Approves and Disapproves count the raw approval records of the current
	// approval round, whatever the approvers' witness status.
	Approves    int64 `json:"approves"`
	Disapproves int64 `json:"disapproves"`

	Worker               string    `json:"worker"`
	WorkBeginningTime    time.Time `json:"work_beginning_time"`
	WorkerResult         store.ID  `json:"worker_result"`
	WorkerResultPermlink string    `json:"worker_result_permlink"`
	CompletionDate       time.Time `json:"completion_date"`

	NextCashoutTime       time.Time      `json:"next_cashout_time"`
	FinishedPaymentsCount uint16         `json:"finished_payments_count"`
	MonthConsumption      protocol.Asset `json:"month_consumption"`
	PaymentBeginningTime  time.Time      `json:"payment_beginning_time"`

	NetRshares int64 `json:"net_rshares"`
}

// Approval is a witness decision on a techspec or on a worker result. Post is
// the techspec post or the result post respectively.
type Approval struct {
	ID       store.ID              `json:"id"`
	Post     store.ID              `json:"post"`
	Approver string                `json:"approver"`
	State    protocol.ApproveState `json:"state"`
}

// Intermediate is a progress report on a techspec in work.
type Intermediate struct {
	ID       store.ID  `json:"id"`
	Post     store.ID  `json:"post"`
	Author   string    `json:"author"`
	Permlink string    `json:"permlink"`
	Techspec store.ID  `json:"techspec"`
	Created  time.Time `json:"created"`
}
