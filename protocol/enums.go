package protocol

import "fmt"

// ProposalKind distinguishes work that is still to be done from work that
// was done before the proposal was made.
type ProposalKind uint8

const (
	Task ProposalKind = iota
	PremadeWork
	proposalKindCount
)

var proposalKindNames = [...]string{"task", "premade_work"}

func (k ProposalKind) Valid() bool { return k < proposalKindCount }

func (k ProposalKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("proposal_kind(%d)", uint8(k))
	}
	return proposalKindNames[k]
}

func (k ProposalKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid proposal kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *ProposalKind) UnmarshalText(text []byte) error {
	v, err := parseEnum(string(text), proposalKindNames[:])
	if err != nil {
		return fmt.Errorf("proposal kind: %w", err)
	}
	*k = ProposalKind(v)
	return nil
}

// ApproveState is a witness's position on a techspec or a result. Abstain is
// never stored.
type ApproveState uint8

const (
	Approve ApproveState = iota
	Disapprove
	Abstain
	approveStateCount
)

var approveStateNames = [...]string{"approve", "disapprove", "abstain"}

func (s ApproveState) Valid() bool { return s < approveStateCount }

func (s ApproveState) String() string {
	if !s.Valid() {
		return fmt.Sprintf("approve_state(%d)", uint8(s))
	}
	return approveStateNames[s]
}

func (s ApproveState) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid approve state %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *ApproveState) UnmarshalText(text []byte) error {
	v, err := parseEnum(string(text), approveStateNames[:])
	if err != nil {
		return fmt.Errorf("approve state: %w", err)
	}
	*s = ApproveState(v)
	return nil
}

func parseEnum(text string, names []string) (int, error) {
	for i, name := range names {
		if name == text {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown value %q", text)
}
