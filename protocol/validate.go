package protocol

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

var ErrInvalidParameter = errors.New("invalid parameter")

const (
	minAccountNameLength = 3
	maxAccountNameLength = 16
	maxPermlinkLength    = 256

	// MaxCost bounds each cost so that sums of two costs cannot overflow.
	MaxCost = math.MaxInt64 / 2
)

var (
	accountSegment = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$`)
	permlinkChars  = regexp.MustCompile(`^[a-z0-9-]+$`)
)

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidParameter, field, fmt.Sprintf(format, args...))
}

// ValidateAccountName checks the account naming rules: 3 to 16 characters,
// dot separated segments of at least 3 characters that start with a letter
// and end with a letter or digit.
func ValidateAccountName(name string) error {
	if len(name) < minAccountNameLength || len(name) > maxAccountNameLength {
		return fmt.Errorf("account name %q must be %d to %d characters", name, minAccountNameLength, maxAccountNameLength)
	}
	for _, segment := range strings.Split(name, ".") {
		if len(segment) < minAccountNameLength || !accountSegment.MatchString(segment) {
			return fmt.Errorf("account name %q has invalid segment %q", name, segment)
		}
	}
	return nil
}

func ValidatePermlink(permlink string) error {
	if permlink == "" || len(permlink) > maxPermlinkLength {
		return fmt.Errorf("permlink must be 1 to %d characters", maxPermlinkLength)
	}
	if !permlinkChars.MatchString(permlink) {
		return fmt.Errorf("permlink %q may contain only lowercase letters, digits and dashes", permlink)
	}
	return nil
}

func checkAccount(field, name string) error {
	if err := ValidateAccountName(name); err != nil {
		return invalid(field, "%v", err)
	}
	return nil
}

func checkPermlink(field, permlink string) error {
	if err := ValidatePermlink(permlink); err != nil {
		return invalid(field, "%v", err)
	}
	return nil
}

func checkPost(authorField, author, permlinkField, permlink string) error {
	if err := checkAccount(authorField, author); err != nil {
		return err
	}
	return checkPermlink(permlinkField, permlink)
}

func checkCost(field string, a Asset) error {
	if a.Symbol != NativeSymbol {
		return invalid(field, "symbol must be %s", NativeSymbol)
	}
	if a.Amount < 0 {
		return invalid(field, "amount must not be negative")
	}
	if a.Amount > MaxCost {
		return invalid(field, "amount must not exceed %d", int64(MaxCost))
	}
	return nil
}

func checkApproveState(s ApproveState) error {
	if !s.Valid() {
		return invalid("state", "this value is reserved")
	}
	return nil
}

func (op SubmitProposal) Validate() error {
	if err := checkPost("author", op.Author, "permlink", op.Permlink); err != nil {
		return err
	}
	if !op.Kind.Valid() {
		return invalid("kind", "this value is reserved")
	}
	return nil
}

func (op DeleteProposal) Validate() error {
	return checkPost("author", op.Author, "permlink", op.Permlink)
}

func (op SubmitTechspec) Validate() error {
	if err := checkPost("author", op.Author, "permlink", op.Permlink); err != nil {
		return err
	}
	if err := checkPost("proposal_author", op.ProposalAuthor, "proposal_permlink", op.ProposalPermlink); err != nil {
		return err
	}
	if err := checkCost("specification_cost", op.SpecificationCost); err != nil {
		return err
	}
	if err := checkCost("development_cost", op.DevelopmentCost); err != nil {
		return err
	}
	if op.PaymentsCount < 1 {
		return invalid("payments_count", "must be at least 1")
	}
	if op.PaymentsInterval < 1 {
		return invalid("payments_interval", "must be at least 1 second")
	}
	return nil
}

func (op DeleteTechspec) Validate() error {
	return checkPost("author", op.Author, "permlink", op.Permlink)
}

func (op ApproveTechspec) Validate() error {
	if err := checkAccount("approver", op.Approver); err != nil {
		return err
	}
	if err := checkPost("author", op.Author, "permlink", op.Permlink); err != nil {
		return err
	}
	return checkApproveState(op.State)
}

func (op AssignWorker) Validate() error {
	if err := checkAccount("assigner", op.Assigner); err != nil {
		return err
	}
	if err := checkPost("techspec_author", op.TechspecAuthor, "techspec_permlink", op.TechspecPermlink); err != nil {
		return err
	}
	if op.Worker != "" {
		if err := checkAccount("worker", op.Worker); err != nil {
			return err
		}
		if op.Assigner != op.TechspecAuthor {
			return invalid("assigner", "worker can be assigned only by techspec author")
		}
	}
	return nil
}

func (op SubmitIntermediate) Validate() error {
	if err := checkPost("author", op.Author, "permlink", op.Permlink); err != nil {
		return err
	}
	return checkPermlink("techspec_permlink", op.TechspecPermlink)
}

func (op DeleteIntermediate) Validate() error {
	return checkPost("author", op.Author, "permlink", op.Permlink)
}

func (op SubmitResult) Validate() error {
	if err := checkPost("author", op.Author, "permlink", op.Permlink); err != nil {
		return err
	}
	return checkPermlink("techspec_permlink", op.TechspecPermlink)
}

func (op DeleteResult) Validate() error {
	return checkPost("author", op.Author, "permlink", op.Permlink)
}

func (op ApproveResult) Validate() error {
	if err := checkAccount("approver", op.Approver); err != nil {
		return err
	}
	if err := checkPost("author", op.Author, "permlink", op.Permlink); err != nil {
		return err
	}
	return checkApproveState(op.State)
}

func (op Post) Validate() error {
	if err := checkPost("author", op.Author, "permlink", op.Permlink); err != nil {
		return err
	}
	if op.ParentAuthor == "" {
		if op.ParentPermlink != "" {
			return invalid("parent_permlink", "must be empty for a top-level post")
		}
		return nil
	}
	return checkPost("parent_author", op.ParentAuthor, "parent_permlink", op.ParentPermlink)
}

func (op Vote) Validate() error {
	if err := checkAccount("voter", op.Voter); err != nil {
		return err
	}
	return checkPost("author", op.Author, "permlink", op.Permlink)
}
