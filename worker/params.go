package worker

import (
	"fmt"
	"time"
)

// Params are the chain parameters of the worker subsystem.
type Params struct {
	// ActivationHeight is the first block height worker operations are
	// accepted at and the cashout runs at.
	ActivationHeight    int64
	TechspecApproveTerm time.Duration
	ResultApproveTerm   time.Duration
	// Majority approvals of top witnesses approve a techspec or a result,
	// SuperMajority disapprovals reject it.
	Majority      int
	SuperMajority int
}

const DefaultTopWitnesses = 19

func DefaultParams() Params {
	return ParamsFor(DefaultTopWitnesses)
}

// ParamsFor returns the default parameters for a top witness set of size top.
func ParamsFor(top int) Params {
	return Params{
		ActivationHeight:    1,
		TechspecApproveTerm: 5 * 24 * time.Hour,
		ResultApproveTerm:   5 * 24 * time.Hour,
		Majority:            top/2 + 1,
		SuperMajority:       top*2/3 + 1,
	}
}

func (p Params) Validate() error {
	if p.ActivationHeight < 1 {
		return fmt.Errorf("activation height must be positive, got %d", p.ActivationHeight)
	}
	if p.TechspecApproveTerm <= 0 || p.ResultApproveTerm <= 0 {
		return fmt.Errorf("approve terms must be positive")
	}
	if p.Majority < 1 || p.SuperMajority < 1 {
		return fmt.Errorf("quorum thresholds must be positive")
	}
	return nil
}
