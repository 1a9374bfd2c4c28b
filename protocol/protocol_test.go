package protocol

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAccountNames(t *testing.T) {
	for _, name := range []string{"bob", "alice", "witness-1", "golos.io", "a1b2c3"} {
		require.NoError(t, ValidateAccountName(name), name)
	}
	for _, name := range []string{"", "ab", "Alice", "1abc", "abc-", "ab.cde", "averyveryverylongname"} {
		require.Error(t, ValidateAccountName(name), name)
	}
}

func TestTechspecValidation(t *testing.T) {
	valid := SubmitTechspec{
		Author:            "bob",
		Permlink:          "spec",
		ProposalAuthor:    "alice",
		ProposalPermlink:  "proposal",
		SpecificationCost: Native(300),
		DevelopmentCost:   Native(700),
		PaymentsCount:     2,
		PaymentsInterval:  60,
	}
	require.NoError(t, valid.Validate())

	op := valid
	op.PaymentsCount = 0
	require.ErrorIs(t, op.Validate(), ErrInvalidParameter)

	op = valid
	op.PaymentsInterval = 0
	require.ErrorIs(t, op.Validate(), ErrInvalidParameter)

	op = valid
	op.DevelopmentCost = Asset{Amount: 1, Symbol: "GBG"}
	require.ErrorIs(t, op.Validate(), ErrInvalidParameter)

	op = valid
	op.SpecificationCost = Native(-1)
	require.ErrorIs(t, op.Validate(), ErrInvalidParameter)

	// a single payment may be delayed by any interval
	op = valid
	op.PaymentsCount = 1
	op.PaymentsInterval = 60 * 24 * 60 * 60
	require.NoError(t, op.Validate())
}

func TestAssignWorkerValidation(t *testing.T) {
	op := AssignWorker{Assigner: "carol", TechspecAuthor: "bob", TechspecPermlink: "spec", Worker: "dave"}
	require.ErrorIs(t, op.Validate(), ErrInvalidParameter)

	op.Assigner = "bob"
	require.NoError(t, op.Validate())

	// unassign may be requested by the worker
	op = AssignWorker{Assigner: "dave", TechspecAuthor: "bob", TechspecPermlink: "spec"}
	require.NoError(t, op.Validate())
}

func TestApproveStateJSON(t *testing.T) {
	data, err := json.Marshal(ApproveTechspec{Approver: "wit", Author: "bob", Permlink: "spec", State: Disapprove})
	require.NoError(t, err)
	require.Contains(t, string(data), `"state":"disapprove"`)

	var op ApproveTechspec
	require.NoError(t, json.Unmarshal(data, &op))
	require.Equal(t, Disapprove, op.State)

	require.Error(t, json.Unmarshal([]byte(`{"state":"maybe"}`), &op))
}

func TestSignAndDecodeTx(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	op := SubmitResult{Author: "bob", Permlink: "result", TechspecPermlink: "spec", CompletionDate: time.Unix(1000, 0).UTC()}
	raw, err := SignTx(op, 7, priv)
	require.NoError(t, err)

	signed, err := DecodeTx(raw)
	require.NoError(t, err)
	require.Equal(t, uint64(7), signed.Nonce)
	require.Equal(t, op, signed.Operation)
	require.NoError(t, signed.Verify(pub))

	otherPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	require.ErrorIs(t, signed.Verify(otherPub), ErrBadSignature)
}

func TestDecodeTxRejectsForeignSigner(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	raw, err := SignTx(DeleteProposal{Author: "alice", Permlink: "p"}, 1, priv)
	require.NoError(t, err)

	var tx Tx
	require.NoError(t, json.Unmarshal(raw, &tx))
	tx.Signer = "mallory"
	raw, err = json.Marshal(tx)
	require.NoError(t, err)

	_, err = DecodeTx(raw)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestDecodeOperationRejectsUnknown(t *testing.T) {
	_, err := DecodeOperation("worker_payment_approve", []byte(`{}`))
	require.Error(t, err)

	_, err = DecodeOperation("worker_proposal", []byte(`{"author":"bob","permlink":"p","kind":"task","extra":1}`))
	require.Error(t, err)
}

type countingVisitor struct {
	Visitor
	calls int
}

func (v *countingVisitor) ApplyVote(Vote) error {
	v.calls++
	return nil
}

func TestAcceptDispatches(t *testing.T) {
	v := &countingVisitor{}
	require.NoError(t, Vote{Voter: "bob", Author: "alice", Permlink: "p"}.Accept(v))
	require.Equal(t, 1, v.calls)
	require.False(t, IsWorkerOperation(Vote{}))
	require.True(t, IsWorkerOperation(SubmitProposal{}))
}
