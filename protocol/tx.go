package protocol

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBadSignature = errors.New("signature verification failed")
	ErrUnauthorized = errors.New("missing required authority")
)

// Tx is the signed envelope carried in a block. The signature covers the raw
// Body bytes exactly as the client produced them.
type Tx struct {
	Body      json.RawMessage `json:"body"`
	Signer    string          `json:"signer"`
	Signature string          `json:"signature"`
}

// Body wraps a single operation. Nonce must be one more than the signer's
// previous nonce.
type Body struct {
	Type      string          `json:"type"`
	Nonce     uint64          `json:"nonce"`
	Operation json.RawMessage `json:"operation"`
}

// SignedOperation is a decoded, not yet verified transaction.
type SignedOperation struct {
	Tx        Tx
	Nonce     uint64
	Operation Operation
}

// DecodeTx parses the envelope and the operation inside it and runs the
// operation's structural validation. It does not verify the signature.
func DecodeTx(raw []byte) (*SignedOperation, error) {
	var tx Tx
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, errors.New("invalid tx JSON")
	}
	if len(tx.Body) == 0 {
		return nil, errors.New("missing body")
	}
	if strings.TrimSpace(tx.Signer) == "" {
		return nil, errors.New("missing signer")
	}
	var body Body
	if err := json.Unmarshal(tx.Body, &body); err != nil {
		return nil, errors.New("invalid body JSON")
	}
	op, err := DecodeOperation(body.Type, body.Operation)
	if err != nil {
		return nil, err
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}
	if op.Authority() != tx.Signer {
		return nil, fmt.Errorf("%w: %s requires signature of %s, signed by %s", ErrUnauthorized, op.Type(), op.Authority(), tx.Signer)
	}
	return &SignedOperation{Tx: tx, Nonce: body.Nonce, Operation: op}, nil
}

// Verify checks the envelope signature against the signer's public key.
func (s *SignedOperation) Verify(pubkey ed25519.PublicKey) error {
	if len(pubkey) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid pubkey length: got %d, want %d", len(pubkey), ed25519.PublicKeySize)
	}
	sig, err := base64.StdEncoding.DecodeString(s.Tx.Signature)
	if err != nil {
		return errors.New("invalid signature base64")
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("invalid signature length: got %d, want %d", len(sig), ed25519.SignatureSize)
	}
	if !ed25519.Verify(pubkey, s.Tx.Body, sig) {
		return ErrBadSignature
	}
	return nil
}

// SignTx builds a signed envelope for op.
func SignTx(op Operation, nonce uint64, key ed25519.PrivateKey) ([]byte, error) {
	opJSON, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("marshal operation: %w", err)
	}
	body, err := json.Marshal(Body{Type: op.Type(), Nonce: nonce, Operation: opJSON})
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	tx := Tx{
		Body:      body,
		Signer:    op.Authority(),
		Signature: base64.StdEncoding.EncodeToString(ed25519.Sign(key, body)),
	}
	return json.Marshal(tx)
}

// DecodePublicKey parses a base64 ed25519 public key.
func DecodePublicKey(b64 string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, errors.New("invalid pubkey base64")
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid pubkey length: got %d, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}
