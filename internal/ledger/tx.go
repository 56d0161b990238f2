package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/roach88/powermarket/internal/commit"
)

// Transaction is the signed unit Submit turns an operation into.
type Transaction struct {
	ID   uuid.UUID
	Kind Kind
	Op   string
	Args []any
}

// NewTransaction stamps op with a fresh time-ordered id.
func NewTransaction(kind Kind, op string, args []any) (Transaction, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Transaction{}, fmt.Errorf("generate tx id: %w", err)
	}
	return Transaction{ID: id, Kind: kind, Op: op, Args: args}, nil
}

// CanonicalArgs returns the RFC 8785 encoding of the arguments.
func (tx Transaction) CanonicalArgs() ([]byte, error) {
	args := tx.Args
	if args == nil {
		args = []any{}
	}
	return commit.MarshalCanonical(args)
}

// Digest is keccak256 over the canonical (id, kind, op, args) tuple.
func (tx Transaction) Digest() ([]byte, error) {
	args := tx.Args
	if args == nil {
		args = []any{}
	}
	canonical, err := commit.MarshalCanonical(map[string]any{
		"id":   tx.ID.String(),
		"kind": string(tx.Kind),
		"op":   tx.Op,
		"args": args,
	})
	if err != nil {
		return nil, fmt.Errorf("digest %s: %w", tx.Op, err)
	}
	return crypto.Keccak256(canonical), nil
}

// Sign produces a 65-byte recoverable secp256k1 signature over the digest.
func (tx Transaction) Sign(signer Signer) ([]byte, error) {
	if signer.PrivateKey == nil {
		return nil, fmt.Errorf("sign %s: signer %s has no private key", tx.Op, signer.Address.Hex())
	}
	digest, err := tx.Digest()
	if err != nil {
		return nil, err
	}
	return crypto.Sign(digest, signer.PrivateKey)
}

// RecoverSender returns the address whose key produced sig over tx.
func (tx Transaction) RecoverSender(sig []byte) (common.Address, error) {
	digest, err := tx.Digest()
	if err != nil {
		return common.Address{}, err
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover sender of %s: %w", tx.Op, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
