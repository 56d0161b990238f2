package commit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainProperties separates payload commitments from any other SHA-256
// use. The version suffix leaves room for an algorithm change.
const DomainProperties = "powermarket/properties/v1"

// Hash is the hex encoded root hash of a canonical payload.
// The zero value means "no off-ledger payload".
type Hash string

// IsZero reports whether h is the null commitment.
func (h Hash) IsZero() bool { return h == "" }

func (h Hash) String() string { return string(h) }

// Short returns a prefix suitable for log lines.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// ParseHash validates a hex encoded SHA-256 digest.
func ParseHash(s string) (Hash, error) {
	if s == "" {
		return "", nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("parse hash %q: %w", s, err)
	}
	if len(b) != sha256.Size {
		return "", fmt.Errorf("parse hash %q: want %d bytes, got %d", s, sha256.Size, len(b))
	}
	return Hash(s), nil
}

// Commitment is a payload's root hash together with the exact canonical
// bytes it was computed over.
type Commitment struct {
	Hash      Hash
	Canonical []byte
}

// Commit canonicalises payload and hashes it.
func Commit(payload any) (Commitment, error) {
	canonical, err := MarshalCanonical(payload)
	if err != nil {
		return Commitment{}, fmt.Errorf("commit: %w", err)
	}
	return Commitment{Hash: Sum(canonical), Canonical: canonical}, nil
}

// Verify recomputes the commitment of payload and compares it with h.
// A payload that cannot be canonicalised never verifies.
func Verify(payload any, h Hash) bool {
	c, err := Commit(payload)
	if err != nil {
		return false
	}
	return c.Hash == h
}

// VerifyDocument parses a stored JSON document and checks it against h.
// It returns the decoded value and the recomputed hash so callers can
// report both sides of a mismatch.
func VerifyDocument(doc []byte, h Hash) (Value, Hash, bool, error) {
	val, err := Parse(doc)
	if err != nil {
		return nil, "", false, err
	}
	c, err := Commit(val)
	if err != nil {
		return nil, "", false, err
	}
	return val, c.Hash, c.Hash == h, nil
}

// Sum computes SHA256(domain || 0x00 || canonical).
// The null separator prevents domain/data boundary ambiguity.
func Sum(canonical []byte) Hash {
	hasher := sha256.New()
	hasher.Write([]byte(DomainProperties))
	hasher.Write([]byte{0x00})
	hasher.Write(canonical)
	return Hash(hex.EncodeToString(hasher.Sum(nil)))
}

// MustCommit is like Commit but panics on error.
// Use only in tests or when the payload is known to be valid.
func MustCommit(payload any) Commitment {
	c, err := Commit(payload)
	if err != nil {
		panic(err)
	}
	return c
}
