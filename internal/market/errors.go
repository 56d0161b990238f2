package market

import (
	"errors"
	"fmt"

	"github.com/roach88/powermarket/internal/commit"
	"github.com/roach88/powermarket/internal/ledger"
	"github.com/roach88/powermarket/internal/offchain"
	"github.com/roach88/powermarket/internal/schema"
)

// ErrNoID is returned by operations that need a ledger id on an entity
// that was never created.
var ErrNoID = errors.New("market: entity has no ledger id")

// IntegrityError reports an off-ledger document that does not match its
// on-ledger commitment. The entity's on-ledger fields stay usable; its
// payload is withheld.
type IntegrityError struct {
	// Kind and ID identify the entity.
	Kind ledger.Kind
	ID   uint64

	// Payload names which document failed (Agreement has two).
	Payload schema.Name

	// Expected is the on-ledger commitment.
	Expected commit.Hash

	// Actual is the hash recomputed from the document or payload.
	Actual commit.Hash
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("INTEGRITY: %s(%d) %s payload hashes to %s, ledger commits to %s",
		e.Kind, e.ID, e.Payload, e.Actual.Short(), e.Expected.Short())
}

// IsIntegrityError reports whether err is an off-ledger hash mismatch.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// OffChainWriteError is returned together with an entity when the ledger
// accepted an operation but the off-ledger document could not be stored.
// The on-ledger state is not rolled back. Repair with the same payload
// once the store is reachable.
type OffChainWriteError struct {
	Kind   ledger.Kind
	ID     uint64
	Handle offchain.Handle
	Err    error
}

func (e *OffChainWriteError) Error() string {
	return fmt.Sprintf("OFFCHAIN_WRITE: %s(%d) accepted on ledger, document %s not stored: %v",
		e.Kind, e.ID, e.Handle.URL(), e.Err)
}

func (e *OffChainWriteError) Unwrap() error { return e.Err }

// IsOffChainWriteError reports whether err is a failed off-ledger write
// after ledger acceptance.
func IsOffChainWriteError(err error) bool {
	var we *OffChainWriteError
	return errors.As(err, &we)
}
