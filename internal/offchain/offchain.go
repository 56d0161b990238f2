// Package offchain defines the off-ledger document store the market
// writes payloads to.
//
// Documents are content addressed: a Handle pairs the collection locator
// recorded on the ledger with the payload's root hash, and the document
// lives at {locator}/{hash}. The store itself is an external collaborator;
// its durability and replication are not this package's concern. Stores
// do not verify what they return: readers must check the bytes against the
// on-ledger hash before trusting them.
package offchain

import (
	"context"
	"errors"
	"strings"

	"github.com/roach88/powermarket/internal/commit"
)

var (
	// ErrNotFound is returned by Get when no document exists at the handle.
	ErrNotFound = errors.New("offchain: document not found")

	// ErrUnavailable is returned when the store cannot be reached or fails
	// to complete the request.
	ErrUnavailable = errors.New("offchain: store unavailable")
)

// Handle addresses one document.
type Handle struct {
	Locator string      `json:"locator"`
	Hash    commit.Hash `json:"hash"`
}

// URL returns the document address {locator}/{hash}.
func (h Handle) URL() string {
	return strings.TrimRight(h.Locator, "/") + "/" + string(h.Hash)
}

// IsZero reports whether the handle points nowhere.
func (h Handle) IsZero() bool {
	return h.Locator == "" && h.Hash.IsZero()
}

// Store reads and writes payload documents by handle.
type Store interface {
	// Put stores doc at h. Writing the same handle twice replaces the
	// document; a caller repairing a damaged document relies on this.
	Put(ctx context.Context, h Handle, doc []byte) error

	// Get returns the document at h or an error matching ErrNotFound.
	Get(ctx context.Context, h Handle) ([]byte, error)
}

// Locator builds the collection locator for a payload kind.
func Locator(baseURL, collection string) string {
	return strings.TrimRight(baseURL, "/") + "/" + collection
}

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsUnavailable reports whether err is a store transport failure.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }
