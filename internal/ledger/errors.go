package ledger

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes ledger failures.
type ErrorCode string

const (
	// CodeRejected: the contract refused the operation (bad arguments,
	// unknown foreign key, unknown operation).
	CodeRejected ErrorCode = "LEDGER_REJECTED"

	// CodeNotAuthorized: the sender may not perform the operation.
	CodeNotAuthorized ErrorCode = "NOT_AUTHORIZED"

	// CodeNotFound: no live record exists for the queried id.
	CodeNotFound ErrorCode = "NOT_FOUND"
)

// Sentinels for errors.Is. They match any *Error with the same code.
var (
	ErrRejected      = &Error{Code: CodeRejected}
	ErrNotAuthorized = &Error{Code: CodeNotAuthorized}
	ErrNotFound      = &Error{Code: CodeNotFound}
)

// Error is a failure reported by the ledger. Reason carries the
// ledger's own explanation verbatim.
type Error struct {
	Code   ErrorCode
	Kind   Kind
	Op     string
	ID     *uint64
	Reason string
}

func (e *Error) Error() string {
	where := string(e.Kind)
	if e.Op != "" {
		where += "." + e.Op
	}
	if e.ID != nil {
		where += fmt.Sprintf("(%d)", *e.ID)
	}
	if where == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, where, e.Reason)
}

// Is matches sentinels by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Rejected builds a CodeRejected error.
func Rejected(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Code: CodeRejected, Kind: kind, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// NotAuthorized builds a CodeNotAuthorized error.
func NotAuthorized(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Code: CodeNotAuthorized, Kind: kind, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// NotFound builds a CodeNotFound error for id.
func NotFound(kind Kind, id uint64) *Error {
	return &Error{Code: CodeNotFound, Kind: kind, ID: &id, Reason: "no such record"}
}

// Deleted builds a CodeNotFound error for a logically deleted id.
func Deleted(kind Kind, id uint64) *Error {
	return &Error{Code: CodeNotFound, Kind: kind, ID: &id, Reason: "record deleted"}
}

// IsRejected reports whether err is a ledger rejection.
func IsRejected(err error) bool { return errors.Is(err, ErrRejected) }

// IsNotAuthorized reports whether err is a ledger permission failure.
func IsNotAuthorized(err error) bool { return errors.Is(err, ErrNotAuthorized) }

// IsNotFound reports whether err is a missing or deleted record.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
