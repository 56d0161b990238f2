package schema

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// Issue is one schema violation.
type Issue struct {
	// Path is the dotted member path inside the payload, empty for the root.
	Path string

	// Message is the CUE diagnostic.
	Message string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError reports a payload that failed its schema.
// Nothing is hashed or submitted when this is returned.
type ValidationError struct {
	Schema Name
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return fmt.Sprintf("schema %s: invalid payload", e.Schema)
	}
	msg := fmt.Sprintf("schema %s: %s", e.Schema, e.Issues[0])
	if extra := len(e.Issues) - 1; extra > 0 {
		msg += fmt.Sprintf(" (and %d more)", extra)
	}
	return msg
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// formatCUEError flattens a CUE error list into a ValidationError.
func formatCUEError(name Name, err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Schema: name, Issues: []Issue{{Message: err.Error()}}}
	}

	ve := &ValidationError{Schema: name}
	for _, e := range errs {
		format, args := e.Msg()
		ve.Issues = append(ve.Issues, Issue{
			Path:    issuePath(e.Path()),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return ve
}

// issuePath drops the definition selector (e.g. "#Demand") CUE prefixes
// to paths of values looked up from a definition.
func issuePath(path []string) string {
	if len(path) > 0 && strings.HasPrefix(path[0], "#") {
		path = path[1:]
	}
	return strings.Join(path, ".")
}
