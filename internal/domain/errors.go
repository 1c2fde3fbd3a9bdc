package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers that need to react to it, such as
// the HTTP layer choosing a status code.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindCompression     Kind = "compression"
	KindStorage         Kind = "storage"
	KindNotFound        Kind = "not_found"
	KindArtifactMissing Kind = "artifact_missing"
)

// Error is the structured error returned across component boundaries.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind and the name of the failing operation.
// It returns nil when err is nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or "" if
// err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Sentinel causes wrapped by the taxonomy.
var (
	ErrEmptyInput     = errors.New("empty input")
	ErrTooLarge       = errors.New("input exceeds upload limit")
	ErrRecordNotFound = errors.New("image record not found")
	ErrClosed         = errors.New("repository closed")
)
