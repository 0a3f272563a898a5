package gitcore

import "fmt"

// ErrKind classifies a gitcore error so callers (and the CLI layer) can
// branch on the failure category without parsing messages.
type ErrKind int

const (
	// ErrNotFound covers missing objects, refs, paths, or repo roots.
	ErrNotFound ErrKind = iota
	// ErrInvalid covers malformed headers, bad hash lengths, invalid ref
	// names, and ambiguous short hashes.
	ErrInvalid
	// ErrConflict covers operations that would overwrite uncommitted
	// changes, or refs/branches that already exist.
	ErrConflict
	// ErrNotADag covers a history graph found to contain a cycle.
	ErrNotADag
	// ErrParse covers malformed patch headers or hunk headers.
	ErrParse
	// ErrIO covers filesystem errors surfaced verbatim.
	ErrIO
)

// String returns a lowercase label for the error kind.
func (k ErrKind) String() string {
	switch k {
	case ErrNotFound:
		return "not-found"
	case ErrInvalid:
		return "invalid"
	case ErrConflict:
		return "conflict"
	case ErrNotADag:
		return "not-a-dag"
	case ErrParse:
		return "parse"
	case ErrIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error wraps a cause with a Kind so callers can classify gitcore failures.
// Merge conflicts are deliberately never represented with this type: per
// the library's error-handling contract, a merge with conflicts is a
// normal, successful return, not an error.
type Error struct {
	Kind  ErrKind
	cause error
}

func newError(kind ErrKind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.cause)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf extracts the ErrKind from err if it (or something it wraps) is a
// *Error; otherwise reports ErrIO, the catch-all for unclassified failures.
func KindOf(err error) (ErrKind, bool) {
	var gitErr *Error
	if ok := asError(err, &gitErr); ok {
		return gitErr.Kind, true
	}
	return ErrIO, false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
