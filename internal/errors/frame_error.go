// Package errors provides the standardized error type raised while building and
// planning frames. Every failure carries a Kind from a closed taxonomy, the
// operation that failed, and a user-visible message naming the offending columns.
package errors

import (
	"fmt"
)

// Kind classifies a FrameError.
type Kind int

const (
	// KindValidation covers schema invariant breaches, bad sizes and unknown names.
	KindValidation Kind = iota
	// KindType covers operands outside an operator's domain and non-literal arguments.
	KindType
	// KindUnsupported covers operations the chosen target cannot express.
	KindUnsupported
	// KindCancelled is raised when a planner observes a cancelled context.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindType:
		return "TypeError"
	case KindUnsupported:
		return "UnsupportedError"
	case KindCancelled:
		return "CancellationError"
	default:
		return fmt.Sprintf("unknown_kind(%d)", int(k))
	}
}

// FrameError represents every error raised by frame construction and planning.
type FrameError struct {
	Kind    Kind
	Op      string // Operation name (e.g., "restrict", "join_by_columns", "to_sql")
	Column  string // Offending column if a single one is involved
	Message string // Human-readable description, returned verbatim by Error
	Cause   error  // Underlying error cause
}

// Error implements the error interface. The message is returned unchanged so that
// callers can match on the documented texts.
func (e *FrameError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s in %s", e.Kind, e.Op)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error wrapping support
func (e *FrameError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is(). A target without a
// message matches any error of the same kind, which is how the Err* sentinels work.
func (e *FrameError) Is(target error) bool {
	fe, ok := target.(*FrameError)
	if !ok {
		return false
	}
	if fe.Message == "" && fe.Op == "" {
		return e.Kind == fe.Kind
	}
	return e.Kind == fe.Kind && e.Op == fe.Op && e.Column == fe.Column && e.Message == fe.Message
}

// Sentinels for errors.Is checks by kind.
var (
	ErrValidation  = &FrameError{Kind: KindValidation}
	ErrType        = &FrameError{Kind: KindType}
	ErrUnsupported = &FrameError{Kind: KindUnsupported}
	ErrCancelled   = &FrameError{Kind: KindCancelled}
)

// NewValidationError creates an error for a rejected frame or expression construction.
func NewValidationError(op, message string) *FrameError {
	return &FrameError{Kind: KindValidation, Op: op, Message: message}
}

// NewValidationErrorf is NewValidationError with formatting.
func NewValidationErrorf(op, format string, args ...any) *FrameError {
	return NewValidationError(op, fmt.Sprintf(format, args...))
}

// NewColumnNotFoundError reports a column missing from the current frame, listing
// the frame's columns so that the user can find the faulty step.
func NewColumnNotFoundError(op, listName, column string, available string) *FrameError {
	return &FrameError{
		Kind:   KindValidation,
		Op:     op,
		Column: column,
		Message: fmt.Sprintf(
			"Column - '%s' in %s columns list doesn't exist in the current frame. Current frame columns: %s",
			column, listName, available,
		),
	}
}

// NewTypeError creates an error for operands outside an operator's domain.
func NewTypeError(op, message string) *FrameError {
	return &FrameError{Kind: KindType, Op: op, Message: message}
}

// NewTypeErrorf is NewTypeError with formatting.
func NewTypeErrorf(op, format string, args ...any) *FrameError {
	return NewTypeError(op, fmt.Sprintf(format, args...))
}

// NewUnsupportedError creates an error for operations a target cannot lower.
func NewUnsupportedError(op, message string) *FrameError {
	return &FrameError{Kind: KindUnsupported, Op: op, Message: message}
}

// NewCancelledError wraps a context error observed while planning op.
func NewCancelledError(op string, cause error) *FrameError {
	return &FrameError{
		Kind:    KindCancelled,
		Op:      op,
		Message: fmt.Sprintf("planning cancelled at %s: %v", op, cause),
		Cause:   cause,
	}
}

// KindOf returns the kind of err if it is a FrameError.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if fe, ok := err.(*FrameError); ok {
			return fe.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return 0, false
		}
		err = u.Unwrap()
	}
	return 0, false
}
