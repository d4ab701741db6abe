package history

import (
	"errors"
	"fmt"
)

// Error represents a failure reported by the history engine.
//
// Two categories exist:
//   - Range: a snapshot index outside [0, len(Snapshots))
//   - Invariant violation: no baseline precedes a snapshot, or a snapshot
//     carries both or neither payload
//
// Range errors are recoverable: nothing was mutated. Invariant violations
// mean a History value was produced outside this package and should not be
// swallowed.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Index is the snapshot index involved.
	Index int

	// Count is the number of snapshots in the history at the time.
	Count int
}

// ErrorCode categorizes history errors.
type ErrorCode string

const (
	// ErrCodeRange indicates a snapshot index outside the valid range.
	ErrCodeRange ErrorCode = "RANGE"

	// ErrCodeInvariantViolation indicates a structurally corrupt history.
	ErrCodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (index=%d, snapshots=%d)", e.Code, e.Message, e.Index, e.Count)
}

// IsRangeError returns true if the error is a range error.
// Uses errors.As to handle wrapped errors.
func IsRangeError(err error) bool {
	var he *Error
	if errors.As(err, &he) {
		return he.Code == ErrCodeRange
	}
	return false
}

// IsInvariantError returns true if the error is an invariant violation.
// Uses errors.As to handle wrapped errors.
func IsInvariantError(err error) bool {
	var he *Error
	if errors.As(err, &he) {
		return he.Code == ErrCodeInvariantViolation
	}
	return false
}

// NewRangeError creates an Error for an out-of-range snapshot index.
func NewRangeError(index, count int) *Error {
	return &Error{
		Code:    ErrCodeRange,
		Message: fmt.Sprintf("snapshot index %d out of range [0, %d)", index, count),
		Index:   index,
		Count:   count,
	}
}

// NewInvariantError creates an Error for a structural invariant violation.
func NewInvariantError(index, count int, message string) *Error {
	return &Error{
		Code:    ErrCodeInvariantViolation,
		Message: message,
		Index:   index,
		Count:   count,
	}
}
