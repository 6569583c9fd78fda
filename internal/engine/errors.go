package engine

import (
	"errors"
	"fmt"
)

// Error represents a recoverable engine error.
//
// Every engine operation either succeeds or returns an *Error and leaves
// the engine exactly as it was. None of these are fatal to the process.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeInvalidDecision indicates a winner outside the offered pair,
	// or a decision supplied after the engine is done.
	ErrCodeInvalidDecision ErrorCode = "INVALID_DECISION"

	// ErrCodeNothingToUndo indicates Undo with an empty decision log.
	ErrCodeNothingToUndo ErrorCode = "NOTHING_TO_UNDO"

	// ErrCodeNotDone indicates Result was requested before the sort finished.
	ErrCodeNotDone ErrorCode = "NOT_DONE"

	// ErrCodeCorruptSnapshot indicates a snapshot that fails structural validation.
	ErrCodeCorruptSnapshot ErrorCode = "CORRUPT_SNAPSHOT"

	// ErrCodeDuplicateItem indicates the same identifier was supplied twice.
	ErrCodeDuplicateItem ErrorCode = "DUPLICATE_ITEM"
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code ErrorCode) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsInvalidDecision reports whether err is an invalid decision error.
// Uses errors.As to handle wrapped errors.
func IsInvalidDecision(err error) bool { return hasCode(err, ErrCodeInvalidDecision) }

// IsNothingToUndo reports whether err is a nothing-to-undo error.
func IsNothingToUndo(err error) bool { return hasCode(err, ErrCodeNothingToUndo) }

// IsNotDone reports whether err is a not-done error.
func IsNotDone(err error) bool { return hasCode(err, ErrCodeNotDone) }

// IsCorruptSnapshot reports whether err is a corrupt snapshot error.
// Callers should treat it as "no usable snapshot" and may restart the sort.
func IsCorruptSnapshot(err error) bool { return hasCode(err, ErrCodeCorruptSnapshot) }

// IsDuplicateItem reports whether err is a duplicate item error.
func IsDuplicateItem(err error) bool { return hasCode(err, ErrCodeDuplicateItem) }

// NewInvalidDecisionError creates an Error for a rejected winner.
func NewInvalidDecisionError(winner, reason string) *Error {
	return &Error{
		Code:    ErrCodeInvalidDecision,
		Message: reason,
		Details: map[string]string{"winner": winner},
	}
}

// NewNothingToUndoError creates an Error for Undo on an empty log.
func NewNothingToUndoError() *Error {
	return &Error{
		Code:    ErrCodeNothingToUndo,
		Message: "no decisions to undo",
	}
}

// NewNotDoneError creates an Error for Result before completion.
func NewNotDoneError(remaining int) *Error {
	return &Error{
		Code:    ErrCodeNotDone,
		Message: "sort is not finished",
		Details: map[string]string{"remaining_max": fmt.Sprintf("%d", remaining)},
	}
}

// NewCorruptSnapshotError creates an Error for a snapshot that cannot be restored.
func NewCorruptSnapshotError(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeCorruptSnapshot,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewDuplicateItemError creates an Error for a repeated identifier.
func NewDuplicateItemError(item string, first, second int) *Error {
	return &Error{
		Code:    ErrCodeDuplicateItem,
		Message: fmt.Sprintf("item %q appears more than once", item),
		Details: map[string]string{
			"item":   item,
			"first":  fmt.Sprintf("%d", first),
			"second": fmt.Sprintf("%d", second),
		},
	}
}
