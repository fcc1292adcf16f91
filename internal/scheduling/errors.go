package scheduling

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrDuplicateRoute       = errors.New("duplicate route exists")
	ErrAlreadyJoined        = errors.New("already joined")
	ErrRouteNotFound        = errors.New("route not found")
	ErrRouteNotFoundForDate = errors.New("route not found for date")
	ErrRiderNotFound        = errors.New("link not found")
	ErrDropPointMismatch    = errors.New("drop point does not match route end point")
	ErrForbidden            = errors.New("forbidden")
	ErrSequencerUnavailable = errors.New("slot sequencer unavailable")
	ErrStoreUnavailable     = errors.New("store unavailable")
)

// ValidationError reports a malformed or missing input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DropPointMismatchError carries the end point the client should have sent.
type DropPointMismatchError struct {
	Expected string
}

func (e *DropPointMismatchError) Error() string {
	return fmt.Sprintf("drop point must be %q", e.Expected)
}

func (e *DropPointMismatchError) Unwrap() error { return ErrDropPointMismatch }

// ErrorKind is the client-visible class of an error.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindConflict    ErrorKind = "conflict"
	KindNotFound    ErrorKind = "not_found"
	KindForbidden   ErrorKind = "forbidden"
	KindUnavailable ErrorKind = "unavailable"
	KindInternal    ErrorKind = "internal"
)

// Kind classifies err. Unknown errors are KindInternal.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrDropPointMismatch):
		return KindValidation
	case errors.Is(err, ErrDuplicateRoute), errors.Is(err, ErrAlreadyJoined):
		return KindConflict
	case errors.Is(err, ErrRouteNotFound), errors.Is(err, ErrRouteNotFoundForDate), errors.Is(err, ErrRiderNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrSequencerUnavailable), errors.Is(err, ErrStoreUnavailable):
		return KindUnavailable
	default:
		return KindInternal
	}
}

// storeErr wraps a raw store failure so callers can classify it. Errors that
// already carry a kind pass through unchanged.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != KindInternal {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: timed out", ErrStoreUnavailable, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
