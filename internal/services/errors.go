// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/Mahd-Mehn/MM-legato-sub000/internal/repository"
	"github.com/Mahd-Mehn/MM-legato-sub000/internal/utils"
)

// Error kinds returned by every service. Callers test them with errors.Is;
// messages carry the detail.
var (
	ErrValidation          = errors.New("validation error")
	ErrStateConflict       = errors.New("state conflict")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrNotFound            = errors.New("not found")
	ErrWorkflowSuspended   = errors.New("workflow suspended")
	ErrDownstream          = errors.New("downstream failure")
)

func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func stateConflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrStateConflict, fmt.Sprintf(format, args...))
}

// validateRequest runs the struct's validate tags. The validator error stays
// in the chain so handlers can report per-field messages.
func validateRequest(req interface{}) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// checkVersion compares a caller-supplied version stamp with the one read
// from storage.
func checkVersion(expected *int64, actual int64) error {
	if expected != nil && *expected != actual {
		return fmt.Errorf("%w: expected version %d, current version %d", ErrConcurrencyConflict, *expected, actual)
	}
	return nil
}

func translateRepoError(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, resource)
	case errors.Is(err, repository.ErrVersionConflict):
		return fmt.Errorf("%w: %s was modified concurrently", ErrConcurrencyConflict, resource)
	default:
		return fmt.Errorf("%s: %w", resource, err)
	}
}
