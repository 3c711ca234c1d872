package errors

import "errors"

var (
	ErrProfileNotFound = errors.New("user profile not found")

	// ErrVersionConflict means the profile changed between load and write.
	ErrVersionConflict = errors.New("user profile version conflict")

	ErrTooManyConflicts = errors.New("user profile update retries exhausted")
)
