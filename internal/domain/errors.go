package domain

import "errors"

var (
	// ErrValidation marks input that can never succeed, such as an event
	// without an external id.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned by lookups that match no record.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a save hits the unique external_id
	// constraint. It is a benign outcome on the ingestion path.
	ErrDuplicate = errors.New("duplicate external id")

	// ErrStoreUnavailable wraps transient storage failures. Callers may
	// retry the whole batch.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrRateLimited is returned when the trigger path exceeds the local
	// quota guard in front of the orchestrator API.
	ErrRateLimited = errors.New("rate limited")

	ErrConflict = errors.New("conflict")
)
