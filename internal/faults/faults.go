// Package faults holds the error kinds shared by setup, query and cleanup.
// Concrete errors wrap one of these sentinels so callers can branch with
// errors.Is regardless of which layer produced them.
package faults

import "errors"

var (
	// ErrConfiguration: a required configuration key is missing or the
	// feature store descriptor could not be written.
	ErrConfiguration = errors.New("configuration error")

	// ErrPrecondition: object storage credentials were not supplied.
	ErrPrecondition = errors.New("precondition failed")

	// ErrStorageFetch: an artifact could not be fetched from object storage.
	ErrStorageFetch = errors.New("storage fetch failed")

	// ErrSetupIncomplete: a query was issued against an extractor whose
	// online/offline store setup did not complete.
	ErrSetupIncomplete = errors.New("online/offline store setup did not complete")

	// ErrCleanup: local state could not be removed.
	ErrCleanup = errors.New("cleanup failed")
)
