package extractor

import "featurepull/internal/faults"

// Sentinels returned by this package, for errors.Is.
var (
	ErrConfiguration   = faults.ErrConfiguration
	ErrPrecondition    = faults.ErrPrecondition
	ErrStorageFetch    = faults.ErrStorageFetch
	ErrSetupIncomplete = faults.ErrSetupIncomplete
	ErrCleanup         = faults.ErrCleanup
)
