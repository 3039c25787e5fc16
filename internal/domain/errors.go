package domain

import "errors"

// Domain errors represent business-level errors that can occur in the system.
// These errors are used across layers to communicate specific failure conditions.
var (
	// Reference errors
	ErrMalformedReference = errors.New("malformed image reference")

	// Engine errors
	ErrEngineOperationFailed = errors.New("container engine operation failed")
	ErrCleanupFailed         = errors.New("failed to remove local image")

	// Request admission errors
	ErrSyncInProgress = errors.New("sync already in progress for destination tag")
	ErrRateLimited    = errors.New("rate limit exceeded")

	// Config errors
	ErrInvalidConfig = errors.New("invalid configuration")
)
