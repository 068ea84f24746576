package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Engine Errors
	ErrInvalidState  = errors.New("sequence is in an invalid state")
	ErrInvalidInput  = errors.New("invalid input value")
	ErrSequenceFull  = errors.New("sequence has reached its step limit")
	ErrAlreadyClosed = errors.New("sequence is already closed")

	// Price Source Errors
	ErrPriceUnavailable = errors.New("price source is unavailable")
	ErrRateLimited      = errors.New("API rate limit exceeded")
	ErrConnectionFailed = errors.New("failed to connect to the exchange")
	ErrInvalidRequest   = errors.New("invalid request parameters or format")

	// Store Errors
	ErrConflict     = errors.New("concurrent modification detected")
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")

	// Notifier Errors
	ErrDeliveryFailed = errors.New("notification delivery failed")
)
