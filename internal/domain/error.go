package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid transaction execution context")

	// Billing sync errors
	ErrInvalidSignature      = errors.New("webhook signature missing or invalid")
	ErrUnknownEventName      = errors.New("unknown webhook event name")
	ErrUnknownProviderStatus = errors.New("unmapped provider subscription status")
	ErrUnknownProduct        = errors.New("event references unknown product")
	ErrUnknownSubscription   = errors.New("event references unknown subscription")
	ErrInvalidTransition     = errors.New("subscription status transition not allowed")
	ErrStaleEvent            = errors.New("event is older than last applied state")
	ErrVersionConflict       = errors.New("subscription was modified concurrently")
)
