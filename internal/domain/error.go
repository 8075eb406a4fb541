package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidState        = errors.New("invalid state transition")
	ErrValidation          = errors.New("validation failed")
	ErrProcessing          = errors.New("processing failed")
	ErrResourceUnavailable = errors.New("required resource unavailable")
	ErrEngineLoad          = errors.New("engine load failed")
	ErrRateLimited         = errors.New("rate limited")
	ErrQueueFull           = errors.New("worker queue full")
	ErrInvalidExecContext  = errors.New("invalid execution context")
)

// ErrorCode buckets an error into the stable taxonomy surfaced to callers
// and metrics. Anything unrecognized maps to CodeUnknown.
type ErrorCode string

const (
	CodeValidation          ErrorCode = "validation_error"
	CodeNotFound            ErrorCode = "resource_not_found"
	CodeProcessing          ErrorCode = "processing_error"
	CodeResourceUnavailable ErrorCode = "resource_unavailable"
	CodeInvalidState        ErrorCode = "invalid_state"
	CodeUnknown             ErrorCode = "unknown_error"
)

// Classify maps an arbitrary error onto the taxonomy. Engine load failures
// count as resource_unavailable: the job could not obtain its engine.
func Classify(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidArgument):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrResourceUnavailable), errors.Is(err, ErrEngineLoad):
		return CodeResourceUnavailable
	case errors.Is(err, ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, ErrProcessing), errors.Is(err, ErrQueueFull), errors.Is(err, ErrRateLimited):
		return CodeProcessing
	default:
		return CodeUnknown
	}
}
