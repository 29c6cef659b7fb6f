package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Failure taxonomy for the conversion pipeline. Every stage error the worker
// sees wraps exactly one of these, so terminal handling switches on the
// sentinel rather than on message text.
var (
	// ErrStorage covers object store read and write failures.
	ErrStorage = errors.New("storage error")
	// ErrSubmission means the conversion service rejected or never received the document.
	ErrSubmission = errors.New("submission error")
	// ErrPollingTimeout means the external job did not finish within the wait budget.
	ErrPollingTimeout = errors.New("polling timeout")
	// ErrConversionService means the external job explicitly reported failure.
	ErrConversionService = errors.New("conversion service error")
	// ErrMalformedPayload means no usable structure was found in a payload.
	// Recovered locally with fallback output; never fails a job.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrNotification means webhook delivery failed. Logged, never retried.
	ErrNotification = errors.New("notification error")
	// ErrQueueClosed is returned for submits after the queue has shut down.
	ErrQueueClosed = errors.New("queue closed")

	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
