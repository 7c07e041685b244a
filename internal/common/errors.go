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

// Common application errors
var (
	ErrInvalidInput = errors.New("invalid input")

	// Pipeline error kinds. Every kind is retryable by the orchestrator.
	ErrRasterization = errors.New("rasterization failed")
	ErrInference     = errors.New("inference failed")
	ErrParse         = errors.New("parse failed")

	// ErrNoResults is returned when a batch produced zero records.
	ErrNoResults = errors.New("no data was extracted from the documents")
)

// NewAppError constructs an AppError.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// RasterizationError reports a PDF that could not be turned into a page image.
type RasterizationError struct {
	Document string
	Reason   string
	Err      error
}

func (e *RasterizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rasterize %q: %s: %v", e.Document, e.Reason, e.Err)
	}
	return fmt.Sprintf("rasterize %q: %s", e.Document, e.Reason)
}

func (e *RasterizationError) Unwrap() error { return e.Err }

func (e *RasterizationError) Is(target error) bool { return target == ErrRasterization }

// InferenceError reports a failed call to the inference endpoint.
// StatusCode is zero when no HTTP response was received.
type InferenceError struct {
	Provider   string
	StatusCode int
	Reason     string
	Err        error
}

func (e *InferenceError) Error() string {
	msg := e.Provider + " inference: " + e.Reason
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InferenceError) Unwrap() error { return e.Err }

func (e *InferenceError) Is(target error) bool { return target == ErrInference }

// RateLimited reports whether the endpoint rejected the call with 429.
func (e *InferenceError) RateLimited() bool { return e.StatusCode == 429 }

// ParseError reports model output that does not carry a usable JSON object.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parse response: " + e.Reason + ": " + e.Err.Error()
	}
	return "parse response: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// WrapError prefixes err with message, preserving the chain.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ErrorKind names the pipeline error kind of err for logging.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRasterization):
		return "rasterization"
	case errors.Is(err, ErrInference):
		return "inference"
	case errors.Is(err, ErrParse):
		return "parse"
	default:
		return "other"
	}
}
