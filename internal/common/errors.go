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

	// ErrImageDecode marks files the codec could not decode; the record
	// continues with sentinel features rather than aborting the batch.
	ErrImageDecode = errors.New("image decode failed")

	// ErrImageTooSmall marks images without interior pixels for the
	// Laplacian window (width or height <= 2).
	ErrImageTooSmall = errors.New("image too small for blur scoring")

	// ErrOCRFailure marks an OCR engine error or empty output.
	ErrOCRFailure = errors.New("ocr extraction failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
