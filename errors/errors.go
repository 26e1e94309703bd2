package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// InvalidInput is the caller's fault: missing or malformed request data.
func InvalidInput(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func NotFound(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Internal covers storage and other infrastructure failures.
func Internal(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// Acquisition covers yt-dlp and platform failures while fetching video
// metadata or audio. Not retried here; surfaced as a bad gateway.
func Acquisition(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusBadGateway,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// ModelInvocation covers a failed generate call against the model API.
func ModelInvocation(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusBadGateway,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// SegmentationFailed means the model response could not be turned into a
// segment list. The transcript itself may still be usable; current policy is
// to fail the whole request.
func SegmentationFailed(op string, err error, message string) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == http.StatusNotFound
	}
	return false
}

func Code(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
