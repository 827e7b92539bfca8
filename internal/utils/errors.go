package utils

import (
	"errors"
	"net/http"
)

// ErrorKind classifies failures surfaced to API clients.
type ErrorKind string

const (
	KindInput               ErrorKind = "input"
	KindPolicy              ErrorKind = "policy"
	KindMalformedDetection  ErrorKind = "malformed_detection"
	KindDetectorUnavailable ErrorKind = "detector_unavailable"
	KindNotFound            ErrorKind = "not_found"
	KindInternal            ErrorKind = "internal"
)

type AppError struct {
	StatusCode int
	Kind       ErrorKind
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewBadRequestError(message string) *AppError {
	return &AppError{StatusCode: http.StatusBadRequest, Kind: KindInput, Message: message}
}

// NewInputError reports an unusable upload or column selection.
func NewInputError(message string, err error) *AppError {
	return &AppError{StatusCode: http.StatusBadRequest, Kind: KindInput, Message: message, Err: err}
}

// NewPolicyError reports a policy that selects nothing to detect.
func NewPolicyError(message string) *AppError {
	return &AppError{StatusCode: http.StatusUnprocessableEntity, Kind: KindPolicy, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{StatusCode: http.StatusNotFound, Kind: KindNotFound, Message: message}
}

func NewInternalError(message string) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Kind: KindInternal, Message: message}
}

func NewMalformedDetectionError(err error) *AppError {
	return &AppError{
		StatusCode: http.StatusBadGateway,
		Kind:       KindMalformedDetection,
		Message:    "Detector returned malformed detections; no output was produced",
		Err:        err,
	}
}

func NewDetectorUnavailableError(err error) *AppError {
	return &AppError{
		StatusCode: http.StatusServiceUnavailable,
		Kind:       KindDetectorUnavailable,
		Message:    "Entity detector is unavailable; no data was processed",
		Err:        err,
	}
}

// AsAppError unwraps err into an *AppError when one is in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
