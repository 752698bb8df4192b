package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Common API errors that can be checked with errors.Is.
var (
	// ErrUnauthorized indicates the API key is missing, invalid or expired.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSessionNotFound indicates the server does not know the handshake session.
	ErrSessionNotFound = errors.New("handshake session not found")
	// ErrSessionExpired indicates the handshake session is no longer valid.
	ErrSessionExpired = errors.New("handshake session expired")
	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// APIError represents an HTTP error from the device registration API.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		if e.Message != "" {
			return fmt.Sprintf("API error %d: %s (request_id: %s)", e.StatusCode, e.Message, e.RequestID)
		}
		return fmt.Sprintf("API error %d (request_id: %s)", e.StatusCode, e.RequestID)
	}
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// DeviceTrustError implements the SDK error marker interface.
func (e *APIError) DeviceTrustError() {}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return target == ErrUnauthorized
	case http.StatusNotFound:
		return target == ErrSessionNotFound
	case http.StatusGone:
		return target == ErrSessionExpired
	case http.StatusTooManyRequests:
		return target == ErrRateLimited
	}
	return false
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DeviceTrustError implements the SDK error marker interface.
func (e *NetworkError) DeviceTrustError() {}
