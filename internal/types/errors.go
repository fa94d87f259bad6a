package types

import (
	"errors"
	"fmt"
)

// DiscoveryError is returned when the Parse keys cannot be scraped
type DiscoveryError struct {
	URL        string
	StatusCode int
	Reason     string
	Err        error
}

func (e *DiscoveryError) Error() string {
	msg := "key discovery failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: %s returned status %d", msg, e.URL, e.StatusCode)
	} else if e.URL != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.URL)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the sentinel so errors.Is(err, ErrDiscoveryFailed) holds
func (e *DiscoveryError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDiscoveryFailed, e.Err}
	}
	return []error{ErrDiscoveryFailed}
}

// AuthError is returned when the login endpoint rejects the credentials
type AuthError struct {
	StatusCode int
	Body       string
	Reason     string
}

func (e *AuthError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("login failed: %s", e.Reason)
	}
	return fmt.Sprintf("login failed with status %d: %s", e.StatusCode, e.Body)
}

func (e *AuthError) Unwrap() error {
	return ErrLoginFailed
}

// SessionError is returned when an operation is attempted without a session
type SessionError struct {
	Op string
}

func (e *SessionError) Error() string {
	if e.Op == "" {
		return ErrNotAuthenticated.Error()
	}
	return fmt.Sprintf("%s: %s", e.Op, ErrNotAuthenticated)
}

func (e *SessionError) Unwrap() error {
	return ErrNotAuthenticated
}

// APIError represents a non-2xx response from a data endpoint
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string

	// Expired is set when the response matches the session-expiry signature
	Expired bool
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api error %d", e.StatusCode)
	if e.URL != "" {
		msg = fmt.Sprintf("%s from %s %s", msg, e.Method, e.URL)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	return msg
}

func (e *APIError) Unwrap() []error {
	if e.Expired {
		return []error{ErrAPI, ErrSessionExpired}
	}
	return []error{ErrAPI}
}

// MissingDataError is returned when a record lacks a resource URL or the
// resource came back empty
type MissingDataError struct {
	Field  string
	URL    string
	Reason string
}

func (e *MissingDataError) Error() string {
	msg := fmt.Sprintf("missing %s", e.Field)
	if e.URL != "" {
		msg = fmt.Sprintf("%s from %s", msg, e.URL)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	return msg
}

func (e *MissingDataError) Unwrap() error {
	return ErrMissingData
}

// EncodingError is returned by the GPX encoder
type EncodingError struct {
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("gpx encoding failed: %s", e.Reason)
}

func (e *EncodingError) Unwrap() error {
	return ErrEncoding
}

// IsSessionExpired reports whether err carries the session-expiry signature
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}
