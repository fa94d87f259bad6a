package calimoto

import (
	"errors"

	internalTypes "github.com/eshaffer321/calimoto-go/internal/types"
)

var (
	// ErrDiscoveryFailed is returned when the Parse keys cannot be scraped
	ErrDiscoveryFailed = internalTypes.ErrDiscoveryFailed

	// ErrLoginFailed is returned when login fails
	ErrLoginFailed = internalTypes.ErrLoginFailed

	// ErrNotAuthenticated is returned when authentication is required
	ErrNotAuthenticated = internalTypes.ErrNotAuthenticated

	// ErrSessionExpired is returned when the backend rejected the session token
	ErrSessionExpired = internalTypes.ErrSessionExpired

	// ErrAPI is returned for non-2xx data responses
	ErrAPI = internalTypes.ErrAPI

	// ErrMissingData is returned when a record has no usable series data
	ErrMissingData = internalTypes.ErrMissingData

	// ErrEncoding is returned when no GPX document could be produced
	ErrEncoding = internalTypes.ErrEncoding
)

type (
	// DiscoveryError means no script on the web app carried the Parse keys
	DiscoveryError = internalTypes.DiscoveryError

	// AuthError means the login endpoint rejected the credentials
	AuthError = internalTypes.AuthError

	// SessionError means an operation needed a session and there was none
	SessionError = internalTypes.SessionError

	// APIError is a non-2xx response that is not a session-expiry signature,
	// or one that still failed after the session was renewed
	APIError = internalTypes.APIError

	// MissingDataError means a record lacks a resource or it came back empty
	MissingDataError = internalTypes.MissingDataError

	// EncodingError is returned by the GPX encoder
	EncodingError = internalTypes.EncodingError
)

// IsAuthError checks if the user has to log in (again)
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrLoginFailed) ||
		errors.Is(err, ErrSessionExpired)
}

// IsDataError checks if err is a transient or data problem rather than an
// authentication one
func IsDataError(err error) bool {
	if IsAuthError(err) {
		return false
	}
	return errors.Is(err, ErrAPI) || errors.Is(err, ErrMissingData)
}
