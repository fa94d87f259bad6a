package types

import (
	"errors"
	"time"
)

const (
	// DefaultWebBaseURL is the marketing site the Parse keys are scraped from
	DefaultWebBaseURL = "https://calimoto.com"

	// DefaultAPIBaseURL is the Parse server base URL
	DefaultAPIBaseURL = "https://parse-server.prod.calimoto.com"

	// DiscoveryPath is the page whose scripts carry the application keys
	DiscoveryPath = "/en/motorcycle-trip-planner"

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second

	// UserAgent is sent on every request; the backend expects a browser
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

	// ClientVersion is the Parse JS SDK version the web app reports
	ClientVersion = "js5.3.0"
)

// Common errors
var (
	// ErrDiscoveryFailed is returned when no script yields the Parse keys
	ErrDiscoveryFailed = errors.New("key discovery failed")

	// ErrLoginFailed is returned when the backend rejects the login
	ErrLoginFailed = errors.New("login failed")

	// ErrNotAuthenticated is returned when an operation needs a session
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrSessionExpired is returned when the backend reports an invalid session token
	ErrSessionExpired = errors.New("session expired")

	// ErrAPI is returned for non-2xx responses from data endpoints
	ErrAPI = errors.New("api error")

	// ErrMissingData is returned when a record lacks a resource or the resource is empty
	ErrMissingData = errors.New("missing data")

	// ErrEncoding is returned when a GPX document cannot be produced
	ErrEncoding = errors.New("encoding failed")
)
