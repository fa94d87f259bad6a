package types

import (
	"context"
	"net/http"
	"time"
)

// Credentials are the rotating Parse application keys scraped from the web app
type Credentials struct {
	ApplicationID string `json:"applicationId"`
	ClientKey     string `json:"clientKey"`
}

// Empty reports whether discovery still has to run
func (c Credentials) Empty() bool {
	return c.ApplicationID == "" && c.ClientKey == ""
}

// Session represents an authenticated session
type Session struct {
	UserID         string    `json:"userId"`
	SessionToken   string    `json:"sessionToken"`
	InstallationID string    `json:"installationId"`
	Email          string    `json:"email,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Valid reports whether the session can be used for data queries
func (s *Session) Valid() bool {
	return s != nil && s.UserID != "" && s.SessionToken != ""
}

// Logger interface for logging
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RetryConfig configures network-level retry behavior
type RetryConfig struct {
	MaxRetries int           `json:"maxRetries"`
	RetryWait  time.Duration `json:"retryWait"`
	MaxWait    time.Duration `json:"maxWait"`
}

// Hooks provides lifecycle hooks for requests
type Hooks struct {
	OnRequest  func(ctx context.Context, req *http.Request)
	OnResponse func(ctx context.Context, resp *http.Response, duration time.Duration)
	OnError    func(ctx context.Context, err error)
}
