package calimoto

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/eshaffer321/calimoto-go/internal/auth"
	"github.com/eshaffer321/calimoto-go/internal/transport"
	internalTypes "github.com/eshaffer321/calimoto-go/internal/types"
	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
)

const (
	// DefaultWebBaseURL is the web app the Parse keys are scraped from
	DefaultWebBaseURL = internalTypes.DefaultWebBaseURL

	// DefaultAPIBaseURL is the Parse server base URL
	DefaultAPIBaseURL = internalTypes.DefaultAPIBaseURL

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = internalTypes.DefaultTimeout

	// UserAgent is the browser user agent sent on every request
	UserAgent = internalTypes.UserAgent

	clientVersion = internalTypes.ClientVersion

	// sessionRetries is how many times a call is repeated after renewing an
	// expired session
	sessionRetries = 1
)

// Client is the main Calimoto API client
type Client struct {
	// Service interfaces
	Auth   AuthService
	Routes ItemService
	Tracks ItemService
	Export ExportService

	// Internal fields
	transport Transport
	auth      *auth.Service
	options   *ClientOptions
}

// ClientOptions configures the client
type ClientOptions struct {
	// WebBaseURL overrides the web app origin used for key discovery
	WebBaseURL string

	// APIBaseURL overrides the Parse server base URL
	APIBaseURL string

	// HTTPClient allows using a custom HTTP client
	HTTPClient *http.Client

	// Timeout sets the HTTP client timeout
	Timeout time.Duration

	// SessionFile path for session persistence
	SessionFile string

	// Logger for debug logging
	Logger Logger

	// RetryConfig enables network-level retries; nil disables them
	RetryConfig *internalTypes.RetryConfig

	// RateLimiter for rate limiting
	RateLimiter RateLimiter

	// Hooks for observability
	Hooks *internalTypes.Hooks

	// SentryDSN enables Sentry error tracking when set
	SentryDSN string

	// SentryOptions allows custom Sentry configuration
	SentryOptions *sentry.ClientOptions
}

// Logger interface for logging
type Logger = internalTypes.Logger

// RateLimiter interface for rate limiting
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// Transport handles HTTP communication with the Parse server and file host
type Transport interface {
	Get(ctx context.Context, rawURL string) (*transport.Response, error)
	GetJSON(ctx context.Context, rawURL string, result interface{}) error
	Post(ctx context.Context, path string, payload interface{}, headers map[string]string, result interface{}) error
	PostRaw(ctx context.Context, path string, payload interface{}, headers map[string]string) (*transport.Response, error)
}

// NewClient creates a new Calimoto client
func NewClient(opts *ClientOptions) (*Client, error) {
	if opts == nil {
		opts = &ClientOptions{}
	}

	// Initialize Sentry if DSN is provided
	if opts.SentryDSN != "" || opts.SentryOptions != nil {
		sentryOpts := sentry.ClientOptions{}

		if opts.SentryOptions != nil {
			sentryOpts = *opts.SentryOptions
		}

		if opts.SentryDSN != "" {
			sentryOpts.Dsn = opts.SentryDSN
		}

		if sentryOpts.Environment == "" {
			sentryOpts.Environment = "production"
		}

		if err := sentry.Init(sentryOpts); err != nil {
			// Log error but don't fail client creation
			if opts.Logger != nil {
				opts.Logger.Error("Failed to initialize Sentry", "error", err)
			}
		}
	}

	// Set defaults
	if opts.WebBaseURL == "" {
		opts.WebBaseURL = DefaultWebBaseURL
	}

	if opts.APIBaseURL == "" {
		opts.APIBaseURL = DefaultAPIBaseURL
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: DefaultTimeout,
		}
	}

	if opts.Timeout > 0 {
		opts.HTTPClient.Timeout = opts.Timeout
	}

	trans := transport.NewParseTransport(&transport.Options{
		BaseURL:     opts.APIBaseURL,
		HTTPClient:  opts.HTTPClient,
		RetryConfig: opts.RetryConfig,
		Logger:      opts.Logger,
		Hooks:       opts.Hooks,
	})

	c := &Client{
		transport: trans,
		auth:      auth.NewService(opts.WebBaseURL, trans, opts.Logger),
		options:   opts,
	}

	c.initServices()

	// Load session if file specified
	if opts.SessionFile != "" {
		if err := c.auth.LoadSession(opts.SessionFile); err != nil && opts.Logger != nil {
			opts.Logger.Warn("Failed to load session", "error", err)
		}
	}

	return c, nil
}

// initServices initializes all service implementations
func (c *Client) initServices() {
	c.Auth = &authService{client: c}
	c.Routes = &itemService{client: c, kind: Routes}
	c.Tracks = &itemService{client: c, kind: Tracks}
	c.Export = &exportService{client: c}
}

// Items returns the item service for kind
func (c *Client) Items(kind Kind) ItemService {
	if kind == Tracks {
		return c.Tracks
	}
	return c.Routes
}

// GetSession returns the current session
func (c *Client) GetSession() (*Session, error) {
	return c.auth.Session()
}

// withSession runs fn with the current session. If fn fails with the
// session-expiry signature, the session is renewed once and fn runs again;
// a second failure is returned as is. Only the final error is reported
// to Sentry.
func (c *Client) withSession(ctx context.Context, op string, fn func(ctx context.Context, session *Session, creds Credentials) error) error {
	session, err := c.auth.Session()
	if err != nil {
		return &SessionError{Op: op}
	}

	start := time.Now()
	err = c.retrySession(ctx, op, session, fn)
	if err != nil {
		captureError(ctx, op, err, time.Since(start))
	}
	return err
}

func (c *Client) retrySession(ctx context.Context, op string, session *Session, fn func(ctx context.Context, session *Session, creds Credentials) error) error {
	for attempt := 0; ; attempt++ {
		creds, err := c.auth.Keys().Discover(ctx)
		if err != nil {
			return err
		}

		err = c.attempt(ctx, func(ctx context.Context) error {
			return fn(ctx, session, creds)
		})
		if err == nil || attempt >= sessionRetries || !internalTypes.IsSessionExpired(err) {
			return err
		}

		if c.options.Logger != nil {
			c.options.Logger.Info("Retrying after session renewal", "operation", op)
		}

		session, err = c.auth.Renew(ctx, session.SessionToken)
		if err != nil {
			// the stored token is dead; keep later runs from reloading it
			c.removeSessionFile()
			return errors.Wrapf(err, "%s: renew session", op)
		}
		c.persistSession()
	}
}

// execute runs one backend operation with rate limiting and error reporting
func (c *Client) execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := c.attempt(ctx, fn)
	if err != nil {
		captureError(ctx, op, err, time.Since(start))
	}
	return err
}

// attempt applies rate limiting and runs fn once
func (c *Client) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.options.RateLimiter != nil {
		if err := c.options.RateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}
	return fn(ctx)
}

// persistSession writes the session file if one is configured
func (c *Client) persistSession() {
	if c.options.SessionFile == "" {
		return
	}
	if err := c.auth.SaveSession(c.options.SessionFile); err != nil && c.options.Logger != nil {
		c.options.Logger.Warn("Failed to save session", "error", err)
	}
}

// removeSessionFile deletes the session file if one is configured
func (c *Client) removeSessionFile() {
	if c.options.SessionFile == "" {
		return
	}
	if err := os.Remove(c.options.SessionFile); err != nil && !os.IsNotExist(err) && c.options.Logger != nil {
		c.options.Logger.Warn("Failed to remove session file", "error", err)
	}
}

// Close flushes any pending Sentry events and performs cleanup
func (c *Client) Close() {
	// Flush Sentry events with a 2 second timeout
	sentry.Flush(2 * time.Second)
}

// captureError reports err to Sentry, preferring the hub carried by ctx
func captureError(ctx context.Context, op string, err error, duration time.Duration) {
	report := func(scope *sentry.Scope) {
		scope.SetTag("calimoto.operation", op)
		details := map[string]interface{}{
			"duration": duration.String(),
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			details["status"] = apiErr.StatusCode
			details["url"] = apiErr.URL
		}
		scope.SetContext("calimoto", details)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			report(scope)
			hub.CaptureException(err)
		})
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		report(scope)
		sentry.CaptureException(err)
	})
}
