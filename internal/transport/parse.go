package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eshaffer321/calimoto-go/internal/types"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const (
	// Parse accepts the JSON body only when it is declared as plain text
	contentType = "text/plain"

	sessionErrorCode   = "209"
	sessionErrorPhrase = "invalid session"
)

// ParseTransport handles HTTP communication with the Parse server and the
// static hosts it links to
type ParseTransport struct {
	baseURL     string
	httpClient  *http.Client
	retryClient *retryablehttp.Client
	headers     map[string]string
	logger      types.Logger
	hooks       *types.Hooks
}

// Response is a raw HTTP response body with its status
type Response struct {
	StatusCode int
	Body       []byte
}

// NewParseTransport creates a new Parse transport
func NewParseTransport(opts *Options) *ParseTransport {
	if opts == nil {
		opts = &Options{}
	}

	// Set defaults
	if opts.BaseURL == "" {
		opts.BaseURL = types.DefaultAPIBaseURL
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{
			Timeout: types.DefaultTimeout,
		}
	}

	// Create retry client if configured
	var retryClient *retryablehttp.Client
	if opts.RetryConfig != nil {
		retryClient = retryablehttp.NewClient()
		retryClient.HTTPClient = opts.HTTPClient
		retryClient.RetryMax = opts.RetryConfig.MaxRetries
		retryClient.RetryWaitMin = opts.RetryConfig.RetryWait
		retryClient.RetryWaitMax = opts.RetryConfig.MaxWait
		retryClient.Logger = nil

		if opts.Logger != nil {
			retryClient.Logger = &retryLogger{logger: opts.Logger}
		}
	}

	headers := map[string]string{
		"User-Agent": types.UserAgent,
	}

	// Merge custom headers
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &ParseTransport{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		httpClient:  opts.HTTPClient,
		retryClient: retryClient,
		headers:     headers,
		logger:      opts.Logger,
		hooks:       opts.Hooks,
	}
}

// BaseURL returns the Parse server base URL
func (t *ParseTransport) BaseURL() string {
	return t.baseURL
}

// Get fetches rawURL and returns the body whatever the status is
func (t *ParseTransport) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	return t.send(ctx, req)
}

// GetJSON fetches rawURL and decodes a 2xx JSON body into result
func (t *ParseTransport) GetJSON(ctx context.Context, rawURL string, result interface{}) error {
	resp, err := t.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	if !isSuccess(resp.StatusCode) {
		return t.handleHTTPError(http.MethodGet, rawURL, resp.StatusCode, resp.Body)
	}
	return decode(resp.Body, result)
}

// Post sends payload as a text/plain JSON body to path on the Parse server.
// Non-2xx responses come back as *types.APIError.
func (t *ParseTransport) Post(ctx context.Context, path string, payload interface{}, headers map[string]string, result interface{}) error {
	resp, err := t.PostRaw(ctx, path, payload, headers)
	if err != nil {
		return err
	}
	if !isSuccess(resp.StatusCode) {
		return t.handleHTTPError(http.MethodPost, t.baseURL+path, resp.StatusCode, resp.Body)
	}
	return decode(resp.Body, result)
}

// PostRaw sends payload like Post and returns the body whatever the status is
func (t *ParseTransport) PostRaw(ctx context.Context, path string, payload interface{}, headers map[string]string) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return t.send(ctx, req)
}

// send applies default headers and hooks, executes the request and reads the body
func (t *ParseTransport) send(ctx context.Context, req *http.Request) (*Response, error) {
	for k, v := range t.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	// Call request hook
	if t.hooks != nil && t.hooks.OnRequest != nil {
		t.hooks.OnRequest(ctx, req)
	}

	if t.logger != nil {
		t.logger.Debug("HTTP request", "method", req.Method, "url", req.URL.String())
	}

	start := time.Now()
	resp, err := t.doRequest(req)
	duration := time.Since(start)

	if err != nil {
		if t.hooks != nil && t.hooks.OnError != nil {
			t.hooks.OnError(ctx, err)
		}
		return nil, errors.Wrapf(err, "%s %s failed", req.Method, req.URL.String())
	}
	defer resp.Body.Close()

	// Call response hook
	if t.hooks != nil && t.hooks.OnResponse != nil {
		t.hooks.OnResponse(ctx, resp, duration)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if t.logger != nil {
		t.logger.Debug("HTTP response", "status", resp.StatusCode, "duration", duration, "size", len(body))
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// doRequest executes the HTTP request with retry if configured
func (t *ParseTransport) doRequest(req *http.Request) (*http.Response, error) {
	if t.retryClient != nil {
		// Convert to retryable request
		retryReq, err := retryablehttp.FromRequest(req)
		if err != nil {
			return nil, err
		}
		return t.retryClient.Do(retryReq)
	}
	return t.httpClient.Do(req)
}

// handleHTTPError maps a non-2xx response to an APIError, flagging the
// session-expiry signature
func (t *ParseTransport) handleHTTPError(method, url string, statusCode int, body []byte) error {
	text := string(body)
	apiErr := &types.APIError{
		Method:     method,
		URL:        url,
		StatusCode: statusCode,
		Body:       text,
		Expired:    IsSessionExpiry(statusCode, text),
	}

	if t.logger != nil {
		t.logger.Debug("HTTP error", "status", statusCode, "url", url, "expired", apiErr.Expired)
	}

	return apiErr
}

// IsSessionExpiry reports whether a response is the backend's way of saying
// the session token is no longer valid
func IsSessionExpiry(statusCode int, body string) bool {
	switch statusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
	default:
		return false
	}
	return strings.Contains(body, sessionErrorCode) ||
		strings.Contains(strings.ToLower(body), sessionErrorPhrase)
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

func decode(body []byte, result interface{}) error {
	if result == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

// Options for the Parse transport
type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	Headers     map[string]string
	RetryConfig *types.RetryConfig
	Logger      types.Logger
	Hooks       *types.Hooks
}

// retryLogger adapts our logger to retryablehttp
type retryLogger struct {
	logger types.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, keysAndValues...)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, keysAndValues...)
}
