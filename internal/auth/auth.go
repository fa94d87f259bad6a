package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/eshaffer321/calimoto-go/internal/transport"
	"github.com/eshaffer321/calimoto-go/internal/types"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const loginEndpoint = "/parse/login"

// Transport is what the auth service needs from the HTTP layer
type Transport interface {
	Get(ctx context.Context, rawURL string) (*transport.Response, error)
	PostRaw(ctx context.Context, path string, payload interface{}, headers map[string]string) (*transport.Response, error)
}

// Service owns the login credentials, the installation id and the current
// session. All state transitions take the write lock.
type Service struct {
	transport  Transport
	keys       *KeyExtractor
	webBaseURL string
	logger     types.Logger

	// loginMu serializes login attempts so concurrent renewals collapse into one
	loginMu sync.Mutex

	mu             sync.RWMutex
	installationID string
	email          string
	password       string
	session        *types.Session
}

// NewService creates a new auth service
func NewService(webBaseURL string, t Transport, logger types.Logger) *Service {
	if webBaseURL == "" {
		webBaseURL = types.DefaultWebBaseURL
	}
	webBaseURL = strings.TrimRight(webBaseURL, "/")

	return &Service{
		transport:      t,
		keys:           NewKeyExtractor(webBaseURL, t, logger),
		webBaseURL:     webBaseURL,
		logger:         logger,
		installationID: uuid.New().String(),
	}
}

// Keys exposes the key extractor
func (s *Service) Keys() *KeyExtractor {
	return s.keys
}

// InstallationID returns the id sent with every login and query
func (s *Service) InstallationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.installationID
}

// Login authenticates with email and password and remembers them for
// transparent renewal
func (s *Service) Login(ctx context.Context, email, password string) (*types.Session, error) {
	if email == "" || password == "" {
		return nil, &types.AuthError{Reason: "email and password are required"}
	}

	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	session, err := s.login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.email = email
	s.password = password
	s.mu.Unlock()

	return session, nil
}

// SetCredentials remembers email and password for renewal without logging
// in. A session restored from disk needs them to survive expiry.
func (s *Service) SetCredentials(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.email = email
	s.password = password
}

// Renew clears the session whose token is stale and logs in again with the
// remembered credentials. If another caller already replaced that session,
// the replacement is returned without a second login.
func (s *Service) Renew(ctx context.Context, staleToken string) (*types.Session, error) {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()

	s.mu.Lock()
	if s.session.Valid() && s.session.SessionToken != staleToken {
		current := *s.session
		s.mu.Unlock()
		return &current, nil
	}
	s.session = nil
	email, password := s.email, s.password
	s.mu.Unlock()

	if email == "" || password == "" {
		return nil, &types.AuthError{Reason: "no stored credentials to renew the session"}
	}

	if s.logger != nil {
		s.logger.Warn("Session expired or invalid, logging in again", "email", email)
	}

	return s.login(ctx, email, password)
}

// Session returns a copy of the current session
func (s *Service) Session() (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.session.Valid() {
		return nil, &types.SessionError{}
	}
	session := *s.session
	return &session, nil
}

// SetSession replaces the current session. A session missing either its
// user id or token clears the state instead.
func (s *Service) SetSession(session *types.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !session.Valid() {
		s.session = nil
		return
	}
	copied := *session
	if copied.InstallationID != "" {
		s.installationID = copied.InstallationID
	} else {
		copied.InstallationID = s.installationID
	}
	s.session = &copied
}

// Logout drops the session and the remembered credentials
func (s *Service) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = nil
	s.email = ""
	s.password = ""

	if s.logger != nil {
		s.logger.Info("Logged out")
	}
}

// SaveSession saves session to file
func (s *Service) SaveSession(path string) error {
	session, err := s.Session()
	if err != nil {
		return err
	}

	// Create directory if needed
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.Wrap(err, "failed to create session directory")
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}

	// Write to file with restrictive permissions
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write session file")
	}

	if s.logger != nil {
		s.logger.Info("Session saved", "path", path)
	}

	return nil
}

// LoadSession loads session from file
func (s *Service) LoadSession(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &types.SessionError{Op: "load session"}
		}
		return errors.Wrap(err, "failed to read session file")
	}

	var session types.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return errors.Wrap(err, "failed to unmarshal session")
	}
	if !session.Valid() {
		return &types.SessionError{Op: "load session"}
	}

	s.SetSession(&session)

	if s.logger != nil {
		s.logger.Info("Session loaded", "path", path, "userId", session.UserID)
	}

	return nil
}

// login performs the login request and installs the new session
func (s *Service) login(ctx context.Context, email, password string) (*types.Session, error) {
	creds, err := s.keys.Discover(ctx)
	if err != nil {
		return nil, err
	}

	installationID := s.InstallationID()

	reqBody := loginRequest{
		Username:       email,
		Password:       password,
		ApplicationID:  creds.ApplicationID,
		JavaScriptKey:  creds.ClientKey,
		ClientVersion:  types.ClientVersion,
		InstallationID: installationID,
	}
	headers := map[string]string{
		"Origin":  s.webBaseURL,
		"Referer": s.webBaseURL + "/",
	}

	if s.logger != nil {
		s.logger.Info("Logging in", "email", email)
	}

	resp, err := s.transport.PostRaw(ctx, loginEndpoint, reqBody, headers)
	if err != nil {
		return nil, errors.Wrap(err, "login request failed")
	}
	if resp.StatusCode != http.StatusOK {
		if s.logger != nil {
			s.logger.Warn("Login rejected", "status", resp.StatusCode)
		}
		return nil, &types.AuthError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	var loginResp loginResponse
	if err := json.Unmarshal(resp.Body, &loginResp); err != nil {
		return nil, &types.AuthError{Reason: "invalid login response: " + err.Error()}
	}

	if loginResp.ObjectID == "" || loginResp.SessionToken == "" {
		return nil, &types.AuthError{Reason: "no objectId or sessionToken in login response"}
	}

	session := &types.Session{
		UserID:         loginResp.ObjectID,
		SessionToken:   loginResp.SessionToken,
		InstallationID: installationID,
		Email:          email,
		CreatedAt:      time.Now(),
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("Login successful", "userId", session.UserID)
	}

	copied := *session
	return &copied, nil
}

// loginRequest is the body of the Parse login call
type loginRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	ApplicationID  string `json:"_ApplicationId"`
	JavaScriptKey  string `json:"_JavaScriptKey"`
	ClientVersion  string `json:"_ClientVersion"`
	InstallationID string `json:"_InstallationId"`
}

// loginResponse represents the login API response
type loginResponse struct {
	ObjectID     string `json:"objectId"`
	SessionToken string `json:"sessionToken"`
}
