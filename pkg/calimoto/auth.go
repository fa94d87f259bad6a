package calimoto

import (
	"context"
)

// authService implements the AuthService interface
type authService struct {
	client *Client
}

// Login performs authentication
func (a *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	session, err := a.client.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	// Save session if configured
	a.client.persistSession()

	return session, nil
}

// Logout clears the session
func (a *authService) Logout() {
	a.client.auth.Logout()
}

// SetCredentials stores credentials for renewal
func (a *authService) SetCredentials(email, password string) {
	a.client.auth.SetCredentials(email, password)
}

// GetSession returns the current session
func (a *authService) GetSession() (*Session, error) {
	return a.client.auth.Session()
}

// DiscoverKeys returns the Parse application keys
func (a *authService) DiscoverKeys(ctx context.Context) (Credentials, error) {
	return a.client.auth.Keys().Discover(ctx)
}

// SaveSession saves session to file
func (a *authService) SaveSession(path string) error {
	return a.client.auth.SaveSession(path)
}

// LoadSession loads session from file
func (a *authService) LoadSession(path string) error {
	return a.client.auth.LoadSession(path)
}
