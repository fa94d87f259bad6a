package calimoto

import (
	"context"
)

// AuthService handles login and the session lifecycle
type AuthService interface {
	// Login discovers the Parse keys if needed and authenticates
	Login(ctx context.Context, email, password string) (*Session, error)

	// Logout drops the session and the remembered credentials
	Logout()

	// SetCredentials remembers email and password for automatic re-login
	// without logging in now, e.g. for a session loaded from file
	SetCredentials(email, password string)

	// GetSession returns the current session
	GetSession() (*Session, error)

	// DiscoverKeys returns the Parse keys, scraping them on first use
	DiscoverKeys(ctx context.Context) (Credentials, error)

	// SaveSession saves session to file
	SaveSession(path string) error

	// LoadSession loads session from file
	LoadSession(path string) error
}

// ItemService lists the records of one kind for the logged-in user
type ItemService interface {
	// Kind returns the record kind this service lists
	Kind() Kind

	// List retrieves all records of the user
	List(ctx context.Context) ([]Record, error)
}

// ExportService converts records to GPX
type ExportService interface {
	// Export fetches the series referenced by the record and returns the GPX document
	Export(ctx context.Context, cmd ExportCommand) (string, error)

	// ExportToFile exports and writes the document to path
	ExportToFile(ctx context.Context, cmd ExportCommand, path string) error
}
