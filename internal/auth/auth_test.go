package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/eshaffer321/calimoto-go/internal/transport"
	"github.com/eshaffer321/calimoto-go/internal/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves the discovery page, one bundle and the Parse login endpoint
type fakeBackend struct {
	server *httptest.Server

	pageStatus  int
	loginStatus int
	loginBody   string

	logins int32

	mu          sync.Mutex
	lastLogin   map[string]interface{}
	lastHeaders http.Header
	tokens      int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	b := &fakeBackend{pageStatus: http.StatusOK, loginStatus: http.StatusOK}
	b.server = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case types.DiscoveryPath:
		b.mu.Lock()
		status := b.pageStatus
		b.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`<script src="/static/bundle.js"></script>`))
	case "/static/bundle.js":
		_, _ = w.Write([]byte(`Parse.initialize({appId:"test-app",key:"test-key"})`))
	case loginEndpoint:
		atomic.AddInt32(&b.logins, 1)
		raw, _ := io.ReadAll(r.Body)

		b.mu.Lock()
		b.lastHeaders = r.Header.Clone()
		b.lastLogin = map[string]interface{}{}
		_ = json.Unmarshal(raw, &b.lastLogin)
		b.tokens++
		token := fmt.Sprintf("r:token-%d", b.tokens)
		status, body := b.loginStatus, b.loginBody
		b.mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
			return
		}
		_, _ = fmt.Fprintf(w, `{"objectId":"user-1","sessionToken":%q}`, token)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *fakeBackend) reject(status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loginStatus = status
	b.loginBody = body
}

func (b *fakeBackend) service() *Service {
	tr := transport.NewParseTransport(&transport.Options{BaseURL: b.server.URL})
	return NewService(b.server.URL, tr, nil)
}

func (b *fakeBackend) Logins() int {
	return int(atomic.LoadInt32(&b.logins))
}

func TestLogin_Success(t *testing.T) {
	backend := newFakeBackend(t)
	svc := backend.service()

	session, err := svc.Login(context.Background(), "rider@example.com", "secret")

	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "r:token-1", session.SessionToken)
	assert.Equal(t, svc.InstallationID(), session.InstallationID)
	_, err = uuid.Parse(session.InstallationID)
	assert.NoError(t, err)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, "rider@example.com", backend.lastLogin["username"])
	assert.Equal(t, "secret", backend.lastLogin["password"])
	assert.Equal(t, "test-app", backend.lastLogin["_ApplicationId"])
	assert.Equal(t, "test-key", backend.lastLogin["_JavaScriptKey"])
	assert.Equal(t, types.ClientVersion, backend.lastLogin["_ClientVersion"])
	assert.Equal(t, session.InstallationID, backend.lastLogin["_InstallationId"])
	assert.Equal(t, "text/plain", backend.lastHeaders.Get("Content-Type"))
	assert.Equal(t, types.UserAgent, backend.lastHeaders.Get("User-Agent"))
	assert.Equal(t, backend.server.URL, backend.lastHeaders.Get("Origin"))
}

func TestLogin_InstallationIDIsStable(t *testing.T) {
	backend := newFakeBackend(t)
	svc := backend.service()

	first, err := svc.Login(context.Background(), "rider@example.com", "secret")
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), "rider@example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, first.InstallationID, second.InstallationID)
	assert.NotEqual(t, first.SessionToken, second.SessionToken)
}

func TestLogin_Rejected(t *testing.T) {
	backend := newFakeBackend(t)
	backend.reject(http.StatusNotFound, `{"code":101,"error":"Invalid username/password."}`)
	svc := backend.service()

	_, err := svc.Login(context.Background(), "rider@example.com", "wrong")

	require.Error(t, err)
	var authErr *types.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusNotFound, authErr.StatusCode)
	assert.Contains(t, authErr.Body, "Invalid username/password.")
	assert.ErrorIs(t, err, types.ErrLoginFailed)

	_, err = svc.Session()
	assert.ErrorIs(t, err, types.ErrNotAuthenticated)
}

func TestLogin_MissingCredentials(t *testing.T) {
	backend := newFakeBackend(t)
	svc := backend.service()

	_, err := svc.Login(context.Background(), "", "secret")

	assert.ErrorIs(t, err, types.ErrLoginFailed)
	assert.Zero(t, backend.Logins())
}

func TestLogin_DiscoveryFailure(t *testing.T) {
	backend := newFakeBackend(t)
	backend.mu.Lock()
	backend.pageStatus = http.StatusInternalServerError
	backend.mu.Unlock()
	svc := backend.service()

	_, err := svc.Login(context.Background(), "rider@example.com", "secret")

	require.Error(t, err)
	var discErr *types.DiscoveryError
	assert.ErrorAs(t, err, &discErr)
	assert.Zero(t, backend.Logins(), "login must not be attempted without keys")
}

func TestSession_BeforeLogin(t *testing.T) {
	svc := newFakeBackend(t).service()

	_, err := svc.Session()

	var sessErr *types.SessionError
	assert.ErrorAs(t, err, &sessErr)
}

func TestRenew(t *testing.T) {
	backend := newFakeBackend(t)
	svc := backend.service()

	first, err := svc.Login(context.Background(), "rider@example.com", "secret")
	require.NoError(t, err)

	renewed, err := svc.Renew(context.Background(), first.SessionToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionToken, renewed.SessionToken)
	assert.Equal(t, 2, backend.Logins())

	// A second caller still holding the old token reuses the renewed session
	again, err := svc.Renew(context.Background(), first.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, renewed.SessionToken, again.SessionToken)
	assert.Equal(t, 2, backend.Logins())
}

func TestRenew_ConcurrentCallersLoginOnce(t *testing.T) {
	backend := newFakeBackend(t)
	svc := backend.service()

	first, err := svc.Login(context.Background(), "rider@example.com", "secret")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Renew(context.Background(), first.SessionToken)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, backend.Logins())
}

func TestRenew_FailureClearsSession(t *testing.T) {
	backend := newFakeBackend(t)
	svc := backend.service()

	first, err := svc.Login(context.Background(), "rider@example.com", "secret")
	require.NoError(t, err)

	backend.reject(http.StatusUnauthorized, `denied`)

	_, err = svc.Renew(context.Background(), first.SessionToken)
	assert.ErrorIs(t, err, types.ErrLoginFailed)

	_, err = svc.Session()
	assert.ErrorIs(t, err, types.ErrNotAuthenticated)
}

func TestRenew_WithoutStoredCredentials(t *testing.T) {
	backend := newFakeBackend(t)
	svc := backend.service()
	svc.SetSession(&types.Session{UserID: "u", SessionToken: "t"})

	_, err := svc.Renew(context.Background(), "t")

	assert.ErrorIs(t, err, types.ErrLoginFailed)
	assert.Zero(t, backend.Logins())
}

func TestLogout(t *testing.T) {
	backend := newFakeBackend(t)
	svc := backend.service()

	_, err := svc.Login(context.Background(), "rider@example.com", "secret")
	require.NoError(t, err)

	svc.Logout()

	_, err = svc.Session()
	assert.ErrorIs(t, err, types.ErrNotAuthenticated)

	_, err = svc.Renew(context.Background(), "anything")
	assert.ErrorIs(t, err, types.ErrLoginFailed)
}

func TestSetSession_PartialIsRejected(t *testing.T) {
	svc := newFakeBackend(t).service()

	svc.SetSession(&types.Session{UserID: "u"})

	_, err := svc.Session()
	assert.ErrorIs(t, err, types.ErrNotAuthenticated)
}

func TestSaveAndLoadSession(t *testing.T) {
	backend := newFakeBackend(t)
	svc := backend.service()

	session, err := svc.Login(context.Background(), "rider@example.com", "secret")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "session.json")
	require.NoError(t, svc.SaveSession(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	restored := backend.service()
	require.NoError(t, restored.LoadSession(path))

	loaded, err := restored.Session()
	require.NoError(t, err)
	assert.Equal(t, session.UserID, loaded.UserID)
	assert.Equal(t, session.SessionToken, loaded.SessionToken)
	assert.Equal(t, session.InstallationID, restored.InstallationID())
}

func TestLoadSession_Missing(t *testing.T) {
	svc := newFakeBackend(t).service()

	err := svc.LoadSession(filepath.Join(t.TempDir(), "absent.json"))

	assert.ErrorIs(t, err, types.ErrNotAuthenticated)
}

func TestLogin_OnlyStatusOKSucceeds(t *testing.T) {
	backend := newFakeBackend(t)
	backend.reject(http.StatusCreated, `{"objectId":"user-1","sessionToken":"r:created"}`)
	svc := backend.service()

	_, err := svc.Login(context.Background(), "rider@example.com", "secret")

	var authErr *types.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusCreated, authErr.StatusCode)
	_, err = svc.Session()
	assert.ErrorIs(t, err, types.ErrNotAuthenticated)
}

func TestRenew_RestoredSessionWithCredentials(t *testing.T) {
	backend := newFakeBackend(t)
	first := backend.service()

	_, err := first.Login(context.Background(), "rider@example.com", "secret")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, first.SaveSession(path))

	restored := backend.service()
	require.NoError(t, restored.LoadSession(path))
	restored.SetCredentials("rider@example.com", "secret")

	stale, err := restored.Session()
	require.NoError(t, err)

	renewed, err := restored.Renew(context.Background(), stale.SessionToken)

	require.NoError(t, err)
	assert.NotEqual(t, stale.SessionToken, renewed.SessionToken)
	assert.Equal(t, stale.InstallationID, renewed.InstallationID)
	assert.Equal(t, 2, backend.Logins())
}
