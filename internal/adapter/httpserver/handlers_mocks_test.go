package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/ashahrourr/job-tracker/internal/adapter/google"
	"github.com/ashahrourr/job-tracker/internal/app"
	"github.com/ashahrourr/job-tracker/internal/domain"
	"github.com/ashahrourr/job-tracker/internal/ingest"
	"github.com/ashahrourr/job-tracker/internal/platform/config"
	apperrors "github.com/ashahrourr/job-tracker/internal/platform/errors"
	"github.com/ashahrourr/job-tracker/internal/token"
)

// --- Mock implementations ---

type mockAppService struct {
	listJobsFn       func(ctx context.Context, userEmail string, filter domain.JobFilter) ([]domain.Job, error)
	deleteJobFn      func(ctx context.Context, userEmail string, jobID int64) error
	saveGmailTokenFn func(ctx context.Context, token domain.GmailToken) error
	hasUserFn        func(ctx context.Context, userEmail string) error
	syncUserFn       func(ctx context.Context, userEmail string) (ingest.Result, error)
	syncAllUsersFn   func(ctx context.Context) (app.SyncSummary, error)
}

func (m *mockAppService) ListJobs(ctx context.Context, userEmail string, filter domain.JobFilter) ([]domain.Job, error) {
	if m.listJobsFn != nil {
		return m.listJobsFn(ctx, userEmail, filter)
	}
	return nil, nil
}

func (m *mockAppService) DeleteJob(ctx context.Context, userEmail string, jobID int64) error {
	if m.deleteJobFn != nil {
		return m.deleteJobFn(ctx, userEmail, jobID)
	}
	return nil
}

func (m *mockAppService) SaveGmailToken(ctx context.Context, token domain.GmailToken) error {
	if m.saveGmailTokenFn != nil {
		return m.saveGmailTokenFn(ctx, token)
	}
	return nil
}

func (m *mockAppService) HasUser(ctx context.Context, userEmail string) error {
	if m.hasUserFn != nil {
		return m.hasUserFn(ctx, userEmail)
	}
	return nil
}

func (m *mockAppService) SyncUser(ctx context.Context, userEmail string) (ingest.Result, error) {
	if m.syncUserFn != nil {
		return m.syncUserFn(ctx, userEmail)
	}
	return ingest.Result{}, nil
}

func (m *mockAppService) SyncAllUsers(ctx context.Context) (app.SyncSummary, error) {
	if m.syncAllUsersFn != nil {
		return m.syncAllUsersFn(ctx)
	}
	return app.SyncSummary{}, nil
}

type mockOAuthClient struct {
	result *google.AuthResult
	err    error
}

func (m *mockOAuthClient) AuthCodeURL(state string) string {
	return "https://accounts.google.example/auth?state=" + state
}

func (m *mockOAuthClient) ExchangeCode(_ context.Context, _ string) (*google.AuthResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return nil, errors.New("not implemented")
}

// --- Test helpers ---

const testJWTSecret = "test-jwt-secret"

func newTestTokens(clock clockwork.Clock) *token.Manager {
	return token.NewManager(testJWTSecret, time.Hour, clock)
}

func newTestTokensWithSecret(secret string) *token.Manager {
	return token.NewManager(secret, time.Hour, clockwork.NewRealClock())
}

func newTestServer(t *testing.T, appSvc appService, opts ...func(*Server)) *Server {
	t.Helper()

	cfg := &config.Config{
		AppEnv:        "test",
		Port:          "0",
		FrontendURL:   "http://localhost:3000",
		SessionSecret: "test-secret-key-32-bytes-long!!!",
	}

	srv := &Server{
		echo:         echo.New(),
		config:       cfg,
		app:          appSvc,
		oauth:        &mockOAuthClient{},
		tokens:       newTestTokens(clockwork.NewRealClock()),
		sessionStore: setupSessionStore(cfg),
		startTime:    time.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

func withOAuthClient(oauth oauthClient) func(*Server) {
	return func(s *Server) {
		s.oauth = oauth
	}
}

func withTokens(tm tokenManager) func(*Server) {
	return func(s *Server) {
		s.tokens = tm
	}
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return apperrors.Middleware()(handler)(c)
}

// authedRequest builds a request carrying a freshly issued bearer token.
func authedRequest(t *testing.T, srv *Server, method, target, email string) *http.Request {
	t.Helper()
	jwt, err := srv.tokens.Issue(email)
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+jwt)
	return req
}

// stateCookieRequest performs a login to capture the OAuth state cookie, then
// builds a callback request carrying it.
func stateCookieRequest(t *testing.T, srv *Server, callbackURL string) (*http.Request, string) {
	t.Helper()

	loginReq := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	loginRec := httptest.NewRecorder()
	srv.echo.ServeHTTP(loginRec, loginReq)
	require.Equal(t, http.StatusFound, loginRec.Code)

	location, err := loginRec.Result().Location()
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	req := httptest.NewRequest(http.MethodGet, callbackURL, nil)
	for _, cookie := range loginRec.Result().Cookies() {
		req.AddCookie(cookie)
	}
	return req, state
}
