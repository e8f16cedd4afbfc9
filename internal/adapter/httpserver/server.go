// Package httpserver exposes the REST API: Google login, token refresh, job
// queries, and manual ingestion triggers.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/ashahrourr/job-tracker/internal/adapter/google"
	"github.com/ashahrourr/job-tracker/internal/app"
	"github.com/ashahrourr/job-tracker/internal/domain"
	"github.com/ashahrourr/job-tracker/internal/ingest"
	"github.com/ashahrourr/job-tracker/internal/platform/config"
)

type appService interface {
	ListJobs(ctx context.Context, userEmail string, filter domain.JobFilter) ([]domain.Job, error)
	DeleteJob(ctx context.Context, userEmail string, jobID int64) error
	SaveGmailToken(ctx context.Context, token domain.GmailToken) error
	HasUser(ctx context.Context, userEmail string) error
	SyncUser(ctx context.Context, userEmail string) (ingest.Result, error)
	SyncAllUsers(ctx context.Context) (app.SyncSummary, error)
}

type oauthClient interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*google.AuthResult, error)
}

type tokenManager interface {
	Issue(userEmail string) (string, error)
	Verify(tokenString string) (string, error)
	SubjectIgnoringExpiry(tokenString string) (string, error)
	TTL() time.Duration
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app    appService
	oauth  oauthClient
	tokens tokenManager

	sessionStore *sessions.CookieStore
	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, app appService, oauth oauthClient, tokens tokenManager, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          app,
		oauth:        oauth,
		tokens:       tokens,
		sessionStore: setupSessionStore(cfg),
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Session keys. The cookie session only carries the OAuth state between the
// login redirect and the callback; API authentication is all bearer tokens.
const (
	sessionName          = "jobtracker-session"
	sessionKeyOAuthState = "oauth_state"
	oauthStateMaxAge     = 10 * time.Minute
)

func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(oauthStateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}
	return sessionStore
}
