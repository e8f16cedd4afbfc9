package httpserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ashahrourr/job-tracker/internal/domain"
	apperrors "github.com/ashahrourr/job-tracker/internal/platform/errors"
)

const oauthTimeout = 10 * time.Second

func (s *Server) registerAuthRoutes(rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/auth/login", s.handleLogin, rateLimiter)
	s.echo.GET("/auth/callback", s.handleOAuthCallback, rateLimiter)
	s.echo.POST("/auth/refresh", s.handleRefresh, rateLimiter)
	s.echo.GET("/auth/me", s.handleMe, s.requireAuth)
}

func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate OAuth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// handleLogin stores a fresh state nonce in the cookie session and sends the
// browser to Google's consent screen.
func (s *Server) handleLogin(c echo.Context) error {
	state, err := generateOAuthState()
	if err != nil {
		return apperrors.InternalError("failed to generate OAuth state", err)
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.Error("Failed to get session for OAuth state", "error", err)
	}

	session.Values[sessionKeyOAuthState] = state
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save OAuth state session", err)
	}

	if err := c.Redirect(http.StatusFound, s.oauth.AuthCodeURL(state)); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

// handleOAuthCallback finishes the login: verifies state, exchanges the code,
// stores the Gmail credentials, and hands the frontend a signed JWT via the
// redirect query string.
func (s *Server) handleOAuthCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return apperrors.ValidationError("missing code parameter")
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return apperrors.ValidationError("invalid session")
	}

	expectedState, ok := session.Values[sessionKeyOAuthState].(string)
	if !ok || expectedState == "" {
		return apperrors.ValidationError("missing OAuth state")
	}
	if c.QueryParam("state") != expectedState {
		return apperrors.ValidationError("invalid OAuth state")
	}

	// The state is single use; drop the session cookie.
	delete(session.Values, sessionKeyOAuthState)
	session.Options.MaxAge = -1
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to clear OAuth state session", err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), oauthTimeout)
	defer cancel()

	result, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return apperrors.ExternalError("failed to authenticate with Google", err)
	}

	err = s.app.SaveGmailToken(ctx, domain.GmailToken{
		UserEmail:    result.Email,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenExpiry:  result.TokenExpiry,
		Scopes:       result.Scopes,
	})
	if err != nil {
		return apperrors.InternalError("failed to save credentials", err).WithField("user_email", result.Email)
	}

	jwt, err := s.tokens.Issue(result.Email)
	if err != nil {
		return apperrors.InternalError("failed to issue token", err)
	}

	slog.InfoContext(ctx, "User logged in", "user_email", result.Email)

	if err := c.Redirect(http.StatusFound, s.frontendRedirectURL(jwt)); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) frontendRedirectURL(jwt string) string {
	q := url.Values{}
	q.Set("token", jwt)
	return s.config.FrontendURL + "?" + q.Encode()
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// handleRefresh exchanges a structurally valid bearer token for a fresh one.
// Expiry is deliberately ignored so clients can recover from an expired
// session without a full OAuth round trip; the signature check plus the user
// lookup keep the endpoint from minting tokens for strangers.
func (s *Server) handleRefresh(c echo.Context) error {
	tokenString, err := bearerToken(c)
	if err != nil {
		return err
	}

	email, err := s.tokens.SubjectIgnoringExpiry(tokenString)
	if err != nil {
		return apperrors.UnauthorizedError("invalid token")
	}

	if err := s.app.HasUser(c.Request().Context(), email); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperrors.UnauthorizedError("unknown user")
		}
		return apperrors.InternalError("failed to look up user", err)
	}

	fresh, err := s.tokens.Issue(email)
	if err != nil {
		return apperrors.InternalError("failed to issue token", err)
	}

	if err := c.JSON(http.StatusOK, refreshResponse{
		AccessToken: fresh,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}); err != nil {
		return fmt.Errorf("failed to write refresh response: %w", err)
	}
	return nil
}

func (s *Server) handleMe(c echo.Context) error {
	if err := c.JSON(http.StatusOK, map[string]string{"email": userEmail(c)}); err != nil {
		return fmt.Errorf("failed to write me response: %w", err)
	}
	return nil
}
