package httpserver

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ashahrourr/job-tracker/internal/platform/correlation"
	apperrors "github.com/ashahrourr/job-tracker/internal/platform/errors"
)

// contextKeyUserEmail is where requireAuth stores the authenticated email.
const contextKeyUserEmail = "userEmail"

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := correlation.WithID(c.Request().Context(), correlation.NewID())
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// requireAuth authenticates the bearer token and stores the subject email in
// the echo context. API clients get a plain 401, never a redirect.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return err
		}

		userEmail, err := s.tokens.Verify(tokenString)
		if err != nil {
			return apperrors.UnauthorizedError("invalid or expired token")
		}

		c.Set(contextKeyUserEmail, userEmail)
		return next(c)
	}
}

func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", apperrors.UnauthorizedError("missing authorization header")
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", apperrors.UnauthorizedError("authorization header must use the Bearer scheme")
	}

	tokenString := strings.TrimSpace(header[len(prefix):])
	if tokenString == "" {
		return "", apperrors.UnauthorizedError("empty bearer token")
	}
	return tokenString, nil
}

func userEmail(c echo.Context) string {
	email, _ := c.Get(contextKeyUserEmail).(string)
	return email
}
