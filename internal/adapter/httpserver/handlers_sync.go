package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ashahrourr/job-tracker/internal/app"
	apperrors "github.com/ashahrourr/job-tracker/internal/platform/errors"
)

func (s *Server) registerSyncRoutes(rateLimiter echo.MiddlewareFunc) {
	// Sweep endpoint for external cron; rate limited instead of
	// authenticated so schedulers without a user token can hit it.
	s.echo.GET("/trigger-email-fetch", s.handleTriggerFetch, rateLimiter)
	s.echo.GET("/my-email-fetch", s.handleMyFetch, s.requireAuth)
}

func (s *Server) handleTriggerFetch(c echo.Context) error {
	// The sweep outlives the request. Detach from the request context so the
	// caller hanging up does not cancel a half-finished mailbox pass; the
	// outcome lands in the logs instead of the response.
	ctx := context.WithoutCancel(c.Request().Context())
	go func() {
		summary, err := s.app.SyncAllUsers(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "Sync sweep failed", "error", err)
			return
		}
		slog.InfoContext(ctx, "Sync sweep finished",
			"users", summary.Users,
			"succeeded", summary.Succeeded,
			"failed", summary.Failed,
			"inserted", summary.Inserted)
	}()

	if err := c.JSON(http.StatusAccepted, map[string]string{"message": "Email fetch started"}); err != nil {
		return fmt.Errorf("failed to write sync response: %w", err)
	}
	return nil
}

func (s *Server) handleMyFetch(c echo.Context) error {
	res, err := s.app.SyncUser(c.Request().Context(), userEmail(c))
	if err != nil {
		if errors.Is(err, app.ErrSyncInProgress) {
			return apperrors.ConflictError("sync already in progress")
		}
		return apperrors.InternalError("failed to sync mailbox", err)
	}

	if err := c.JSON(http.StatusOK, res); err != nil {
		return fmt.Errorf("failed to write sync response: %w", err)
	}
	return nil
}
