package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ashahrourr/job-tracker/internal/domain"
	apperrors "github.com/ashahrourr/job-tracker/internal/platform/errors"
)

func (s *Server) registerJobRoutes() {
	jobs := s.echo.Group("/jobs", s.requireAuth)
	jobs.GET("/", s.handleListJobs)
	jobs.DELETE("/:id", s.handleDeleteJob)
}

func (s *Server) handleListJobs(c echo.Context) error {
	filter := domain.JobFilter{
		Query:  c.QueryParam("q"),
		Status: domain.JobStatus(c.QueryParam("status")),
	}

	jobs, err := s.app.ListJobs(c.Request().Context(), userEmail(c), filter)
	if err != nil {
		return err
	}

	// The frontend expects an array, never null.
	if jobs == nil {
		jobs = []domain.Job{}
	}

	if err := c.JSON(http.StatusOK, jobs); err != nil {
		return fmt.Errorf("failed to write jobs response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteJob(c echo.Context) error {
	jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return apperrors.ValidationError("job id must be an integer")
	}

	if err := s.app.DeleteJob(c.Request().Context(), userEmail(c), jobID); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return apperrors.NotFoundError("job not found").WithField("job_id", jobID)
		}
		return apperrors.InternalError("failed to delete job", err)
	}

	if err := c.JSON(http.StatusOK, map[string]string{"message": "Job deleted successfully"}); err != nil {
		return fmt.Errorf("failed to write delete response: %w", err)
	}
	return nil
}
