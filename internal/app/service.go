// Package app holds the application services that sit between the HTTP
// handlers and the adapters: job queries, credential storage, and the
// orchestration of per-user mailbox syncs.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/ashahrourr/job-tracker/internal/domain"
	"github.com/ashahrourr/job-tracker/internal/ingest"
	platformerrors "github.com/ashahrourr/job-tracker/internal/platform/errors"
)

// ErrSyncInProgress signals that another replica (or request) already holds
// the user's sync lock.
var ErrSyncInProgress = errors.New("sync already in progress for user")

// SyncLocker serializes ingestion runs per user across replicas.
type SyncLocker interface {
	Acquire(ctx context.Context, userEmail string) (bool, error)
	Release(ctx context.Context, userEmail string) error
}

// Syncer runs one user's ingestion pipeline.
type Syncer interface {
	SyncUser(ctx context.Context, userEmail string) (ingest.Result, error)
}

// Service exposes the application's use cases over the adapters.
type Service struct {
	jobs   domain.JobRepository
	tokens domain.TokenRepository
	syncer Syncer
	lock   SyncLocker
	group  singleflight.Group
}

func NewService(jobs domain.JobRepository, tokens domain.TokenRepository, syncer Syncer, lock SyncLocker) *Service {
	return &Service{
		jobs:   jobs,
		tokens: tokens,
		syncer: syncer,
		lock:   lock,
	}
}

// ListJobs returns the user's tracked jobs, newest application first.
func (s *Service) ListJobs(ctx context.Context, userEmail string, filter domain.JobFilter) ([]domain.Job, error) {
	if filter.Status != "" && !domain.ValidStatus(filter.Status) {
		return nil, platformerrors.ValidationError("invalid status filter").WithField("status", string(filter.Status))
	}
	return s.jobs.ListByUser(ctx, userEmail, filter)
}

// DeleteJob removes one of the user's jobs. Jobs owned by other users look
// identical to missing ones.
func (s *Service) DeleteJob(ctx context.Context, userEmail string, jobID int64) error {
	return s.jobs.DeleteByID(ctx, userEmail, jobID)
}

// SaveGmailToken stores (or refreshes) the user's Google credential set
// after a completed login.
func (s *Service) SaveGmailToken(ctx context.Context, token domain.GmailToken) error {
	if err := s.tokens.Upsert(ctx, token); err != nil {
		return fmt.Errorf("failed to save gmail token: %w", err)
	}
	return nil
}

// HasUser reports whether the email belongs to a known user, i.e. someone
// who completed the login flow at least once.
func (s *Service) HasUser(ctx context.Context, userEmail string) error {
	_, err := s.tokens.Get(ctx, userEmail)
	return err
}

// SyncUser runs the ingestion pipeline for one user. Concurrent calls for
// the same user inside this process share a single run; across replicas the
// distributed lock turns the duplicate into ErrSyncInProgress.
func (s *Service) SyncUser(ctx context.Context, userEmail string) (ingest.Result, error) {
	v, err, _ := s.group.Do(userEmail, func() (any, error) {
		acquired, err := s.lock.Acquire(ctx, userEmail)
		if err != nil {
			return ingest.Result{}, fmt.Errorf("failed to acquire sync lock: %w", err)
		}
		if !acquired {
			return ingest.Result{}, ErrSyncInProgress
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), userEmail); err != nil {
				slog.WarnContext(ctx, "Failed to release sync lock", "user_email", userEmail, "error", err)
			}
		}()

		return s.syncer.SyncUser(ctx, userEmail)
	})
	return v.(ingest.Result), err
}

// SyncSummary aggregates a sweep over every known user.
type SyncSummary struct {
	Users         int `json:"users"`
	Succeeded     int `json:"succeeded"`
	Skipped       int `json:"skipped"`
	Failed        int `json:"failed"`
	Inserted      int `json:"inserted"`
	StatusUpdates int `json:"status_updates"`
}

// SyncAllUsers runs the pipeline for every user with stored credentials.
// Per-user failures are logged and counted; the sweep continues.
func (s *Service) SyncAllUsers(ctx context.Context) (SyncSummary, error) {
	emails, err := s.tokens.ListUserEmails(ctx)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("failed to list users: %w", err)
	}

	summary := SyncSummary{Users: len(emails)}
	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		res, err := s.SyncUser(ctx, email)
		switch {
		case errors.Is(err, ErrSyncInProgress):
			summary.Skipped++
		case err != nil:
			summary.Failed++
			slog.WarnContext(ctx, "User sync failed", "user_email", email, "error", err)
		default:
			summary.Succeeded++
			summary.Inserted += res.Inserted
			summary.StatusUpdates += res.StatusUpdates
		}
	}
	return summary, nil
}
