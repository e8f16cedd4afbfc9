package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ashahrourr/job-tracker/internal/domain"
)

var (
	emailsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_emails_processed_total",
			Help: "Emails examined by the ingestion pipeline, by outcome",
		},
		[]string{"outcome"},
	)
	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_sync_runs_total",
			Help: "Per-user ingestion runs, by result",
		},
		[]string{"result"},
	)
)

// Mailbox is the read side of a user's email account.
type Mailbox interface {
	ListMessageIDs(ctx context.Context, query string, max int64) ([]string, error)
	GetMessage(ctx context.Context, id string) (*domain.EmailMessage, error)
}

// MailboxOpener opens the mailbox belonging to a user.
type MailboxOpener func(ctx context.Context, userEmail string) (Mailbox, error)

// ProcessedStore deduplicates message ids across ingestion runs.
type ProcessedStore interface {
	// MarkProcessed returns true if the message was seen before, and records
	// it either way.
	MarkProcessed(ctx context.Context, userEmail, messageID string) (bool, error)
}

// Result summarizes one user's ingestion run.
type Result struct {
	Examined      int `json:"examined"`
	Duplicates    int `json:"duplicates"`
	Inserted      int `json:"inserted"`
	Skipped       int `json:"skipped"`
	StatusUpdates int `json:"status_updates"`
	Failures      int `json:"failures"`
}

// Service runs the fetch-clean-classify-persist pipeline for one user at a
// time.
type Service struct {
	openMailbox MailboxOpener
	jobs        domain.JobRepository
	processed   ProcessedStore
	query       string
	maxResults  int64
}

func NewService(open MailboxOpener, jobs domain.JobRepository, processed ProcessedStore, query string, maxResults int64) *Service {
	return &Service{
		openMailbox: open,
		jobs:        jobs,
		processed:   processed,
		query:       query,
		maxResults:  maxResults,
	}
}

// SyncUser scans the user's recent mail and applies what it finds: new
// confirmations become job rows, rejection/interview/offer emails move
// existing rows to that stage. Individual message failures are counted and
// logged, not fatal.
func (s *Service) SyncUser(ctx context.Context, userEmail string) (Result, error) {
	runID := uuid.NewString()
	log := slog.With("sync_run_id", runID, "user_email", userEmail)

	var res Result

	mailbox, err := s.openMailbox(ctx, userEmail)
	if err != nil {
		syncRunsTotal.WithLabelValues("error").Inc()
		return res, fmt.Errorf("failed to open mailbox: %w", err)
	}

	ids, err := mailbox.ListMessageIDs(ctx, s.query, s.maxResults)
	if err != nil {
		syncRunsTotal.WithLabelValues("error").Inc()
		return res, fmt.Errorf("failed to list messages: %w", err)
	}
	res.Examined = len(ids)

	var apps []domain.JobApplication

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			syncRunsTotal.WithLabelValues("canceled").Inc()
			return res, err
		}

		seen, err := s.processed.MarkProcessed(ctx, userEmail, id)
		if err != nil {
			// Dedupe failure means we may reprocess later. The unique index
			// on jobs keeps reprocessing harmless.
			log.Warn("Dedupe check failed, processing anyway", "message_id", id, "error", err)
		}
		if seen {
			res.Duplicates++
			emailsProcessedTotal.WithLabelValues("duplicate").Inc()
			continue
		}

		msg, err := mailbox.GetMessage(ctx, id)
		if err != nil {
			res.Failures++
			emailsProcessedTotal.WithLabelValues("error").Inc()
			log.Warn("Failed to fetch message", "message_id", id, "error", err)
			continue
		}

		body := CleanBody(msg.Body)
		category := Classify(msg.Subject, body)
		emailsProcessedTotal.WithLabelValues(string(category)).Inc()

		switch category {
		case CategoryConfirmation:
			ex := Extract(msg.Subject, msg.From, body)
			if ex.Company == "" {
				log.Debug("Confirmation without recognizable company", "message_id", id, "subject", msg.Subject)
				continue
			}
			apps = append(apps, domain.JobApplication{
				Company:   ex.Company,
				JobTitle:  ex.JobTitle,
				TechStack: ex.TechStack,
			})
		case CategoryRejection, CategoryInterview, CategoryOffer:
			updated, err := s.applyStatus(ctx, userEmail, msg, body, category)
			if err != nil {
				res.Failures++
				log.Warn("Failed to update job status", "message_id", id, "error", err)
				continue
			}
			res.StatusUpdates += int(updated)
		}
	}

	if len(apps) > 0 {
		inserted, skipped, err := s.jobs.InsertBatch(ctx, userEmail, apps)
		if err != nil {
			syncRunsTotal.WithLabelValues("error").Inc()
			return res, fmt.Errorf("failed to insert applications: %w", err)
		}
		res.Inserted = inserted
		res.Skipped = skipped
	}

	syncRunsTotal.WithLabelValues("ok").Inc()
	log.Info("Ingestion run finished",
		"examined", res.Examined,
		"inserted", res.Inserted,
		"skipped", res.Skipped,
		"duplicates", res.Duplicates,
		"status_updates", res.StatusUpdates,
		"failures", res.Failures)

	return res, nil
}

func (s *Service) applyStatus(ctx context.Context, userEmail string, msg *domain.EmailMessage, body string, category Category) (int64, error) {
	ex := Extract(msg.Subject, msg.From, body)
	if ex.Company == "" {
		return 0, nil
	}

	status := map[Category]domain.JobStatus{
		CategoryRejection: domain.StatusRejected,
		CategoryInterview: domain.StatusInterview,
		CategoryOffer:     domain.StatusOffer,
	}[category]

	return s.jobs.UpdateStatusByCompany(ctx, userEmail, ex.Company, status)
}
