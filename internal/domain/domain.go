package domain

import (
	"context"
	"time"
)

// --- Model types ---

// JobStatus is the application pipeline stage of a tracked job.
type JobStatus string

const (
	StatusApplied   JobStatus = "applied"
	StatusInterview JobStatus = "interview"
	StatusOffer     JobStatus = "offer"
	StatusRejected  JobStatus = "rejected"
)

// ValidStatus reports whether s is one of the known pipeline stages.
func ValidStatus(s JobStatus) bool {
	switch s {
	case StatusApplied, StatusInterview, StatusOffer, StatusRejected:
		return true
	}
	return false
}

// Job is one tracked application, owned by the Google account that the
// ingestion pipeline (or the frontend) created it for.
type Job struct {
	ID          int64     `json:"id"`
	UserEmail   string    `json:"user_email"`
	Company     string    `json:"company"`
	JobTitle    string    `json:"job_title"`
	Status      JobStatus `json:"status"`
	TechStack   []string  `json:"tech_stack"`
	AppliedDate time.Time `json:"applied_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// JobApplication is the pre-persistence shape produced by email ingestion.
type JobApplication struct {
	Company   string
	JobTitle  string
	TechStack []string
}

// JobFilter narrows a job listing. Zero values mean "no filter".
type JobFilter struct {
	// Query is matched case-insensitively as a substring of company or title.
	Query string
	// Status restricts to a single pipeline stage.
	Status JobStatus
}

// EmailMessage is a mailbox message in transport-neutral form: headers of
// interest plus the decoded (but uncleaned) body.
type EmailMessage struct {
	ID      string
	Subject string
	From    string
	Body    string
}

// GmailToken is a user's stored Google OAuth credential set.
type GmailToken struct {
	UserEmail    string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	Scopes       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// --- Interfaces ---

// JobRepository abstracts job persistence.
type JobRepository interface {
	ListByUser(ctx context.Context, userEmail string, filter JobFilter) ([]Job, error)
	DeleteByID(ctx context.Context, userEmail string, jobID int64) error
	// InsertBatch inserts applications for a user, silently skipping
	// duplicates of (user, company, title). Returns inserted and skipped counts.
	InsertBatch(ctx context.Context, userEmail string, apps []JobApplication) (inserted, skipped int, err error)
	// UpdateStatusByCompany moves every job the user has at a company to the
	// given stage, returning how many rows changed.
	UpdateStatusByCompany(ctx context.Context, userEmail, company string, status JobStatus) (int64, error)
}

// TokenRepository abstracts Gmail OAuth token persistence.
type TokenRepository interface {
	Upsert(ctx context.Context, token GmailToken) error
	Get(ctx context.Context, userEmail string) (*GmailToken, error)
	ListUserEmails(ctx context.Context) ([]string, error)
}
