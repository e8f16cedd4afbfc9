package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ashahrourr/job-tracker/internal/domain"
)

// jobColumns must match the Scan order in scanJob.
const jobColumns = `id, user_email, company, job_title, status, tech_stack, applied_date, created_at, updated_at`

// JobRepo implements domain.JobRepository backed by PostgreSQL.
type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	err := row.Scan(
		&job.ID, &job.UserEmail, &job.Company, &job.JobTitle, &job.Status,
		&job.TechStack, &job.AppliedDate, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepo) ListByUser(ctx context.Context, userEmail string, filter domain.JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE user_email = $1`
	args := []any{userEmail}

	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		query += fmt.Sprintf(` AND (company ILIKE $%d OR job_title ILIKE $%d)`, len(args), len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY applied_date DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]domain.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read jobs: %w", err)
	}

	return jobs, nil
}

func (r *JobRepo) DeleteByID(ctx context.Context, userEmail string, jobID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM jobs WHERE id = $1 AND user_email = $2`, jobID, userEmail)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *JobRepo) InsertBatch(ctx context.Context, userEmail string, apps []domain.JobApplication) (int, int, error) {
	if len(apps) == 0 {
		return 0, 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	inserted := 0
	for _, app := range apps {
		title := app.JobTitle
		if title == "" {
			title = "Unknown Position"
		}
		techStack := app.TechStack
		if techStack == nil {
			techStack = []string{}
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO jobs (user_email, company, job_title, status, tech_stack)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_email, company, job_title) DO NOTHING
		`, userEmail, app.Company, title, domain.StatusApplied, techStack)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to insert job application: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return inserted, len(apps) - inserted, nil
}

func (r *JobRepo) UpdateStatusByCompany(ctx context.Context, userEmail, company string, status domain.JobStatus) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = $1, updated_at = NOW()
		WHERE user_email = $2 AND company ILIKE $3 AND status <> $1
	`, status, userEmail, company)
	if err != nil {
		return 0, fmt.Errorf("failed to update job status: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetByID fetches a single job scoped to its owner.
func (r *JobRepo) GetByID(ctx context.Context, userEmail string, jobID int64) (*domain.Job, error) {
	job, err := scanJob(r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1 AND user_email = $2`, jobID, userEmail))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}
