package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ashahrourr/job-tracker/internal/domain"
	"github.com/ashahrourr/job-tracker/internal/platform/crypto"
)

// tokenColumns must match the Scan order in scanToken.
const tokenColumns = `user_email, access_token, refresh_token, token_expiry, scopes, created_at, updated_at`

// TokenRepo implements domain.TokenRepository backed by PostgreSQL.
// Access and refresh tokens are encrypted at rest via the crypto service.
type TokenRepo struct {
	pool   *pgxpool.Pool
	crypto crypto.Service
}

func NewTokenRepo(pool *pgxpool.Pool, cryptoSvc crypto.Service) *TokenRepo {
	return &TokenRepo{pool: pool, crypto: cryptoSvc}
}

func (r *TokenRepo) scanToken(row pgx.Row) (*domain.GmailToken, error) {
	var t domain.GmailToken
	err := row.Scan(
		&t.UserEmail, &t.AccessToken, &t.RefreshToken, &t.TokenExpiry,
		&t.Scopes, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.AccessToken, err = r.crypto.Decrypt(t.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	t.RefreshToken, err = r.crypto.Decrypt(t.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}
	return &t, nil
}

func (r *TokenRepo) Upsert(ctx context.Context, tok domain.GmailToken) error {
	encAccess, err := r.crypto.Encrypt(tok.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	// Google omits the refresh token on repeat consents; keep the stored one
	// in that case.
	if tok.RefreshToken == "" {
		tag, err := r.pool.Exec(ctx, `
			UPDATE gmail_tokens
			SET access_token = $1, token_expiry = $2, scopes = $3, updated_at = NOW()
			WHERE user_email = $4
		`, encAccess, tok.TokenExpiry, tok.Scopes, tok.UserEmail)
		if err != nil {
			return fmt.Errorf("failed to update gmail token: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrUserNotFound
		}
		return nil
	}

	encRefresh, err := r.crypto.Encrypt(tok.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO gmail_tokens (user_email, access_token, refresh_token, token_expiry, scopes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (user_email) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			scopes = EXCLUDED.scopes,
			updated_at = NOW()
	`, tok.UserEmail, encAccess, encRefresh, tok.TokenExpiry, tok.Scopes)
	if err != nil {
		return fmt.Errorf("failed to upsert gmail token: %w", err)
	}
	return nil
}

func (r *TokenRepo) Get(ctx context.Context, userEmail string) (*domain.GmailToken, error) {
	tok, err := r.scanToken(r.pool.QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM gmail_tokens WHERE user_email = $1`, userEmail))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gmail token: %w", err)
	}
	return tok, nil
}

func (r *TokenRepo) ListUserEmails(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_email FROM gmail_tokens ORDER BY user_email`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	emails := make([]string, 0)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan user email: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}

	return emails, nil
}
