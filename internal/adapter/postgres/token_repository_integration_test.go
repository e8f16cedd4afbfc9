package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashahrourr/job-tracker/internal/domain"
	"github.com/ashahrourr/job-tracker/internal/platform/crypto"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newTestTokenRepo(t *testing.T) *TokenRepo {
	t.Helper()
	pool := setupTestDB(t)
	cryptoSvc, err := crypto.NewAesGcmService(testEncryptionKey)
	require.NoError(t, err)
	return NewTokenRepo(pool, cryptoSvc)
}

func testToken(email string) domain.GmailToken {
	return domain.GmailToken{
		UserEmail:    email,
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		TokenExpiry:  time.Now().UTC().Add(time.Hour).Truncate(time.Second),
		Scopes:       "openid,https://www.googleapis.com/auth/gmail.readonly",
	}
}

func TestTokenRepo_UpsertAndGet(t *testing.T) {
	repo := newTestTokenRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testToken("a@example.com")))

	got, err := repo.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ya29.access", got.AccessToken)
	assert.Equal(t, "1//refresh", got.RefreshToken)
	assert.Equal(t, "openid,https://www.googleapis.com/auth/gmail.readonly", got.Scopes)
}

func TestTokenRepo_TokensEncryptedAtRest(t *testing.T) {
	repo := newTestTokenRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testToken("a@example.com")))

	var rawAccess, rawRefresh string
	err := testPool.QueryRow(ctx,
		`SELECT access_token, refresh_token FROM gmail_tokens WHERE user_email = $1`,
		"a@example.com").Scan(&rawAccess, &rawRefresh)
	require.NoError(t, err)

	assert.NotEqual(t, "ya29.access", rawAccess)
	assert.NotEqual(t, "1//refresh", rawRefresh)
}

func TestTokenRepo_UpsertKeepsRefreshTokenWhenOmitted(t *testing.T) {
	repo := newTestTokenRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testToken("a@example.com")))

	// Repeat consent: Google returns a new access token but no refresh token.
	updated := testToken("a@example.com")
	updated.AccessToken = "ya29.newer"
	updated.RefreshToken = ""
	require.NoError(t, repo.Upsert(ctx, updated))

	got, err := repo.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ya29.newer", got.AccessToken)
	assert.Equal(t, "1//refresh", got.RefreshToken)
}

func TestTokenRepo_UpsertWithoutRefreshForUnknownUser(t *testing.T) {
	repo := newTestTokenRepo(t)
	ctx := context.Background()

	tok := testToken("ghost@example.com")
	tok.RefreshToken = ""
	err := repo.Upsert(ctx, tok)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestTokenRepo_GetUnknownUser(t *testing.T) {
	repo := newTestTokenRepo(t)

	_, err := repo.Get(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestTokenRepo_ListUserEmails(t *testing.T) {
	repo := newTestTokenRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testToken("b@example.com")))
	require.NoError(t, repo.Upsert(ctx, testToken("a@example.com")))

	emails, err := repo.ListUserEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, emails)
}
