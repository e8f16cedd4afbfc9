package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func newTestManager(t *testing.T) (*Manager, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	return NewManager(testSecret, 7*24*time.Hour, clock), clock
}

func TestIssueAndVerify(t *testing.T) {
	m, _ := newTestManager(t)

	tok, err := m.Issue("user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	email, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email)
}

func TestVerify_Expired(t *testing.T) {
	m, clock := newTestManager(t)

	tok, err := m.Issue("user@example.com")
	require.NoError(t, err)

	clock.Advance(7*24*time.Hour + time.Minute)

	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	m, _ := newTestManager(t)
	other := NewManager("different-secret", time.Hour, clockwork.NewFakeClock())

	tok, err := other.Issue("user@example.com")
	require.NoError(t, err)

	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_NoSubject(t *testing.T) {
	m, clock := newTestManager(t)

	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	m, clock := newTestManager(t)

	claims := jwt.RegisteredClaims{
		Subject:   "user@example.com",
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSubjectIgnoringExpiry_AcceptsExpired(t *testing.T) {
	m, clock := newTestManager(t)

	tok, err := m.Issue("user@example.com")
	require.NoError(t, err)

	clock.Advance(30 * 24 * time.Hour)

	_, err = m.Verify(tok)
	require.ErrorIs(t, err, ErrExpiredToken)

	email, err := m.SubjectIgnoringExpiry(tok)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email)
}

func TestSubjectIgnoringExpiry_StillChecksSignature(t *testing.T) {
	m, _ := newTestManager(t)
	other := NewManager("forged-secret", time.Hour, clockwork.NewFakeClock())

	tok, err := other.Issue("attacker@example.com")
	require.NoError(t, err)

	_, err = m.SubjectIgnoringExpiry(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
