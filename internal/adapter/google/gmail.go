package google

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ashahrourr/job-tracker/internal/domain"
	"github.com/ashahrourr/job-tracker/internal/platform/retry"
)

// gmailRetryPolicy smooths over transient Gmail API failures. Quota errors
// wait out the longer backoff before the next attempt.
var gmailRetryPolicy = retry.Policy{
	MaxAttempts:      3,
	InitialBackoff:   500 * time.Millisecond,
	RateLimitBackoff: 5 * time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Retrying gmail call", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

// classifyAPIError sorts Gmail API failures: quota exhaustion waits, server
// errors retry, everything else (bad requests, revoked grants) is permanent.
// Non-API errors are treated as network blips and retried.
func classifyAPIError(err error) retry.Action {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return retry.Retry
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return retry.After
	case apiErr.Code >= http.StatusInternalServerError:
		return retry.Retry
	default:
		return retry.Stop
	}
}

// MailboxFactory opens authenticated mailboxes from stored per-user tokens.
type MailboxFactory struct {
	cfg    *oauth2.Config
	tokens domain.TokenRepository
}

func NewMailboxFactory(client *OAuthClient, tokens domain.TokenRepository) *MailboxFactory {
	return &MailboxFactory{cfg: client.cfg, tokens: tokens}
}

// Mailbox builds a Gmail client for the user. The token source refreshes
// expired access tokens transparently and persists the result, mirroring
// what the stored credential set would look like after a manual refresh.
func (f *MailboxFactory) Mailbox(ctx context.Context, userEmail string) (*Mailbox, error) {
	stored, err := f.tokens.Get(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to load gmail token: %w", err)
	}

	tok := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		Expiry:       stored.TokenExpiry,
		TokenType:    "Bearer",
	}

	ts := &persistingTokenSource{
		inner:      f.cfg.TokenSource(ctx, tok),
		tokens:     f.tokens,
		userEmail:  userEmail,
		lastAccess: stored.AccessToken,
		scopes:     stored.Scopes,
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(oauth2.ReuseTokenSource(tok, ts)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &Mailbox{svc: svc}, nil
}

// persistingTokenSource writes refreshed tokens back to the repository so
// the next sync starts from a valid access token.
type persistingTokenSource struct {
	inner      oauth2.TokenSource
	tokens     domain.TokenRepository
	userEmail  string
	lastAccess string
	scopes     string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.inner.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	if tok.AccessToken != s.lastAccess {
		err := s.tokens.Upsert(context.Background(), domain.GmailToken{
			UserEmail:    s.userEmail,
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			TokenExpiry:  tok.Expiry,
			Scopes:       s.scopes,
		})
		if err != nil {
			// Persisting is best effort; the refreshed token still works
			// for this run.
			slog.Warn("Failed to persist refreshed gmail token", "user_email", s.userEmail, "error", err)
		} else {
			s.lastAccess = tok.AccessToken
		}
	}

	return tok, nil
}

// Mailbox reads one user's Gmail messages.
type Mailbox struct {
	svc *gmail.Service
}

// ListMessageIDs returns ids of messages matching the Gmail search query.
func (m *Mailbox) ListMessageIDs(ctx context.Context, query string, max int64) ([]string, error) {
	resp, err := retry.Do(ctx, gmailRetryPolicy, classifyAPIError, func() (*gmail.ListMessagesResponse, error) {
		return m.svc.Users.Messages.List("me").Q(query).MaxResults(max).Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		ids = append(ids, msg.Id)
	}
	return ids, nil
}

// GetMessage fetches a full message and flattens it to headers + decoded body.
func (m *Mailbox) GetMessage(ctx context.Context, id string) (*domain.EmailMessage, error) {
	msg, err := retry.Do(ctx, gmailRetryPolicy, classifyAPIError, func() (*gmail.Message, error) {
		return m.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	email := &domain.EmailMessage{ID: msg.Id}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "Subject":
				email.Subject = h.Value
			case "From":
				email.From = h.Value
			}
		}
		email.Body = extractBody(msg.Payload)
	}

	return email, nil
}

// extractBody walks the MIME tree and concatenates every decoded body part,
// matching the recursive part walk the Gmail payload format requires.
func extractBody(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}

	if len(part.Parts) > 0 {
		var b strings.Builder
		for _, p := range part.Parts {
			b.WriteString(extractBody(p))
		}
		return b.String()
	}

	if part.Body == nil || part.Body.Data == "" {
		return ""
	}

	decoded, err := base64.URLEncoding.DecodeString(part.Body.Data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}
