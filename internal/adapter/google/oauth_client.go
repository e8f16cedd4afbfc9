// Package google integrates with Google's OAuth and Gmail APIs: the login
// flow that identifies users, and the per-user mailboxes ingestion reads.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
)

const (
	userinfoURL     = "https://openidconnect.googleapis.com/v1/userinfo"
	httpCallTimeout = 10 * time.Second
)

// oauthScopes identify the user and grant read-only mailbox access.
var oauthScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	gmail.GmailReadonlyScope,
}

// AuthResult holds the outcome of a code exchange plus the user's identity.
type AuthResult struct {
	Email        string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	Scopes       string
}

// OAuthClient drives the redirect-based Google login flow.
type OAuthClient struct {
	cfg *oauth2.Config
}

func NewOAuthClient(clientID, clientSecret, redirectURI string) *OAuthClient {
	return &OAuthClient{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       oauthScopes,
			Endpoint:     googleoauth.Endpoint,
		},
	}
}

// AuthCodeURL builds the Google authorization URL. Offline access and the
// consent prompt force Google to return a refresh token.
func (c *OAuthClient) AuthCodeURL(state string) string {
	return c.cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// ExchangeCode trades the authorization code for tokens and resolves the
// account email from the OIDC userinfo endpoint.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code string) (*AuthResult, error) {
	tok, err := c.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	email, err := c.fetchUserEmail(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("user info fetch failed: %w", err)
	}

	return &AuthResult{
		Email:        email,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenExpiry:  tok.Expiry,
		Scopes:       strings.Join(c.cfg.Scopes, ","),
	}, nil
}

func (c *OAuthClient) fetchUserEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userinfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	client := &http.Client{Timeout: httpCallTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	var userResp struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userResp); err != nil {
		return "", fmt.Errorf("failed to decode userinfo response: %w", err)
	}

	if userResp.Email == "" {
		return "", fmt.Errorf("no email in userinfo response")
	}
	return userResp.Email, nil
}
