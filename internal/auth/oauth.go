// Package auth handles the Google OAuth2 flow: consent URL generation,
// code exchange, and user identification.
package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Scopes requested from Google: the user's email for display plus
// read/write access to Cloud Storage, since every storage call runs with
// the user's own credential.
var Scopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/devstorage.read_write",
}

// Service wraps the OAuth2 config for the login flow.
type Service struct {
	oauthConfig *oauth2.Config
}

// NewService creates a Service. The oauth2.Config is constructed by the
// caller from configuration and resolved secrets.
func NewService(oauthConfig *oauth2.Config) *Service {
	return &Service{oauthConfig: oauthConfig}
}

// AuthCodeURL returns the Google consent URL for the given CSRF state.
func (s *Service) AuthCodeURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the authorization code for a token.
func (s *Service) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return s.oauthConfig.Exchange(ctx, code)
}

// Email fetches the authenticated user's email address using the freshly
// exchanged token.
func (s *Service) Email(ctx context.Context, token *oauth2.Token) (string, error) {
	svc, err := goauth2.NewService(ctx, option.WithTokenSource(s.oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return "", fmt.Errorf("create oauth2 service: %w", err)
	}

	userinfo, err := svc.Userinfo.Get().Do()
	if err != nil {
		return "", fmt.Errorf("get userinfo: %w", err)
	}
	if userinfo.Email == "" {
		return "", fmt.Errorf("userinfo has no email")
	}
	return userinfo.Email, nil
}
