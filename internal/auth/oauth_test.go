package auth

import (
	"strings"
	"testing"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func TestAuthCodeURL(t *testing.T) {
	svc := NewService(&oauth2.Config{
		ClientID:    "client-123",
		RedirectURL: "http://localhost:8080/api/auth/callback",
		Scopes:      Scopes,
		Endpoint:    google.Endpoint,
	})

	url := svc.AuthCodeURL("state-abc")

	if !strings.Contains(url, "client-123") {
		t.Errorf("URL missing client id: %s", url)
	}
	if !strings.Contains(url, "state-abc") {
		t.Errorf("URL missing state: %s", url)
	}
	if !strings.Contains(url, "devstorage.read_write") {
		t.Errorf("URL missing storage scope: %s", url)
	}
	if !strings.Contains(url, "access_type=offline") {
		t.Errorf("URL missing offline access type: %s", url)
	}
}
