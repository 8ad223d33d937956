package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/printshelf/printshelf/internal/auth"
	"github.com/printshelf/printshelf/internal/session"
)

const stateCookieName = "oauth_state"

// AuthHandler handles login, OAuth callback, logout and auth checks.
type AuthHandler struct {
	oauth         *auth.Service
	store         session.Store
	jwtSecret     string
	secureCookies bool
	frontendURL   string
	production    bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(oauth *auth.Service, store session.Store, jwtSecret string, production bool, frontendURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		oauth:         oauth,
		store:         store,
		jwtSecret:     jwtSecret,
		secureCookies: production,
		frontendURL:   frontendURL,
		production:    production,
		logger:        logger,
	}
}

// Login redirects the browser to the Google consent screen. A random
// state lands in a short-lived cookie and is checked on callback.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback finishes the OAuth flow: exchanges the code, identifies the
// user, creates a session and sets the signed session cookie.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "Invalid state", http.StatusBadRequest)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("code exchange failed", slog.Any("error", err))
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}

	email, err := h.oauth.Email(r.Context(), token)
	if err != nil {
		h.logger.Error("userinfo fetch failed", slog.Any("error", err))
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}

	sess, err := h.store.Create(r.Context(), email, token.AccessToken)
	if err != nil {
		h.logger.Error("session create failed", slog.Any("error", err))
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}

	signed, err := SignSessionToken(sess, h.jwtSecret)
	if err != nil {
		h.logger.Error("session token signing failed", slog.Any("error", err))
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(session.DefaultTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	// State cookie is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	redirectURL := h.frontendURL
	if h.production {
		redirectURL = "/"
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// Logout destroys the session and clears the cookie. A missing or
// malformed cookie still results in a successful logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil {
		if sid, err := parseSessionID(cookie.Value, h.jwtSecret); err == nil {
			if err := h.store.Destroy(r.Context(), sid); err != nil {
				h.logger.Warn("session destroy failed", slog.Any("error", err))
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, "Logged out")
}

// Check reports whether the caller holds a valid session.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	type checkData struct {
		Authenticated bool   `json:"authenticated"`
		Email         string `json:"email,omitempty"`
	}

	sess, err := resolveSession(r, h.store, h.jwtSecret)
	if err != nil {
		respondJSON(w, http.StatusOK, checkData{Authenticated: false})
		return
	}
	respondJSON(w, http.StatusOK, checkData{Authenticated: true, Email: sess.Email})
}
