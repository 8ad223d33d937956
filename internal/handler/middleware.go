package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/printshelf/printshelf/internal/session"
)

// CookieName carries the signed session token.
const CookieName = "auth_token"

type ctxKey int

const sessionKey ctxKey = 0

// SignSessionToken wraps a session id in an HS256 JWT whose expiry
// mirrors the session's own.
func SignSessionToken(sess *session.Session, jwtSecret string) (string, error) {
	claims := jwt.MapClaims{
		"sid": sess.ID,
		"exp": sess.ExpiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// parseSessionID verifies the JWT and extracts the session id.
func parseSessionID(tokenString, jwtSecret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		if sid, ok := claims["sid"].(string); ok {
			return sid, nil
		}
	}
	return "", fmt.Errorf("invalid token claims")
}

// resolveSession reads the session cookie and resolves it against the
// store. Any failure along the way means "not authenticated".
func resolveSession(r *http.Request, store session.Store, jwtSecret string) (*session.Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, session.ErrNotFound
	}
	sid, err := parseSessionID(cookie.Value, jwtSecret)
	if err != nil {
		return nil, session.ErrNotFound
	}
	return store.Lookup(r.Context(), sid)
}

// RequireSession rejects requests without a valid session before any
// storage operation runs, and stores the session in the request context.
func RequireSession(store session.Store, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := resolveSession(r, store, jwtSecret)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
		})
	}
}

// SessionFrom returns the session placed in the context by RequireSession.
func SessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey).(*session.Session)
	return sess
}

// RequestLogger logs one line per request at debug level.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
