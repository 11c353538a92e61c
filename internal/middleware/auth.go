package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go-content-dashboard/internal/metrics"
	"go-content-dashboard/internal/model"
)

type tokenVerifier interface {
	Verify(ctx context.Context, token string) (model.Identity, error)
}

type contextKey string

const identityContextKey contextKey = "identity"

type AuthMiddleware struct {
	verifier tokenVerifier
}

func NewAuthMiddleware(verifier tokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth rejects the request with 401 unless it carries a valid bearer
// token in the Authorization header.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return m.require(next, false)
}

// RequireAuthOrQuery also accepts the token as a "token" query parameter,
// since browsers cannot set headers on websocket upgrades.
func (m *AuthMiddleware) RequireAuthOrQuery(next http.Handler) http.Handler {
	return m.require(next, true)
}

// OptionalAuth attaches the identity when a valid token is present and lets
// the request through either way.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			slog.Debug("ignoring unusable token on public route", "path", r.URL.Path, "reason", failureReason(err))
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func (m *AuthMiddleware) require(next http.Handler, allowQuery bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok && allowQuery {
			token = strings.TrimSpace(r.URL.Query().Get("token"))
			ok = token != ""
		}
		if !ok {
			metrics.AuthFailure("missing")
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "No token, authorization denied")
			return
		}

		identity, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			reason := failureReason(err)
			metrics.AuthFailure(reason)
			if reason == "denylist_unavailable" {
				slog.Error("token denylist check failed", "path", r.URL.Path, "error", err)
			} else {
				slog.Warn("rejected bearer token", "path", r.URL.Path, "reason", reason)
			}
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Token is not valid")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	return identity, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, model.ErrTokenExpired):
		return "expired"
	case errors.Is(err, model.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, model.ErrInvalidToken):
		return "invalid"
	default:
		return "denylist_unavailable"
	}
}
