package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/DataDog/netacld/internal/apperr"
	"github.com/DataDog/netacld/internal/auth"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyClaims
)

// withRequestID gives every request a correlation id: it is returned in the
// X-Request-ID response header and stored in the request context, from
// which requestLog derives a logger carrying a request_id field.
func withRequestID(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.NewString()
			w.Header().Set("X-Request-ID", id)
			ctx := context.WithValue(r.Context(), ctxKeyRequestID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestLog(log *logrus.Entry, r *http.Request) *logrus.Entry {
	if id, ok := r.Context().Value(ctxKeyRequestID).(string); ok {
		return log.WithField("request_id", id)
	}
	return log
}

// requireScope authenticates the bearer token and checks it carries scope,
// per spec §6's "scopes enforce per-endpoint authorization."
func requireScope(a *auth.Authenticator, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				writeError(w, apperr.Unauthorized("missing bearer token"))
				return
			}
			claims, err := a.Verify(strings.TrimPrefix(header, prefix))
			if err != nil {
				writeError(w, apperr.Unauthorized("invalid or expired token"))
				return
			}
			if !claims.HasScope(scope) {
				writeError(w, apperr.Forbidden("missing scope "+scope))
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func claimsFrom(r *http.Request) *auth.Claims {
	c, _ := r.Context().Value(ctxKeyClaims).(*auth.Claims)
	return c
}
