package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/assetwatch/assetwatch/internal/auth"
)

// minAuthFailureDuration is the minimum time spent before rejecting a token.
const minAuthFailureDuration = 200 * time.Millisecond

const unauthorizedBody = `{"error":"Invalid or missing token","code":"UNAUTHORIZED"}` + "\n"

// RequireToken rejects requests without a token from keyring. A nil or empty
// keyring disables the check.
func RequireToken(keyring *auth.Keyring, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if keyring == nil || keyring.Len() == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()

			token := extractToken(r)
			prefix, ok := keyring.Verify(token)
			if !ok {
				reason := "invalid_token"
				if token == "" {
					reason = "missing_token"
				}
				logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				if elapsed := time.Since(startTime); elapsed < minAuthFailureDuration {
					time.Sleep(minAuthFailureDuration - elapsed)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(unauthorizedBody))
				return
			}

			ctx := auth.ContextWithPrincipal(r.Context(), auth.Principal{TokenPrefix: prefix})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken supports "Authorization: Bearer <token>" and
// "X-API-Key: <token>".
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return r.Header.Get("X-API-Key")
}
