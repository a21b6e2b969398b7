package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/modelvault/modelvault/internal/auth"
	"github.com/modelvault/modelvault/internal/metrics"
)

// AuthConfig holds configuration for the access guard middleware.
type AuthConfig struct {
	Logger  *slog.Logger
	Tokens  *auth.TokenService
	Metrics metrics.Recorder
}

// AccessGuard returns middleware that authenticates API requests.
// A request with no bearer token at all is 401; a request that presents
// a token which fails verification, including one sent with the wrong
// auth scheme, is 400.
func AccessGuard(cfg AuthConfig) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "missing_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				recorder.IncAuthDecision("no_token")
				writeGuardError(w, http.StatusUnauthorized, "NO_TOKEN", "Authentication token required")
				return
			}

			// A header that is present but not a Bearer token is treated the
			// same as a token that fails verification.
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				token = ""
			}

			id, err := cfg.Tokens.Verify(token)
			if err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "invalid_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				recorder.IncAuthDecision("invalid_token")
				writeGuardError(w, http.StatusBadRequest, "INVALID_TOKEN", "Invalid authentication token")
				return
			}

			recorder.IncAuthDecision("ok")

			ctx := auth.ContextWithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeGuardError writes a guard rejection response.
func writeGuardError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"}}`))
}
