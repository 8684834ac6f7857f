package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "givebridge/pkg/domain"
)

// CallerResolver validates a bearer token and yields the caller's identity.
// The identity service implements this; middleware stays decoupled from how
// sessions are stored.
type CallerResolver interface {
	Resolve(ctx context.Context, token string) (Caller, error)
}

// Caller is the authenticated identity attached to the request context.
// Every core operation receives the acting user explicitly from here; there
// is no ambient current-user state.
type Caller struct {
	UserID    id.UserID
	Role      id.Role
	SessionID id.SessionID
}

type contextKeyCaller struct{}

// GetCaller retrieves the authenticated caller from the context.
func GetCaller(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(contextKeyCaller{}).(Caller)
	return caller, ok
}

// WithCaller injects a caller into a context. Useful for handler tests that
// skip the full middleware chain.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, contextKeyCaller{}, caller)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved caller in the request context.
func RequireAuth(resolver CallerResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			caller, err := resolver.Resolve(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(ctx, caller)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
