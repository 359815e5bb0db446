package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abgdnv/productdesk/internal/platform/web"
)

type contextKey string

const UserIDContextKey = contextKey("userID")

// Middleware verifies the Bearer access token of every request.
// The token subject is stored in the request context; missing or invalid tokens get a 401.
func Middleware(verifier Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				web.RespondError(w, logger, http.StatusUnauthorized, "Authorization header is required")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				web.RespondError(w, logger, http.StatusUnauthorized, "Bearer token is required")
				return
			}

			token, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				logger.DebugContext(r.Context(), "Token rejected", "error", err)
				web.RespondError(w, logger, http.StatusUnauthorized, "Invalid token")
				return
			}

			subject, ok := token.Subject()
			if !ok {
				web.RespondError(w, logger, http.StatusUnauthorized, "no claim `sub`")
				return
			}
			ctx := context.WithValue(r.Context(), UserIDContextKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContextUserID retrieves the user ID from the context.
func ContextUserID(ctx context.Context) string {
	if value, ok := ctx.Value(UserIDContextKey).(string); ok {
		return value
	}
	return ""
}
