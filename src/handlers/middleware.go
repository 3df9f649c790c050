package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/username/gramstracker/backend/src/logger"
	"github.com/username/gramstracker/backend/src/security"
)

type contextKey string

const (
	requestIDContextKey  contextKey = "requestID"
	profileKeyContextKey contextKey = "profileKey"
)

// ContextualLoggerMiddleware creates a logger carrying a request id for
// every request and embeds it in the context.
func ContextualLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		ctxLogger := logger.L.With(slog.String("requestID", requestID))

		ctx := logger.ToContext(r.Context(), ctxLogger)
		ctx = context.WithValue(ctx, requestIDContextKey, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthMiddleware validates the Bearer session token and propagates the
// profile key it was issued for to the handlers and the contextual logger.
func (h *AuthHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxLogger := logger.FromContext(r.Context())

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			ctxLogger.Debug("AuthMiddleware: Authorization header missing", "path", r.URL.Path)
			sendJSONError(w, "Authorization header required", "", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == "" {
			ctxLogger.Debug("AuthMiddleware: Token string empty", "path", r.URL.Path)
			sendJSONError(w, "Malformed token", "", http.StatusUnauthorized)
			return
		}

		profileKey, err := h.authService.ValidateToken(tokenString)
		if err != nil {
			ctxLogger.Warn("AuthMiddleware: Token validation failed", "path", r.URL.Path, "error", err)
			sendJSONError(w, "Invalid or expired token", "", http.StatusUnauthorized)
			return
		}

		enrichedLogger := ctxLogger.With(slog.String("profileKey", string(profileKey)))
		ctx := logger.ToContext(r.Context(), enrichedLogger)
		ctx = context.WithValue(ctx, profileKeyContextKey, profileKey)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetProfileKeyFromContext extracts the authenticated profile key.
func GetProfileKeyFromContext(ctx context.Context) (security.ProfileKey, bool) {
	profileKey, ok := ctx.Value(profileKeyContextKey).(security.ProfileKey)
	return profileKey, ok
}
