// backend/src/handlers/middleware.go
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/username/fundfolio/backend/src/logger"
	"github.com/username/fundfolio/backend/src/security"
	"github.com/username/fundfolio/backend/src/utils"
)

type contextKey string

const (
	requestIDContextKey contextKey = "requestID"
	identityContextKey  contextKey = "identity"
)

// GetIdentityFromContext returns the verified caller placed in the context
// by AuthMiddleware.
func GetIdentityFromContext(ctx context.Context) (*security.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*security.Identity)
	return identity, ok
}

// ContextualLoggerMiddleware attaches a request-scoped logger carrying a
// generated requestID.
func ContextualLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()

		ctxLogger := logger.L.With(slog.String("requestID", requestID))

		ctx := logger.ToContext(r.Context(), ctxLogger)
		ctx = context.WithValue(ctx, requestIDContextKey, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthMiddleware validates the bearer token and stores the resulting
// identity in the request context, enriching the contextual logger with
// the caller's client ID.
func (h *AuthHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxLogger := logger.FromContext(r.Context())

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			ctxLogger.Debug("AuthMiddleware: Authorization header missing", "path", r.URL.Path)
			utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == "" {
			ctxLogger.Debug("AuthMiddleware: Token string empty", "path", r.URL.Path)
			utils.SendJSONError(w, "Malformed token", http.StatusUnauthorized)
			return
		}

		identity, err := h.authService.ValidateToken(tokenString)
		if err != nil {
			ctxLogger.Warn("AuthMiddleware: Token validation failed", "path", r.URL.Path, "error", err)
			utils.SendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		enrichedLogger := ctxLogger.With(slog.String("clientID", identity.ClientID), slog.String("role", identity.Role))
		ctx := logger.ToContext(r.Context(), enrichedLogger)
		ctx = context.WithValue(ctx, identityContextKey, identity)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminMiddleware rejects callers whose token does not carry the admin
// role. Must run after AuthMiddleware.
func (h *AuthHandler) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := GetIdentityFromContext(r.Context())
		if !ok {
			utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
			return
		}
		if identity.Role != security.RoleAdmin {
			logger.FromContext(r.Context()).Warn("AdminMiddleware: non-admin access attempt", "path", r.URL.Path)
			utils.SendJSONError(w, "admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
