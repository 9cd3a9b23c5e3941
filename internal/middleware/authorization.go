package middleware

import (
	"errors"
	"net/http"

	"mansara-store/internal/domain"

	"go.uber.org/zap"
)

// RequireAdmin guards the /api/admin tree. It runs after AuthMiddleware,
// so a missing identity here means the chain was assembled wrong.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())

			err := domain.RequireAdmin(identity)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, domain.ErrAuthRequired):
				logger.Warn("Admin route reached without identity", zap.String("path", r.URL.Path))
				RespondWithError(w, http.StatusUnauthorized, "authentication required")
			default:
				logger.Warn("Customer denied admin route",
					zap.String("user_id", identity.ID.String()),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				RespondWithError(w, http.StatusForbidden, "admin access required")
			}
		})
	}
}
