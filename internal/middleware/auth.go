package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"mansara-store/internal/domain"
	"mansara-store/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const IdentityKey contextKey = "identity"

// AuthMiddleware validates JWT tokens and puts the caller's identity in the
// request context
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return authenticate(jwtSecret, logger, true)
}

// OptionalAuthMiddleware authenticates when an Authorization header is sent
// and lets anonymous requests through untouched
func OptionalAuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return authenticate(jwtSecret, logger, false)
}

func authenticate(jwtSecret string, logger *zap.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token from Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			// Check for Bearer token format
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := service.ParseToken(parts[1], jwtSecret)
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, jwt.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "token expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}

			identity := claims.Identity()
			logger.Debug("User authenticated",
				zap.String("user_id", identity.ID.String()),
				zap.Bool("is_admin", identity.IsAdmin),
			)

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying identity
func WithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetIdentity returns the authenticated identity, or nil for anonymous requests
func GetIdentity(ctx context.Context) *domain.Identity {
	identity, _ := ctx.Value(IdentityKey).(*domain.Identity)
	return identity
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	identity := GetIdentity(ctx)
	if identity == nil {
		return "", false
	}
	return identity.ID.String(), true
}
