// Package middleware provides HTTP middleware for caller identity, role
// checks, rate limiting, and request context management.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/yalmoalm/JaMoveo/internal/logging"
	"github.com/yalmoalm/JaMoveo/internal/models"
	"github.com/yalmoalm/JaMoveo/internal/services"
)

type contextKey string

const (
	// IdentityKey is the context key for the caller identity.
	IdentityKey contextKey = "identity"
)

// Authenticate resolves the caller identity and stores it in the request
// context. A bearer token issued at login takes precedence over the X-User
// header.
//
// Missing identity is a 401, a malformed header a 400, a bad token a 401.
func Authenticate(authService *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var identity services.Identity

			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
					logging.LogSecurityEvent(r.Context(), logging.SecurityEventInvalidJWT, "invalid authorization header format")
					writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
					return
				}

				claims, err := authService.ValidateToken(parts[1])
				if err != nil {
					logging.LogSecurityEvent(r.Context(), logging.SecurityEventInvalidJWT, "invalid or expired token")
					writeError(w, http.StatusUnauthorized, "Invalid or expired token")
					return
				}
				identity = claims.Identity()
			} else {
				var err error
				identity, err = services.ParseIdentityHeader(r.Header.Get("X-User"))
				if err != nil {
					var unauthenticated *services.UnauthenticatedError
					if errors.As(err, &unauthenticated) {
						logging.LogSecurityEvent(r.Context(), logging.SecurityEventMissingIdentity, "x-user header missing")
						writeError(w, http.StatusUnauthorized, unauthenticated.Message)
						return
					}
					logging.LogSecurityEvent(r.Context(), logging.SecurityEventInvalidIdentity, "malformed x-user header")
					writeError(w, http.StatusBadRequest, err.Error())
					return
				}
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole restricts access to identities holding one of roles.
// Must be used after Authenticate. Returns 403 otherwise.
func RequireRole(roles ...services.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentity(r.Context())
			if !ok {
				logging.LogSecurityEvent(r.Context(), logging.SecurityEventMissingIdentity, "role check without identity")
				writeError(w, http.StatusUnauthorized, "Unauthorized: 'x-user' header is missing")
				return
			}
			if err := identity.Authorize(roles...); err != nil {
				logging.LogSecurityEvent(r.Context(), logging.SecurityEventRoleDenied, "role not authorized")
				writeError(w, http.StatusForbidden, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetIdentity retrieves the caller identity from the request context.
func GetIdentity(ctx context.Context) (services.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(services.Identity)
	return identity, ok
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Message: message})
}
