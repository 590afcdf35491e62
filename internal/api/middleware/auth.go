package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/taskforest/taskforest-api/internal/api/shared"
	"github.com/taskforest/taskforest-api/internal/domain"
	"github.com/taskforest/taskforest-api/internal/redact"
	"github.com/taskforest/taskforest-api/internal/service/auth"
	"github.com/taskforest/taskforest-api/internal/store"
)

// TokenCookieName is the cookie clients may use to carry the bearer credential.
const TokenCookieName = "token"

// AuthMiddleware provides bearer-token authentication for routes. The
// credential may arrive in the token cookie, the Authorization header, or a
// bare Bearer header; the first one present wins. A valid token is resolved
// to its user before the request reaches the handlers.
type AuthMiddleware struct {
	jwtService auth.JWTService
	userStore  store.UserStore
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService, userStore store.UserStore) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		userStore:  userStore,
	}
}

// extractToken pulls the bearer credential from the request, checking the
// token cookie, then the Authorization header, then the Bearer header.
// Returns the empty string when no credential is present.
func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	return r.Header.Get("Bearer")
}

// Authenticate validates the bearer credential, resolves it to a user, and
// adds the user identity to the request context for authorized requests.
// Missing or invalid credentials get a 401 response with the token cookie
// cleared.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			m.unauthorized(w, r, auth.ErrMissingToken)
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			switch err {
			case auth.ErrExpiredToken, auth.ErrInvalidToken, auth.ErrTokenNotYetValid, auth.ErrWrongTokenType:
				m.unauthorized(w, r, err)
			default:
				slog.Error("failed to validate token", "error", redact.Error(err))
				shared.RespondWithError(
					w,
					r,
					http.StatusInternalServerError,
					"Authentication error",
				)
			}
			return
		}

		// The token must still resolve to an existing user.
		user, err := m.userStore.GetByID(r.Context(), claims.UserID)
		if err != nil {
			if store.IsNotFoundError(err) {
				m.unauthorized(w, r, err)
				return
			}
			slog.Error("failed to resolve token user", "error", redact.Error(err))
			shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			return
		}

		ctx := context.WithValue(r.Context(), shared.UserIDContextKey, user.ID)
		ctx = context.WithValue(ctx, shared.UserContextKey, user)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// unauthorized sends the 401 response and clears any cookie credential so a
// stale cookie doesn't keep failing subsequent requests.
func (m *AuthMiddleware) unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	slog.Debug("authentication failed", "error", redact.Error(err))

	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required.")
}

// GetUserID extracts the authenticated user's ID from the request context.
// Returns the user ID and a boolean indicating if it was found.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	return userID, ok
}

// GetUser extracts the authenticated user from the request context.
// Returns the user and a boolean indicating if it was found.
func GetUser(r *http.Request) (*domain.User, bool) {
	user, ok := r.Context().Value(shared.UserContextKey).(*domain.User)
	return user, ok
}
