// Package middleware contains HTTP middleware for the MoodGate service.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/moodmate/moodgate/internal/auth"
	"github.com/moodmate/moodgate/internal/handler"
	"github.com/moodmate/moodgate/internal/identity"
)

// =============================================================================
// Auth Middleware Configuration
// =============================================================================

// AuthMiddleware provides authentication middleware functionality.
//
// Identity lives outside this service: callers present a bearer token and
// the verifier maps it to a user ID. This struct holds the dependencies
// needed by auth middleware functions.
type AuthMiddleware struct {
	verifier identity.Verifier
	logger   *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(verifier identity.Verifier, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
	}
}

// =============================================================================
// RequireUser Middleware
// =============================================================================

// RequireUser is middleware that requires an authenticated caller.
//
// This middleware:
// 1. Extracts the bearer token from the Authorization header
// 2. Resolves it to a user ID through the identity verifier
// 3. Stores the user ID in the request context
// 4. Returns 401 with a JSON error body when the token is missing or unknown
//
// The user ID can be retrieved in handlers using:
//
//	userID := auth.GetUserID(r.Context())
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}

		userID, ok := m.verifier.Verify(token)
		if !ok {
			m.logger.Info("rejected bearer token",
				"path", r.URL.Path,
				"method", r.Method,
			)
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}

		// Set user ID in context
		ctx := auth.SetUserID(r.Context(), userID)
		r = r.WithContext(ctx)

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Request Helpers
// =============================================================================

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Returns the empty string when the header is absent or malformed.
// The scheme comparison is case-insensitive per RFC 7235.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided, meaning the first middleware
// in the slice is the outermost (runs first on request, last on response).
//
// Example:
//
//	stack := Stack(loggingMw, authMw.RequireUser)
//	mux.Handle("POST /api/ai/analyze", stack(analyzeHandler))
//
// This is equivalent to:
//
//	mux.Handle("POST /api/ai/analyze",
//	    loggingMw(authMw.RequireUser(analyzeHandler)))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// =============================================================================
// Compile-time checks
// =============================================================================

// Ensure middleware functions have correct signature
var (
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireUser
)
