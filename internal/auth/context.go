// Package auth provides authentication context helpers.
//
// This package is designed to be imported by both middleware and handler
// packages without causing import cycles.
package auth

import (
	"context"
	"net/http"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// userIDContextKey is the key used to store the authenticated user ID in context.
	userIDContextKey contextKey = "user_id"
)

// GetUserID retrieves the authenticated user ID from the context.
//
// Returns the empty string if no user is authenticated.
//
// Usage:
//
//	userID := auth.GetUserID(r.Context())
//	if userID == "" {
//	    // Handle unauthenticated request
//	}
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetUserIDFromRequest retrieves the authenticated user ID from the request context.
//
// This is a convenience wrapper around GetUserID that takes the request directly.
func GetUserIDFromRequest(r *http.Request) string {
	return GetUserID(r.Context())
}

// SetUserID stores a user ID in the context.
//
// This is typically called by authentication middleware after validating
// a bearer token.
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
