// Package handlers contains the HTTP handlers for the Plan-It API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
)

// Unexported context key type to prevent collisions.
type userIDKey struct{}

var ctxKeyUserID = userIDKey{}

// UserID retrieves the authenticated user ID from the request context.
func UserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(ctxKeyUserID).(string)
	return userID, ok && userID != ""
}

// WithUserID returns a context carrying the authenticated user ID. The
// auth middleware sets it; tests may call it directly.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the standard error body {"message": ...}.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"message": message})
}

// requireUser pulls the authenticated user from the context, replying
// 401 when absent. Handlers behind the auth middleware always find it;
// the check guards against misregistered routes.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := UserID(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	return userID, true
}
