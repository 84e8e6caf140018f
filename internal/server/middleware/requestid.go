package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

// RequestIDKey is the context key for the request ID.
const RequestIDKey contextKey = "request_id"

// maxClientRequestIDLen caps client-supplied X-Request-ID values. Display
// firmware and dashboards send their own trace IDs for support tickets;
// anything longer than this is replaced.
const maxClientRequestIDLen = 64

// RequestID tags every request with an ID that correlates the access log,
// auth warnings, and the X-Request-ID response header. A client-supplied ID
// within the length cap is kept so firmware trace IDs survive the round
// trip; otherwise a UUID v7 is minted, whose time-ordered prefix keeps log
// greps roughly chronological.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > maxClientRequestIDLen {
			id = uuid.Must(uuid.NewV7()).String()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RequestIDKey, id)))
	})
}

// GetRequestID returns the request's ID, or "" outside a request handled by
// RequestID.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
