package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/skycastd/skycast/internal/auth"
)

// authRecord collects the request's authentication outcome for the access
// log. Logger plants an empty record in the context; Authenticate runs
// deeper in the chain and fills it in once the resolver has an answer. The
// record is written and read on the request goroutine only.
type authRecord struct {
	username string
	method   auth.Method
}

type authRecordKey struct{}

// recordAuth notes the resolved principal on the request's authRecord, if
// the request passed through Logger.
func recordAuth(r *http.Request, p auth.Principal) {
	if rec, ok := r.Context().Value(authRecordKey{}).(*authRecord); ok {
		rec.username = p.User.Username
		rec.method = p.Method
	}
}

// Logger writes one slog line per request: method, path, status, size,
// duration, request ID, remote address, and for authenticated requests the
// username and credential scheme. Client errors log at Warn and server
// errors at Error, so a tail of the log at Warn shows every failed auth
// attempt and broken poll without the healthy display traffic.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			rec := &authRecord{}
			r = r.WithContext(context.WithValue(r.Context(), authRecordKey{}, rec))

			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			switch {
			case ww.status >= 500:
				level = slog.LevelError
			case ww.status >= 400:
				level = slog.LevelWarn
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.status,
				"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
				"bytes", ww.bytes,
				"request_id", GetRequestID(r.Context()),
				"remote_addr", r.RemoteAddr,
			}
			if rec.username != "" {
				attrs = append(attrs, "user", rec.username, "auth_method", string(rec.method))
			}
			logger.Log(r.Context(), level, "request", attrs...)
		})
	}
}

// statusWriter captures the status code and body size on the way out.
type statusWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap exposes the wrapped ResponseWriter so http.Flusher and friends
// still assert through the chain.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
