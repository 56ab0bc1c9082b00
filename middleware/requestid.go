package middleware

import (
	"context"
	"net/http"
	"time"

	"playmap/common"

	"github.com/google/uuid"
)

// Context key type
type ctxKey string

const RequestIDKey ctxKey = "playmap.request_id"

// RequestID tags each request with an identifier (the caller's
// X-Request-ID when present, a fresh uuid otherwise), echoes it back in
// the response header, and emits one access-log line per request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		w.Header().Set("X-Request-ID", id)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r.WithContext(ctx))
		common.DebugLog("http: %s %s -> %d (%s) id=%s",
			r.Method, r.URL.Path, sw.status, time.Since(start).Round(time.Millisecond), id)
	})
}

// GetRequestID extracts the request identifier from the request context.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(RequestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// statusWriter captures the response code for the access log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
