package audit

import (
	"net/http"
	"strings"
)

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// TrailMiddleware records a request trail: every mutating request, every
// error response, and every read of a sensitive endpoint produces an audit
// entry. Plain successful reads are skipped to keep the log useful.
func TrailMiddleware(recorder *Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			if !shouldRecord(r, wrapped.statusCode) {
				return
			}

			e := Entry{
				Action:      ActionHTTPRequest,
				Severity:    statusSeverity(wrapped.statusCode),
				Description: r.Method + " " + r.URL.Path,
				Method:      r.Method,
				Endpoint:    r.URL.Path,
				IPAddress:   clientIP(r),
				UserAgent:   r.UserAgent(),
			}
			recorder.Log(r.Context(), e)
		})
	}
}

// shouldRecord decides whether a request belongs in the trail
func shouldRecord(r *http.Request, statusCode int) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
	default:
		return true
	}

	if statusCode >= 400 {
		return true
	}

	return isSensitiveEndpoint(r.URL.Path)
}

// isSensitiveEndpoint reports whether reads of the path are themselves worth
// auditing.
func isSensitiveEndpoint(path string) bool {
	return strings.HasPrefix(path, "/admin")
}

// statusSeverity maps a response status to an entry severity: server errors
// are CRITICAL, auth failures are WARNING, everything else is INFO.
func statusSeverity(statusCode int) Severity {
	switch {
	case statusCode >= 500:
		return SeverityCritical
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// clientIP extracts the originating client IP, preferring proxy headers
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
