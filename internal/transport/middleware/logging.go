package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/expense-reimbursement/pkg/logger"
)

const (
	// maxLoggedBody caps how much of a request or response body is kept for the access log.
	maxLoggedBody = 4 << 10
	redacted      = "[FILTERED]"
)

// secretKeys are matched as substrings of lower-cased header names and JSON keys.
var secretKeys = []string{
	"password", "token", "authorization", "secret", "api_key", "session", "credential", "cookie",
}

// documentKeys carry taxpayer ids; only their last digits are logged.
var documentKeys = map[string]bool{
	"supplier_document": true,
}

func isSecret(name string) bool {
	name = strings.ToLower(name)
	for _, k := range secretKeys {
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}

func maskDocument(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok || len(s) <= 4 {
		return redacted
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// LoggingMiddleware writes one access entry when a request arrives and one when it completes.
func LoggingMiddleware(lg *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			traceID := logger.TraceID(r.Context())

			lg.InfoContext(r.Context(), "incoming request",
				"request_id", traceID,
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"company_id", r.Header.Get("X-Company-ID"),
				"headers", redactHeaders(r.Header),
				"body", peekBody(r),
			)

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			switch {
			case rec.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case rec.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			lg.Log(r.Context(), level, "response",
				"request_id", traceID,
				"method", r.Method,
				"path", r.URL.Path,
				"status_code", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", rec.size,
				"body", redactBody(rec.head.Bytes()),
			)
		})
	}
}

// recorder keeps the status, the byte count and the first maxLoggedBody bytes of a response.
type recorder struct {
	http.ResponseWriter
	status int
	size   int
	head   bytes.Buffer
}

func (rw *recorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(b []byte) (int, error) {
	if room := maxLoggedBody - rw.head.Len(); room > 0 {
		rw.head.Write(b[:min(room, len(b))])
	}
	rw.size += len(b)
	return rw.ResponseWriter.Write(b)
}

// peekBody reads the head of a request body for logging and puts it back in front of the rest.
// Multipart uploads (receipts and statements) are not read.
func peekBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return "[multipart]"
	}
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	return redactBody(head)
}

func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if isSecret(name) {
			out[name] = redacted
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		if isSecret(string(body)) {
			return "[FILTERED - Contains sensitive data]"
		}
		return string(body)
	}

	out, err := json.Marshal(redactJSON(doc))
	if err != nil {
		return "[ERROR - Failed to marshal filtered JSON]"
	}
	return string(out)
}

func redactJSON(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			switch {
			case isSecret(k):
				out[k] = redacted
			case documentKeys[strings.ToLower(k)]:
				out[k] = maskDocument(val)
			default:
				out[k] = redactJSON(val)
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = redactJSON(t[i])
		}
		return out
	default:
		return v
	}
}
