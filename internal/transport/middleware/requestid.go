package middleware

import (
	"net/http"

	"github.com/frahmantamala/expense-reimbursement/pkg/logger"
	"github.com/google/uuid"
)

const TraceHeader = "X-Trace-ID"

const maxTraceIDLen = 64

// validTraceID accepts short ids made of letters, digits, '-' and '_' so clients cannot inject into logs.
func validTraceID(id string) bool {
	if id == "" || len(id) > maxTraceIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// RequestID reuses a well-formed incoming trace id or mints one, and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if !validTraceID(traceID) {
			traceID = uuid.NewString()
		}

		w.Header().Set(TraceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(logger.WithTraceID(r.Context(), traceID)))
	})
}
