package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextCompanyKey ctxKey = "companyID"
)

// DefaultStoreTimeout bounds a single store round trip.
const DefaultStoreTimeout = 25 * time.Second

// CompanyIDFromContext returns the company the caller currently operates in, or "".
func CompanyIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if companyID, ok := ctx.Value(ContextCompanyKey).(string); ok {
		return companyID
	}
	return ""
}

func ContextWithCompanyID(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, ContextCompanyKey, companyID)
}

// WithTimeout returns a context with timeout, defaulting to DefaultStoreTimeout if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, duration)
}
