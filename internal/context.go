package internal

import (
	"context"
	"time"

	coreuser "github.com/frahmantamala/opsboard/internal/core/user"
)

type ctxKey string

const (
	ContextUserKey   ctxKey = "user"
	ContextUserIDKey ctxKey = "userID"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if userID, ok := ctx.Value(ContextUserIDKey).(string); ok {
		return userID
	}
	return ""
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextUserIDKey, userID)
}

// ContextWithPrincipal stores the authenticated user for the lifetime of a request.
func ContextWithPrincipal(ctx context.Context, p *coreuser.Principal) context.Context {
	ctx = context.WithValue(ctx, ContextUserKey, p)
	return ContextWithUserID(ctx, p.ID)
}

func PrincipalFromContext(ctx context.Context) (*coreuser.Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(ContextUserKey).(*coreuser.Principal)
	return p, ok && p != nil
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
