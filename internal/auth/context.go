package auth

import (
	"context"
	"time"
)

type principalKey struct{}

// Principal identifies the signed-in user behind a request or a fired alarm.
// Background work (alarm dispatch, push delivery) carries a Principal with
// only UserID set.
type Principal struct {
	UserID    int64
	SessionID int64
	ExpiresAt time.Time
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// UserID returns the signed-in user, or 0 when ctx carries none.
func UserID(ctx context.Context) int64 {
	p, _ := PrincipalFrom(ctx)
	return p.UserID
}

func Authenticated(ctx context.Context) bool {
	return UserID(ctx) != 0
}

// ForUser returns a context acting on behalf of userID outside a session.
func ForUser(ctx context.Context, userID int64) context.Context {
	return WithPrincipal(ctx, Principal{UserID: userID})
}
