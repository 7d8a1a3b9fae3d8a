package middleware

import "context"

type userHolder struct {
	userID int64
}

type holderKey struct{}

func withUserHolder(ctx context.Context, h *userHolder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}

func userHolderFrom(ctx context.Context) *userHolder {
	h, _ := ctx.Value(holderKey{}).(*userHolder)
	return h
}
