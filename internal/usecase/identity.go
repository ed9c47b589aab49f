package usecase

import "context"

// Identity yields the authenticated user for the current call, or "".
type Identity interface {
	CurrentUserID(ctx context.Context) string
}

type ctxKey string

const userIDKey ctxKey = "uid"

// WithUserID attaches the authenticated user id to ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// ContextIdentity reads the user id placed on the context by the auth layer.
type ContextIdentity struct{}

func (ContextIdentity) CurrentUserID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	uid, _ := ctx.Value(userIDKey).(string)
	return uid
}

// StaticIdentity always reports the same user. Used by single-user hosts and tests.
type StaticIdentity string

func (s StaticIdentity) CurrentUserID(context.Context) string {
	return string(s)
}
