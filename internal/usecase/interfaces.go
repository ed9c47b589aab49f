package usecase

import "context"

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// AvatarPrefetcher warms avatar images ahead of rendering. Prefetch may block;
// callers run it in the background.
type AvatarPrefetcher interface {
	Prefetch(ctx context.Context, urls []string)
}
