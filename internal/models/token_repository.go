package models

import "context"

// TokenRepository represents the interface used to persist the session credentials.
// There is a single session per repository, an optional namespace is handled by the implementation.
type TokenRepository interface {
	AccessTokenGetter
	AccessTokenSetter
	RefreshTokenGetter
	RefreshTokenSetter
	TokensRemover
}

type AccessTokenGetter interface {
	GetAccessToken(ctx context.Context) (AuthToken, error)
}

type AccessTokenSetter interface {
	SetAccessToken(ctx context.Context, token AuthToken) error
}

type RefreshTokenGetter interface {
	GetRefreshToken(ctx context.Context) (AuthToken, error)
}

type RefreshTokenSetter interface {
	SetRefreshToken(ctx context.Context, token AuthToken) error
}

type TokensRemover interface {
	RemoveTokens(ctx context.Context) error
}
