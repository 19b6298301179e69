package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gkmit/notify-console/internal/config"
	"github.com/gkmit/notify-console/internal/db"
	"github.com/gkmit/notify-console/internal/gwerrors"
	"github.com/gkmit/notify-console/internal/models"
	"golang.org/x/oauth2"
)

// TokenStore holds the credentials of the console session. Every read goes to the
// repository so that a token written by a refresh is visible to all callers at once.
type TokenStore struct {
	tokenRepo models.TokenRepository
}

// AccessToken returns the current access token value or gwerrors.ErrTokenNotFound
func (ts *TokenStore) AccessToken(ctx context.Context) (string, error) {
	token, err := ts.tokenRepo.GetAccessToken(ctx)
	if err != nil {
		return "", err
	}
	return token.Value, nil
}

// RefreshToken returns the current refresh token value or gwerrors.ErrTokenNotFound
func (ts *TokenStore) RefreshToken(ctx context.Context) (string, error) {
	token, err := ts.tokenRepo.GetRefreshToken(ctx)
	if err != nil {
		return "", err
	}
	return token.Value, nil
}

// Session returns both credentials as an oauth2 token. The refresh token may be empty.
// When there is no access token gwerrors.ErrTokenNotFound is returned.
func (ts *TokenStore) Session(ctx context.Context) (*oauth2.Token, error) {
	accessToken, err := ts.tokenRepo.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	output := &oauth2.Token{
		AccessToken: accessToken.Value,
		TokenType:   "Bearer",
		Expiry:      accessToken.ExpiresAt,
	}
	refreshToken, err := ts.tokenRepo.GetRefreshToken(ctx)
	switch {
	case err == nil:
		output.RefreshToken = refreshToken.Value
	case errors.Is(err, gwerrors.ErrTokenNotFound):
	default:
		return nil, err
	}
	return output, nil
}

// SetSession stores the credentials returned by a login
func (ts *TokenStore) SetSession(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: the session has no access token", gwerrors.ErrMissingCredentials)
	}
	if token.RefreshToken == "" {
		return fmt.Errorf("%w: the session has no refresh token", gwerrors.ErrMissingCredentials)
	}
	err := ts.tokenRepo.SetAccessToken(ctx, models.NewAuthToken(models.AccessTokenType, token.AccessToken))
	if err != nil {
		return err
	}
	err = ts.tokenRepo.SetRefreshToken(ctx, models.NewAuthToken(models.RefreshTokenType, token.RefreshToken))
	if err != nil {
		return err
	}
	slog.Debug("TOKEN STORE", "message", "session stored")
	return nil
}

// SetAccessToken replaces the access token, keeping the refresh token as is
func (ts *TokenStore) SetAccessToken(ctx context.Context, value string) error {
	if value == "" {
		return fmt.Errorf("%w: empty access token", gwerrors.ErrMissingCredentials)
	}
	return ts.tokenRepo.SetAccessToken(ctx, models.NewAuthToken(models.AccessTokenType, value))
}

// Clear removes both credentials
func (ts *TokenStore) Clear(ctx context.Context) error {
	slog.Debug("TOKEN STORE", "message", "clearing session")
	return ts.tokenRepo.RemoveTokens(ctx)
}

// IsAuthenticated reports whether an access token is present
func (ts *TokenStore) IsAuthenticated(ctx context.Context) bool {
	_, err := ts.AccessToken(ctx)
	return err == nil
}

type TokenStoreOption func(*TokenStore) error

func WithConfig(credentialsConfig config.CredentialsConfig) TokenStoreOption {
	return func(ts *TokenStore) error {
		repo, err := NewTokenRepository(credentialsConfig)
		if err != nil {
			return err
		}
		ts.tokenRepo = repo
		return nil
	}
}

func WithTokenRepository(repo models.TokenRepository) TokenStoreOption {
	return func(ts *TokenStore) error {
		ts.tokenRepo = repo
		return nil
	}
}

// NewTokenRepository creates the repository selected by the credentials configuration
func NewTokenRepository(credentialsConfig config.CredentialsConfig) (models.TokenRepository, error) {
	switch credentialsConfig.Type {
	case config.CredentialsTypeMemory:
		return NewMemoryRepository(), nil
	case config.CredentialsTypeRedis, config.CredentialsTypeRedisMock:
		return db.NewRedisAdapter(db.WithCredentialsConfig(credentialsConfig))
	default:
		return nil, fmt.Errorf("unrecognized credentials type %v", credentialsConfig.Type)
	}
}

func NewTokenStore(options ...TokenStoreOption) (*TokenStore, error) {
	ts := TokenStore{}
	for _, opt := range options {
		err := opt(&ts)
		if err != nil {
			return &TokenStore{}, err
		}
	}
	if ts.tokenRepo == nil {
		return &TokenStore{}, fmt.Errorf("token repository not initialized")
	}
	return &ts, nil
}
