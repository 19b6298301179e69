package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gkmit/notify-console/internal/gwerrors"
	"github.com/gkmit/notify-console/internal/models"
)

const tokenExpiresAtLeeway time.Duration = 10 * time.Second

// GetAccessToken reads the access token of the session, decrypting it if necessary
func (r RedisAdapter) GetAccessToken(ctx context.Context) (models.AuthToken, error) {
	return r.getAuthToken(ctx, models.AccessTokenType)
}

// GetRefreshToken reads the refresh token of the session, decrypting it if necessary
func (r RedisAdapter) GetRefreshToken(ctx context.Context) (models.AuthToken, error) {
	return r.getAuthToken(ctx, models.RefreshTokenType)
}

// SetAccessToken writes the access token of the session. The access token is kept even
// past its expiry since an expired token is what triggers a refresh on the backend.
func (r RedisAdapter) SetAccessToken(ctx context.Context, token models.AuthToken) error {
	if token.Type != models.AccessTokenType {
		return fmt.Errorf("token is not of the right type")
	}
	err := r.setAuthToken(ctx, token)
	if err != nil {
		return err
	}
	return r.rdb.Persist(ctx, r.key(string(token.Type))).Err()
}

// SetRefreshToken writes the refresh token of the session. If the expiry of the refresh
// token is known the key is set to expire shortly after it.
func (r RedisAdapter) SetRefreshToken(ctx context.Context, token models.AuthToken) error {
	if token.Type != models.RefreshTokenType {
		return fmt.Errorf("token is not of the right type")
	}
	err := r.setAuthToken(ctx, token)
	if err != nil {
		return err
	}
	key := r.key(string(token.Type))
	if token.ExpiresAt.IsZero() {
		return r.rdb.Persist(ctx, key).Err()
	}
	return r.rdb.ExpireAt(ctx, key, token.ExpiresAt.Add(tokenExpiresAtLeeway)).Err()
}

// RemoveTokens deletes both credentials of the session
func (r RedisAdapter) RemoveTokens(ctx context.Context) error {
	slog.Debug("TOKEN STORE", "message", "removing tokens", "namespace", r.namespace)
	return r.rdb.Del(
		ctx,
		r.key(string(models.AccessTokenType)),
		r.key(string(models.RefreshTokenType)),
	).Err()
}

// getAuthToken reads a specific token from redis, decrypting if necessary.
func (r RedisAdapter) getAuthToken(ctx context.Context, tokenType models.OauthTokenType) (models.AuthToken, error) {
	output := models.AuthToken{}
	raw, err := r.rdb.HGetAll(ctx, r.key(string(tokenType))).Result()
	if err != nil {
		return output, err
	}

	err = r.deserializeToStruct(raw, &output)
	if err != nil {
		if errors.Is(err, gwerrors.ErrMissingDBResource) {
			err = gwerrors.ErrTokenNotFound
		}
		return models.AuthToken{}, err
	}
	if output.Type != tokenType {
		return models.AuthToken{}, fmt.Errorf("stored token has type %q, expected %q", output.Type, tokenType)
	}

	decToken, err := output.Decrypt(r.encryptor)
	if err != nil {
		return models.AuthToken{}, err
	}
	return decToken, nil
}

func (r RedisAdapter) setAuthToken(ctx context.Context, token models.AuthToken) error {
	if !token.Type.Valid() {
		return fmt.Errorf("unknown token type: %s", token.Type)
	}

	encToken, err := token.Encrypt(r.encryptor)
	if err != nil {
		return err
	}

	slog.Debug(
		"TOKEN STORE",
		"message",
		"saving token",
		"token",
		token,
	)

	return r.rdb.HSet(
		ctx,
		r.key(string(token.Type)),
		r.serializeStruct(encToken)...,
	).Err()
}
