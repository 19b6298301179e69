package tokenstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gkmit/notify-console/internal/config"
	"github.com/gkmit/notify-console/internal/db"
	"github.com/gkmit/notify-console/internal/gwerrors"
	"github.com/gkmit/notify-console/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// Check that both repositories implement models.TokenRepository.
// This test would fail to compile otherwise.
func TestRepositoriesImplementInterface(t *testing.T) {
	_ = models.TokenRepository(NewMemoryRepository())
	_ = models.TokenRepository(&db.RedisAdapter{})
}

func newStores(t *testing.T) map[string]*TokenStore {
	memory, err := NewTokenStore(WithConfig(config.CredentialsConfig{Type: config.CredentialsTypeMemory}))
	require.NoError(t, err)
	redisMock, err := NewTokenStore(WithConfig(config.CredentialsConfig{
		Type:            config.CredentialsTypeRedisMock,
		Namespace:       "test",
		TokenEncryption: config.TokenEncryptionConfig{Enabled: true, SecretKey: "0123456789abcdef0123456789abcdef"},
	}))
	require.NoError(t, err)
	return map[string]*TokenStore{"memory": memory, "redis-mock": redisMock}
}

func TestSessionLifecycle(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			assert.False(t, store.IsAuthenticated(ctx))
			_, err := store.Session(ctx)
			assert.ErrorIs(t, err, gwerrors.ErrTokenNotFound)

			err = store.SetSession(ctx, &oauth2.Token{AccessToken: "access-1", RefreshToken: "refresh-1"})
			require.NoError(t, err)
			assert.True(t, store.IsAuthenticated(ctx))
			session, err := store.Session(ctx)
			require.NoError(t, err)
			assert.Equal(t, "access-1", session.AccessToken)
			assert.Equal(t, "refresh-1", session.RefreshToken)

			require.NoError(t, store.SetAccessToken(ctx, "access-2"))
			accessToken, err := store.AccessToken(ctx)
			require.NoError(t, err)
			assert.Equal(t, "access-2", accessToken)
			refreshToken, err := store.RefreshToken(ctx)
			require.NoError(t, err)
			assert.Equal(t, "refresh-1", refreshToken)

			require.NoError(t, store.Clear(ctx))
			assert.False(t, store.IsAuthenticated(ctx))
			_, err = store.RefreshToken(ctx)
			assert.ErrorIs(t, err, gwerrors.ErrTokenNotFound)
		})
	}
}

func TestSessionExpiryFromJWT(t *testing.T) {
	ctx := context.Background()
	store, err := NewTokenStore(WithTokenRepository(NewMemoryRepository()))
	require.NoError(t, err)
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	).SignedString([]byte("some-signing-key"))
	require.NoError(t, err)

	require.NoError(t, store.SetSession(ctx, &oauth2.Token{AccessToken: signed, RefreshToken: "r"}))
	session, err := store.Session(ctx)
	require.NoError(t, err)

	assert.True(t, exp.Equal(session.Expiry))
	assert.True(t, session.Valid())
}

func TestSetSessionRequiresBothTokens(t *testing.T) {
	ctx := context.Background()
	store, err := NewTokenStore(WithTokenRepository(NewMemoryRepository()))
	require.NoError(t, err)

	assert.ErrorIs(t, store.SetSession(ctx, nil), gwerrors.ErrMissingCredentials)
	assert.ErrorIs(t, store.SetSession(ctx, &oauth2.Token{AccessToken: "a"}), gwerrors.ErrMissingCredentials)
	assert.ErrorIs(t, store.SetAccessToken(ctx, ""), gwerrors.ErrMissingCredentials)
	assert.False(t, store.IsAuthenticated(ctx))
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store, err := NewTokenStore(WithTokenRepository(NewMemoryRepository()))
	require.NoError(t, err)
	require.NoError(t, store.SetSession(ctx, &oauth2.Token{AccessToken: "a", RefreshToken: "r"}))
	wg := sync.WaitGroup{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.SetAccessToken(ctx, "b")
			_, _ = store.Session(ctx)
		}()
	}
	wg.Wait()
	accessToken, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", accessToken)
}

func TestNewTokenStoreErrors(t *testing.T) {
	_, err := NewTokenStore()
	assert.ErrorContains(t, err, "not initialized")
	_, err = NewTokenStore(WithConfig(config.CredentialsConfig{Type: "postgres"}))
	assert.Error(t, err)
}
