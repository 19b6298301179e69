package models

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockEncryptor struct {
	suffix string
}

func (m *MockEncryptor) Encrypt(value string) (encrypted string, err error) {
	return value + m.suffix, nil
}

func (m *MockEncryptor) Decrypt(value string) (decrypted string, err error) {
	return strings.TrimSuffix(value, m.suffix), nil
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expiresAt), Subject: "admin@gkmit"}
	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return value
}

func TestEncrypt(t *testing.T) {
	encryptSuffix := "_encrypted"
	encryptor := MockEncryptor{encryptSuffix}
	token := AuthToken{
		Value:     "secretValue",
		ExpiresAt: time.Now().Add(time.Hour * 4),
		Type:      AccessTokenType,
	}
	encToken, err := token.Encrypt(&encryptor)
	require.NoError(t, err)
	assert.Equal(t, token.Value+encryptSuffix, encToken.Value)
	encToken.Value = token.Value
	assert.Equal(t, token, encToken)
}

func TestDecrypt(t *testing.T) {
	encryptSuffix := "_encrypted"
	encryptor := MockEncryptor{encryptSuffix}
	token := AuthToken{
		Value: "secretValue",
		Type:  RefreshTokenType,
	}
	encToken, err := token.Encrypt(&encryptor)
	require.NoError(t, err)
	decToken, err := encToken.Decrypt(&encryptor)
	require.NoError(t, err)
	assert.Equal(t, token.Value+encryptSuffix, encToken.Value)
	assert.Equal(t, token, decToken)
}

func TestNoEncryptor(t *testing.T) {
	token := AuthToken{Value: "secretValue", Type: AccessTokenType}
	encToken, err := token.Encrypt(nil)
	require.NoError(t, err)
	decToken, err := encToken.Decrypt(nil)
	require.NoError(t, err)
	assert.Equal(t, token, encToken)
	assert.Equal(t, token, decToken)
}

func TestTokenStringIsRedacted(t *testing.T) {
	token := AuthToken{Value: "secretValue", Type: AccessTokenType}
	assert.NotContains(t, token.String(), "secretValue")
	assert.Contains(t, token.String(), "redacted")
}

func TestNewAuthTokenReadsJWTExpiry(t *testing.T) {
	expiresAt := time.Now().Add(time.Minute * 15).Truncate(time.Second)
	token := NewAuthToken(AccessTokenType, signedToken(t, expiresAt))
	assert.True(t, expiresAt.Equal(token.ExpiresAt))
	assert.False(t, token.Expired())
	assert.True(t, token.ExpiresSoon(time.Hour))
	assert.False(t, token.ExpiresSoon(time.Minute))
}

func TestNewAuthTokenExpired(t *testing.T) {
	token := NewAuthToken(AccessTokenType, signedToken(t, time.Now().Add(-time.Minute)))
	assert.True(t, token.Expired())
}

func TestNewAuthTokenOpaqueValue(t *testing.T) {
	token := NewAuthToken(RefreshTokenType, "c0ffee-opaque-refresh-token")
	assert.True(t, token.ExpiresAt.IsZero())
	assert.False(t, token.Expired())
	assert.False(t, token.ExpiresSoon(time.Hour))
	assert.Equal(t, "c0ffee-opaque-refresh-token", token.Value)
}

func TestTokenTypeValid(t *testing.T) {
	assert.True(t, AccessTokenType.Valid())
	assert.True(t, RefreshTokenType.Valid())
	assert.False(t, OauthTokenType("idToken").Valid())
}

func TestTokenTypeText(t *testing.T) {
	raw, err := RefreshTokenType.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "refreshToken", string(raw))

	var parsed OauthTokenType
	assert.NoError(t, parsed.UnmarshalText([]byte("accessToken")))
	assert.Equal(t, AccessTokenType, parsed)
	assert.Error(t, parsed.UnmarshalText([]byte("idToken")))
	assert.Equal(t, AccessTokenType, parsed)
}

func TestAuthTokenLogValueIsRedacted(t *testing.T) {
	buf := bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	token := AuthToken{Value: "super-secret-token", Type: RefreshTokenType}

	logger.Info("TOKEN STORE", "message", "saving token", "token", token)

	assert.NotContains(t, buf.String(), "super-secret-token")
	assert.Contains(t, buf.String(), "Value: redacted")
}
