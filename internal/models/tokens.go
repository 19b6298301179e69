package models

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Encryptor protects the token values at rest
type Encryptor interface {
	Encrypt(value string) (encrypted string, err error)
	Decrypt(value string) (decrypted string, err error)
}

// AuthToken is a struct used to store and work with the access and refresh tokens of the console session
type AuthToken struct {
	Value     string
	ExpiresAt time.Time
	Type      OauthTokenType
}

// NewAuthToken creates a token of the given type. When the value is a JWT the expiry is read
// from its "exp" claim, the signature is not verified since only the backend can do that.
func NewAuthToken(tokenType OauthTokenType, value string) AuthToken {
	token := AuthToken{Value: value, Type: tokenType}
	claims := jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(value, &claims)
	if err == nil && claims.ExpiresAt != nil {
		token.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return token
}

// Encrypt encrypts the value of the token if an encryptor is provided
func (o AuthToken) Encrypt(enc Encryptor) (AuthToken, error) {
	if enc == nil {
		return o, nil
	}
	encValue, err := enc.Encrypt(o.Value)
	if err != nil {
		return AuthToken{}, err
	}
	output := o
	output.Value = encValue
	return output, nil
}

// Decrypt decrypts the value of the token if an encryptor is provided
func (o AuthToken) Decrypt(enc Encryptor) (AuthToken, error) {
	if enc == nil {
		return o, nil
	}
	decValue, err := enc.Decrypt(o.Value)
	if err != nil {
		return AuthToken{}, err
	}
	output := o
	output.Value = decValue
	return output, nil
}

// String implements the Stringer interface for printing the token in logs
func (o AuthToken) String() string {
	return fmt.Sprintf(
		"%s<Value: redacted, ExpiresAt: %s>",
		o.Type,
		o.ExpiresAt,
	)
}

// LogValue keeps the token value out of structured logs
func (o AuthToken) LogValue() slog.Value {
	return slog.StringValue(o.String())
}

// Expired is false when the expiry of the token is unknown.
func (o AuthToken) Expired() bool {
	if o.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().UTC().After(o.ExpiresAt)
}

func (o AuthToken) ExpiresSoon(margin time.Duration) bool {
	if o.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().UTC().Add(margin).After(o.ExpiresAt)
}
