package models

import "fmt"

// OauthTokenType is the kind of a session credential. The values double as the keys
// under which the credentials are persisted.
type OauthTokenType string

const AccessTokenType OauthTokenType = "accessToken"
const RefreshTokenType OauthTokenType = "refreshToken"

func (o OauthTokenType) Valid() bool {
	return o == AccessTokenType || o == RefreshTokenType
}

func (o OauthTokenType) MarshalText() ([]byte, error) {
	return []byte(o), nil
}

func (o *OauthTokenType) UnmarshalText(text []byte) error {
	parsed := OauthTokenType(text)
	if !parsed.Valid() {
		return fmt.Errorf("unknown token type %q", string(text))
	}
	*o = parsed
	return nil
}
