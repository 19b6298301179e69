package mockbackend

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// accessClaims carries the generation of the access tokens so that the
// tests can expire every issued token at once
type accessClaims struct {
	Generation int `json:"gen"`
	jwt.RegisteredClaims
}

type refreshTokenEntry struct {
	username  string
	expiresAt time.Time
}

func (s *Server) issueAccessToken(username string) (string, error) {
	now := s.clock()
	s.lock.Lock()
	generation := s.generation
	s.lock.Unlock()
	id, err := s.refreshIDs.ID()
	if err != nil {
		return "", err
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Generation: generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenTTL)),
			ID:        id,
		},
	})
	return token.SignedString([]byte(s.config.JWTSecret))
}

func (s *Server) issueRefreshToken(username string) (string, error) {
	value, err := s.refreshIDs.ID()
	if err != nil {
		return "", err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.refreshTokens[value] = refreshTokenEntry{username: username, expiresAt: s.clock().Add(s.config.RefreshTokenTTL)}
	return value, nil
}

func (s *Server) keyFunc(token *jwt.Token) (interface{}, error) {
	return []byte(s.config.JWTSecret), nil
}

// verifyAccessToken returns the username the token was issued to
func (s *Server) verifyAccessToken(value string) (string, error) {
	claims := accessClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	_, err := parser.ParseWithClaims(value, &claims, s.keyFunc)
	if err != nil {
		return "", err
	}
	if !claims.VerifyExpiresAt(s.clock(), true) {
		return "", fmt.Errorf("the access token is expired")
	}
	s.lock.Lock()
	generation := s.generation
	s.lock.Unlock()
	if claims.Generation != generation {
		return "", fmt.Errorf("the access token was revoked")
	}
	return claims.Subject, nil
}

// verifyRefreshToken returns the username the refresh token was issued to
func (s *Server) verifyRefreshToken(value string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	entry, found := s.refreshTokens[value]
	if !found {
		return "", fmt.Errorf("unknown refresh token")
	}
	if s.clock().After(entry.expiresAt) {
		delete(s.refreshTokens, value)
		return "", fmt.Errorf("the refresh token is expired")
	}
	return entry.username, nil
}

// ExpireAccessTokens invalidates every access token issued so far
func (s *Server) ExpireAccessTokens() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.generation++
}

// RevokeRefreshTokens invalidates every refresh token issued so far
func (s *Server) RevokeRefreshTokens() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.refreshTokens = map[string]refreshTokenEntry{}
}

// RefreshCount returns how many successful and failed refresh calls were received
func (s *Server) RefreshCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.refreshCalls
}
