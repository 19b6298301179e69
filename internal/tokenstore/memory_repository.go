package tokenstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/gkmit/notify-console/internal/gwerrors"
	"github.com/gkmit/notify-console/internal/models"
)

// MemoryRepository keeps the session credentials in process memory only
type MemoryRepository struct {
	lock   sync.RWMutex
	tokens map[models.OauthTokenType]models.AuthToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: map[models.OauthTokenType]models.AuthToken{}}
}

func (m *MemoryRepository) get(tokenType models.OauthTokenType) (models.AuthToken, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	token, found := m.tokens[tokenType]
	if !found {
		return models.AuthToken{}, gwerrors.ErrTokenNotFound
	}
	return token, nil
}

func (m *MemoryRepository) set(expected models.OauthTokenType, token models.AuthToken) error {
	if token.Type != expected {
		return fmt.Errorf("token is not of the right type")
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.tokens[token.Type] = token
	return nil
}

func (m *MemoryRepository) GetAccessToken(_ context.Context) (models.AuthToken, error) {
	return m.get(models.AccessTokenType)
}

func (m *MemoryRepository) SetAccessToken(_ context.Context, token models.AuthToken) error {
	return m.set(models.AccessTokenType, token)
}

func (m *MemoryRepository) GetRefreshToken(_ context.Context) (models.AuthToken, error) {
	return m.get(models.RefreshTokenType)
}

func (m *MemoryRepository) SetRefreshToken(_ context.Context, token models.AuthToken) error {
	return m.set(models.RefreshTokenType, token)
}

func (m *MemoryRepository) RemoveTokens(_ context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.tokens = map[models.OauthTokenType]models.AuthToken{}
	return nil
}
