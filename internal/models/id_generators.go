package models

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// IDGenerator creates unique identifiers
type IDGenerator interface {
	ID() (string, error)
}

// ULIDGenerator creates lexically sortable IDs, used for the notification message IDs
type ULIDGenerator struct{}

func (ULIDGenerator) ID() (string, error) {
	return ulid.Make().String(), nil
}

// UUIDGenerator creates random UUIDs, used for the refresh tokens and the access token IDs
type UUIDGenerator struct{}

func (UUIDGenerator) ID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
