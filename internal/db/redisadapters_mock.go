package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Implements the LimitedRedisClient interface in memory.
// Only suitable for testing and local development.
// The value set for the IntCmd or similar results is always 1 regardless of how many records were affected.
// Contexts are completely ignored and expiry times are recorded but never enforced.
type MockRedisClient struct {
	lock    sync.Mutex
	store   map[string]map[string]string
	expires map[string]time.Time
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{store: map[string]map[string]string{}, expires: map[string]time.Time{}}
}

func convertValuesToMap(values ...any) (map[string]string, error) {
	if len(values)%2 != 0 {
		return map[string]string{}, fmt.Errorf("number of provided values must be even")
	}
	output := map[string]string{}
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			return map[string]string{}, fmt.Errorf("hash field names must be strings, got %T", values[i])
		}
		output[key] = fmt.Sprint(values[i+1])
	}
	return output, nil
}

func (m *MockRedisClient) HSet(_ context.Context, key string, values ...any) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.IntCmd{}
	val, err := convertValuesToMap(values...)
	if err != nil {
		res.SetErr(err)
		return &res
	}
	existing, found := m.store[key]
	if !found {
		existing = map[string]string{}
		m.store[key] = existing
	}
	for k, v := range val {
		existing[k] = v
	}
	res.SetVal(1)
	return &res
}

func (m *MockRedisClient) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.MapStringStringCmd{}
	output := map[string]string{}
	for k, v := range m.store[key] {
		output[k] = v
	}
	res.SetVal(output)
	return &res
}

func (m *MockRedisClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, k := range keys {
		delete(m.store, k)
		delete(m.expires, k)
	}
	res := redis.IntCmd{}
	res.SetVal(1)
	return &res
}

func (m *MockRedisClient) ExpireAt(_ context.Context, key string, tm time.Time) *redis.BoolCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.BoolCmd{}
	if _, found := m.store[key]; !found {
		res.SetVal(false)
		return &res
	}
	m.expires[key] = tm
	res.SetVal(true)
	return &res
}

func (m *MockRedisClient) Persist(_ context.Context, key string) *redis.BoolCmd {
	m.lock.Lock()
	defer m.lock.Unlock()
	res := redis.BoolCmd{}
	_, found := m.expires[key]
	delete(m.expires, key)
	res.SetVal(found)
	return &res
}

func (m *MockRedisClient) Ping(_ context.Context) *redis.StatusCmd {
	res := redis.StatusCmd{}
	res.SetVal("PONG")
	return &res
}

// ExpiresAt returns the expiry recorded for a key, used in tests
func (m *MockRedisClient) ExpiresAt(key string) (time.Time, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	tm, found := m.expires[key]
	return tm, found
}
