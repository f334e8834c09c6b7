package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	r "github.com/go-redis/redis/v8"
)

// MockRedisClient is an in-memory mock for the Redis client.
type MockRedisClient struct {
	Client
	mu   sync.RWMutex
	data map[string]interface{}
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		data: make(map[string]interface{}),
	}
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *r.StringCmd {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cmd := r.NewStringCmd(ctx)
	if value, ok := m.data[key]; ok {
		cmd.SetVal(fmt.Sprintf("%v", value))
	} else {
		cmd.SetVal("")
		cmd.SetErr(errors.New("key not found"))
	}
	return cmd
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	cmd := r.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *r.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			deleted++
		}
	}
	cmd := r.NewIntCmd(ctx)
	cmd.SetVal(deleted)
	return cmd
}

func (m *MockRedisClient) Keys(ctx context.Context, pattern string) *r.StringSliceCmd {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for key := range m.data {
		if pattern == "*" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	cmd := r.NewStringSliceCmd(ctx)
	cmd.SetVal(keys)
	return cmd
}

func (m *MockRedisClient) Ping(ctx context.Context) *r.StatusCmd {
	cmd := r.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}
