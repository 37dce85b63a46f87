package prefs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const KeyOnboardingSeen = "onboarding_seen"

var ErrNotFound = errors.New("preference not found")

// Store keeps small per-user flags and settings.
type Store interface {
	Get(ctx context.Context, userID, key string) (string, error)
	Set(ctx context.Context, userID, key, value string) error
	Delete(ctx context.Context, userID, key string) error
	All(ctx context.Context, userID string) (map[string]string, error)
}

// RedisStore keeps each user's preferences in one hash.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func userKey(userID string) string {
	return fmt.Sprintf("prefs:%s", userID)
}

func (s *RedisStore) Get(ctx context.Context, userID, key string) (string, error) {
	v, err := s.client.HGet(ctx, userKey(userID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *RedisStore) Set(ctx context.Context, userID, key, value string) error {
	return s.client.HSet(ctx, userKey(userID), key, value).Err()
}

func (s *RedisStore) Delete(ctx context.Context, userID, key string) error {
	return s.client.HDel(ctx, userKey(userID), key).Err()
}

func (s *RedisStore) All(ctx context.Context, userID string) (map[string]string, error) {
	return s.client.HGetAll(ctx, userKey(userID)).Result()
}

// MemoryStore is used when no redis is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: map[string]map[string]string{}}
}

func (s *MemoryStore) Get(_ context.Context, userID, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.users[userID][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Set(_ context.Context, userID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users[userID] == nil {
		s.users[userID] = map[string]string{}
	}
	s.users[userID][key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users[userID], key)
	return nil
}

func (s *MemoryStore) All(_ context.Context, userID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.users[userID]))
	for k, v := range s.users[userID] {
		out[k] = v
	}
	return out, nil
}

// NewStore picks redis when a client is available.
func NewStore(client *redis.Client) Store {
	if client == nil {
		return NewMemoryStore()
	}
	return NewRedisStore(client)
}

func OnboardingSeen(ctx context.Context, s Store, userID string) (bool, error) {
	v, err := s.Get(ctx, userID, KeyOnboardingSeen)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

func MarkOnboardingSeen(ctx context.Context, s Store, userID string) error {
	return s.Set(ctx, userID, KeyOnboardingSeen, "true")
}
