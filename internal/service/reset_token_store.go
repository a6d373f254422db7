package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResetTokenStore guarda tokens de restablecimiento de contraseña de un solo uso.
type ResetTokenStore interface {
	Store(ctx context.Context, token, userID string, ttl time.Duration) error
	// Consume devuelve el userID asociado y elimina el token. Un token
	// inexistente o vencido devuelve "" sin error.
	Consume(ctx context.Context, token string) (string, error)
}

type resetEntry struct {
	userID    string
	expiresAt time.Time
}

type memoryResetTokenStore struct {
	mu    sync.Mutex
	items map[string]resetEntry
}

func NewMemoryResetTokenStore() ResetTokenStore {
	return &memoryResetTokenStore{
		items: make(map[string]resetEntry),
	}
}

func (s *memoryResetTokenStore) Store(_ context.Context, token, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(token) == "" {
		return nil
	}
	s.items[token] = resetEntry{userID: userID, expiresAt: time.Now().UTC().Add(ttl)}
	return nil
}

func (s *memoryResetTokenStore) Consume(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[token]
	if !ok {
		return "", nil
	}
	delete(s.items, token)
	if time.Now().UTC().After(entry.expiresAt) {
		return "", nil
	}
	return entry.userID, nil
}

type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

type redisResetTokenStore struct {
	client redisKV
	prefix string
}

func NewRedisResetTokenStore(client *redis.Client) ResetTokenStore {
	if client == nil {
		return nil
	}
	return &redisResetTokenStore{
		client: client,
		prefix: "auth:reset:",
	}
}

func (s *redisResetTokenStore) Store(ctx context.Context, token, userID string, ttl time.Duration) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+token, userID, ttl).Err()
}

func (s *redisResetTokenStore) Consume(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	userID, err := s.client.GetDel(ctx, s.prefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}
