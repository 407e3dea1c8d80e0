package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
)

// ErrNoSnapshot is returned by Storage.Load when nothing is persisted.
var ErrNoSnapshot = errors.New("session: no snapshot")

// Snapshot is what survives a reload: the token and the last known profile.
type Snapshot struct {
	Token string
	User  *User
}

// Storage is the durable slot behind a browser session.
type Storage interface {
	Load(ctx context.Context, key string) (Snapshot, error)
	Save(ctx context.Context, key string, snap Snapshot) error
	Clear(ctx context.Context, key string) error
}

type storedUser struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Name        string   `json:"name,omitempty"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	StoreID     string   `json:"store_id,omitempty"`
}

type storedSnapshot struct {
	Token string      `json:"token"`
	User  *storedUser `json:"user,omitempty"`
}

func encodeSnapshot(snap Snapshot) ([]byte, error) {
	stored := storedSnapshot{Token: snap.Token}
	if u := snap.User; u != nil {
		stored.User = &storedUser{
			ID:          u.ID,
			Username:    u.Username,
			Name:        u.Name,
			Email:       u.Email,
			Role:        string(u.Role),
			Permissions: u.Permissions.Strings(),
			StoreID:     u.StoreID,
		}
	}
	return json.Marshal(stored)
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var stored storedSnapshot
	if err := json.Unmarshal(data, &stored); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Token: stored.Token}
	if u := stored.User; u != nil {
		perms, _ := rbac.ParsePermissionSet(u.Permissions)
		snap.User = &User{
			ID:          u.ID,
			Username:    u.Username,
			Name:        u.Name,
			Email:       u.Email,
			Role:        rbac.Role(u.Role),
			Permissions: perms,
			StoreID:     u.StoreID,
		}
	}
	return snap, nil
}

// RedisStorage keeps snapshots in Redis with a sliding TTL.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStorage constructs a RedisStorage.
func NewRedisStorage(client *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, prefix: "admin:auth:", ttl: ttl}
}

// Load reads the snapshot for key.
func (s *RedisStorage) Load(ctx context.Context, key string) (Snapshot, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, ErrNoSnapshot
		}
		return Snapshot{}, fmt.Errorf("session: redis get: %w", err)
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("session: decode snapshot: %w", err)
	}
	return snap, nil
}

// Save writes the snapshot for key.
func (s *RedisStorage) Save(ctx context.Context, key string, snap Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("session: encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

// Clear removes the snapshot for key.
func (s *RedisStorage) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

// MemoryStorage is an in-process Storage, mainly for tests and local runs.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryStorage constructs an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

// Load reads the snapshot for key.
func (s *MemoryStorage) Load(_ context.Context, key string) (Snapshot, error) {
	s.mu.Lock()
	data, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrNoSnapshot
	}
	return decodeSnapshot(data)
}

// Save writes the snapshot for key.
func (s *MemoryStorage) Save(_ context.Context, key string, snap Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = data
	s.mu.Unlock()
	return nil
}

// Clear removes the snapshot for key.
func (s *MemoryStorage) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

var (
	_ Storage = (*RedisStorage)(nil)
	_ Storage = (*MemoryStorage)(nil)
)
