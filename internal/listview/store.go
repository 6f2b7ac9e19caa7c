package listview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"orphanadmin/internal/query"
)

// ErrViewNotFound is returned for unknown views and for views owned by
// someone else.
var ErrViewNotFound = errors.New("list view not found")

// Record is the persisted part of a list view.
type Record struct {
	ID        string      `json:"id"`
	Owner     string      `json:"owner"`
	State     query.State `json:"state"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// StateStore persists view records so that views survive a restart.
type StateStore interface {
	Save(ctx context.Context, r Record) error
	Load(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStateStore keeps records in process.
type MemoryStateStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{records: make(map[string]Record)}
}

func (m *MemoryStateStore) Save(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = r
	return nil
}

func (m *MemoryStateStore) Load(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return Record{}, ErrViewNotFound
	}
	return r, nil
}

func (m *MemoryStateStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

// redisKV is the subset of *redis.Client used by RedisStateStore.
type redisKV interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStateStore stores records as JSON under "<prefix><id>" with a TTL,
// so abandoned views expire on their own.
type RedisStateStore struct {
	rdb    redisKV
	prefix string
	ttl    time.Duration
}

func NewRedisStateStore(rdb redisKV, prefix string, ttl time.Duration) *RedisStateStore {
	if prefix == "" {
		prefix = "orphan-admin:view:"
	}
	return &RedisStateStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStateStore) Save(ctx context.Context, r Record) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode view %s: %w", r.ID, err)
	}
	if err := s.rdb.Set(ctx, s.prefix+r.ID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set view %s: %w", r.ID, err)
	}
	return nil
}

func (s *RedisStateStore) Load(ctx context.Context, id string) (Record, error) {
	raw, err := s.rdb.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrViewNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("redis get view %s: %w", id, err)
	}
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return Record{}, fmt.Errorf("decode view %s: %w", id, err)
	}
	if r.State.Filters == nil {
		r.State.Filters = map[query.FilterKey]string{}
	}
	return r, nil
}

func (s *RedisStateStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("redis del view %s: %w", id, err)
	}
	return nil
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
