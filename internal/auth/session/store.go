package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
)

const keyPrefix = "session:"

// RedisBackend is the subset of the Redis client sessions need.
type RedisBackend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisStore keeps sessions as plain keys that Redis expires on its own.
type RedisStore struct {
	client RedisBackend
}

func NewRedisStore(client RedisBackend) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, id, username string, ttl time.Duration) error {
	return s.client.Set(ctx, keyPrefix+id, username, ttl)
}

func (s *RedisStore) Get(ctx context.Context, id string) (string, bool, error) {
	username, err := s.client.Get(ctx, keyPrefix+id)
	if pkgredis.IsNilError(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading session: %w", err)
	}
	return username, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, keyPrefix+id)
}

type memEntry struct {
	username string
	expires  time.Time
}

// MemoryStore keeps sessions in process memory. Expired entries are
// removed lazily on lookup and by Sweep.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memEntry
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memEntry),
		now:      time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, id, username string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = memEntry{username: username, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return "", false, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.sessions, id)
		return "", false, nil
	}
	return e.username, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, e := range s.sessions {
		if !now.Before(e.expires) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx ends.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
