package otp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry is one live code keyed by phone number. At most one entry exists
// per phone; a resend overwrites the previous one.
type Entry struct {
	Phone    string    `json:"phone"`
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issuedAt"`
}

// Store is the ephemeral phone -> code mapping. An expired entry is
// indistinguishable from an absent one: Get must never return it.
type Store interface {
	Get(ctx context.Context, phone string) (Entry, bool, error)
	Set(ctx context.Context, e Entry) error
	Delete(ctx context.Context, phone string) error
	Sweep(ctx context.Context) error
}

// MemoryStore keeps entries in a mutex-guarded map. Expiry is checked
// lazily on Get and opportunistically swept on each Set.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryStore{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the live entry for phone, treating expired entries as absent.
func (s *MemoryStore) Get(_ context.Context, phone string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[phone]
	if !ok {
		return Entry{}, false, nil
	}
	if s.now().Sub(e.IssuedAt) > s.ttl {
		delete(s.entries, phone)
		return Entry{}, false, nil
	}
	return e, true, nil
}

// Set stores an entry, overwriting any previous one for the same phone.
func (s *MemoryStore) Set(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.entries[e.Phone] = e
	return nil
}

// Delete removes the entry for phone if present.
func (s *MemoryStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, phone)
	return nil
}

// Sweep drops all expired entries.
func (s *MemoryStore) Sweep(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return nil
}

func (s *MemoryStore) sweepLocked() {
	now := s.now()
	for phone, e := range s.entries {
		if now.Sub(e.IssuedAt) > s.ttl {
			delete(s.entries, phone)
		}
	}
}

// RedisStore backs the mapping with a shared cache so multiple API
// instances see the same codes. Expiry rides on the key TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a redis-backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisStore{client: client, ttl: ttl}
}

func otpKey(phone string) string { return "otp:" + phone }

// Get returns the live entry for phone.
func (s *RedisStore) Get(ctx context.Context, phone string) (Entry, bool, error) {
	raw, err := s.client.Get(ctx, otpKey(phone)).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

// Set stores an entry with the TTL applied by redis.
func (s *RedisStore) Set(ctx context.Context, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, otpKey(e.Phone), raw, s.ttl).Err()
}

// Delete removes the entry for phone.
func (s *RedisStore) Delete(ctx context.Context, phone string) error {
	return s.client.Del(ctx, otpKey(phone)).Err()
}

// Sweep is a no-op; redis expires keys on its own.
func (s *RedisStore) Sweep(context.Context) error { return nil }
