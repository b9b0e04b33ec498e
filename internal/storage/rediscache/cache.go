// Package rediscache wraps a storage.Storage with a Redis read-through
// cache for lookups by id.
//
// Only FindByID is cached; every other call goes straight to the wrapped
// store. Save and Deactivate replace the key of the student they wrote
// with a short-lived tombstone. Entries are written with SET NX, so a
// reader that loaded a row before the write cannot put that old copy
// back while the tombstone is there. Redis is never the source of truth:
// when it is unreachable the cache logs and falls through to the store.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/qapabilities/students-api/internal/config"
	"github.com/qapabilities/students-api/internal/storage"
	"github.com/qapabilities/students-api/internal/types"
)

// PrefixStudent namespaces student keys.
const PrefixStudent = "student:"

// tombstone marks a key whose student was just written. It is never
// valid JSON, so it cannot be mistaken for a cached student.
const tombstone = "-"

// TombstoneTTL bounds how long a write blocks caching of its key. A
// reader slower than this between its store read and its cache write
// can still publish a stale copy.
const TombstoneTTL = 5 * time.Second

// Store is a storage.Storage whose FindByID is served from Redis when
// possible.
type Store struct {
	storage.Storage

	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// Dial connects to Redis using cfg and pings it.
func Dial(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// New wraps next. A non-positive ttl falls back to ten minutes.
func New(next storage.Storage, client *redis.Client, ttl time.Duration, log *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{Storage: next, client: client, ttl: ttl, log: log}
}

// Key returns the Redis key holding the student with the given id.
func Key(id string) string {
	return PrefixStudent + id
}

func (s *Store) FindByID(ctx context.Context, id string) (*types.Student, error) {
	key := Key(id)

	raw, err := s.client.Get(ctx, key).Bytes()
	tombstoned := false
	switch {
	case err == nil && string(raw) == tombstone:
		tombstoned = true
	case err == nil:
		var cached types.Student
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return &cached, nil
		}
		s.log.Warn("discarding unreadable cache entry", slog.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		s.log.Warn("student cache unavailable", slog.String("error", err.Error()))
	}

	student, err := s.Storage.FindByID(ctx, id)
	if err != nil || student == nil || tombstoned {
		return student, err
	}

	s.put(ctx, key, student)
	return student, nil
}

func (s *Store) Save(ctx context.Context, student *types.Student) (*types.Student, error) {
	saved, err := s.Storage.Save(ctx, student)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, saved.ID)
	return saved, nil
}

func (s *Store) Deactivate(ctx context.Context, id string, at time.Time) error {
	if err := s.Storage.Deactivate(ctx, id, at); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// Close closes the Redis client and then the wrapped store.
func (s *Store) Close() error {
	return errors.Join(s.client.Close(), s.Storage.Close())
}

func (s *Store) put(ctx context.Context, key string, student *types.Student) {
	data, err := json.Marshal(student)
	if err != nil {
		return
	}
	if err := s.client.SetNX(ctx, key, data, s.ttl).Err(); err != nil {
		s.log.Warn("student cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *Store) invalidate(ctx context.Context, id string) {
	if err := s.client.Set(ctx, Key(id), tombstone, TombstoneTTL).Err(); err != nil {
		// The entry, if any, lives until its TTL expires.
		s.log.Warn("student cache invalidation failed", slog.String("id", id), slog.String("error", err.Error()))
	}
}
