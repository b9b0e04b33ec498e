//go:build integration

package rediscache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/qapabilities/students-api/internal/storage"
	"github.com/qapabilities/students-api/internal/storage/memory"
	"github.com/qapabilities/students-api/internal/storage/storagetest"
	"github.com/qapabilities/students-api/internal/types"
)

func startRedis(t *testing.T) *redis.Options {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	return opts
}

func TestCachedStorage(t *testing.T) {
	opts := startRedis(t)

	suite.Run(t, storagetest.New(func(t *testing.T) storage.Storage {
		client := redis.NewClient(opts)
		require.NoError(t, client.FlushDB(context.Background()).Err())
		return New(memory.New(), client, time.Minute, quietLogger())
	}))
}

func TestReadThroughAndInvalidation(t *testing.T) {
	ctx := context.Background()
	opts := startRedis(t)
	client := redis.NewClient(opts)
	s := New(memory.New(), client, time.Minute, quietLogger())
	defer s.Close()

	in := storagetest.Student("Ana", "ana@example.com", "11144477735")
	_, err := s.Insert(ctx, in)
	require.NoError(t, err)

	n, err := client.Exists(ctx, Key(in.ID)).Result()
	require.NoError(t, err)
	assert.Zero(t, n, "insert must not populate the cache")

	_, err = s.FindByID(ctx, in.ID)
	require.NoError(t, err)

	raw, err := client.Get(ctx, Key(in.ID)).Bytes()
	require.NoError(t, err)
	var cached types.Student
	require.NoError(t, json.Unmarshal(raw, &cached))
	assert.Equal(t, "Ana", cached.Name)

	ttl, err := client.TTL(ctx, Key(in.ID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	cached.Name = "Ana Beatriz"
	_, err = s.Save(ctx, &cached)
	require.NoError(t, err)

	raw, err = client.Get(ctx, Key(in.ID)).Bytes()
	require.NoError(t, err)
	assert.Equal(t, tombstone, string(raw), "save must replace the cached entry")

	ttl, err = client.TTL(ctx, Key(in.ID)).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, TombstoneTTL)

	got, err := s.FindByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Beatriz", got.Name)
}

func TestSoftDeletedStudentIsNotServedFromCache(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(startRedis(t))
	s := New(memory.New(), client, time.Minute, quietLogger())
	defer s.Close()

	in := storagetest.Student("Ana", "ana@example.com", "11144477735")
	_, err := s.Insert(ctx, in)
	require.NoError(t, err)

	cached, err := s.FindByID(ctx, in.ID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	require.NoError(t, client.Get(ctx, Key(in.ID)).Err(), "first read must populate the cache")

	require.NoError(t, s.Deactivate(ctx, in.ID, time.Now()))

	got, err := s.FindByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	t.Run("stale copy written after the delete is ignored", func(t *testing.T) {
		// A reader that loaded the row before the delete finishes late.
		s.put(ctx, Key(in.ID), cached)

		got, err := s.FindByID(ctx, in.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		raw, err := client.Get(ctx, Key(in.ID)).Bytes()
		require.NoError(t, err)
		assert.Equal(t, tombstone, string(raw))
	})

	t.Run("second delete is not found and leaves the tombstone", func(t *testing.T) {
		err := s.Deactivate(ctx, in.ID, time.Now())
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestReadsAfterTombstoneExpiryAreCachedAgain(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the tombstone to expire")
	}
	ctx := context.Background()
	client := redis.NewClient(startRedis(t))
	s := New(memory.New(), client, time.Minute, quietLogger())
	defer s.Close()

	in := storagetest.Student("Ana", "ana@example.com", "11144477735")
	_, err := s.Insert(ctx, in)
	require.NoError(t, err)

	in.Name = "Ana Beatriz"
	_, err = s.Save(ctx, in)
	require.NoError(t, err)

	_, err = s.FindByID(ctx, in.ID)
	require.NoError(t, err)
	raw, err := client.Get(ctx, Key(in.ID)).Bytes()
	require.NoError(t, err)
	assert.Equal(t, tombstone, string(raw), "reads during the tombstone are not cached")

	require.Eventually(t, func() bool {
		return client.Exists(ctx, Key(in.ID)).Val() == 0
	}, TombstoneTTL+2*time.Second, 100*time.Millisecond)

	got, err := s.FindByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Beatriz", got.Name)

	raw, err = client.Get(ctx, Key(in.ID)).Bytes()
	require.NoError(t, err)
	var cached types.Student
	require.NoError(t, json.Unmarshal(raw, &cached))
	assert.Equal(t, "Ana Beatriz", cached.Name)
}
