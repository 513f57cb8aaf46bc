package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return client, mr
}

func TestCounters_IncrementAndGet_WhenNewKey_ShouldReturnIncrementedValue(t *testing.T) {
	client, _ := setupRedis(t)
	counters := NewCounters(client, "counter")

	ctx := context.Background()
	key := "contest:01HXXXXXXXXXXXXXXXXXXXXX:total"

	// Act
	result, err := counters.Increment(ctx, key, 1)
	require.NoError(t, err)

	value, err := counters.Get(ctx, key)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, int64(1), result)
	assert.Equal(t, int64(1), value)
}

func TestCounters_Increment_WhenMultipleCalls_ShouldAccumulate(t *testing.T) {
	client, _ := setupRedis(t)
	counters := NewCounters(client, "counter")

	ctx := context.Background()
	key := "contest:01HXXXXXXXXXXXXXXXXXXXXX:sample:01HYYYYYYYYYYYYYYYYYYYYY"

	// Act
	first, err := counters.Increment(ctx, key, 1)
	require.NoError(t, err)

	second, err := counters.Increment(ctx, key, 2)
	require.NoError(t, err)

	final, err := counters.Get(ctx, key)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(3), second)
	assert.Equal(t, int64(3), final)
}

func TestCounters_Get_WhenKeyMissing_ShouldReturnZero(t *testing.T) {
	client, _ := setupRedis(t)
	counters := NewCounters(client, "counter")

	value, err := counters.Get(context.Background(), "missing")

	assert.NoError(t, err)
	assert.Equal(t, int64(0), value)
}

func TestCounters_GetAll_WhenSomeKeysExist_ShouldFillMissingWithZero(t *testing.T) {
	client, _ := setupRedis(t)
	counters := NewCounters(client, "counter")

	ctx := context.Background()
	keys := []string{"sample-a", "sample-b", "sample-c"}

	// Arrange
	_, err := counters.Increment(ctx, keys[0], 5)
	require.NoError(t, err)

	_, err = counters.Increment(ctx, keys[1], 10)
	require.NoError(t, err)

	// Act
	result, err := counters.GetAll(ctx, keys)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, int64(5), result[keys[0]])
	assert.Equal(t, int64(10), result[keys[1]])
	assert.Equal(t, int64(0), result[keys[2]])
}

func TestCounters_GetAll_WhenEmptyList_ShouldReturnEmptyMap(t *testing.T) {
	client, _ := setupRedis(t)
	counters := NewCounters(client, "counter")

	result, err := counters.GetAll(context.Background(), nil)

	assert.NoError(t, err)
	assert.Empty(t, result)
}

func TestCounters_key_WhenPrefixEmpty_ShouldReturnBareKey(t *testing.T) {
	client, _ := setupRedis(t)
	counters := NewCounters(client, "")

	assert.Equal(t, "my-key", counters.key("my-key"))
}

func TestCounters_key_WhenPrefixSet_ShouldPrependPrefix(t *testing.T) {
	client, _ := setupRedis(t)
	counters := NewCounters(client, "counter")

	assert.Equal(t, "counter:my-key", counters.key("my-key"))
}
