package cache

import (
	"context"
	"testing"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestFormatAnswerKey(t *testing.T) {
	key := formatAnswerKey(3, "HR", "abc")
	assert.Equal(t, "ask:answer:3:HR:a9993e364706816aba3e25717850c26c9cd0d89d", key)

	assert.NotEqual(t, key, formatAnswerKey(4, "HR", "abc"), "generation is part of the key")
	assert.NotEqual(t, key, formatAnswerKey(3, "Admin", "abc"), "role is part of the key")
}

func TestAnswerCacheReportsRedisErrors(t *testing.T) {
	client := redisv9.NewClient(&redisv9.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	c := NewAnswerCache(client, time.Minute)

	_, hit, err := c.Get(context.Background(), "HR", "q")
	assert.Error(t, err)
	assert.False(t, hit)
	assert.Error(t, c.Invalidate(context.Background()))
}
