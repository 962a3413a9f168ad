package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"knowledge-assistant/internal/model"
)

const generationKey = "ask:generation"

// AnswerCache stores answer envelopes per role and question. Every
// ingestion bumps a generation counter that is part of the key, so stale
// answers are never read again and expire by TTL.
type AnswerCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewAnswerCache(client *redisv9.Client, ttl time.Duration) *AnswerCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AnswerCache{client: client, ttl: ttl}
}

func (c *AnswerCache) Get(ctx context.Context, role, question string) (*model.AnswerEnvelope, bool, error) {
	key, err := c.answerKey(ctx, role, question)
	if err != nil {
		return nil, false, err
	}
	raw, err := c.client.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get answer failed: %w", err)
	}

	var env model.AnswerEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached answer failed: %w", err)
	}
	return &env, true, nil
}

func (c *AnswerCache) Set(ctx context.Context, role, question string, env *model.AnswerEnvelope) error {
	key, err := c.answerKey(ctx, role, question)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal answer cache failed: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set answer failed: %w", err)
	}
	return nil
}

// Invalidate starts a new generation.
func (c *AnswerCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("redis bump answer generation failed: %w", err)
	}
	return nil
}

func (c *AnswerCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err == redisv9.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get answer generation failed: %w", err)
	}
	return gen, nil
}

func (c *AnswerCache) answerKey(ctx context.Context, role, question string) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return formatAnswerKey(gen, role, question), nil
}

func formatAnswerKey(gen int64, role, question string) string {
	sum := sha1.Sum([]byte(question))
	return fmt.Sprintf("ask:answer:%d:%s:%s", gen, role, hex.EncodeToString(sum[:]))
}
