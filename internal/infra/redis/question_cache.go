package redis

import (
	"context"
	"encoding/json"
	"time"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionCache shields a rate-limited question provider: fetched questions
// are cached per tier for a short TTL so bursts of retried cycles reuse the
// upstream response instead of burning quota. Keep the TTL short, otherwise
// an administrative regeneration would hand back the same questions.
type QuestionCache struct {
	client   *redis.Client
	upstream app.QuestionProvider
	ttl      time.Duration
	sf       singleflight.Group
}

func NewQuestionCache(client *redis.Client, upstream app.QuestionProvider, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client:   client,
		upstream: upstream,
		ttl:      ttl,
	}
}

func (c *QuestionCache) Fetch(ctx context.Context, tier domain.Tier) (domain.GradedQuestion, error) {
	key := c.key(tier)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var question domain.GradedQuestion
		if err := json.Unmarshal(raw, &question); err == nil {
			return question, nil
		}
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var question domain.GradedQuestion
			if err := json.Unmarshal(raw, &question); err == nil {
				return question, nil
			}
		}

		question, err := c.upstream.Fetch(ctx, tier)
		if err != nil {
			return domain.GradedQuestion{}, err
		}
		if raw, err := json.Marshal(question); err == nil {
			// best-effort cache fill
			_ = c.client.Set(ctx, key, raw, c.ttl).Err()
		}
		return question, nil
	})
	if err != nil {
		return domain.GradedQuestion{}, err
	}
	return result.(domain.GradedQuestion), nil
}

func (c *QuestionCache) key(tier domain.Tier) string {
	return "trivia:provider:" + string(tier)
}
