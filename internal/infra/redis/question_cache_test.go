package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"daily-trivia-service/internal/domain"
)

type countingUpstream struct {
	fetches int32
}

func (u *countingUpstream) Fetch(_ context.Context, tier domain.Tier) (domain.GradedQuestion, error) {
	n := atomic.AddInt32(&u.fetches, 1)
	return domain.GradedQuestion{
		ID:     string(tier) + "-" + string(rune('0'+n)),
		Tier:   tier,
		Prompt: "prompt",
		Answer: "answer",
	}, nil
}

func TestQuestionCacheServesUpstreamOnce(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	upstream := &countingUpstream{}
	cache := NewQuestionCache(client, upstream, time.Minute)

	first, err := cache.Fetch(ctx, domain.TierEasy)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	second, err := cache.Fetch(ctx, domain.TierEasy)
	if err != nil {
		t.Fatalf("cached fetch failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the cached question, got %s then %s", first.ID, second.ID)
	}
	if got := atomic.LoadInt32(&upstream.fetches); got != 1 {
		t.Fatalf("expected a single upstream fetch, got %d", got)
	}
	if !mr.Exists("trivia:provider:easy") {
		t.Fatalf("expected the cache key to be set")
	}

	// Another tier misses independently.
	if _, err := cache.Fetch(ctx, domain.TierHard); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if got := atomic.LoadInt32(&upstream.fetches); got != 2 {
		t.Fatalf("expected a second upstream fetch for the other tier, got %d", got)
	}
}

func TestQuestionCacheExpiredEntryRefetches(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	upstream := &countingUpstream{}
	cache := NewQuestionCache(client, upstream, time.Second)

	if _, err := cache.Fetch(ctx, domain.TierMedium); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if _, err := cache.Fetch(ctx, domain.TierMedium); err != nil {
		t.Fatalf("refetch failed: %v", err)
	}
	if got := atomic.LoadInt32(&upstream.fetches); got != 2 {
		t.Fatalf("expected a refetch after expiry, got %d", got)
	}
}
