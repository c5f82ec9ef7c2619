package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"daily-trivia-service/internal/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// QuestionSetCache holds one question set per calendar day and the per-tenant
// participation records against it. Creation is serialized per day key with
// singleflight so near-simultaneous cache misses fetch from the provider
// exactly once.
type QuestionSetCache struct {
	provider QuestionProvider
	now      func() time.Time
	sf       singleflight.Group

	mu   sync.RWMutex
	days map[string]*domain.QuestionSet
}

func NewQuestionSetCache(provider QuestionProvider) *QuestionSetCache {
	return NewQuestionSetCacheWithClock(provider, time.Now)
}

// NewQuestionSetCacheWithClock allows deterministic generation timestamps in tests.
func NewQuestionSetCacheWithClock(provider QuestionProvider, now func() time.Time) *QuestionSetCache {
	return &QuestionSetCache{
		provider: provider,
		now:      now,
		days:     make(map[string]*domain.QuestionSet),
	}
}

// GetOrCreate returns the day's question set, fetching one question per tier
// from the provider on first demand. Provider failures propagate; nothing is
// cached on failure so the next caller retries.
func (c *QuestionSetCache) GetOrCreate(ctx context.Context, day string) (*domain.QuestionSet, error) {
	c.mu.RLock()
	if set, ok := c.days[day]; ok {
		c.mu.RUnlock()
		return set, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(day, func() (interface{}, error) {
		c.mu.RLock()
		if set, ok := c.days[day]; ok {
			c.mu.RUnlock()
			return set, nil
		}
		c.mu.RUnlock()

		set, err := c.generate(ctx, day)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.days[day] = set
		c.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.QuestionSet), nil
}

// generate fetches the three tiers concurrently; order is irrelevant.
func (c *QuestionSetCache) generate(ctx context.Context, day string) (*domain.QuestionSet, error) {
	tiers := make(map[domain.Tier]*domain.TierState, len(domain.Tiers))
	var tiersMu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	for _, tier := range domain.Tiers {
		tier := tier
		group.Go(func() error {
			question, err := c.provider.Fetch(groupCtx, tier)
			if err != nil {
				return fmt.Errorf("fetch %s question: %w", tier, err)
			}
			question.Tier = tier
			tiersMu.Lock()
			tiers[tier] = &domain.TierState{Question: question}
			tiersMu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	log.Printf("generated question set for %s (easy=%s medium=%s hard=%s)",
		day, tiers[domain.TierEasy].Question.ID, tiers[domain.TierMedium].Question.ID, tiers[domain.TierHard].Question.ID)
	return domain.NewQuestionSet(day, c.now(), tiers), nil
}

// Get returns the cached set for day without creating one.
func (c *QuestionSetCache) Get(day string) (*domain.QuestionSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set, ok := c.days[day]
	return set, ok
}

// HasAnswered reports whether the player already attempted the tier for the
// tenant on that day.
func (c *QuestionSetCache) HasAnswered(day string, tier domain.Tier, tenant, player string) bool {
	set, ok := c.Get(day)
	if !ok {
		return false
	}
	return set.HasAnswered(tier, tenant, player)
}

// RecordParticipation writes the player's attempt. It fails when no question
// set exists for the day. Writes are idempotent by key: a second write for
// the same (tenant, day, tier, player) overwrites, which callers avoid by
// checking HasAnswered first.
func (c *QuestionSetCache) RecordParticipation(day string, tier domain.Tier, tenant, player string, participation domain.Participation) error {
	set, ok := c.Get(day)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrQuestionSetNotFound, day)
	}
	if !set.RecordParticipation(tier, tenant, player, participation) {
		return fmt.Errorf("%w: %s has no %s tier", domain.ErrQuestionSetNotFound, day, tier)
	}
	return nil
}

// Regenerate drops the cached set for day; the next GetOrCreate re-fetches.
// Callers must pair this with session invalidation so the stale announcement
// is replaced.
func (c *QuestionSetCache) Regenerate(day string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.days, day)
}

// Snapshot exports all cached days with their participation maps.
func (c *QuestionSetCache) Snapshot() domain.QuestionSetsSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := domain.QuestionSetsSnapshot{
		Version: domain.QuestionSetsSnapshotVersion,
		Days:    make(map[string]domain.QuestionSetSnapshot, len(c.days)),
	}
	for day, set := range c.days {
		states := set.TierStates()
		tiers := make(map[domain.Tier]domain.TierSnapshot, len(states))
		for tier, state := range states {
			raw, err := json.Marshal(state.Participants)
			if err != nil {
				log.Printf("skipping unserializable participants for %s/%s: %v", day, tier, err)
				raw = nil
			}
			tiers[tier] = domain.TierSnapshot{Question: state.Question, Participants: raw}
		}
		snapshot.Days[day] = domain.QuestionSetSnapshot{GeneratedAt: set.GeneratedAt, Tiers: tiers}
	}
	return snapshot
}

// Restore replaces the cache contents from a snapshot. Days missing any tier
// are skipped; participation written before per-tenant partitioning is
// adopted under the legacy key and migrated on first write.
func (c *QuestionSetCache) Restore(snapshot domain.QuestionSetsSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.days = make(map[string]*domain.QuestionSet, len(snapshot.Days))
	for day, entry := range snapshot.Days {
		tiers := make(map[domain.Tier]*domain.TierState, len(domain.Tiers))
		complete := true
		for _, tier := range domain.Tiers {
			tierEntry, ok := entry.Tiers[tier]
			if !ok {
				complete = false
				break
			}
			tiers[tier] = &domain.TierState{
				Question:     tierEntry.Question,
				Participants: domain.DecodeParticipants(tierEntry.Participants, entry.GeneratedAt),
			}
		}
		if !complete {
			log.Printf("skipping incomplete question set snapshot for %s", day)
			continue
		}
		c.days[day] = domain.NewQuestionSet(day, entry.GeneratedAt, tiers)
	}
}
