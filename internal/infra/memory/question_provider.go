package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"daily-trivia-service/internal/domain"
)

// StaticQuestionProvider serves questions from an in-memory bank, one pool
// per tier (useful for tests/demos without Postgres or the quiz API).
type StaticQuestionProvider struct {
	mu   sync.Mutex
	bank map[domain.Tier][]domain.GradedQuestion
	rnd  *rand.Rand
}

func NewStaticQuestionProvider(bank map[domain.Tier][]domain.GradedQuestion) *StaticQuestionProvider {
	return &StaticQuestionProvider{
		bank: bank,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *StaticQuestionProvider) Fetch(_ context.Context, tier domain.Tier) (domain.GradedQuestion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pool := p.bank[tier]
	if len(pool) == 0 {
		return domain.GradedQuestion{}, fmt.Errorf("no %s questions available", tier)
	}
	question := pool[p.rnd.Intn(len(pool))]
	question.Tier = tier
	return question, nil
}
