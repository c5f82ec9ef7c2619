package postgres

import (
	"context"
	"fmt"

	"daily-trivia-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionBank serves graded questions from Postgres, one random row per
// difficulty per fetch.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

func (b *QuestionBank) Fetch(ctx context.Context, tier domain.Tier) (domain.GradedQuestion, error) {
	row := b.pool.QueryRow(ctx,
		`SELECT id, prompt, answer, decoys, category FROM questions WHERE difficulty=$1 ORDER BY random() LIMIT 1`,
		string(tier))

	var question domain.GradedQuestion
	if err := row.Scan(&question.ID, &question.Prompt, &question.Answer, &question.Decoys, &question.Category); err != nil {
		return domain.GradedQuestion{}, fmt.Errorf("fetch %s question: %w", tier, err)
	}
	question.Tier = tier
	return question, nil
}

// Seed inserts questions, skipping ids that already exist.
func (b *QuestionBank) Seed(ctx context.Context, questions []domain.GradedQuestion) error {
	for _, q := range questions {
		_, err := b.pool.Exec(ctx,
			`INSERT INTO questions (id, difficulty, prompt, answer, decoys, category)
			 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
			q.ID, string(q.Tier), q.Prompt, q.Answer, q.Decoys, q.Category)
		if err != nil {
			return fmt.Errorf("seed question %s: %w", q.ID, err)
		}
	}
	return nil
}
