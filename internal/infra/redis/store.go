package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"daily-trivia-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	leaderboardKey  = "trivia:snapshot:leaderboard"
	sessionsKey     = "trivia:snapshot:sessions"
	questionSetsKey = "trivia:snapshot:questions"
)

// Store implements app.Persistence against Redis, one JSON document per
// concern. A missing key loads as an empty snapshot.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) LoadLeaderboard(ctx context.Context) (domain.LeaderboardSnapshot, error) {
	var snapshot domain.LeaderboardSnapshot
	err := s.load(ctx, leaderboardKey, &snapshot)
	return snapshot, err
}

func (s *Store) SaveLeaderboard(ctx context.Context, snapshot domain.LeaderboardSnapshot) error {
	return s.save(ctx, leaderboardKey, snapshot)
}

func (s *Store) LoadSessions(ctx context.Context) (domain.SessionsSnapshot, error) {
	var snapshot domain.SessionsSnapshot
	err := s.load(ctx, sessionsKey, &snapshot)
	return snapshot, err
}

func (s *Store) SaveSessions(ctx context.Context, snapshot domain.SessionsSnapshot) error {
	return s.save(ctx, sessionsKey, snapshot)
}

func (s *Store) LoadQuestionSets(ctx context.Context) (domain.QuestionSetsSnapshot, error) {
	var snapshot domain.QuestionSetsSnapshot
	err := s.load(ctx, questionSetsKey, &snapshot)
	return snapshot, err
}

func (s *Store) SaveQuestionSets(ctx context.Context, snapshot domain.QuestionSetsSnapshot) error {
	return s.save(ctx, questionSetsKey, snapshot)
}

func (s *Store) load(ctx context.Context, key string, out interface{}) error {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, key string, snapshot interface{}) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
