package memory

import (
	"context"
	"sync"

	"daily-trivia-service/internal/domain"
)

// Store is an in-memory implementation of app.Persistence, useful for tests
// and for running without a data directory. Snapshots survive restarts of
// the core engines within one process, nothing more.
type Store struct {
	mu           sync.RWMutex
	leaderboard  domain.LeaderboardSnapshot
	sessions     domain.SessionsSnapshot
	questionSets domain.QuestionSetsSnapshot
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) LoadLeaderboard(_ context.Context) (domain.LeaderboardSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leaderboard, nil
}

func (s *Store) SaveLeaderboard(_ context.Context, snapshot domain.LeaderboardSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaderboard = snapshot
	return nil
}

func (s *Store) LoadSessions(_ context.Context) (domain.SessionsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions, nil
}

func (s *Store) SaveSessions(_ context.Context, snapshot domain.SessionsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = snapshot
	return nil
}

func (s *Store) LoadQuestionSets(_ context.Context) (domain.QuestionSetsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.questionSets, nil
}

func (s *Store) SaveQuestionSets(_ context.Context, snapshot domain.QuestionSetsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questionSets = snapshot
	return nil
}
