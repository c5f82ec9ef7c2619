// Package file persists snapshots as JSON documents under a data directory,
// one file per concern (leaderboard.json, sessions.json, questions.json,
// tenants.json).
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"daily-trivia-service/internal/domain"
)

const (
	leaderboardFile  = "leaderboard.json"
	sessionsFile     = "sessions.json"
	questionSetsFile = "questions.json"
	tenantsFile      = "tenants.json"
)

// Store implements app.Persistence on the local filesystem. A missing file
// loads as an empty snapshot; writes go through a temp file and rename so a
// crash mid-save never truncates the previous snapshot.
type Store struct {
	mu  sync.Mutex
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) LoadLeaderboard(_ context.Context) (domain.LeaderboardSnapshot, error) {
	var snapshot domain.LeaderboardSnapshot
	err := s.load(leaderboardFile, &snapshot)
	return snapshot, err
}

func (s *Store) SaveLeaderboard(_ context.Context, snapshot domain.LeaderboardSnapshot) error {
	return s.save(leaderboardFile, snapshot)
}

func (s *Store) LoadSessions(_ context.Context) (domain.SessionsSnapshot, error) {
	var snapshot domain.SessionsSnapshot
	err := s.load(sessionsFile, &snapshot)
	return snapshot, err
}

func (s *Store) SaveSessions(_ context.Context, snapshot domain.SessionsSnapshot) error {
	return s.save(sessionsFile, snapshot)
}

func (s *Store) LoadQuestionSets(_ context.Context) (domain.QuestionSetsSnapshot, error) {
	var snapshot domain.QuestionSetsSnapshot
	err := s.load(questionSetsFile, &snapshot)
	return snapshot, err
}

func (s *Store) SaveQuestionSets(_ context.Context, snapshot domain.QuestionSetsSnapshot) error {
	return s.save(questionSetsFile, snapshot)
}

// LoadTenants reads the persisted tenant configuration set.
func (s *Store) LoadTenants() (domain.TenantsSnapshot, error) {
	var snapshot domain.TenantsSnapshot
	err := s.load(tenantsFile, &snapshot)
	return snapshot, err
}

// SaveTenants writes the tenant configuration set.
func (s *Store) SaveTenants(snapshot domain.TenantsSnapshot) error {
	return s.save(tenantsFile, snapshot)
}

func (s *Store) load(name string, out interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) save(name string, snapshot interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
