package memory

import (
	"sort"
	"sync"
	"time"

	"daily-trivia-service/internal/domain"
)

// TenantStore is an in-memory app.TenantConfigStore.
type TenantStore struct {
	mu      sync.RWMutex
	now     func() time.Time
	tenants map[string]domain.TenantSchedule
}

func NewTenantStore() *TenantStore {
	return NewTenantStoreWithClock(time.Now)
}

// NewTenantStoreWithClock allows deterministic timestamps in tests.
func NewTenantStoreWithClock(now func() time.Time) *TenantStore {
	return &TenantStore{now: now, tenants: make(map[string]domain.TenantSchedule)}
}

func (s *TenantStore) List() []domain.TenantSchedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schedules := make([]domain.TenantSchedule, 0, len(s.tenants))
	for _, schedule := range s.tenants {
		schedules = append(schedules, schedule)
	}
	sort.Slice(schedules, func(i, j int) bool { return schedules[i].Tenant < schedules[j].Tenant })
	return schedules
}

func (s *TenantStore) Get(tenant string) (domain.TenantSchedule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schedule, ok := s.tenants[tenant]
	return schedule, ok
}

func (s *TenantStore) Set(schedule domain.TenantSchedule) (domain.TenantSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if existing, ok := s.tenants[schedule.Tenant]; ok {
		schedule.CreatedAt = existing.CreatedAt
	} else {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
	s.tenants[schedule.Tenant] = schedule
	return schedule, nil
}
