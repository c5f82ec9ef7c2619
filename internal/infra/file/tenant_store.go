package file

import (
	"log"
	"sort"
	"sync"
	"time"

	"daily-trivia-service/internal/domain"
)

// TenantStore is a file-persisted app.TenantConfigStore. The full set is
// loaded once at construction and flushed on every Set.
type TenantStore struct {
	store *Store

	mu      sync.RWMutex
	now     func() time.Time
	tenants map[string]domain.TenantSchedule
}

func NewTenantStore(store *Store) *TenantStore {
	t := &TenantStore{
		store:   store,
		now:     time.Now,
		tenants: make(map[string]domain.TenantSchedule),
	}
	snapshot, err := store.LoadTenants()
	if err != nil {
		log.Printf("warning: tenant configuration unavailable, starting empty: %v", err)
		return t
	}
	for tenant, schedule := range snapshot.Tenants {
		if schedule.ChannelID == "" {
			continue
		}
		schedule.Tenant = tenant
		t.tenants[tenant] = schedule
	}
	return t
}

func (t *TenantStore) List() []domain.TenantSchedule {
	t.mu.RLock()
	defer t.mu.RUnlock()
	schedules := make([]domain.TenantSchedule, 0, len(t.tenants))
	for _, schedule := range t.tenants {
		schedules = append(schedules, schedule)
	}
	sort.Slice(schedules, func(i, j int) bool { return schedules[i].Tenant < schedules[j].Tenant })
	return schedules
}

func (t *TenantStore) Get(tenant string) (domain.TenantSchedule, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	schedule, ok := t.tenants[tenant]
	return schedule, ok
}

func (t *TenantStore) Set(schedule domain.TenantSchedule) (domain.TenantSchedule, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if existing, ok := t.tenants[schedule.Tenant]; ok {
		schedule.CreatedAt = existing.CreatedAt
	} else {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
	t.tenants[schedule.Tenant] = schedule

	snapshot := domain.TenantsSnapshot{Version: 1, Tenants: make(map[string]domain.TenantSchedule, len(t.tenants))}
	for tenant, s := range t.tenants {
		snapshot.Tenants[tenant] = s
	}
	if err := t.store.SaveTenants(snapshot); err != nil {
		log.Printf("could not persist tenant configuration: %v", err)
	}
	return schedule, nil
}
