package app

import (
	"context"
	"log"
	"sync"
	"time"

	"daily-trivia-service/internal/domain"
)

// DefaultCatchUpDelay is the bounded minimal delay used when a tenant's
// scheduled time has already passed today with nothing posted yet.
const DefaultCatchUpDelay = 50 * time.Millisecond

// CycleRunner executes one announcement cycle for a tenant.
type CycleRunner interface {
	RunDailyCycle(ctx context.Context, tenant string, force bool) error
}

// Scheduler owns one recurring timer per tenant. Each fire runs the tenant's
// announcement cycle and unconditionally re-arms for the next occurrence;
// cycle failures are logged, never fatal to the loop. Timers for different
// tenants are independent: a slow cycle for one tenant never delays another.
type Scheduler struct {
	runner   CycleRunner
	tenants  TenantConfigStore
	sessions *SessionRegistry

	now          func() time.Time
	catchUpDelay time.Duration

	mu      sync.Mutex
	ctx     context.Context
	started bool
	stopped bool
	nextGen uint64
	timers  map[string]*tenantTimer
}

// tenantTimer is the cancellable handle for one tenant's next fire. The
// generation guards against a stale AfterFunc re-arming after Refresh or
// Stop replaced it; an in-flight cycle still runs to completion.
type tenantTimer struct {
	timer *time.Timer
	gen   uint64
}

func NewScheduler(runner CycleRunner, tenants TenantConfigStore, sessions *SessionRegistry) *Scheduler {
	return &Scheduler{
		runner:       runner,
		tenants:      tenants,
		sessions:     sessions,
		now:          time.Now,
		catchUpDelay: DefaultCatchUpDelay,
		timers:       make(map[string]*tenantTimer),
	}
}

// SetClock is test-only for deterministic delay computation.
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }

// SetCatchUpDelay overrides the catch-up fire delay.
func (s *Scheduler) SetCatchUpDelay(d time.Duration) {
	if d > 0 {
		s.catchUpDelay = d
	}
}

// Start arms a timer for every configured tenant. ctx bounds all cycles
// triggered by this scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx = ctx
	s.started = true
	s.stopped = false
	for _, schedule := range s.tenants.List() {
		s.armLocked(schedule, true)
	}
	log.Printf("scheduler started with %d tenant timer(s)", len(s.timers))
}

// Refresh cancels and re-arms every tenant timer from the current
// configuration. Safe to call while a cycle is firing: the in-flight cycle
// completes and only the next arming is affected.
func (s *Scheduler) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return
	}
	s.cancelAllLocked()
	for _, schedule := range s.tenants.List() {
		s.armLocked(schedule, true)
	}
	log.Printf("scheduler refreshed, %d tenant timer(s) armed", len(s.timers))
}

// Stop cancels all armed timers. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.cancelAllLocked()
}

func (s *Scheduler) cancelAllLocked() {
	for tenant, handle := range s.timers {
		handle.timer.Stop()
		delete(s.timers, tenant)
	}
}

// armLocked schedules the tenant's next fire. allowCatchUp selects the
// near-immediate fire when today's slot has already passed unposted; it is
// false when re-arming after a fire so a failing cycle waits for the next
// scheduled occurrence instead of hot-looping.
func (s *Scheduler) armLocked(schedule domain.TenantSchedule, allowCatchUp bool) {
	delay := s.nextDelay(schedule, allowCatchUp)

	if previous, ok := s.timers[schedule.Tenant]; ok {
		previous.timer.Stop()
	}
	s.nextGen++
	gen := s.nextGen

	tenant := schedule.Tenant
	handle := &tenantTimer{gen: gen}
	handle.timer = time.AfterFunc(delay, func() {
		s.fire(tenant, gen)
	})
	s.timers[tenant] = handle
}

// fire runs one cycle and re-arms. It executes on the timer's own goroutine,
// keeping tenants isolated from each other.
func (s *Scheduler) fire(tenant string, gen uint64) {
	s.mu.Lock()
	handle, ok := s.timers[tenant]
	if !ok || handle.gen != gen || s.stopped {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.mu.Unlock()

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("panic during cycle for tenant %s: %v", tenant, r)
			}
		}()
		if err := s.runner.RunDailyCycle(ctx, tenant, false); err != nil {
			log.Printf("cycle failed for tenant %s, retrying next fire: %v", tenant, err)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	handle, ok = s.timers[tenant]
	if !ok || handle.gen != gen || s.stopped {
		return
	}
	schedule, configured := s.tenants.Get(tenant)
	if !configured {
		delete(s.timers, tenant)
		return
	}
	s.armLocked(schedule, false)
}

// nextDelay computes how long to wait before the tenant's next fire, in the
// tenant's timezone. If today's target has passed and nothing was posted,
// the catch-up delay fires almost immediately.
func (s *Scheduler) nextDelay(schedule domain.TenantSchedule, allowCatchUp bool) time.Duration {
	loc := schedule.Location()
	now := s.now().In(loc)
	target := time.Date(now.Year(), now.Month(), now.Day(), schedule.Hour, schedule.Minute, 0, 0, loc)

	if allowCatchUp && !target.After(now) {
		if _, exists := s.sessions.Get(schedule.Tenant, domain.DayKey(now, loc)); !exists {
			return s.catchUpDelay
		}
	}

	if target.After(now) {
		return target.Sub(now)
	}
	next := time.Date(now.Year(), now.Month(), now.Day()+1, schedule.Hour, schedule.Minute, 0, 0, loc)
	return next.Sub(now)
}
