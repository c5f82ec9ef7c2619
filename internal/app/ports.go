package app

import (
	"context"
	"time"

	"daily-trivia-service/internal/domain"
)

// Poster abstracts the chat platform: announcements, threads, and the
// interactive answer prompt.
type Poster interface {
	PostAnnouncement(ctx context.Context, channelID string, set *domain.QuestionSet, tenant string) (domain.MessageLocation, error)
	OpenThread(ctx context.Context, loc domain.MessageLocation, name string) (string, error)
	EditAnnouncement(ctx context.Context, loc domain.MessageLocation, set *domain.QuestionSet, tenant string) error
	DeleteAnnouncement(ctx context.Context, loc domain.MessageLocation) error
	// PromptForAnswer shows the question to one player of a tenant and
	// waits up to timeout for a selection. answered is false on timeout.
	PromptForAnswer(ctx context.Context, tenant, player string, question domain.GradedQuestion, timeout time.Duration) (answer string, answered bool, err error)
	PostToThread(ctx context.Context, threadID, text string) error
}

// QuestionProvider fetches one graded question per difficulty. Any failure
// aborts the caller's cycle; the next scheduled fire retries.
type QuestionProvider interface {
	Fetch(ctx context.Context, tier domain.Tier) (domain.GradedQuestion, error)
}

// TenantConfigStore owns tenant schedules. Set persists immediately.
type TenantConfigStore interface {
	List() []domain.TenantSchedule
	Get(tenant string) (domain.TenantSchedule, bool)
	Set(schedule domain.TenantSchedule) (domain.TenantSchedule, error)
}

// Persistence checkpoints core state. Load failures must fall back to an
// empty snapshot with a logged warning; they never crash startup. Save
// failures are logged and in-memory state stays authoritative.
type Persistence interface {
	LoadLeaderboard(ctx context.Context) (domain.LeaderboardSnapshot, error)
	SaveLeaderboard(ctx context.Context, snapshot domain.LeaderboardSnapshot) error
	LoadSessions(ctx context.Context) (domain.SessionsSnapshot, error)
	SaveSessions(ctx context.Context, snapshot domain.SessionsSnapshot) error
	LoadQuestionSets(ctx context.Context) (domain.QuestionSetsSnapshot, error)
	SaveQuestionSets(ctx context.Context, snapshot domain.QuestionSetsSnapshot) error
}
