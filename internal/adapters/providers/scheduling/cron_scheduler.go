package scheduling

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/smartgarden/backend/internal/domain/entities"
	"github.com/smartgarden/backend/internal/domain/providers"
	"github.com/smartgarden/backend/internal/infrastructure/observability"
	apperrors "github.com/smartgarden/backend/pkg/errors"
)

// Notifier is invoked each time a reminder fires
type Notifier func(ctx context.Context, reminder entities.Reminder)

// CronScheduler runs reminders on standard five-field cron expressions
// (minute hour day-of-month month day-of-week).
type CronScheduler struct {
	cron   *cron.Cron
	notify Notifier

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

var _ providers.ReminderScheduler = (*CronScheduler)(nil)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NewCronScheduler creates a scheduler in loc. Call Start to begin firing reminders.
func NewCronScheduler(loc *time.Location, notify Notifier) *CronScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &CronScheduler{
		cron:    cron.New(cron.WithParser(parser), cron.WithLocation(loc)),
		notify:  notify,
		entries: map[string]cron.EntryID{},
	}
}

// ParseSchedule validates a cron expression
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := parser.Parse(strings.TrimSpace(expr))
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid reminder schedule %q: %v", expr, err))
	}
	return sched, nil
}

// NextRuns returns the next n fire times of expr after from
func NextRuns(expr string, from time.Time, n int) ([]time.Time, error) {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}
	runs := make([]time.Time, 0, n)
	next := from
	for i := 0; i < n; i++ {
		next = sched.Next(next)
		runs = append(runs, next)
	}
	return runs, nil
}

// Schedule registers a reminder and returns its token
func (s *CronScheduler) Schedule(ctx context.Context, reminder entities.Reminder) (string, error) {
	sched, err := ParseSchedule(reminder.Schedule)
	if err != nil {
		return "", err
	}

	logger := observability.LoggerFromContext(ctx).With().
		Str("plant_id", reminder.PlantID).
		Str("kind", string(reminder.Kind)).
		Logger()

	id := s.cron.Schedule(sched, cron.FuncJob(func() {
		logger.Info().Msg("reminder fired")
		if s.notify != nil {
			s.notify(context.Background(), reminder)
		}
	}))

	// entry ids restart at 1 in each process while stored tokens outlive it
	token := "cron-" + uuid.NewString()
	s.mu.Lock()
	s.entries[token] = id
	s.mu.Unlock()

	logger.Debug().Str("token", token).Time("next", sched.Next(time.Now())).Msg("reminder scheduled")
	return token, nil
}

// Cancel removes a reminder; unknown tokens are ignored
func (s *CronScheduler) Cancel(ctx context.Context, token string) error {
	s.mu.Lock()
	id, ok := s.entries[token]
	delete(s.entries, token)
	s.mu.Unlock()

	if ok {
		s.cron.Remove(id)
	}
	return nil
}

// Len reports how many reminders are registered
func (s *CronScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Start begins firing reminders in the background
func (s *CronScheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler; the returned context is done once running jobs finish
func (s *CronScheduler) Stop() context.Context {
	return s.cron.Stop()
}
