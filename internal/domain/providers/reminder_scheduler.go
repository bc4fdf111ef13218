package providers

import (
	"context"

	"github.com/smartgarden/backend/internal/domain/entities"
)

// ReminderScheduler registers recurring care reminders without exposing how they are delivered.
type ReminderScheduler interface {
	// Schedule registers the reminder and returns a token that identifies it
	Schedule(ctx context.Context, reminder entities.Reminder) (string, error)

	// Cancel removes a reminder; unknown tokens are ignored
	Cancel(ctx context.Context, token string) error
}
