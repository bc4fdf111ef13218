package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smartgarden/backend/internal/domain/entities"
	"github.com/smartgarden/backend/internal/domain/providers"
	"github.com/smartgarden/backend/internal/infrastructure/observability"
	apperrors "github.com/smartgarden/backend/pkg/errors"
)

const reminderKeyPrefix = "reminder:"

type storedReminder struct {
	entities.Reminder
	Token string `json:"token"`
}

// Reminders schedules care reminders and remembers their tokens in the session,
// keyed by reminder:<plantId>:<kind>, so they can be cancelled or restored later.
type Reminders struct {
	scheduler providers.ReminderScheduler
	store     providers.SessionStore
}

// NewReminders creates a reminder helper
func NewReminders(scheduler providers.ReminderScheduler, store providers.SessionStore) *Reminders {
	return &Reminders{scheduler: scheduler, store: store}
}

func reminderKey(plantID string, kind entities.ReminderKind) string {
	return reminderKeyPrefix + plantID + ":" + string(kind)
}

// Schedule registers a reminder for record, replacing any previous one of the same kind
func (r *Reminders) Schedule(ctx context.Context, record *entities.PlantRecord, kind entities.ReminderKind, schedule string) (entities.Reminder, error) {
	if record == nil || record.ID == "" {
		return entities.Reminder{}, apperrors.NewValidationError("a saved plant is required")
	}
	if kind != entities.ReminderWatering && kind != entities.ReminderFertilizing {
		return entities.Reminder{}, apperrors.NewValidationError(fmt.Sprintf("unknown reminder kind %q", kind))
	}

	reminder := entities.Reminder{
		PlantID:   record.ID,
		PlantName: record.Name,
		Kind:      kind,
		Schedule:  strings.TrimSpace(schedule),
	}

	token, err := r.scheduler.Schedule(ctx, reminder)
	if err != nil {
		return entities.Reminder{}, err
	}

	key := reminderKey(record.ID, kind)
	if previous, ok, err := r.load(ctx, key); err == nil && ok {
		if err := r.scheduler.Cancel(ctx, previous.Token); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("failed to cancel replaced reminder")
		}
	}

	if err := r.save(ctx, key, storedReminder{Reminder: reminder, Token: token}); err != nil {
		r.scheduler.Cancel(ctx, token)
		return entities.Reminder{}, err
	}
	return reminder, nil
}

// List returns every stored reminder in key order
func (r *Reminders) List(ctx context.Context) ([]entities.Reminder, error) {
	stored, err := r.all(ctx, reminderKeyPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]entities.Reminder, 0, len(stored))
	for _, s := range stored {
		out = append(out, s.Reminder)
	}
	return out, nil
}

// CancelForPlant cancels and forgets all reminders of a plant
func (r *Reminders) CancelForPlant(ctx context.Context, plantID string) error {
	prefix := reminderKeyPrefix + plantID + ":"
	keys, err := r.store.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if stored, ok, err := r.load(ctx, key); err == nil && ok {
			if err := r.scheduler.Cancel(ctx, stored.Token); err != nil {
				return err
			}
		}
		if err := r.store.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Restore re-registers all stored reminders with the scheduler, for a long-running process.
// Reminders whose schedule no longer parses are skipped and reported in the log.
func (r *Reminders) Restore(ctx context.Context) (int, error) {
	keys, err := r.store.Keys(ctx, reminderKeyPrefix)
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, key := range keys {
		stored, ok, err := r.load(ctx, key)
		if err != nil || !ok {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("skipping unreadable reminder")
			continue
		}
		token, err := r.scheduler.Schedule(ctx, stored.Reminder)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("skipping reminder")
			continue
		}
		stored.Token = token
		if err := r.save(ctx, key, stored); err != nil {
			return restored, err
		}
		restored++
	}
	return restored, nil
}

func (r *Reminders) all(ctx context.Context, prefix string) ([]storedReminder, error) {
	keys, err := r.store.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]storedReminder, 0, len(keys))
	for _, key := range keys {
		stored, ok, err := r.load(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, stored)
		}
	}
	return out, nil
}

func (r *Reminders) load(ctx context.Context, key string) (storedReminder, bool, error) {
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil || !ok {
		return storedReminder{}, false, err
	}
	var stored storedReminder
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return storedReminder{}, false, fmt.Errorf("corrupt reminder %s: %w", key, err)
	}
	return stored, true, nil
}

func (r *Reminders) save(ctx context.Context, key string, stored storedReminder) error {
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode reminder: %w", err)
	}
	return r.store.Set(ctx, key, string(raw))
}
