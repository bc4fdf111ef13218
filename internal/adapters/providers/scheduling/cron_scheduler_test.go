package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/smartgarden/backend/internal/domain/entities"
	apperrors "github.com/smartgarden/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRuns(t *testing.T) {
	from := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	runs, err := NextRuns("0 9 * * *", from, 2)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
	}, runs)
}

func TestParseSchedule_Invalid(t *testing.T) {
	_, err := ParseSchedule("every day")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = ParseSchedule("0 0 9 * * *")
	assert.Error(t, err)
}

func TestCronScheduler_ScheduleAndCancel(t *testing.T) {
	var fired []entities.Reminder
	s := NewCronScheduler(time.UTC, func(ctx context.Context, r entities.Reminder) {
		fired = append(fired, r)
	})

	reminder := entities.Reminder{PlantID: "p1", PlantName: "Fern", Kind: entities.ReminderWatering, Schedule: "0 9 * * 1"}
	token, err := s.Schedule(context.Background(), reminder)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, 1, s.Len())

	s.cron.Entry(s.entries[token]).Job.Run()
	require.Len(t, fired, 1)
	assert.Equal(t, "p1", fired[0].PlantID)

	require.NoError(t, s.Cancel(context.Background(), token))
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.cron.Entries())

	assert.NoError(t, s.Cancel(context.Background(), "unknown"))
}

func TestCronScheduler_TokenFromEarlierRunCancelsNothing(t *testing.T) {
	reminder := entities.Reminder{PlantID: "p1", PlantName: "Fern", Kind: entities.ReminderWatering, Schedule: "0 9 * * 1"}

	earlier := NewCronScheduler(time.UTC, nil)
	staleToken, err := earlier.Schedule(context.Background(), reminder)
	require.NoError(t, err)

	current := NewCronScheduler(time.UTC, nil)
	other := entities.Reminder{PlantID: "p2", PlantName: "Palm", Kind: entities.ReminderWatering, Schedule: "0 9 * * 2"}
	liveToken, err := current.Schedule(context.Background(), other)
	require.NoError(t, err)
	assert.NotEqual(t, staleToken, liveToken)

	require.NoError(t, current.Cancel(context.Background(), staleToken))
	assert.Equal(t, 1, current.Len())
	assert.Len(t, current.cron.Entries(), 1)
}

func TestCronScheduler_RejectsBadSchedule(t *testing.T) {
	s := NewCronScheduler(nil, nil)

	_, err := s.Schedule(context.Background(), entities.Reminder{PlantID: "p1", Schedule: "nope"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Equal(t, 0, s.Len())
}
