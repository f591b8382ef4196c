package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/trash-schedule/generic"
)

func TestMemory_Schedule(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.GetSchedule(ctx, "u1")
	assert.ErrorIs(t, err, generic.ErrScheduleNotFound)

	require.NoError(t, m.PutSchedule(ctx, generic.ScheduleDocument{UserID: "u1", Description: "[]"}))
	doc, err := m.GetSchedule(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "[]", doc.Description)
	assert.False(t, doc.UpdatedAt.IsZero())
}

func TestMemory_ReminderRunsUpsertPerPeriod(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	period := time.Date(2019, time.March, 17, 0, 0, 0, 0, time.UTC)

	// GIVEN: A failed run, then a completed retry for the same period
	require.NoError(t, m.SaveReminderRun(ctx, generic.ReminderRun{
		ID: "r1", UserID: "u1", Week: "next", PeriodStart: period, Status: "failed", Error: "boom",
	}))
	planned, err := m.IsReminderPlanned(ctx, "u1", "next", period)
	require.NoError(t, err)
	assert.False(t, planned)

	require.NoError(t, m.SaveReminderRun(ctx, generic.ReminderRun{
		ID: "r2", UserID: "u1", Week: "next", PeriodStart: period, Status: "completed", DaysPlanned: 7,
	}))
	require.NoError(t, m.SaveReminderRun(ctx, generic.ReminderRun{
		ID: "r3", UserID: "u1", Week: "this", PeriodStart: period, Status: "completed",
	}))

	// THEN: One run per (user, week, period), newest first
	planned, err = m.IsReminderPlanned(ctx, "u1", "next", period)
	require.NoError(t, err)
	assert.True(t, planned)

	runs, err := m.ListReminderRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].ID)
	assert.Equal(t, "r1", runs[1].ID)
	assert.Equal(t, "completed", runs[1].Status)
	assert.Empty(t, runs[1].Error)

	failed, err := m.ListReminderRuns(ctx, "failed")
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestMemory_Subscriptions(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveSubscription(ctx, generic.ReminderSubscription{UserID: "b", Week: "this"}))
	require.NoError(t, m.SaveSubscription(ctx, generic.ReminderSubscription{UserID: "a", Week: "next"}))

	subs, err := m.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "a", subs[0].UserID)

	require.NoError(t, m.DeleteSubscription(ctx, "a"))
	subs, err = m.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}
