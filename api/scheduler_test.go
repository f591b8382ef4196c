package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/warp/trash-schedule/generic"
	"github.com/warp/trash-schedule/generic/store"
	"github.com/warp/trash-schedule/notify"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches []notify.Batch
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, batch notify.Batch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, batch)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches)
}

func newTestScheduler(t *testing.T, now time.Time) (*ReminderScheduler, *store.Memory, *recordingPublisher) {
	t.Helper()
	mem := store.NewMemory()
	pub := &recordingPublisher{}
	rs := NewReminderScheduler(mem, mem, pub, zaptest.NewLogger(t))
	rs.Metrics = NewMetrics()
	rs.Now = func() time.Time { return now }
	return rs, mem, pub
}

// saturdayBeforeMidnight is 23:59:59 on Saturday 2019-11-23 in Tokyo.
var saturdayBeforeMidnight = time.Date(2019, time.November, 23, 14, 59, 59, 0, time.UTC)

// tickingClock returns start, then advances two seconds on every later call.
func tickingClock(start time.Time) func() time.Time {
	var (
		mu    sync.Mutex
		calls int
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := start.Add(time.Duration(calls) * 2 * time.Second)
		calls++
		return now
	}
}

func subscribe(t *testing.T, mem *store.Memory, userID, week string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, mem.PutSchedule(ctx, generic.ScheduleDocument{
		UserID: userID, Description: registeredDoc, NextDayFlag: true,
	}))
	require.NoError(t, mem.SaveSubscription(ctx, generic.ReminderSubscription{
		UserID: userID, Week: week, At: "06:45", Timezone: "Asia/Tokyo", Locale: "ja-JP",
	}))
}

func TestScheduler_PlansOncePerPeriod(t *testing.T) {
	rs, mem, pub := newTestScheduler(t, thursdayMorning)
	subscribe(t, mem, "u1", "next")
	ctx := context.Background()

	// WHEN: Two passes in the same week
	first := rs.RunNow(ctx)
	second := rs.RunNow(ctx)

	// THEN: The period is planned once
	assert.Equal(t, PlanSummary{Planned: 1}, first)
	assert.Equal(t, PlanSummary{Skipped: 1}, second)
	require.Equal(t, 1, pub.count())

	batch := pub.batches[0]
	assert.Equal(t, "u1", batch.UserID)
	assert.Equal(t, "next", batch.Week)
	assert.Equal(t, "2019-03-17", batch.PeriodStart)
	require.Len(t, batch.Requests, 7)
	assert.Equal(t, "2019-03-17T06:45:00.000", batch.Requests[0].ScheduledTime)
	assert.Equal(t, "2019-03-23T06:45:00.000", batch.Requests[6].ScheduledTime)

	runs, err := mem.ListReminderRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, batch.RunID, runs[0].ID)
	assert.Equal(t, RunCompleted, runs[0].Status)
	assert.Equal(t, 7, runs[0].DaysPlanned)
	assert.Equal(t, 1.0, testutil.ToFloat64(rs.Metrics.reminderRuns.WithLabelValues(RunCompleted)))
}

func TestScheduler_NextWeekRollsOver(t *testing.T) {
	rs, mem, pub := newTestScheduler(t, thursdayMorning)
	subscribe(t, mem, "u1", "next")
	ctx := context.Background()

	rs.RunNow(ctx)

	// GIVEN: A week later the "next" week is a new period
	rs.Now = func() time.Time { return thursdayMorning.AddDate(0, 0, 7) }
	summary := rs.RunNow(ctx)

	assert.Equal(t, PlanSummary{Planned: 1}, summary)
	require.Equal(t, 2, pub.count())
	assert.Equal(t, "2019-03-24", pub.batches[1].PeriodStart)
}

func TestScheduler_PlanAcrossMidnightUsesOneToday(t *testing.T) {
	rs, mem, pub := newTestScheduler(t, thursdayMorning)
	subscribe(t, mem, "u1", "next")
	ctx := context.Background()

	// GIVEN: The local clock passes midnight while the pass runs
	rs.Now = tickingClock(saturdayBeforeMidnight)

	summary := rs.RunNow(ctx)

	// THEN: The stored period and the published days are the same week
	assert.Equal(t, PlanSummary{Planned: 1}, summary)
	require.Equal(t, 1, pub.count())
	batch := pub.batches[0]
	assert.Equal(t, "2019-11-24", batch.PeriodStart)
	require.Len(t, batch.Requests, 7)
	assert.Equal(t, "2019-11-24T06:45:00.000", batch.Requests[0].ScheduledTime)
	assert.Equal(t, "2019-11-30T06:45:00.000", batch.Requests[6].ScheduledTime)

	runs, err := mem.ListReminderRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "2019-11-24", generic.DateOf(runs[0].PeriodStart).String())
}

func TestScheduler_FailedRunIsRetried(t *testing.T) {
	rs, mem, pub := newTestScheduler(t, thursdayMorning)
	subscribe(t, mem, "u1", "next")
	ctx := context.Background()

	// GIVEN: The publisher is down
	pub.err = errors.New("nats: no servers available")
	summary := rs.RunNow(ctx)

	assert.Equal(t, PlanSummary{Failed: 1}, summary)
	failed, err := mem.ListReminderRuns(ctx, RunFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Error, "no servers available")

	// WHEN: It recovers
	pub.err = nil
	summary = rs.RunNow(ctx)

	// THEN: The same period is planned, replacing the failed run
	assert.Equal(t, PlanSummary{Planned: 1}, summary)
	runs, err := mem.ListReminderRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunCompleted, runs[0].Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(rs.Metrics.reminderRuns.WithLabelValues(RunFailed)))
}

func TestScheduler_MissingSchedule(t *testing.T) {
	rs, mem, pub := newTestScheduler(t, thursdayMorning)
	require.NoError(t, mem.SaveSubscription(context.Background(), generic.ReminderSubscription{
		UserID: "ghost", Week: "this", At: "07:00", Timezone: "Asia/Tokyo",
	}))

	summary := rs.RunNow(context.Background())

	assert.Equal(t, PlanSummary{Failed: 1}, summary)
	assert.Zero(t, pub.count())
}

func TestScheduler_SaturdayThisWeekPublishesNothing(t *testing.T) {
	// Saturday 2019-03-16, 09:00 in Tokyo
	saturday := time.Date(2019, time.March, 16, 0, 0, 0, 0, time.UTC)
	rs, mem, pub := newTestScheduler(t, saturday)
	subscribe(t, mem, "u1", "this")

	summary := rs.RunNow(context.Background())

	assert.Equal(t, PlanSummary{Planned: 1}, summary)
	assert.Zero(t, pub.count())
	runs, err := mem.ListReminderRuns(context.Background(), RunCompleted)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Zero(t, runs[0].DaysPlanned)
}

func TestScheduler_StartStop(t *testing.T) {
	rs, mem, pub := newTestScheduler(t, thursdayMorning)
	subscribe(t, mem, "u1", "next")

	// Start runs a pass immediately.
	rs.Start()
	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 10*time.Millisecond)
	rs.Stop()

	// Stopping twice is harmless.
	rs.Stop()
}

func TestScheduler_Disabled(t *testing.T) {
	rs, mem, pub := newTestScheduler(t, thursdayMorning)
	subscribe(t, mem, "u1", "next")
	rs.Enabled = false

	rs.Start()
	rs.Stop()

	assert.Zero(t, pub.count())
}
