/*
scheduler.go - Automated reminder planning

PURPOSE:
  Periodically plans weekly reminders for every subscription and hands the
  resulting requests to the notification publisher.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - A subscription is planned once per (week, period start); the period is
    the Sunday..Saturday week that "this" or "next" refers to in the
    subscriber's zone
  - Skips periods that already have a completed run
  - Records every run (completed or failed) for audit and the runs endpoint

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewReminderScheduler(store, store, publisher, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: PlanReminders endpoint (manual planning)
  - trash/remind.go: RemindBody, ReminderRequests
  - notify/publisher.go: Delivery hand-off
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/trash-schedule/factory"
	"github.com/warp/trash-schedule/generic"
	"github.com/warp/trash-schedule/notify"
	"github.com/warp/trash-schedule/trash"
)

const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// PlanSummary counts the outcome of one planning pass.
type PlanSummary struct {
	Planned int `json:"planned"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ReminderScheduler plans reminders for subscribers.
type ReminderScheduler struct {
	Schedules     generic.ScheduleStore
	Reminders     generic.ReminderStore
	Publisher     notify.Publisher
	Names         trash.NameResolver
	Metrics       *Metrics
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	// Now defaults to time.Now.
	Now func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	runMu  sync.Mutex
}

// NewReminderScheduler creates a new scheduler.
func NewReminderScheduler(schedules generic.ScheduleStore, reminders generic.ReminderStore, publisher notify.Publisher, logger *zap.Logger) *ReminderScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderScheduler{
		Schedules:     schedules,
		Reminders:     reminders,
		Publisher:     publisher,
		Names:         trash.DefaultNames,
		Logger:        logger,
		CheckInterval: time.Hour,
		Enabled:       true,
		Now:           time.Now,
	}
}

// Start begins the scheduler.
func (rs *ReminderScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Logger.Info("reminder scheduler disabled")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run()

	rs.Logger.Info("reminder scheduler started", zap.Duration("interval", rs.CheckInterval))
}

// Stop stops the scheduler and waits for a running pass to finish.
func (rs *ReminderScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.Logger.Info("reminder scheduler stopped")
	}
}

func (rs *ReminderScheduler) run() {
	defer rs.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-rs.stop
		cancel()
	}()

	// Run immediately on start
	rs.RunNow(ctx)

	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow(ctx)
		case <-rs.stop:
			return
		}
	}
}

// RunNow plans every subscription once. Passes never overlap.
func (rs *ReminderScheduler) RunNow(ctx context.Context) PlanSummary {
	rs.runMu.Lock()
	defer rs.runMu.Unlock()

	var summary PlanSummary

	subs, err := rs.Reminders.ListSubscriptions(ctx)
	if err != nil {
		rs.Logger.Error("list subscriptions", zap.Error(err))
		return summary
	}

	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		planned, err := rs.planSubscription(ctx, sub)
		switch {
		case err != nil:
			summary.Failed++
			rs.Logger.Error("reminder planning failed",
				zap.String("user_id", sub.UserID),
				zap.String("week", sub.Week),
				zap.Error(err))
		case planned:
			summary.Planned++
		default:
			summary.Skipped++
		}
	}

	if summary.Planned > 0 || summary.Failed > 0 {
		rs.Logger.Info("reminder planning pass",
			zap.Int("planned", summary.Planned),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed))
	}
	return summary
}

// planSubscription returns false when the period is already planned.
func (rs *ReminderScheduler) planSubscription(ctx context.Context, sub generic.ReminderSubscription) (bool, error) {
	week, err := trash.ParseWeek(sub.Week)
	if err != nil {
		return false, err
	}
	cal, err := generic.NewLocalCalendar(sub.Timezone)
	if err != nil {
		return false, err
	}
	if rs.Now != nil {
		cal.Now = rs.Now
	}

	// One clock read keys the run and selects its days.
	now := cal.LocalNow()
	today := generic.DateOf(now)
	period := generic.WeekContaining(today)
	if week == trash.NextWeek {
		period = period.NextPeriod()
	}

	done, err := rs.Reminders.IsReminderPlanned(ctx, sub.UserID, sub.Week, period.Start.Time)
	if err != nil {
		return false, fmt.Errorf("check reminder run: %w", err)
	}
	if done {
		rs.Logger.Debug("reminder period already planned",
			zap.String("user_id", sub.UserID),
			zap.Stringer("period", period))
		return false, nil
	}

	run := generic.ReminderRun{
		ID:          uuid.NewString(),
		UserID:      sub.UserID,
		Week:        sub.Week,
		PeriodStart: period.Start.Time,
		CreatedAt:   now.UTC(),
	}

	days, err := rs.plan(ctx, sub, week, today, run)
	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
		rs.record(ctx, run)
		return false, err
	}

	run.Status = RunCompleted
	run.DaysPlanned = days
	if err := rs.record(ctx, run); err != nil {
		return false, err
	}
	return true, nil
}

func (rs *ReminderScheduler) plan(ctx context.Context, sub generic.ReminderSubscription, week trash.Week, today generic.TimePoint, run generic.ReminderRun) (int, error) {
	doc, err := rs.Schedules.GetSchedule(ctx, sub.UserID)
	if err != nil {
		return 0, err
	}
	categories, warnings, err := factory.ParseSchedule(doc.Description)
	if err != nil {
		return 0, err
	}
	if rs.Metrics != nil {
		rs.Metrics.ObserveInvalidRules(len(warnings))
	}

	days := trash.RemindBody(week, categories, today, rs.Names)
	requests, err := trash.ReminderRequests(days, sub.At, sub.Locale)
	if err != nil {
		return 0, err
	}
	if len(requests) == 0 {
		return 0, nil
	}

	batch := notify.Batch{
		RunID:       run.ID,
		UserID:      sub.UserID,
		Week:        sub.Week,
		PeriodStart: generic.DateOf(run.PeriodStart).String(),
		Requests:    requests,
		PlannedAt:   run.CreatedAt,
	}
	if err := rs.Publisher.Publish(ctx, batch); err != nil {
		return 0, err
	}
	return len(days), nil
}

func (rs *ReminderScheduler) record(ctx context.Context, run generic.ReminderRun) error {
	if rs.Metrics != nil {
		rs.Metrics.ObserveReminderRun(run.Status)
	}
	if err := rs.Reminders.SaveReminderRun(ctx, run); err != nil {
		rs.Logger.Error("save reminder run", zap.String("run_id", run.ID), zap.Error(err))
		return fmt.Errorf("save reminder run: %w", err)
	}
	return nil
}
