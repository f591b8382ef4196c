/*
store.go - Persistence interface for schedule documents and reminder runs

PURPOSE:
  Defines the interface between the service shell and the database. The
  engine itself never touches storage: handlers load a document, decode it
  with factory.ParseSchedule and hand plain values to the engine.

KEY INTERFACES:
  ScheduleStore: Per-user schedule documents (the stored JSON list)
  ReminderStore: Reminder subscriptions and planning runs

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

EXAMPLE:
  doc, err := store.GetSchedule(ctx, "user-1")
  if errors.Is(err, generic.ErrScheduleNotFound) {
      // ask the user to register first
  }

SEE ALSO:
  - factory/schedule.go: Decodes ScheduleDocument.Description
  - api/scheduler.go: Uses ReminderStore
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// SCHEDULE DOCUMENTS
// =============================================================================

// ScheduleDocument is one user's registered schedule as stored.
type ScheduleDocument struct {
	UserID string
	// Description is the JSON category list (see factory/schedule.go).
	Description string
	// NextDayFlag enables answering for tomorrow in the afternoon.
	NextDayFlag bool
	UpdatedAt   time.Time
}

// ScheduleStore handles persistence of schedule documents.
type ScheduleStore interface {
	// GetSchedule returns ErrScheduleNotFound when nothing is stored.
	GetSchedule(ctx context.Context, userID string) (*ScheduleDocument, error)

	// PutSchedule replaces the user's document.
	PutSchedule(ctx context.Context, doc ScheduleDocument) error
}

// =============================================================================
// REMINDERS - Planning records, delivery is someone else's job
// =============================================================================

// ReminderSubscription asks the scheduler to plan weekly reminders.
type ReminderSubscription struct {
	UserID   string
	Week     string // "this" or "next"
	At       string // local "HH:MM"
	Timezone string
	Locale   string
	Created  time.Time
}

// ReminderRun records one planning pass for a subscription and period.
type ReminderRun struct {
	ID          string
	UserID      string
	Week        string
	PeriodStart time.Time
	Status      string // "completed", "failed"
	DaysPlanned int
	Error       string
	CreatedAt   time.Time
}

type ReminderStore interface {
	SaveSubscription(ctx context.Context, sub ReminderSubscription) error
	ListSubscriptions(ctx context.Context) ([]ReminderSubscription, error)
	DeleteSubscription(ctx context.Context, userID string) error

	// SaveReminderRun upserts by user, week and period start.
	SaveReminderRun(ctx context.Context, run ReminderRun) error
	// ListReminderRuns returns runs newest first; an empty status lists all.
	ListReminderRuns(ctx context.Context, status string) ([]ReminderRun, error)
	// IsReminderPlanned reports a completed run for the user, week and period.
	IsReminderPlanned(ctx context.Context, userID, week string, periodStart time.Time) (bool, error)
}
