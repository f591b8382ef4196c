/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists registered schedule documents and the reminder planning state
  using SQLite.

INTERFACES IMPLEMENTED:
  generic.ScheduleStore: Per-user schedule documents
  generic.ReminderStore: Reminder subscriptions and planning runs

KEY TABLES:
  schedules:              One JSON document per user (see factory/schedule.go)
  reminder_subscriptions: Weekly reminder planning requests
  reminder_runs:          One row per user, week and period planned

INDEXES:
  - idx_reminder_runs_unique: One run per (user, week, period start), so a
    repeated planning pass updates instead of duplicating

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are pinned to
  one connection so every query sees the same database.

USAGE:
  store, err := sqlite.New("./data/trash.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/trash-schedule/generic"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ generic.ScheduleStore = (*Store)(nil)
	_ generic.ReminderStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schedules (
		user_id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		next_day_flag INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reminder_subscriptions (
		user_id TEXT PRIMARY KEY,
		week TEXT NOT NULL,
		at TEXT NOT NULL,
		timezone TEXT NOT NULL,
		locale TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reminder_runs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		week TEXT NOT NULL,
		period_start TEXT NOT NULL,
		status TEXT NOT NULL,
		days_planned INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_reminder_runs_unique
		ON reminder_runs(user_id, week, period_start);
	CREATE INDEX IF NOT EXISTS idx_reminder_runs_status
		ON reminder_runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset removes all data. Used by tests and the dev reset endpoint.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"reminder_runs", "reminder_subscriptions", "schedules"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// SCHEDULE STORE
// =============================================================================

// GetSchedule retrieves a user's document.
func (s *Store) GetSchedule(ctx context.Context, userID string) (*generic.ScheduleDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc generic.ScheduleDocument
	var updatedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, description, next_day_flag, updated_at FROM schedules WHERE user_id = ?",
		userID,
	).Scan(&doc.UserID, &doc.Description, &doc.NextDayFlag, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrScheduleNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &doc, nil
}

// PutSchedule saves a user's document, replacing any previous one.
func (s *Store) PutSchedule(ctx context.Context, doc generic.ScheduleDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO schedules (user_id, description, next_day_flag, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			description = excluded.description,
			next_day_flag = excluded.next_day_flag,
			updated_at = excluded.updated_at
	`

	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query,
		doc.UserID, doc.Description, doc.NextDayFlag, updatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// =============================================================================
// REMINDER STORE
// =============================================================================

// SaveSubscription creates or replaces the user's subscription.
func (s *Store) SaveSubscription(ctx context.Context, sub generic.ReminderSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO reminder_subscriptions (user_id, week, at, timezone, locale, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			week = excluded.week,
			at = excluded.at,
			timezone = excluded.timezone,
			locale = excluded.locale
	`

	created := sub.Created
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query,
		sub.UserID, sub.Week, sub.At, sub.Timezone, sub.Locale, created.UTC().Format(time.RFC3339),
	)
	return err
}

// ListSubscriptions returns all subscriptions ordered by user id.
func (s *Store) ListSubscriptions(ctx context.Context) ([]generic.ReminderSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, week, at, timezone, locale, created_at FROM reminder_subscriptions ORDER BY user_id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []generic.ReminderSubscription
	for rows.Next() {
		var sub generic.ReminderSubscription
		var created string
		if err := rows.Scan(&sub.UserID, &sub.Week, &sub.At, &sub.Timezone, &sub.Locale, &created); err != nil {
			return nil, err
		}
		sub.Created, _ = time.Parse(time.RFC3339, created)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// DeleteSubscription removes the user's subscription.
func (s *Store) DeleteSubscription(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM reminder_subscriptions WHERE user_id = ?", userID)
	return err
}

// SaveReminderRun saves a planning run. A second run for the same user,
// week and period overwrites the first.
func (s *Store) SaveReminderRun(ctx context.Context, r generic.ReminderRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO reminder_runs (id, user_id, week, period_start, status, days_planned, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, week, period_start) DO UPDATE SET
			status = excluded.status,
			days_planned = excluded.days_planned,
			error = excluded.error
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.UserID, r.Week, r.PeriodStart.Format(time.RFC3339),
		r.Status, r.DaysPlanned, nullString(r.Error), r.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// ListReminderRuns returns runs, newest first, optionally filtered by status.
func (s *Store) ListReminderRuns(ctx context.Context, status string) ([]generic.ReminderRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, week, period_start, status, days_planned, error, created_at
		FROM reminder_runs
	`
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC, user_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []generic.ReminderRun
	for rows.Next() {
		var r generic.ReminderRun
		var periodStart, createdAt string
		var runErr sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &r.Week, &periodStart, &r.Status, &r.DaysPlanned, &runErr, &createdAt); err != nil {
			return nil, err
		}
		r.PeriodStart, _ = time.Parse(time.RFC3339, periodStart)
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		r.Error = runErr.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// IsReminderPlanned checks if a completed run exists for the period.
func (s *Store) IsReminderPlanned(ctx context.Context, userID, week string, periodStart time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COUNT(*) FROM reminder_runs
		WHERE user_id = ? AND week = ? AND period_start = ? AND status = 'completed'
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, userID, week, periodStart.Format(time.RFC3339)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
