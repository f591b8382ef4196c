// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/trash-schedule/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu            sync.RWMutex
	schedules     map[string]generic.ScheduleDocument
	subscriptions map[string]generic.ReminderSubscription
	runs          []generic.ReminderRun
}

var (
	_ generic.ScheduleStore = (*Memory)(nil)
	_ generic.ReminderStore = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		schedules:     make(map[string]generic.ScheduleDocument),
		subscriptions: make(map[string]generic.ReminderSubscription),
	}
}

func (m *Memory) GetSchedule(_ context.Context, userID string) (*generic.ScheduleDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.schedules[userID]
	if !ok {
		return nil, generic.ErrScheduleNotFound
	}
	return &doc, nil
}

func (m *Memory) PutSchedule(_ context.Context, doc generic.ScheduleDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	m.schedules[doc.UserID] = doc
	return nil
}

func (m *Memory) SaveSubscription(_ context.Context, sub generic.ReminderSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[sub.UserID] = sub
	return nil
}

// ListSubscriptions returns subscriptions ordered by user id.
func (m *Memory) ListSubscriptions(_ context.Context) ([]generic.ReminderSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.ReminderSubscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		result = append(result, sub)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (m *Memory) DeleteSubscription(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, userID)
	return nil
}

func (m *Memory) SaveReminderRun(_ context.Context, run generic.ReminderRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.runs {
		if existing.UserID == run.UserID && existing.Week == run.Week &&
			existing.PeriodStart.Equal(run.PeriodStart) {
			run.ID = existing.ID
			run.CreatedAt = existing.CreatedAt
			m.runs[i] = run
			return nil
		}
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *Memory) IsReminderPlanned(_ context.Context, userID, week string, periodStart time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, run := range m.runs {
		if run.UserID == userID && run.Week == week && run.Status == "completed" &&
			run.PeriodStart.Equal(periodStart) {
			return true, nil
		}
	}
	return false, nil
}

// ListReminderRuns returns runs newest first.
func (m *Memory) ListReminderRuns(_ context.Context, status string) ([]generic.ReminderRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.ReminderRun
	for i := len(m.runs) - 1; i >= 0; i-- {
		if status == "" || m.runs[i].Status == status {
			result = append(result, m.runs[i])
		}
	}
	return result, nil
}
