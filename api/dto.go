/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Engine types stay
  free of wire concerns; handlers convert at the edge.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Schedule:
    PutScheduleRequest, ScheduleDTO, CategoryDTO, RuleDTO

  Day queries:
    trash.DaySchedule (already tagged), LookaheadResponse

  Resolution:
    ResolutionDTO, GroupDTO, OccurrenceDTO

  Reminders:
    RemindResponse, SubscribeRequest, SubscriptionDTO, ReminderRunDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/warp/trash-schedule/generic"
	"github.com/warp/trash-schedule/trash"
)

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// SCHEDULE
// =============================================================================

type PutScheduleRequest struct {
	// Schedule is the stored category list, see factory/schedule.go.
	Schedule    json.RawMessage `json:"schedule"`
	NextDayFlag *bool           `json:"next_day_flag,omitempty"`
}

type ScheduleDTO struct {
	UserID      string        `json:"user_id"`
	NextDayFlag bool          `json:"next_day_flag"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Categories  []CategoryDTO `json:"categories"`
	Warnings    []string      `json:"warnings,omitempty"`
}

type CategoryDTO struct {
	Code  string    `json:"type"`
	Name  string    `json:"name,omitempty"`
	Rules []RuleDTO `json:"rules"`
}

type RuleDTO struct {
	Kind        generic.RuleKind `json:"kind"`
	Description string           `json:"description"`
}

// =============================================================================
// DAY QUERIES
// =============================================================================

type LookaheadResponse struct {
	StartOffset int                 `json:"start_offset"`
	Days        []trash.DaySchedule `json:"days"`
}

// =============================================================================
// RESOLUTION
// =============================================================================

type ResolutionDTO struct {
	Outcome     trash.Outcome `json:"outcome"`
	Utterance   string        `json:"utterance,omitempty"`
	Key         string        `json:"key,omitempty"`
	Score       string        `json:"score,omitempty"`
	ConfirmName string        `json:"confirm_name,omitempty"`
	Groups      []GroupDTO    `json:"groups"`
}

type GroupDTO struct {
	Key         string            `json:"key"`
	Nearest     generic.TimePoint `json:"nearest"`
	Occurrences []OccurrenceDTO   `json:"occurrences"`
}

type OccurrenceDTO struct {
	Rule string            `json:"rule"`
	Date generic.TimePoint `json:"date"`
}

// =============================================================================
// REMINDERS
// =============================================================================

type RemindResponse struct {
	Week     string                  `json:"week"`
	Days     []trash.DaySchedule     `json:"days"`
	Requests []trash.ReminderRequest `json:"requests,omitempty"`
}

type SubscribeRequest struct {
	Week     string `json:"week"`
	At       string `json:"time"`
	Timezone string `json:"timezone,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

type SubscriptionDTO struct {
	UserID   string    `json:"user_id"`
	Week     string    `json:"week"`
	At       string    `json:"time"`
	Timezone string    `json:"timezone"`
	Locale   string    `json:"locale"`
	Created  time.Time `json:"created_at"`
}

type ReminderRunDTO struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Week        string    `json:"week"`
	PeriodStart string    `json:"period_start"`
	Status      string    `json:"status"`
	DaysPlanned int       `json:"days_planned"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toCategoryDTOs(categories []trash.Category, names trash.NameResolver) []CategoryDTO {
	result := make([]CategoryDTO, 0, len(categories))
	for _, c := range categories {
		dto := CategoryDTO{Code: c.Code, Rules: make([]RuleDTO, 0, len(c.Rules))}
		if c.IsOther() {
			dto.Name = c.DisplayName
		} else if names != nil {
			dto.Name = names.Name(c.Code)
		}
		for _, r := range c.Rules {
			dto.Rules = append(dto.Rules, RuleDTO{Kind: r.Kind(), Description: generic.Describe(r)})
		}
		result = append(result, dto)
	}
	return result
}

func toResolutionDTO(res *trash.Resolution) ResolutionDTO {
	dto := ResolutionDTO{
		Outcome:     res.Outcome,
		Utterance:   res.Utterance,
		Key:         res.Key,
		ConfirmName: res.ConfirmName,
		Groups:      toGroupDTOs(res.Groups),
	}
	if res.Outcome == trash.OutcomeConfident || res.Outcome == trash.OutcomeConfirm ||
		(res.Outcome == trash.OutcomeNotRegistered && !res.Score.IsZero()) {
		dto.Score = res.Score.String()
	}
	return dto
}

// toGroupDTOs orders groups by nearest date, then key.
func toGroupDTOs(groups map[string]trash.OccurrenceGroup) []GroupDTO {
	result := make([]GroupDTO, 0, len(groups))
	for _, g := range groups {
		dto := GroupDTO{Key: g.Key, Nearest: g.Nearest}
		for i, r := range g.Rules {
			if i >= len(g.Occurrences) {
				break
			}
			dto.Occurrences = append(dto.Occurrences, OccurrenceDTO{
				Rule: generic.Describe(r),
				Date: g.Occurrences[i],
			})
		}
		result = append(result, dto)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Nearest.Equal(result[j].Nearest) {
			return result[i].Nearest.Before(result[j].Nearest)
		}
		return result[i].Key < result[j].Key
	})
	return result
}

func toSubscriptionDTO(sub generic.ReminderSubscription) SubscriptionDTO {
	return SubscriptionDTO{
		UserID:   sub.UserID,
		Week:     sub.Week,
		At:       sub.At,
		Timezone: sub.Timezone,
		Locale:   sub.Locale,
		Created:  sub.Created,
	}
}

func toReminderRunDTO(run generic.ReminderRun) ReminderRunDTO {
	return ReminderRunDTO{
		ID:          run.ID,
		UserID:      run.UserID,
		Week:        run.Week,
		PeriodStart: generic.DateOf(run.PeriodStart).String(),
		Status:      run.Status,
		DaysPlanned: run.DaysPlanned,
		Error:       run.Error,
		CreatedAt:   run.CreatedAt,
	}
}
