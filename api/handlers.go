/*
handlers.go - HTTP API handlers for the trash schedule service

PURPOSE:
  Exposes the schedule engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the trash package.

ENDPOINTS:
  Schedule:
    PUT    /api/users/{id}/schedule    Register the category list
    GET    /api/users/{id}/schedule    Registered categories and warnings

  Day queries:
    GET    /api/users/{id}/enabled     Categories out on today+offset
    GET    /api/users/{id}/lookahead   Three days from a slot or the launch day
    GET    /api/users/{id}/next        Next collection for a slot or free text

  Reminders:
    GET    /api/users/{id}/remind      Reminder payload for this/next week
    POST   /api/users/{id}/reminders   Subscribe to weekly planning
    DELETE /api/users/{id}/reminders   Unsubscribe
    GET    /api/reminders/runs         Planning history
    POST   /api/admin/reminders/plan   Run the planner now

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Schedules, Reminders: Storage
  - Resolver: Fuzzy category resolution (comparator behind it)
  - Scheduler: Optional, for the manual planning endpoint

TIME:
  Every query resolves "today" in the zone given by ?tz=, falling back to
  DefaultTimezone. Handler.Now is pinned in tests.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: No schedule registered
  - 502: Comparator failure (never reported as "not registered")
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/warp/trash-schedule/factory"
	"github.com/warp/trash-schedule/generic"
	"github.com/warp/trash-schedule/trash"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Schedules generic.ScheduleStore
	Reminders generic.ReminderStore
	Resolver  *trash.Resolver
	Scheduler *ReminderScheduler
	Names     trash.NameResolver
	Metrics   *Metrics
	Logger    *zap.Logger
	Health    Pinger

	DefaultTimezone string
	DefaultLocale   string
	AllowedOrigins  []string

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewHandler creates a handler with ja-JP defaults.
func NewHandler(schedules generic.ScheduleStore, reminders generic.ReminderStore, resolver *trash.Resolver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Schedules:       schedules,
		Reminders:       reminders,
		Resolver:        resolver,
		Names:           trash.DefaultNames,
		Logger:          logger,
		DefaultTimezone: "Asia/Tokyo",
		DefaultLocale:   "ja-JP",
		Now:             time.Now,
	}
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// calendar resolves the request's zone.
func (h *Handler) calendar(r *http.Request) (*generic.LocalCalendar, error) {
	tz := strings.TrimSpace(r.URL.Query().Get("tz"))
	if tz == "" {
		tz = h.DefaultTimezone
	}
	cal, err := generic.NewLocalCalendar(tz)
	if err != nil {
		return nil, err
	}
	cal.Now = h.now
	return cal, nil
}

// loadSchedule fetches and decodes a user's document. Invalid rules are
// logged and counted, never fatal.
func (h *Handler) loadSchedule(ctx context.Context, userID string) (*generic.ScheduleDocument, []trash.Category, []*generic.InvalidRuleError, error) {
	doc, err := h.Schedules.GetSchedule(ctx, userID)
	if err != nil {
		return nil, nil, nil, err
	}
	categories, warnings, err := factory.ParseSchedule(doc.Description)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("stored schedule for %s: %w", userID, err)
	}
	h.reportWarnings(userID, warnings)
	return doc, categories, warnings, nil
}

func (h *Handler) reportWarnings(userID string, warnings []*generic.InvalidRuleError) {
	if len(warnings) == 0 {
		return
	}
	for _, w := range warnings {
		h.Logger.Warn("rule treated as none",
			zap.String("user_id", userID),
			zap.String("category", w.Category),
			zap.Int("index", w.Index),
			zap.String("reason", w.Reason))
	}
	if h.Metrics != nil {
		h.Metrics.ObserveInvalidRules(len(warnings))
	}
}

// =============================================================================
// SCHEDULE ENDPOINTS
// =============================================================================

func (h *Handler) PutSchedule(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req PutScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(bytes.TrimSpace(req.Schedule)) == 0 {
		writeError(w, http.StatusBadRequest, "schedule is required", nil)
		return
	}

	categories, warnings, err := factory.ParseSchedule(string(req.Schedule))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.reportWarnings(userID, warnings)

	var compact bytes.Buffer
	if err := json.Compact(&compact, req.Schedule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid schedule", err)
		return
	}

	doc := generic.ScheduleDocument{
		UserID:      userID,
		Description: compact.String(),
		NextDayFlag: true,
		UpdatedAt:   h.now().UTC().Truncate(time.Second),
	}
	if req.NextDayFlag != nil {
		doc.NextDayFlag = *req.NextDayFlag
	}

	if err := h.Schedules.PutSchedule(r.Context(), doc); err != nil {
		h.fail(w, r, err)
		return
	}

	h.Logger.Info("schedule registered",
		zap.String("user_id", userID),
		zap.Int("categories", len(categories)),
		zap.Int("warnings", len(warnings)))

	writeJSON(w, http.StatusOK, h.scheduleDTO(&doc, categories, warnings))
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	doc, categories, warnings, err := h.loadSchedule(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.scheduleDTO(doc, categories, warnings))
}

func (h *Handler) scheduleDTO(doc *generic.ScheduleDocument, categories []trash.Category, warnings []*generic.InvalidRuleError) ScheduleDTO {
	dto := ScheduleDTO{
		UserID:      doc.UserID,
		NextDayFlag: doc.NextDayFlag,
		UpdatedAt:   doc.UpdatedAt,
		Categories:  toCategoryDTOs(categories, h.Names),
	}
	for _, w := range warnings {
		dto.Warnings = append(dto.Warnings, w.Error())
	}
	return dto
}

// =============================================================================
// DAY QUERIES
// =============================================================================

// GetEnabled lists the categories out on today + offset.
func (h *Handler) GetEnabled(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer", err)
			return
		}
		offset = n
	}

	cal, err := h.calendar(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_, categories, _, err := h.loadSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	date := cal.Date(offset)
	writeJSON(w, http.StatusOK, trash.DaySchedule{
		DayOffset: offset,
		Date:      date,
		Entries:   trash.EnabledFor(categories, date, h.Names),
	})
}

// GetLookahead evaluates three days from a point-day slot. Without a slot
// it starts on the launch day, which is tomorrow in the afternoon for
// users who asked for that.
func (h *Handler) GetLookahead(w http.ResponseWriter, r *http.Request) {
	cal, err := h.calendar(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	doc, categories, _, err := h.loadSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	now := cal.LocalNow()
	today := generic.DateOf(now)

	var start int
	if s := r.URL.Query().Get("slot"); s != "" {
		slot, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "slot must be an integer", err)
			return
		}
		start, err = trash.PointDayOffset(slot, today)
		if err != nil {
			h.fail(w, r, err)
			return
		}
	} else {
		start = trash.LaunchOffset(now, doc.NextDayFlag)
	}

	writeJSON(w, http.StatusOK, LookaheadResponse{
		StartOffset: start,
		Days:        trash.Lookahead(categories, today, start, h.Names),
	})
}

// GetNext answers "when is X collected next".
func (h *Handler) GetNext(w http.ResponseWriter, r *http.Request) {
	slotID := strings.TrimSpace(r.URL.Query().Get("slot"))
	utterance := strings.TrimSpace(r.URL.Query().Get("utterance"))
	if slotID == "" && utterance == "" {
		writeError(w, http.StatusBadRequest, "slot or utterance is required", nil)
		return
	}

	cal, err := h.calendar(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_, categories, _, err := h.loadSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.Resolver.Resolve(r.Context(), slotID, utterance, categories, cal.Today())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResolutionDTO(res))
}

// =============================================================================
// REMINDER ENDPOINTS
// =============================================================================

// GetRemind returns the reminder payload for a week. With ?time=HH:MM the
// scheduled requests are included.
func (h *Handler) GetRemind(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	week, err := trash.ParseWeek(q.Get("week"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	cal, err := h.calendar(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_, categories, _, err := h.loadSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := RemindResponse{
		Week: week.String(),
		Days: trash.RemindBody(week, categories, cal.Today(), h.Names),
	}
	if at := q.Get("time"); at != "" {
		locale := q.Get("locale")
		if locale == "" {
			locale = h.DefaultLocale
		}
		resp.Requests, err = trash.ReminderRequests(resp.Days, at, locale)
		if err != nil {
			h.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	week, err := trash.ParseWeek(req.Week)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, _, err := trash.ParseClock(req.At); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Timezone == "" {
		req.Timezone = h.DefaultTimezone
	}
	if _, err := generic.NewLocalCalendar(req.Timezone); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Locale == "" {
		req.Locale = h.DefaultLocale
	}

	// Planning needs a schedule to plan from.
	if _, err := h.Schedules.GetSchedule(r.Context(), userID); err != nil {
		h.fail(w, r, err)
		return
	}

	sub := generic.ReminderSubscription{
		UserID:   userID,
		Week:     week.String(),
		At:       req.At,
		Timezone: req.Timezone,
		Locale:   req.Locale,
		Created:  h.now().UTC().Truncate(time.Second),
	}
	if err := h.Reminders.SaveSubscription(r.Context(), sub); err != nil {
		h.fail(w, r, err)
		return
	}

	h.Logger.Info("reminders subscribed",
		zap.String("user_id", userID),
		zap.String("week", sub.Week),
		zap.String("at", sub.At))
	writeJSON(w, http.StatusCreated, toSubscriptionDTO(sub))
}

func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.Reminders.DeleteSubscription(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListReminderRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Reminders.ListReminderRuns(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result := make([]ReminderRunDTO, 0, len(runs))
	for _, run := range runs {
		result = append(result, toReminderRunDTO(run))
	}
	writeJSON(w, http.StatusOK, result)
}

// PlanReminders runs one planning pass immediately.
func (h *Handler) PlanReminders(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "reminder scheduler not configured", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.Scheduler.RunNow(r.Context()))
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "storage unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// fail maps an engine or store error to a response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, trash.ErrComparatorFailure):
		h.Logger.Error("comparator failure",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusBadGateway, "comparator unavailable", err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "schedule not registered", err)
	case generic.IsClientError(err), trash.IsClientError(err):
		writeError(w, http.StatusBadRequest, "invalid request", err)
	default:
		h.Logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message, Code: errorCode(status)}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadGateway:
		return "comparator_failure"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	return "internal"
}
