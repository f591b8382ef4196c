/*
Package factory converts stored schedule documents into domain values.

PURPOSE:
  A user's registration is stored as one JSON document: a list of
  categories, each with a list of rules. The factory decodes it into
  trash.Category values and encodes categories back for storage.

JSON SCHEMA:
  [
    {"type": "burn", "schedules": [
      {"type": "weekday", "value": "3"},
      {"type": "none",    "value": ""}
    ]},
    {"type": "other", "trash_val": "廃品", "schedules": [
      {"type": "biweek", "value": "3-2"},
      {"type": "month",  "value": "11"},
      {"type": "evweek", "value": {"weekday": "3", "start": "2018-09-16"}}
    ]}
  ]

  weekday: 0 (Sunday) .. 6
  month:   day of month 1..31
  biweek:  "<weekday>-<occurrence>", occurrence 1..5
  evweek:  weekday plus the anchor date of a collection week
  none:    never

  Scalar values may be JSON strings or numbers.

TOLERANCE:
  A rule that cannot be decoded becomes generic.NoneRule and is reported
  as a *generic.InvalidRuleError warning. Only a document that is not a
  list of categories fails outright.

USAGE:
  categories, warnings, err := factory.ParseSchedule(doc.Description)
  for _, w := range warnings {
      logger.Warn("rule ignored", zap.Error(w))
  }

SEE ALSO:
  - generic/rule.go: Rule variants
  - trash/types.go: Category
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/warp/trash-schedule/generic"
	"github.com/warp/trash-schedule/trash"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CategoryJSON is one stored category.
type CategoryJSON struct {
	Type      string     `json:"type"`
	TrashVal  string     `json:"trash_val,omitempty"`
	Schedules []RuleJSON `json:"schedules"`
}

// RuleJSON is one stored rule. Value is a scalar for every kind except
// evweek.
type RuleJSON struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// EveryOtherWeekJSON is the value of an evweek rule.
type EveryOtherWeekJSON struct {
	Weekday json.RawMessage `json:"weekday"`
	Start   string          `json:"start"`
}

// =============================================================================
// DECODING
// =============================================================================

// ParseSchedule decodes a stored document.
func ParseSchedule(doc string) ([]trash.Category, []*generic.InvalidRuleError, error) {
	var stored []CategoryJSON
	if err := json.Unmarshal([]byte(doc), &stored); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", generic.ErrInvalidSchedule, err)
	}
	categories, warnings := FromJSON(stored)
	return categories, warnings, nil
}

// FromJSON converts decoded categories, degrading bad rules to NoneRule.
func FromJSON(stored []CategoryJSON) ([]trash.Category, []*generic.InvalidRuleError) {
	categories := make([]trash.Category, 0, len(stored))
	var warnings []*generic.InvalidRuleError

	for _, cj := range stored {
		c := trash.Category{Code: cj.Type}
		if c.IsOther() {
			c.DisplayName = strings.TrimSpace(cj.TrashVal)
		}
		for i, rj := range cj.Schedules {
			rule, err := parseRule(rj)
			if err != nil {
				warnings = append(warnings, &generic.InvalidRuleError{
					Category: c.Key(),
					Index:    i,
					Kind:     rj.Type,
					Value:    string(rj.Value),
					Reason:   err.Error(),
				})
				rule = generic.NoneRule{}
			}
			c.Rules = append(c.Rules, rule)
		}
		categories = append(categories, c)
	}
	return categories, warnings
}

func parseRule(rj RuleJSON) (generic.Rule, error) {
	switch generic.RuleKind(rj.Type) {
	case generic.KindWeekday:
		w, err := parseWeekday(rj.Value)
		if err != nil {
			return nil, err
		}
		return generic.WeekdayRule{Weekday: w}, nil

	case generic.KindMonthDay:
		day, err := parseIntIn(rj.Value, 1, 31)
		if err != nil {
			return nil, err
		}
		return generic.MonthDayRule{Day: day}, nil

	case generic.KindNthWeekday:
		s, err := scalar(rj.Value)
		if err != nil {
			return nil, err
		}
		parts := strings.Split(s, "-")
		if len(parts) != 2 {
			return nil, fmt.Errorf("want <weekday>-<occurrence>, got %q", s)
		}
		w, err := weekdayFrom(parts[0])
		if err != nil {
			return nil, err
		}
		occurrence, err := intIn(parts[1], 1, 5)
		if err != nil {
			return nil, err
		}
		return generic.NthWeekdayRule{Weekday: w, Occurrence: occurrence}, nil

	case generic.KindFortnightly:
		var ev EveryOtherWeekJSON
		if err := json.Unmarshal(rj.Value, &ev); err != nil {
			return nil, fmt.Errorf("want {weekday, start}: %v", err)
		}
		w, err := parseWeekday(ev.Weekday)
		if err != nil {
			return nil, err
		}
		anchor, err := generic.ParseDate(strings.TrimSpace(ev.Start))
		if err != nil {
			return nil, err
		}
		return generic.FortnightlyRule{Weekday: w, Anchor: anchor}, nil

	case generic.KindNone:
		return generic.NoneRule{}, nil
	}
	return nil, fmt.Errorf("unknown rule type %q", rj.Type)
}

// scalar reads a JSON string or number as text.
func scalar(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("missing value")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("want string or number, got %s", raw)
	}
	return n.String(), nil
}

func parseWeekday(raw json.RawMessage) (time.Weekday, error) {
	s, err := scalar(raw)
	if err != nil {
		return 0, err
	}
	return weekdayFrom(s)
}

func weekdayFrom(s string) (time.Weekday, error) {
	n, err := intIn(s, 0, 6)
	if err != nil {
		return 0, fmt.Errorf("weekday: %w", err)
	}
	return time.Weekday(n), nil
}

func parseIntIn(raw json.RawMessage, lo, hi int) (int, error) {
	s, err := scalar(raw)
	if err != nil {
		return 0, err
	}
	return intIn(s, lo, hi)
}

func intIn(s string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%d out of range %d..%d", n, lo, hi)
	}
	return n, nil
}

// =============================================================================
// ENCODING
// =============================================================================

// ToJSON converts categories to their stored form.
func ToJSON(categories []trash.Category) []CategoryJSON {
	stored := make([]CategoryJSON, 0, len(categories))
	for _, c := range categories {
		cj := CategoryJSON{Type: c.Code, Schedules: make([]RuleJSON, 0, len(c.Rules))}
		if c.IsOther() {
			cj.TrashVal = c.DisplayName
		}
		for _, r := range c.Rules {
			cj.Schedules = append(cj.Schedules, ruleToJSON(r))
		}
		stored = append(stored, cj)
	}
	return stored
}

// EncodeSchedule writes categories in the stored document format.
func EncodeSchedule(categories []trash.Category) (string, error) {
	b, err := json.Marshal(ToJSON(categories))
	if err != nil {
		return "", fmt.Errorf("failed to encode schedule: %w", err)
	}
	return string(b), nil
}

func ruleToJSON(r generic.Rule) RuleJSON {
	quoted := func(s string) json.RawMessage {
		b, _ := json.Marshal(s)
		return b
	}

	switch r := r.(type) {
	case generic.WeekdayRule:
		return RuleJSON{Type: string(r.Kind()), Value: quoted(strconv.Itoa(int(r.Weekday)))}
	case generic.MonthDayRule:
		return RuleJSON{Type: string(r.Kind()), Value: quoted(strconv.Itoa(r.Day))}
	case generic.NthWeekdayRule:
		return RuleJSON{Type: string(r.Kind()), Value: quoted(fmt.Sprintf("%d-%d", r.Weekday, r.Occurrence))}
	case generic.FortnightlyRule:
		b, _ := json.Marshal(struct {
			Weekday string `json:"weekday"`
			Start   string `json:"start"`
		}{strconv.Itoa(int(r.Weekday)), r.Anchor.String()})
		return RuleJSON{Type: string(r.Kind()), Value: b}
	}
	return RuleJSON{Type: string(generic.KindNone), Value: quoted("")}
}
