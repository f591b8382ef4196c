package factory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/trash-schedule/factory"
	"github.com/warp/trash-schedule/generic"
	"github.com/warp/trash-schedule/trash"
)

const storedDoc = `[
  {"type":"burn","trash_val":"","schedules":[{"type":"weekday","value":"3"},{"type":"weekday","value":6},{"type":"none","value":""}]},
  {"type":"other","trash_val":"廃品","schedules":[
    {"type":"biweek","value":"3-2"},
    {"type":"month","value":"11"},
    {"type":"evweek","value":{"weekday":"3","start":"2018-09-16"}}
  ]}
]`

func TestParseSchedule(t *testing.T) {
	categories, warnings, err := factory.ParseSchedule(storedDoc)

	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, categories, 2)

	burn := categories[0]
	assert.Equal(t, trash.CodeBurn, burn.Code)
	assert.Empty(t, burn.DisplayName)
	assert.Equal(t, []generic.Rule{
		generic.WeekdayRule{Weekday: time.Wednesday},
		generic.WeekdayRule{Weekday: time.Saturday},
		generic.NoneRule{},
	}, burn.Rules)

	other := categories[1]
	assert.Equal(t, trash.CodeOther, other.Code)
	assert.Equal(t, "廃品", other.DisplayName)
	assert.Equal(t, []generic.Rule{
		generic.NthWeekdayRule{Weekday: time.Wednesday, Occurrence: 2},
		generic.MonthDayRule{Day: 11},
		generic.FortnightlyRule{Weekday: time.Wednesday, Anchor: generic.NewTimePoint(2018, time.September, 16)},
	}, other.Rules)
}

func TestParseSchedule_InvalidRulesBecomeNone(t *testing.T) {
	// GIVEN: A document with one good rule and several broken ones
	doc := `[{"type":"paper","schedules":[
	  {"type":"weekday","value":"7"},
	  {"type":"month","value":"x"},
	  {"type":"biweek","value":"3-6"},
	  {"type":"evweek","value":{"weekday":"1","start":"soon"}},
	  {"type":"daily","value":"1"},
	  {"type":"weekday"},
	  {"type":"weekday","value":"2"}
	]}]`

	// WHEN: Parsing
	categories, warnings, err := factory.ParseSchedule(doc)

	// THEN: Broken rules are inactive and reported, the good rule survives
	require.NoError(t, err)
	require.Len(t, categories, 1)
	rules := categories[0].Rules
	require.Len(t, rules, 7)
	for i := 0; i < 6; i++ {
		assert.Equal(t, generic.NoneRule{}, rules[i], "rule %d", i)
	}
	assert.Equal(t, generic.WeekdayRule{Weekday: time.Tuesday}, rules[6])

	require.Len(t, warnings, 6)
	for i, w := range warnings {
		assert.True(t, errors.Is(w, generic.ErrInvalidRule))
		assert.Equal(t, "paper", w.Category)
		assert.Equal(t, i, w.Index)
	}
	assert.Equal(t, "daily", warnings[4].Kind)
}

func TestParseSchedule_NotAList(t *testing.T) {
	_, _, err := factory.ParseSchedule(`{"type":"burn"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrInvalidSchedule)
	assert.True(t, generic.IsClientError(err))
}

func TestParseSchedule_Empty(t *testing.T) {
	categories, warnings, err := factory.ParseSchedule(`[]`)
	require.NoError(t, err)
	assert.Empty(t, categories)
	assert.Empty(t, warnings)
}

func TestEncodeSchedule_RoundTrip(t *testing.T) {
	categories, _, err := factory.ParseSchedule(storedDoc)
	require.NoError(t, err)

	encoded, err := factory.EncodeSchedule(categories)
	require.NoError(t, err)

	again, warnings, err := factory.ParseSchedule(encoded)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, categories, again)
	assert.Contains(t, encoded, `"trash_val":"廃品"`)
	assert.Contains(t, encoded, `{"weekday":"3","start":"2018-09-16"}`)
}
