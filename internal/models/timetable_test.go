package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekTimetableJSONShape(t *testing.T) {
	var week WeekTimetable
	week[Monday] = []SlotDetail{{
		WeeklySlot:  WeeklySlot{ID: "slot-1", DayOfWeek: Monday, TimeRange: TimeRange{Start: "08:00", End: "09:30"}},
		TeacherName: "Juan Pérez",
	}}

	raw, err := json.Marshal(week)
	require.NoError(t, err)

	var generic map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Len(t, generic, DaysPerWeek)
	for _, key := range []string{"0", "2", "3", "4", "5", "6"} {
		assert.NotNil(t, generic[key], "day %s renders as an empty list", key)
		assert.Empty(t, generic[key])
	}
	require.Len(t, generic["1"], 1)
	assert.Equal(t, "08:00", generic["1"][0]["start_time"])
	assert.Equal(t, "Juan Pérez", generic["1"][0]["teacher_name"])

	var decoded WeekTimetable
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 1, decoded.Len())
	assert.NotNil(t, decoded.Day(Sunday))
}

func TestWeekTimetableRejectsUnknownDay(t *testing.T) {
	var week WeekTimetable
	assert.Error(t, json.Unmarshal([]byte(`{"7":[]}`), &week))
	assert.Error(t, json.Unmarshal([]byte(`{"monday":[]}`), &week))
	assert.Nil(t, week.Day(DayOfWeek(-1)))
}
