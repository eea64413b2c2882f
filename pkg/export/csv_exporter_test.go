package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestCSVExporterWriteTimetable(t *testing.T) {
	var week models.WeekTimetable
	week[models.Monday] = []models.SlotDetail{{
		WeeklySlot:    models.WeeklySlot{ID: "slot-1", DayOfWeek: models.Monday, TimeRange: models.TimeRange{Start: "08:00", End: "09:30"}},
		SubjectName:   "Matemáticas",
		TeacherName:   "Juan Pérez",
		ClassroomName: "1A, ala norte",
	}}
	week[models.Friday] = []models.SlotDetail{{
		WeeklySlot:    models.WeeklySlot{ID: "slot-2", DayOfWeek: models.Friday, TimeRange: models.TimeRange{Start: "10:00", End: "11:00"}},
		SubjectName:   "Historia",
		TeacherName:   "Ana Ruiz",
		ClassroomName: "2B",
	}}

	var buf bytes.Buffer
	exporter := NewCSVExporter()
	require.NoError(t, exporter.WriteTimetable(&buf, week))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, TimetableHeaders, records[0])
	assert.Equal(t, []string{"Monday", "08:00", "09:30", "Matemáticas", "Juan Pérez", "1A, ala norte", "slot-1"}, records[1])
	assert.Equal(t, "Friday", records[2][0])
	assert.Contains(t, exporter.ContentType(), "text/csv")
}

func TestCSVExporterEmptyWeekWritesHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVExporter().WriteTimetable(&buf, models.WeekTimetable{}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
