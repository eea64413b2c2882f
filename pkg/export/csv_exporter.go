package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TimetableHeaders are the columns of an exported week, in order.
var TimetableHeaders = []string{"day", "start_time", "end_time", "subject", "teacher", "classroom", "slot_id"}

// CSVExporter writes day-grouped timetables as CSV, one row per slot, Sunday first.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// ContentType is the MIME type of the rendered output.
func (e *CSVExporter) ContentType() string {
	return "text/csv; charset=utf-8"
}

// WriteTimetable renders week to w.
func (e *CSVExporter) WriteTimetable(w io.Writer, week models.WeekTimetable) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(TimetableHeaders); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	for day, bucket := range week {
		dayName := models.DayOfWeek(day).String()
		for _, slot := range bucket {
			record := []string{dayName, slot.Start, slot.End, slot.SubjectName, slot.TeacherName, slot.ClassroomName, slot.ID}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
