package models

import (
	"fmt"
	"time"
)

// DayOfWeek indexes the week starting at Sunday (0) through Saturday (6).
type DayOfWeek int

const (
	Sunday DayOfWeek = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// DaysPerWeek is the number of buckets in a weekly timetable.
const DaysPerWeek = 7

var dayNames = [DaysPerWeek]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Valid reports whether d names one of the seven weekdays.
func (d DayOfWeek) Valid() bool {
	return d >= Sunday && d <= Saturday
}

func (d DayOfWeek) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DayOfWeek(%d)", int(d))
	}
	return dayNames[d]
}

// TimeRange is a half-open [Start, End) time-of-day interval. Both bounds are zero-padded
// 24-hour HH:MM strings, so string order matches chronological order.
type TimeRange struct {
	Start string `db:"start_time" json:"start_time"`
	End   string `db:"end_time" json:"end_time"`
}

// Overlaps reports whether r and other share any instant. Back-to-back ranges do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start < other.End && r.End > other.Start
}

func (r TimeRange) String() string {
	return r.Start + "-" + r.End
}

// WeeklySlot is a recurring weekly booking of a course.
type WeeklySlot struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	DayOfWeek DayOfWeek `db:"day_of_week" json:"day_of_week"`
	TimeRange
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SlotDetail enriches a slot with the course resources it occupies.
type SlotDetail struct {
	WeeklySlot
	SchoolID      string `db:"school_id" json:"school_id"`
	SubjectID     string `db:"subject_id" json:"subject_id"`
	SubjectName   string `db:"subject_name" json:"subject_name"`
	TeacherID     string `db:"teacher_id" json:"teacher_id"`
	TeacherName   string `db:"teacher_name" json:"teacher_name"`
	ClassroomID   string `db:"classroom_id" json:"classroom_id"`
	ClassroomName string `db:"classroom_name" json:"classroom_name"`
}

// WeeklySlotFilter narrows slot listings within a school.
type WeeklySlotFilter struct {
	CourseID    string
	TeacherID   string
	ClassroomID string
	DayOfWeek   *DayOfWeek
}

// ResourceKind names a class of exclusively bookable resources.
type ResourceKind string

const (
	ResourceTeacher   ResourceKind = "TEACHER"
	ResourceClassroom ResourceKind = "CLASSROOM"
)

// ScheduleConflict describes an existing slot that collides with a candidate booking.
type ScheduleConflict struct {
	Resource   ResourceKind `json:"resource"`
	ResourceID string       `json:"resource_id"`
	Slot       SlotDetail   `json:"slot"`
	Message    string       `json:"message"`
}

// ScheduleConflictError carries every conflict found for a rejected booking.
type ScheduleConflictError struct {
	Conflicts []ScheduleConflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch len(e.Conflicts) {
	case 0:
		return "schedule conflict"
	case 1:
		return e.Conflicts[0].Message
	default:
		return fmt.Sprintf("%s (and %d more)", e.Conflicts[0].Message, len(e.Conflicts)-1)
	}
}
