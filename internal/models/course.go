package models

import (
	"fmt"
	"sort"
)

// CourseResources is the resource binding of a course as the scheduler sees it at booking time.
type CourseResources struct {
	CourseID      string `db:"course_id" json:"course_id"`
	SchoolID      string `db:"school_id" json:"school_id"`
	SubjectID     string `db:"subject_id" json:"subject_id"`
	SubjectName   string `db:"subject_name" json:"subject_name"`
	TeacherID     string `db:"teacher_id" json:"teacher_id"`
	TeacherName   string `db:"teacher_name" json:"teacher_name"`
	ClassroomID   string `db:"classroom_id" json:"classroom_id"`
	ClassroomName string `db:"classroom_name" json:"classroom_name"`
}

// ResourceID returns the identifier the course binds for the given resource class.
func (c CourseResources) ResourceID(kind ResourceKind) string {
	switch kind {
	case ResourceTeacher:
		return c.TeacherID
	case ResourceClassroom:
		return c.ClassroomID
	}
	return ""
}

// LockKeys returns the advisory lock keys covering every resource the course occupies on day,
// sorted so concurrent bookings always acquire them in the same order.
func (c CourseResources) LockKeys(day DayOfWeek) []string {
	keys := []string{
		fmt.Sprintf("%s:%s:%s:%d", c.SchoolID, ResourceTeacher, c.TeacherID, day),
		fmt.Sprintf("%s:%s:%s:%d", c.SchoolID, ResourceClassroom, c.ClassroomID, day),
	}
	sort.Strings(keys)
	return keys
}

// Detail combines a slot with the course binding into a read model.
func (c CourseResources) Detail(slot WeeklySlot) SlotDetail {
	return SlotDetail{
		WeeklySlot:    slot,
		SchoolID:      c.SchoolID,
		SubjectID:     c.SubjectID,
		SubjectName:   c.SubjectName,
		TeacherID:     c.TeacherID,
		TeacherName:   c.TeacherName,
		ClassroomID:   c.ClassroomID,
		ClassroomName: c.ClassroomName,
	}
}

// ResourceKinds lists the resource classes checked for every booking, in report order.
var ResourceKinds = []ResourceKind{ResourceTeacher, ResourceClassroom}
