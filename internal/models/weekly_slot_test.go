package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDayOfWeek(t *testing.T) {
	assert.Equal(t, "Sunday", Sunday.String())
	assert.Equal(t, "Saturday", Saturday.String())
	assert.True(t, Wednesday.Valid())
	assert.False(t, DayOfWeek(7).Valid())
	assert.Equal(t, "DayOfWeek(-1)", DayOfWeek(-1).String())
}

func TestScheduleConflictErrorMessage(t *testing.T) {
	assert.Equal(t, "schedule conflict", (&ScheduleConflictError{}).Error())

	err := &ScheduleConflictError{Conflicts: []ScheduleConflict{{Message: "first"}, {Message: "second"}, {Message: "third"}}}
	assert.Equal(t, "first (and 2 more)", err.Error())
}

func TestCourseResourcesLockKeysAreSorted(t *testing.T) {
	course := CourseResources{SchoolID: "s", TeacherID: "t-9", ClassroomID: "r-1"}
	assert.Equal(t, []string{"s:CLASSROOM:r-1:2", "s:TEACHER:t-9:2"}, course.LockKeys(Tuesday))
	assert.Equal(t, "t-9", course.ResourceID(ResourceTeacher))
	assert.Equal(t, "r-1", course.ResourceID(ResourceClassroom))
	assert.Empty(t, course.ResourceID(ResourceKind("BUS")))
}
