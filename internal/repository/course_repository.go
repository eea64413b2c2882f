package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// CourseRepository reads the course-to-resource graph owned by the school core.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository builds a course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ResolveResources returns the teacher, classroom and subject a course binds within a school.
// A missing or foreign course yields sql.ErrNoRows.
func (r *CourseRepository) ResolveResources(ctx context.Context, exec sqlx.ExtContext, schoolID, courseID string) (*models.CourseResources, error) {
	const query = `SELECT c.id AS course_id, c.school_id, c.subject_id, s.name AS subject_name,
c.teacher_id, t.first_name || ' ' || t.last_name AS teacher_name, c.classroom_id, cl.name AS classroom_name
FROM courses c
JOIN subjects s ON s.id = c.subject_id
JOIN teachers t ON t.id = c.teacher_id
JOIN classrooms cl ON cl.id = c.classroom_id
WHERE c.id = $1 AND c.school_id = $2`
	var target sqlx.ExtContext = r.db
	if exec != nil {
		target = exec
	}
	var resources models.CourseResources
	if err := sqlx.GetContext(ctx, target, &resources, query, courseID, schoolID); err != nil {
		return nil, err
	}
	return &resources, nil
}

// ExistsInSchool reports whether the timetable owner exists in the school.
func (r *CourseRepository) ExistsInSchool(ctx context.Context, kind models.TimetableKind, schoolID, id string) (bool, error) {
	var query string
	switch kind {
	case models.TimetableTeacher:
		query = `SELECT EXISTS (SELECT 1 FROM teachers WHERE id = $1 AND school_id = $2)`
	case models.TimetableStudent:
		query = `SELECT EXISTS (SELECT 1 FROM students WHERE id = $1 AND school_id = $2)`
	case models.TimetableClassroom:
		query = `SELECT EXISTS (SELECT 1 FROM classrooms WHERE id = $1 AND school_id = $2)`
	default:
		return false, fmt.Errorf("unknown timetable kind %q", kind)
	}
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id, schoolID); err != nil {
		return false, fmt.Errorf("check %s exists: %w", kind, err)
	}
	return exists, nil
}
