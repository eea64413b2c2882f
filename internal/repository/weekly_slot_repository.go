package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const slotDetailColumns = `ws.id, ws.course_id, ws.day_of_week, ws.start_time, ws.end_time, ws.created_at, ws.updated_at,
c.school_id, c.subject_id, s.name AS subject_name, c.teacher_id, t.first_name || ' ' || t.last_name AS teacher_name,
c.classroom_id, cl.name AS classroom_name`

const slotDetailFrom = `FROM weekly_slots ws
JOIN courses c ON c.id = ws.course_id
JOIN subjects s ON s.id = c.subject_id
JOIN teachers t ON t.id = c.teacher_id
JOIN classrooms cl ON cl.id = c.classroom_id`

const slotDetailOrder = `ORDER BY ws.day_of_week ASC, ws.start_time ASC, ws.id ASC`

// WeeklySlotRepository provides persistence for weekly slots.
type WeeklySlotRepository struct {
	db *sqlx.DB
}

// NewWeeklySlotRepository creates a new weekly slot repository.
func NewWeeklySlotRepository(db *sqlx.DB) *WeeklySlotRepository {
	return &WeeklySlotRepository{db: db}
}

func (r *WeeklySlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID loads a slot with its course detail, scoped to a school.
func (r *WeeklySlotRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.SlotDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE ws.id = $1 AND c.school_id = $2", slotDetailColumns, slotDetailFrom)
	var slot models.SlotDetail
	if err := sqlx.GetContext(ctx, r.exec(exec), &slot, query, id, schoolID); err != nil {
		return nil, err
	}
	return &slot, nil
}

// FindByIDForUpdate loads a slot and row-locks it until the surrounding transaction ends.
func (r *WeeklySlotRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.SlotDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE ws.id = $1 AND c.school_id = $2 FOR UPDATE OF ws", slotDetailColumns, slotDetailFrom)
	var slot models.SlotDetail
	if err := sqlx.GetContext(ctx, r.exec(exec), &slot, query, id, schoolID); err != nil {
		return nil, err
	}
	return &slot, nil
}

// List returns slots of a school with optional filtering and pagination.
func (r *WeeklySlotRepository) List(ctx context.Context, schoolID string, filter models.WeeklySlotFilter, page, size int) ([]models.SlotDetail, int, error) {
	conditions := []string{"c.school_id = $1"}
	args := []interface{}{schoolID}

	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("ws.course_id = $%d", len(args)))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", len(args)))
	}
	if filter.ClassroomID != "" {
		args = append(args, filter.ClassroomID)
		conditions = append(conditions, fmt.Sprintf("c.classroom_id = $%d", len(args)))
	}
	if filter.DayOfWeek != nil {
		args = append(args, *filter.DayOfWeek)
		conditions = append(conditions, fmt.Sprintf("ws.day_of_week = $%d", len(args)))
	}

	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	where := "WHERE " + strings.Join(conditions, " AND ")
	query := fmt.Sprintf("SELECT %s %s %s %s LIMIT %d OFFSET %d", slotDetailColumns, slotDetailFrom, where, slotDetailOrder, size, offset)
	var slots []models.SlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list weekly slots: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM weekly_slots ws JOIN courses c ON c.id = ws.course_id %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count weekly slots: %w", err)
	}

	return slots, total, nil
}

// ListByTeacher returns every slot of courses taught by a teacher.
func (r *WeeklySlotRepository) ListByTeacher(ctx context.Context, schoolID, teacherID string) ([]models.SlotDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE c.school_id = $1 AND c.teacher_id = $2 %s", slotDetailColumns, slotDetailFrom, slotDetailOrder)
	var slots []models.SlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, schoolID, teacherID); err != nil {
		return nil, fmt.Errorf("list weekly slots by teacher: %w", err)
	}
	return slots, nil
}

// ListByClassroom returns every slot of courses held in a classroom.
func (r *WeeklySlotRepository) ListByClassroom(ctx context.Context, schoolID, classroomID string) ([]models.SlotDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE c.school_id = $1 AND c.classroom_id = $2 %s", slotDetailColumns, slotDetailFrom, slotDetailOrder)
	var slots []models.SlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, schoolID, classroomID); err != nil {
		return nil, fmt.Errorf("list weekly slots by classroom: %w", err)
	}
	return slots, nil
}

// ListByStudent returns slots of courses held in classrooms the student is actively enrolled in.
func (r *WeeklySlotRepository) ListByStudent(ctx context.Context, schoolID, studentID string) ([]models.SlotDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s
WHERE c.school_id = $1 AND c.classroom_id IN (
	SELECT e.classroom_id FROM enrollments e WHERE e.student_id = $2 AND e.status = $3
) %s`, slotDetailColumns, slotDetailFrom, slotDetailOrder)
	var slots []models.SlotDetail
	if err := r.db.SelectContext(ctx, &slots, query, schoolID, studentID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list weekly slots by student: %w", err)
	}
	return slots, nil
}

// ListAll returns every slot across schools ordered for offline auditing.
func (r *WeeklySlotRepository) ListAll(ctx context.Context) ([]models.SlotDetail, error) {
	query := fmt.Sprintf("SELECT %s %s ORDER BY c.school_id ASC, ws.day_of_week ASC, ws.start_time ASC, ws.id ASC", slotDetailColumns, slotDetailFrom)
	var slots []models.SlotDetail
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list all weekly slots: %w", err)
	}
	return slots, nil
}

// FindOverlapping returns slots in the school bound to the same resource on the same day whose
// range overlaps rng. excludeID, when set, is left out of the result.
func (r *WeeklySlotRepository) FindOverlapping(ctx context.Context, exec sqlx.ExtContext, schoolID string, kind models.ResourceKind, resourceID string, day models.DayOfWeek, rng models.TimeRange, excludeID string) ([]models.SlotDetail, error) {
	var column string
	switch kind {
	case models.ResourceTeacher:
		column = "c.teacher_id"
	case models.ResourceClassroom:
		column = "c.classroom_id"
	default:
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}

	query := fmt.Sprintf(`SELECT %s %s
WHERE c.school_id = $1 AND %s = $2 AND ws.day_of_week = $3
AND ws.start_time < $4 AND ws.end_time > $5 AND ws.id <> $6
ORDER BY ws.start_time ASC, ws.id ASC`, slotDetailColumns, slotDetailFrom, column)
	var slots []models.SlotDetail
	if err := sqlx.SelectContext(ctx, r.exec(exec), &slots, query, schoolID, resourceID, day, rng.End, rng.Start, excludeID); err != nil {
		return nil, fmt.Errorf("find overlapping weekly slots: %w", err)
	}
	return slots, nil
}

// AcquireLocks takes transaction-scoped advisory locks for every key, in the given order,
// waiting at most timeout for each. exec must be a transaction.
func (r *WeeklySlotRepository) AcquireLocks(ctx context.Context, exec sqlx.ExtContext, keys []string, timeout time.Duration) error {
	if exec == nil {
		return fmt.Errorf("advisory locks require a transaction")
	}
	if timeout > 0 {
		if _, err := exec.ExecContext(ctx, `SELECT set_config('lock_timeout', $1, true)`, fmt.Sprintf("%dms", timeout.Milliseconds())); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}
	for _, key := range keys {
		if _, err := exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
			return fmt.Errorf("acquire schedule lock %s: %w", key, err)
		}
	}
	return nil
}

// Create stores a new weekly slot.
func (r *WeeklySlotRepository) Create(ctx context.Context, exec sqlx.ExtContext, slot *models.WeeklySlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now

	const query = `INSERT INTO weekly_slots (id, course_id, day_of_week, start_time, end_time, created_at, updated_at) VALUES (:id, :course_id, :day_of_week, :start_time, :end_time, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, slot); err != nil {
		return fmt.Errorf("create weekly slot: %w", err)
	}
	return nil
}

// Update rewrites the day and time range of a slot.
func (r *WeeklySlotRepository) Update(ctx context.Context, exec sqlx.ExtContext, slot *models.WeeklySlot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE weekly_slots SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, slot)
	if err != nil {
		return fmt.Errorf("update weekly slot: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a slot belonging to the school. It returns sql.ErrNoRows when nothing matched.
func (r *WeeklySlotRepository) Delete(ctx context.Context, schoolID, id string) error {
	const query = `DELETE FROM weekly_slots ws USING courses c WHERE ws.id = $1 AND c.id = ws.course_id AND c.school_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, schoolID)
	if err != nil {
		return fmt.Errorf("delete weekly slot: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
