package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// memorySlotStore is an in-memory stand-in for the slot, course and roster repositories.
type memorySlotStore struct {
	mu          sync.Mutex
	courses     map[string]models.CourseResources
	slots       map[string]models.WeeklySlot
	enrollments map[string][]string
	students    map[string]string
	seq         int

	lockCalls  [][]string
	lockErr    error
	createErr  error
	overlapErr error

	// keyLocks, when set, makes AcquireLocks block like transaction-scoped advisory locks.
	keyLocks     map[string]chan struct{}
	overlapDelay time.Duration
}

// holdKeyLocks makes AcquireLocks take a real lock per key, held until the caller's context ends.
// overlapDelay stalls every overlap lookup to widen the window between check and insert.
func (m *memorySlotStore) holdKeyLocks(overlapDelay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keyLocks = make(map[string]chan struct{})
	m.overlapDelay = overlapDelay
}

func newMemorySlotStore(courses ...models.CourseResources) *memorySlotStore {
	store := &memorySlotStore{
		courses:     make(map[string]models.CourseResources),
		slots:       make(map[string]models.WeeklySlot),
		enrollments: make(map[string][]string),
		students:    make(map[string]string),
	}
	for _, c := range courses {
		store.courses[c.CourseID] = c
	}
	return store
}

func (m *memorySlotStore) detail(slot models.WeeklySlot) models.SlotDetail {
	return m.courses[slot.CourseID].Detail(slot)
}

func (m *memorySlotStore) snapshot() []models.SlotDetail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SlotDetail, 0, len(m.slots))
	for _, slot := range m.slots {
		out = append(out, m.detail(slot))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memorySlotStore) FindOverlapping(ctx context.Context, exec sqlx.ExtContext, schoolID string, kind models.ResourceKind, resourceID string, day models.DayOfWeek, rng models.TimeRange, excludeID string) ([]models.SlotDetail, error) {
	if m.overlapDelay > 0 {
		time.Sleep(m.overlapDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.overlapErr != nil {
		return nil, m.overlapErr
	}
	var out []models.SlotDetail
	for _, slot := range m.slots {
		d := m.detail(slot)
		if d.SchoolID != schoolID || d.ID == excludeID || d.DayOfWeek != day || !d.TimeRange.Overlaps(rng) {
			continue
		}
		if (kind == models.ResourceTeacher && d.TeacherID == resourceID) || (kind == models.ResourceClassroom && d.ClassroomID == resourceID) {
			out = append(out, d)
		}
	}
	// Reverse id order so callers cannot rely on store ordering.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memorySlotStore) FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.SlotDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := m.detail(slot)
	if d.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	return &d, nil
}

func (m *memorySlotStore) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.SlotDetail, error) {
	return m.FindByID(ctx, exec, schoolID, id)
}

func (m *memorySlotStore) List(ctx context.Context, schoolID string, filter models.WeeklySlotFilter, page, size int) ([]models.SlotDetail, int, error) {
	var out []models.SlotDetail
	for _, d := range m.snapshot() {
		if d.SchoolID != schoolID {
			continue
		}
		if filter.CourseID != "" && d.CourseID != filter.CourseID {
			continue
		}
		if filter.TeacherID != "" && d.TeacherID != filter.TeacherID {
			continue
		}
		if filter.ClassroomID != "" && d.ClassroomID != filter.ClassroomID {
			continue
		}
		if filter.DayOfWeek != nil && d.DayOfWeek != *filter.DayOfWeek {
			continue
		}
		out = append(out, d)
	}
	total := len(out)
	from := (page - 1) * size
	if from > total {
		from = total
	}
	to := from + size
	if to > total {
		to = total
	}
	return out[from:to], total, nil
}

func (m *memorySlotStore) AcquireLocks(ctx context.Context, exec sqlx.ExtContext, keys []string, timeout time.Duration) error {
	m.mu.Lock()
	m.lockCalls = append(m.lockCalls, append([]string(nil), keys...))
	lockErr := m.lockErr
	var held []chan struct{}
	if m.keyLocks != nil {
		for _, key := range keys {
			ch, ok := m.keyLocks[key]
			if !ok {
				ch = make(chan struct{}, 1)
				m.keyLocks[key] = ch
			}
			held = append(held, ch)
		}
	}
	m.mu.Unlock()
	if lockErr != nil {
		return lockErr
	}

	release := func(chans []chan struct{}) {
		for _, ch := range chans {
			<-ch
		}
	}
	for i, ch := range held {
		select {
		case ch <- struct{}{}:
		case <-ctx.Done():
			release(held[:i])
			return ctx.Err()
		}
	}
	if len(held) > 0 {
		go func() {
			<-ctx.Done()
			release(held)
		}()
	}
	return nil
}

func (m *memorySlotStore) Create(ctx context.Context, exec sqlx.ExtContext, slot *models.WeeklySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	slot.ID = fmt.Sprintf("slot-%03d", m.seq)
	slot.CreatedAt = time.Now().UTC()
	slot.UpdatedAt = slot.CreatedAt
	m.slots[slot.ID] = *slot
	return nil
}

func (m *memorySlotStore) Update(ctx context.Context, exec sqlx.ExtContext, slot *models.WeeklySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[slot.ID]; !ok {
		return sql.ErrNoRows
	}
	slot.UpdatedAt = time.Now().UTC()
	m.slots[slot.ID] = *slot
	return nil
}

func (m *memorySlotStore) Delete(ctx context.Context, schoolID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[id]
	if !ok || m.courses[slot.CourseID].SchoolID != schoolID {
		return sql.ErrNoRows
	}
	delete(m.slots, id)
	return nil
}

func (m *memorySlotStore) ResolveResources(ctx context.Context, exec sqlx.ExtContext, schoolID, courseID string) (*models.CourseResources, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok || c.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (m *memorySlotStore) ListByTeacher(ctx context.Context, schoolID, teacherID string) ([]models.SlotDetail, error) {
	var out []models.SlotDetail
	for _, d := range m.snapshot() {
		if d.SchoolID == schoolID && d.TeacherID == teacherID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memorySlotStore) ListByClassroom(ctx context.Context, schoolID, classroomID string) ([]models.SlotDetail, error) {
	var out []models.SlotDetail
	for _, d := range m.snapshot() {
		if d.SchoolID == schoolID && d.ClassroomID == classroomID {
			out = append(out, d)
		}
	}
	return out, nil
}

// ListByStudent deliberately repeats slots once per matching enrollment to exercise de-duplication.
func (m *memorySlotStore) ListByStudent(ctx context.Context, schoolID, studentID string) ([]models.SlotDetail, error) {
	var out []models.SlotDetail
	slots := m.snapshot()
	for _, classroomID := range m.enrollments[studentID] {
		for _, d := range slots {
			if d.SchoolID == schoolID && d.ClassroomID == classroomID {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (m *memorySlotStore) ExistsInSchool(ctx context.Context, kind models.TimetableKind, schoolID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case models.TimetableStudent:
		return m.students[id] == schoolID, nil
	case models.TimetableTeacher:
		for _, c := range m.courses {
			if c.SchoolID == schoolID && c.TeacherID == id {
				return true, nil
			}
		}
	case models.TimetableClassroom:
		for _, c := range m.courses {
			if c.SchoolID == schoolID && c.ClassroomID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

// memoryCacheRepository keeps JSON payloads and generation counters in maps.
type memoryCacheRepository struct {
	mu          sync.Mutex
	entries     map[string][]byte
	generations map[string]int64
	deleted     []string
}

func newMemoryCacheRepository() *memoryCacheRepository {
	return &memoryCacheRepository{entries: make(map[string][]byte), generations: make(map[string]int64)}
}

func (r *memoryCacheRepository) Generation(ctx context.Context, key string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generations[key], nil
}

func (r *memoryCacheRepository) BumpGeneration(ctx context.Context, key string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations[key]++
	return r.generations[key], nil
}

func (r *memoryCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = payload
	return nil
}

func (r *memoryCacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := pattern[:len(pattern)-1]
	for key := range r.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(r.entries, key)
		}
	}
	r.deleted = append(r.deleted, pattern)
	return nil
}

type txProviderMock struct {
	db *sqlx.DB
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

const testSchool = "school-1"

// Fixture courses: C1 and C2 share teacher T1, C1 and C3 share room R1, C4 belongs to another school.
func fixtureCourses() []models.CourseResources {
	return []models.CourseResources{
		{CourseID: "C1", SchoolID: testSchool, SubjectID: "S1", SubjectName: "Matemáticas", TeacherID: "T1", TeacherName: "Juan Pérez", ClassroomID: "R1", ClassroomName: "1A"},
		{CourseID: "C2", SchoolID: testSchool, SubjectID: "S2", SubjectName: "Física", TeacherID: "T1", TeacherName: "Juan Pérez", ClassroomID: "R2", ClassroomName: "2B"},
		{CourseID: "C3", SchoolID: testSchool, SubjectID: "S3", SubjectName: "Historia", TeacherID: "T2", TeacherName: "Ana Ruiz", ClassroomID: "R1", ClassroomName: "1A"},
		{CourseID: "C4", SchoolID: "school-2", SubjectID: "S9", SubjectName: "Química", TeacherID: "T9", TeacherName: "Luis Soto", ClassroomID: "R9", ClassroomName: "9Z"},
	}
}

func dayPtr(d models.DayOfWeek) *models.DayOfWeek {
	return &d
}

func strPtr(v string) *string {
	return &v
}
