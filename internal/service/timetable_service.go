package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type timetableSlotReader interface {
	ListByTeacher(ctx context.Context, schoolID, teacherID string) ([]models.SlotDetail, error)
	ListByStudent(ctx context.Context, schoolID, studentID string) ([]models.SlotDetail, error)
	ListByClassroom(ctx context.Context, schoolID, classroomID string) ([]models.SlotDetail, error)
}

type rosterReader interface {
	ExistsInSchool(ctx context.Context, kind models.TimetableKind, schoolID, id string) (bool, error)
}

// TimetableService projects weekly slots into day-grouped timetables for teachers, students and classrooms.
type TimetableService struct {
	slots  timetableSlotReader
	roster rosterReader
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group
}

// NewTimetableService builds the timetable projector. cache may be nil.
func NewTimetableService(slots timetableSlotReader, roster rosterReader, cache *CacheService, ttl time.Duration, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{slots: slots, roster: roster, cache: cache, ttl: ttl, logger: logger}
}

// ForTeacher returns every slot of courses the teacher teaches. The bool reports a cache hit.
func (s *TimetableService) ForTeacher(ctx context.Context, schoolID, teacherID string) (models.WeekTimetable, bool, error) {
	return s.project(ctx, models.TimetableTeacher, schoolID, teacherID)
}

// ForStudent returns slots of courses held in classrooms the student is actively enrolled in.
func (s *TimetableService) ForStudent(ctx context.Context, schoolID, studentID string) (models.WeekTimetable, bool, error) {
	return s.project(ctx, models.TimetableStudent, schoolID, studentID)
}

// ForClassroom returns every slot of courses held in the classroom.
func (s *TimetableService) ForClassroom(ctx context.Context, schoolID, classroomID string) (models.WeekTimetable, bool, error) {
	return s.project(ctx, models.TimetableClassroom, schoolID, classroomID)
}

// InvalidateSchool drops cached weeks after a slot write in the school.
func (s *TimetableService) InvalidateSchool(ctx context.Context, schoolID string) {
	s.cache.InvalidateSchool(ctx, schoolID)
}

// project serves a week from the cache or loads it once per key. The generation is read before
// loading, so a week loaded across a slot write is stored under a key no later reader uses. The
// shared load runs detached from any single caller; each caller still stops waiting when its own
// context ends.
func (s *TimetableService) project(ctx context.Context, kind models.TimetableKind, schoolID, ownerID string) (models.WeekTimetable, bool, error) {
	generation, cacheable := s.cache.Generation(ctx, schoolID)
	key := TimetableCacheKey(schoolID, generation, kind, ownerID)

	if cacheable {
		var cached models.WeekTimetable
		if s.cache.Get(ctx, key, &cached) {
			return cached, true, nil
		}
	}

	loadCtx := context.WithoutCancel(ctx)
	results := s.group.DoChan(key, func() (interface{}, error) {
		exists, err := s.roster.ExistsInSchool(loadCtx, kind, schoolID, ownerID)
		if err != nil {
			return nil, s.readError(err, fmt.Sprintf("failed to look up %s", kind))
		}
		if !exists {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", kind))
		}

		slots, err := s.load(loadCtx, kind, schoolID, ownerID)
		if err != nil {
			return nil, s.readError(err, fmt.Sprintf("failed to load %s timetable", kind))
		}

		week := GroupByDay(slots)
		if cacheable {
			s.cache.Set(loadCtx, key, week, s.ttl)
		}
		return week, nil
	})

	select {
	case <-ctx.Done():
		return models.WeekTimetable{}, false, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return models.WeekTimetable{}, false, res.Err
		}
		return res.Val.(models.WeekTimetable), false, nil
	}
}

func (s *TimetableService) load(ctx context.Context, kind models.TimetableKind, schoolID, ownerID string) ([]models.SlotDetail, error) {
	switch kind {
	case models.TimetableTeacher:
		return s.slots.ListByTeacher(ctx, schoolID, ownerID)
	case models.TimetableStudent:
		return s.slots.ListByStudent(ctx, schoolID, ownerID)
	case models.TimetableClassroom:
		return s.slots.ListByClassroom(ctx, schoolID, ownerID)
	}
	return nil, fmt.Errorf("unknown timetable kind %q", kind)
}

func (s *TimetableService) readError(err error, message string) error {
	if database.IsTransient(err) {
		return appErrors.Wrap(err, appErrors.ErrTransientStore.Code, appErrors.ErrTransientStore.Status, appErrors.ErrTransientStore.Message)
	}
	s.logger.Error(message, zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
