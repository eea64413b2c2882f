package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// CheckAvailabilityRequest describes a hypothetical booking.
type CheckAvailabilityRequest struct {
	CourseID  string            `json:"course_id" validate:"required"`
	DayOfWeek *models.DayOfWeek `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime string            `json:"start_time" validate:"required"`
	EndTime   string            `json:"end_time" validate:"required"`
}

// AvailabilityResult reports whether a booking would succeed right now.
type AvailabilityResult struct {
	Available bool                      `json:"available"`
	Conflicts []models.ScheduleConflict `json:"conflicts"`
}

// AvailabilityService answers what-if booking questions without writing or locking.
type AvailabilityService struct {
	courses   courseResolver
	detector  *ConflictDetector
	validator *validator.Validate
	logger    *zap.Logger
	hours     OperatingHours
}

// NewAvailabilityService builds an availability checker sharing the booking rules of WeeklySlotService.
func NewAvailabilityService(repo overlapFinder, courses courseResolver, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, hours OperatingHours) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		courses:   courses,
		detector:  NewConflictDetector(repo, metrics),
		validator: validate,
		logger:    logger,
		hours:     hours.orDefault(),
	}
}

// Check runs the same validation and conflict detection a create would, against committed data.
// The answer may be stale by the time a create follows it.
func (s *AvailabilityService) Check(ctx context.Context, schoolID string, req CheckAvailabilityRequest) (*AvailabilityResult, error) {
	b, err := prepareBooking(s.validator, s.hours, bookingRequest{
		CourseID:  req.CourseID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}, "invalid availability query")
	if err != nil {
		return nil, err
	}

	res, err := s.courses.ResolveResources(ctx, nil, schoolID, b.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, s.readError(err, "failed to resolve course resources")
	}

	conflicts, err := s.detector.Find(ctx, nil, *res, b.Day, b.Range, "")
	if err != nil {
		return nil, s.readError(err, "failed to check schedule conflicts")
	}

	return &AvailabilityResult{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

func (s *AvailabilityService) readError(err error, message string) error {
	if database.IsTransient(err) {
		return appErrors.Wrap(err, appErrors.ErrTransientStore.Code, appErrors.ErrTransientStore.Status, appErrors.ErrTransientStore.Message)
	}
	s.logger.Error(message, zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
