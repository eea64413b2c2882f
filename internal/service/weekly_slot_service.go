package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type weeklySlotRepository interface {
	overlapFinder
	FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.SlotDetail, error)
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.SlotDetail, error)
	List(ctx context.Context, schoolID string, filter models.WeeklySlotFilter, page, size int) ([]models.SlotDetail, int, error)
	AcquireLocks(ctx context.Context, exec sqlx.ExtContext, keys []string, timeout time.Duration) error
	Create(ctx context.Context, exec sqlx.ExtContext, slot *models.WeeklySlot) error
	Update(ctx context.Context, exec sqlx.ExtContext, slot *models.WeeklySlot) error
	Delete(ctx context.Context, schoolID, id string) error
}

type courseResolver interface {
	ResolveResources(ctx context.Context, exec sqlx.ExtContext, schoolID, courseID string) (*models.CourseResources, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type timetableInvalidator interface {
	InvalidateSchool(ctx context.Context, schoolID string)
}

// CreateWeeklySlotRequest books a course into a recurring weekly slot.
type CreateWeeklySlotRequest struct {
	CourseID  string            `json:"course_id" validate:"required"`
	DayOfWeek *models.DayOfWeek `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime string            `json:"start_time" validate:"required"`
	EndTime   string            `json:"end_time" validate:"required"`
}

// UpdateWeeklySlotRequest moves a slot. Omitted fields keep their stored value.
type UpdateWeeklySlotRequest struct {
	DayOfWeek *models.DayOfWeek `json:"day_of_week" validate:"omitempty,min=0,max=6"`
	StartTime *string           `json:"start_time"`
	EndTime   *string           `json:"end_time"`
}

// ListWeeklySlotsRequest filters and paginates slot listings.
type ListWeeklySlotsRequest struct {
	models.WeeklySlotFilter
	Page int
	Size int
}

// WeeklySlotServiceConfig tunes the booking pipeline.
type WeeklySlotServiceConfig struct {
	Hours       OperatingHours
	LockTimeout time.Duration
}

// WeeklySlotService books, moves and removes weekly slots. Every write that places a slot runs in one
// transaction that locks the affected teacher-day and classroom-day before checking for conflicts.
type WeeklySlotService struct {
	tx         txProvider
	repo       weeklySlotRepository
	courses    courseResolver
	detector   *ConflictDetector
	timetables timetableInvalidator
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        WeeklySlotServiceConfig
}

// NewWeeklySlotService instantiates WeeklySlotService.
func NewWeeklySlotService(tx txProvider, repo weeklySlotRepository, courses courseResolver, timetables timetableInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg WeeklySlotServiceConfig) *WeeklySlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Hours = cfg.Hours.orDefault()
	return &WeeklySlotService{
		tx:         tx,
		repo:       repo,
		courses:    courses,
		detector:   NewConflictDetector(repo, metrics),
		timetables: timetables,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
}

// Create validates and books a new slot, rejecting it when the course's teacher or classroom is taken.
func (s *WeeklySlotService) Create(ctx context.Context, schoolID string, req CreateWeeklySlotRequest) (*models.SlotDetail, error) {
	start := time.Now()
	b, err := prepareBooking(s.validator, s.cfg.Hours, bookingRequest{
		CourseID:  req.CourseID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}, "invalid weekly slot payload")
	if err != nil {
		s.metrics.ObserveSlotMutation("create", OutcomeInvalid, time.Since(start))
		return nil, err
	}

	var created models.SlotDetail
	err = s.inTx(ctx, "create", func(tx *sqlx.Tx) error {
		res, err := s.resolveCourse(ctx, tx, schoolID, b.CourseID)
		if err != nil {
			return err
		}
		if err := s.lockAndCheck(ctx, tx, *res, b.Day, b.Range, ""); err != nil {
			return err
		}
		slot := models.WeeklySlot{CourseID: res.CourseID, DayOfWeek: b.Day, TimeRange: b.Range}
		if err := s.repo.Create(ctx, tx, &slot); err != nil {
			return s.storeError(err, "failed to create weekly slot")
		}
		created = res.Detail(slot)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, schoolID)
	s.logger.Info("weekly slot created",
		zap.String("school_id", schoolID),
		zap.String("slot_id", created.ID),
		zap.String("course_id", created.CourseID),
		zap.Stringer("day", created.DayOfWeek),
		zap.Stringer("range", created.TimeRange),
	)
	return &created, nil
}

// Update merges the patch into a stored slot and re-books it, ignoring the slot's own current placement.
func (s *WeeklySlotService) Update(ctx context.Context, schoolID, id string, req UpdateWeeklySlotRequest) (*models.SlotDetail, error) {
	start := time.Now()
	if err := s.validator.Struct(req); err != nil {
		s.metrics.ObserveSlotMutation("update", OutcomeInvalid, time.Since(start))
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid weekly slot payload")
	}

	var updated models.SlotDetail
	err := s.inTx(ctx, "update", func(tx *sqlx.Tx) error {
		existing, err := s.repo.FindByIDForUpdate(ctx, tx, schoolID, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "weekly slot not found")
			}
			return s.storeError(err, "failed to load weekly slot")
		}

		merged := existing.WeeklySlot
		if req.DayOfWeek != nil {
			merged.DayOfWeek = *req.DayOfWeek
		}
		if req.StartTime != nil || req.EndTime != nil {
			if req.StartTime != nil {
				merged.Start = *req.StartTime
			}
			if req.EndTime != nil {
				merged.End = *req.EndTime
			}
			rng, err := ValidateTimeRange(merged.Start, merged.End, s.cfg.Hours)
			if err != nil {
				return err
			}
			merged.TimeRange = rng
		}

		res, err := s.resolveCourse(ctx, tx, schoolID, merged.CourseID)
		if err != nil {
			return err
		}
		if err := s.lockAndCheck(ctx, tx, *res, merged.DayOfWeek, merged.TimeRange, merged.ID); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, &merged); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "weekly slot not found")
			}
			return s.storeError(err, "failed to update weekly slot")
		}
		updated = res.Detail(merged)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, schoolID)
	s.logger.Info("weekly slot updated",
		zap.String("school_id", schoolID),
		zap.String("slot_id", updated.ID),
		zap.Stringer("day", updated.DayOfWeek),
		zap.Stringer("range", updated.TimeRange),
	)
	return &updated, nil
}

// Delete removes a slot of the school. Removing bookings cannot create conflicts, so no locks are taken.
func (s *WeeklySlotService) Delete(ctx context.Context, schoolID, id string) error {
	start := time.Now()
	err := s.delete(ctx, schoolID, id)
	s.metrics.ObserveSlotMutation("delete", mutationOutcome(err), time.Since(start))
	if err != nil {
		return err
	}
	s.invalidate(ctx, schoolID)
	s.logger.Info("weekly slot deleted", zap.String("school_id", schoolID), zap.String("slot_id", id))
	return nil
}

func (s *WeeklySlotService) delete(ctx context.Context, schoolID, id string) error {
	if _, err := s.repo.FindByID(ctx, nil, schoolID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "weekly slot not found")
		}
		return s.storeError(err, "failed to load weekly slot")
	}
	if err := s.repo.Delete(ctx, schoolID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "weekly slot not found")
		}
		return s.storeError(err, "failed to delete weekly slot")
	}
	return nil
}

// Get returns a slot of the school.
func (s *WeeklySlotService) Get(ctx context.Context, schoolID, id string) (*models.SlotDetail, error) {
	slot, err := s.repo.FindByID(ctx, nil, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "weekly slot not found")
		}
		return nil, s.storeError(err, "failed to load weekly slot")
	}
	return slot, nil
}

// List returns a page of the school's slots.
func (s *WeeklySlotService) List(ctx context.Context, schoolID string, req ListWeeklySlotsRequest) ([]models.SlotDetail, *models.Pagination, error) {
	if req.DayOfWeek != nil && !req.DayOfWeek.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "dayOfWeek must be between 0 and 6")
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Size <= 0 || req.Size > 100 {
		req.Size = 20
	}
	slots, total, err := s.repo.List(ctx, schoolID, req.WeeklySlotFilter, req.Page, req.Size)
	if err != nil {
		return nil, nil, s.storeError(err, "failed to list weekly slots")
	}
	if slots == nil {
		slots = []models.SlotDetail{}
	}
	return slots, &models.Pagination{Page: req.Page, PageSize: req.Size, TotalCount: total}, nil
}

func (s *WeeklySlotService) resolveCourse(ctx context.Context, exec sqlx.ExtContext, schoolID, courseID string) (*models.CourseResources, error) {
	res, err := s.courses.ResolveResources(ctx, exec, schoolID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, s.storeError(err, "failed to resolve course resources")
	}
	return res, nil
}

// lockAndCheck serialises bookings on the course's teacher-day and classroom-day, then fails with
// SCHEDULE_CONFLICT when anything committed already overlaps.
func (s *WeeklySlotService) lockAndCheck(ctx context.Context, tx *sqlx.Tx, res models.CourseResources, day models.DayOfWeek, rng models.TimeRange, excludeID string) error {
	if err := s.repo.AcquireLocks(ctx, tx, res.LockKeys(day), s.cfg.LockTimeout); err != nil {
		return s.storeError(err, "failed to acquire schedule locks")
	}
	conflicts, err := s.detector.Find(ctx, tx, res, day, rng, excludeID)
	if err != nil {
		return s.storeError(err, "failed to check schedule conflicts")
	}
	if len(conflicts) > 0 {
		s.logger.Info("weekly slot rejected",
			zap.String("school_id", res.SchoolID),
			zap.String("course_id", res.CourseID),
			zap.Stringer("day", day),
			zap.Stringer("range", rng),
			zap.Int("conflicts", len(conflicts)),
		)
		return conflictError(conflicts)
	}
	return nil
}

// inTx runs fn inside a READ COMMITTED transaction, committing on success and rolling back otherwise.
func (s *WeeklySlotService) inTx(ctx context.Context, operation string, fn func(tx *sqlx.Tx) error) (err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveSlotMutation(operation, mutationOutcome(err), time.Since(start))
	}()

	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider not configured")
	}
	tx, err := s.tx.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return s.storeError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return s.storeError(err, "failed to commit weekly slot")
	}
	return nil
}

// storeError maps storage failures to TRANSIENT_STORE_ERROR when a retry may succeed.
func (s *WeeklySlotService) storeError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if database.IsTransient(err) {
		s.logger.Warn("transient storage failure", zap.String("operation", message), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrTransientStore.Code, appErrors.ErrTransientStore.Status, appErrors.ErrTransientStore.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *WeeklySlotService) invalidate(ctx context.Context, schoolID string) {
	if s.timetables == nil {
		return
	}
	s.timetables.InvalidateSchool(ctx, schoolID)
}

func mutationOutcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	appErr := appErrors.FromError(err)
	switch {
	case appErr.Code == appErrors.ErrScheduleConflict.Code:
		return OutcomeConflict
	case appErr.Code == appErrors.ErrNotFound.Code:
		return OutcomeNotFound
	case appErr.Code == appErrors.ErrTransientStore.Code:
		return OutcomeTransient
	case appErrors.IsValidation(err):
		return OutcomeInvalid
	}
	return OutcomeError
}
