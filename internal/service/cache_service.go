package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

const (
	timetableKeyPrefix  = "timetable"
	generationKeyPrefix = "timetable-generation"
)

// InvalidationJobType tags retried school invalidations on the job queue.
const InvalidationJobType = "timetable.invalidate"

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Generation(ctx context.Context, key string) (int64, error)
	BumpGeneration(ctx context.Context, key string) (int64, error)
}

// CacheService wraps the cache store with metrics and failure tolerance. Cache faults are
// logged and reported as misses; they never fail a request.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
	retries    jobEnqueuer
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// SetRetryQueue routes failed invalidations to a background queue that handles them with
// HandleInvalidationJob.
func (s *CacheService) SetRetryQueue(queue jobEnqueuer) {
	if s == nil {
		return
	}
	s.retries = queue
}

// TimetableCacheKey names the cache entry of one projected week under a school generation.
func TimetableCacheKey(schoolID string, generation int64, kind models.TimetableKind, ownerID string) string {
	return fmt.Sprintf("%s:%s:g%d:%s:%s", timetableKeyPrefix, schoolID, generation, kind, ownerID)
}

// SchoolTimetablePattern matches every cached week of a school.
func SchoolTimetablePattern(schoolID string) string {
	return fmt.Sprintf("%s:%s:*", timetableKeyPrefix, schoolID)
}

// SchoolGenerationKey names the counter bumped on every slot write in the school. It sits outside
// SchoolTimetablePattern so invalidation never resets it.
func SchoolGenerationKey(schoolID string) string {
	return fmt.Sprintf("%s:%s", generationKeyPrefix, schoolID)
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Generation returns the school's current cache generation. ok is false when the cache is off
// or the counter cannot be read; callers then neither read nor fill the cache.
func (s *CacheService) Generation(ctx context.Context, schoolID string) (int64, bool) {
	if !s.Enabled() {
		return 0, false
	}
	gen, err := s.repo.Generation(ctx, SchoolGenerationKey(schoolID))
	if err != nil {
		s.logger.Warn("cache generation read failed", zap.String("school_id", schoolID), zap.Error(err))
		return 0, false
	}
	return gen, true
}

// Get loads key into dest and reports whether it was a hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

// Set stores value under key. A non-positive ttl uses the default.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateSchool moves the school to a new generation, retiring every week cached or still
// being loaded under the old one, then drops the retired entries. A failure is queued for retry
// when a retry queue is configured.
func (s *CacheService) InvalidateSchool(ctx context.Context, schoolID string) {
	if !s.Enabled() {
		return
	}
	err := s.invalidate(ctx, schoolID)
	if err == nil {
		return
	}
	s.logger.Warn("cache invalidate failed", zap.String("school_id", schoolID), zap.Error(err))
	if s.retries == nil {
		return
	}
	job := jobs.Job{ID: SchoolGenerationKey(schoolID), Type: InvalidationJobType, Payload: schoolID}
	if err := s.retries.Enqueue(job); err != nil {
		s.logger.Error("cache invalidate retry not queued", zap.String("school_id", schoolID), zap.Error(err))
	}
}

// HandleInvalidationJob replays a queued school invalidation.
func (s *CacheService) HandleInvalidationJob(ctx context.Context, job jobs.Job) error {
	schoolID, ok := job.Payload.(string)
	if !ok || job.Type != InvalidationJobType {
		s.logger.Error("unexpected cache job", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	if !s.Enabled() {
		return nil
	}
	return s.invalidate(ctx, schoolID)
}

func (s *CacheService) invalidate(ctx context.Context, schoolID string) error {
	if _, err := s.repo.BumpGeneration(ctx, SchoolGenerationKey(schoolID)); err != nil {
		return err
	}
	return s.repo.DeleteByPattern(ctx, SchoolTimetablePattern(schoolID))
}
