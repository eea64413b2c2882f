package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
)

type flakyCacheRepository struct {
	*memoryCacheRepository
	failures int
}

func (r *flakyCacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("redis: connection refused")
	}
	return r.memoryCacheRepository.DeleteByPattern(ctx, pattern)
}

type recordingEnqueuer struct {
	jobs []jobs.Job
	err  error
}

func (r *recordingEnqueuer) Enqueue(job jobs.Job) error {
	r.jobs = append(r.jobs, job)
	return r.err
}

func TestTimetableCacheKeys(t *testing.T) {
	assert.Equal(t, "timetable:school-1:g3:teacher:T1", TimetableCacheKey("school-1", 3, models.TimetableTeacher, "T1"))
	assert.Equal(t, "timetable:school-1:*", SchoolTimetablePattern("school-1"))
	assert.Equal(t, "timetable-generation:school-1", SchoolGenerationKey("school-1"))
	assert.NotContains(t, SchoolGenerationKey("school-1"), "timetable:school-1:", "invalidation must not match the counter")
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	var nilSvc *CacheService
	var dest string
	assert.False(t, nilSvc.Get(context.Background(), "k", &dest))
	nilSvc.Set(context.Background(), "k", "v", 0)
	nilSvc.InvalidateSchool(context.Background(), "school-1")

	repo := newMemoryCacheRepository()
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), false)
	svc.Set(context.Background(), "k", "v", 0)
	assert.Empty(t, repo.entries)
}

func TestCacheServiceRoundTripAndInvalidate(t *testing.T) {
	repo := newMemoryCacheRepository()
	svc := NewCacheService(repo, NewMetricsService(), time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	key := TimetableCacheKey(testSchool, 0, models.TimetableClassroom, "R1")
	svc.Set(ctx, key, []string{"a"}, 0)
	svc.Set(ctx, TimetableCacheKey("school-2", 0, models.TimetableClassroom, "R1"), []string{"b"}, 0)

	var got []string
	require.True(t, svc.Get(ctx, key, &got))
	assert.Equal(t, []string{"a"}, got)

	gen, ok := svc.Generation(ctx, testSchool)
	require.True(t, ok)
	assert.Equal(t, int64(0), gen)

	svc.InvalidateSchool(ctx, testSchool)
	assert.False(t, svc.Get(ctx, key, &got))
	assert.Len(t, repo.entries, 1)

	gen, ok = svc.Generation(ctx, testSchool)
	require.True(t, ok)
	assert.Equal(t, int64(1), gen)
	other, _ := svc.Generation(ctx, "school-2")
	assert.Equal(t, int64(0), other)
}

type unreachableGenerationRepository struct {
	*memoryCacheRepository
}

func (r *unreachableGenerationRepository) Generation(ctx context.Context, key string) (int64, error) {
	return 0, errors.New("redis: i/o timeout")
}

func (r *unreachableGenerationRepository) BumpGeneration(ctx context.Context, key string) (int64, error) {
	return 0, errors.New("redis: i/o timeout")
}

func TestCacheServiceGenerationFailureDisablesCaching(t *testing.T) {
	svc := NewCacheService(&unreachableGenerationRepository{newMemoryCacheRepository()}, nil, time.Minute, zap.NewNop(), true)
	_, ok := svc.Generation(context.Background(), testSchool)
	assert.False(t, ok)

	queue := &recordingEnqueuer{}
	svc.SetRetryQueue(queue)
	svc.InvalidateSchool(context.Background(), testSchool)
	require.Len(t, queue.jobs, 1, "a failed generation bump is retried")

	var nilSvc *CacheService
	_, ok = nilSvc.Generation(context.Background(), testSchool)
	assert.False(t, ok)
}

func TestCacheServiceQueuesFailedInvalidation(t *testing.T) {
	repo := &flakyCacheRepository{memoryCacheRepository: newMemoryCacheRepository(), failures: 1}
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	queue := &recordingEnqueuer{}
	svc.SetRetryQueue(queue)
	ctx := context.Background()

	key := TimetableCacheKey(testSchool, 0, models.TimetableTeacher, "T1")
	svc.Set(ctx, key, "week", 0)
	svc.InvalidateSchool(ctx, testSchool)

	require.Len(t, queue.jobs, 1)
	job := queue.jobs[0]
	assert.Equal(t, InvalidationJobType, job.Type)
	assert.Equal(t, testSchool, job.Payload)

	require.NoError(t, svc.HandleInvalidationJob(ctx, job))
	var dest string
	assert.False(t, svc.Get(ctx, key, &dest))
}

func TestCacheServiceHandleInvalidationJobReportsFailure(t *testing.T) {
	repo := &flakyCacheRepository{memoryCacheRepository: newMemoryCacheRepository(), failures: 1}
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	err := svc.HandleInvalidationJob(context.Background(), jobs.Job{Type: InvalidationJobType, Payload: testSchool})
	assert.Error(t, err)

	assert.NoError(t, svc.HandleInvalidationJob(context.Background(), jobs.Job{Type: "other", Payload: 1}))
}
