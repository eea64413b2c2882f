package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type overlapFinder interface {
	FindOverlapping(ctx context.Context, exec sqlx.ExtContext, schoolID string, kind models.ResourceKind, resourceID string, day models.DayOfWeek, rng models.TimeRange, excludeID string) ([]models.SlotDetail, error)
}

// ConflictDetector finds existing slots that would share a teacher or classroom with a candidate booking.
type ConflictDetector struct {
	repo    overlapFinder
	metrics *MetricsService
}

// NewConflictDetector builds a detector over the slot store.
func NewConflictDetector(repo overlapFinder, metrics *MetricsService) *ConflictDetector {
	return &ConflictDetector{repo: repo, metrics: metrics}
}

// Find returns every conflict for placing res on day during rng, ignoring the slot excludeID.
// Teacher conflicts are reported before classroom conflicts, each ordered by start time.
// A slot sharing both resources is reported once per resource.
func (d *ConflictDetector) Find(ctx context.Context, exec sqlx.ExtContext, res models.CourseResources, day models.DayOfWeek, rng models.TimeRange, excludeID string) ([]models.ScheduleConflict, error) {
	conflicts := make([]models.ScheduleConflict, 0)
	for _, kind := range models.ResourceKinds {
		resourceID := res.ResourceID(kind)
		if resourceID == "" {
			continue
		}
		candidates, err := d.repo.FindOverlapping(ctx, exec, res.SchoolID, kind, resourceID, day, rng, excludeID)
		if err != nil {
			return nil, fmt.Errorf("find %s conflicts: %w", strings.ToLower(string(kind)), err)
		}

		found := make([]models.ScheduleConflict, 0, len(candidates))
		for _, slot := range candidates {
			if slot.ID == excludeID || slot.DayOfWeek != day || !slot.TimeRange.Overlaps(rng) {
				continue
			}
			found = append(found, models.ScheduleConflict{
				Resource:   kind,
				ResourceID: resourceID,
				Slot:       slot,
				Message:    describeConflict(kind, slot),
			})
		}
		sort.SliceStable(found, func(i, j int) bool {
			if found[i].Slot.Start != found[j].Slot.Start {
				return found[i].Slot.Start < found[j].Slot.Start
			}
			return found[i].Slot.ID < found[j].Slot.ID
		})
		conflicts = append(conflicts, found...)
	}
	d.metrics.RecordConflicts(conflicts)
	return conflicts, nil
}

func describeConflict(kind models.ResourceKind, slot models.SlotDetail) string {
	switch kind {
	case models.ResourceTeacher:
		return fmt.Sprintf("teacher %q already teaches %s (room %s) on %s %s",
			slot.TeacherName, slot.SubjectName, slot.ClassroomName, slot.DayOfWeek, slot.TimeRange)
	case models.ResourceClassroom:
		return fmt.Sprintf("classroom %q is already booked for %s with %s on %s %s",
			slot.ClassroomName, slot.SubjectName, slot.TeacherName, slot.DayOfWeek, slot.TimeRange)
	}
	return fmt.Sprintf("%s is already booked on %s %s", strings.ToLower(string(kind)), slot.DayOfWeek, slot.TimeRange)
}

// conflictError converts detected conflicts into a SCHEDULE_CONFLICT error that carries them as details.
func conflictError(conflicts []models.ScheduleConflict) error {
	domainErr := &models.ScheduleConflictError{Conflicts: conflicts}
	wrapped := appErrors.Wrap(domainErr, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, domainErr.Error())
	return appErrors.WithDetails(wrapped, domainErr)
}
