package service

import (
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// GroupByDay buckets slots into a seven-day week. Each day is ordered by start time, then end time,
// then id. Slots repeated under the same id are kept once; slots with an invalid day are dropped.
func GroupByDay(slots []models.SlotDetail) models.WeekTimetable {
	var week models.WeekTimetable
	for day := range week {
		week[day] = make([]models.SlotDetail, 0)
	}

	seen := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		if !slot.DayOfWeek.Valid() {
			continue
		}
		if slot.ID != "" {
			if _, dup := seen[slot.ID]; dup {
				continue
			}
			seen[slot.ID] = struct{}{}
		}
		week[slot.DayOfWeek] = append(week[slot.DayOfWeek], slot)
	}

	for day := range week {
		bucket := week[day]
		sort.SliceStable(bucket, func(i, j int) bool {
			if bucket[i].Start != bucket[j].Start {
				return bucket[i].Start < bucket[j].Start
			}
			if bucket[i].End != bucket[j].End {
				return bucket[i].End < bucket[j].End
			}
			return bucket[i].ID < bucket[j].ID
		})
	}
	return week
}
