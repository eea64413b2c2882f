package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// TimetableKind identifies whose week a timetable projects.
type TimetableKind string

const (
	TimetableTeacher   TimetableKind = "teacher"
	TimetableStudent   TimetableKind = "student"
	TimetableClassroom TimetableKind = "classroom"
)

// WeekTimetable holds exactly one bucket per weekday, indexed by DayOfWeek.
type WeekTimetable [DaysPerWeek][]SlotDetail

// Day returns the bucket for d, or nil for an out-of-range day.
func (w WeekTimetable) Day(d DayOfWeek) []SlotDetail {
	if !d.Valid() {
		return nil
	}
	return w[d]
}

// Len returns the total number of slots across the week.
func (w WeekTimetable) Len() int {
	total := 0
	for _, bucket := range w {
		total += len(bucket)
	}
	return total
}

// MarshalJSON renders the week as an object keyed "0".."6"; empty days render as [].
func (w WeekTimetable) MarshalJSON() ([]byte, error) {
	out := make(map[string][]SlotDetail, DaysPerWeek)
	for day, bucket := range w {
		if bucket == nil {
			bucket = []SlotDetail{}
		}
		out[strconv.Itoa(day)] = bucket
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the MarshalJSON shape and fills missing days with empty buckets.
func (w *WeekTimetable) UnmarshalJSON(data []byte) error {
	var raw map[string][]SlotDetail
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var week WeekTimetable
	for key, bucket := range raw {
		day, err := strconv.Atoi(key)
		if err != nil || !DayOfWeek(day).Valid() {
			return fmt.Errorf("invalid timetable day %q", key)
		}
		week[day] = bucket
	}
	for day := range week {
		if week[day] == nil {
			week[day] = []SlotDetail{}
		}
	}
	*w = week
	return nil
}
