package service

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// OperatingHours bounds the times of day a slot may occupy. A slot may end exactly at Closing.
type OperatingHours struct {
	Opening string
	Closing string
}

// DefaultOperatingHours is the 06:00-22:00 school day.
func DefaultOperatingHours() OperatingHours {
	return OperatingHours{Opening: "06:00", Closing: "22:00"}
}

func (h OperatingHours) orDefault() OperatingHours {
	if _, ok := clockMinutes(h.Opening); !ok {
		return DefaultOperatingHours()
	}
	if _, ok := clockMinutes(h.Closing); !ok {
		return DefaultOperatingHours()
	}
	return h
}

// ValidateTimeRange checks a candidate range in order: format, orientation, operating hours.
// The first failing rule determines the error.
func ValidateTimeRange(start, end string, hours OperatingHours) (models.TimeRange, error) {
	startMin, okStart := clockMinutes(start)
	endMin, okEnd := clockMinutes(end)
	if !okStart || !okEnd {
		bad := start
		if okStart {
			bad = end
		}
		return models.TimeRange{}, appErrors.Clone(appErrors.ErrInvalidFormat, fmt.Sprintf("time %q must use HH:MM 24-hour format", bad))
	}
	if startMin >= endMin {
		return models.TimeRange{}, appErrors.Clone(appErrors.ErrInvertedRange, fmt.Sprintf("start time %s must be before end time %s", start, end))
	}

	hours = hours.orDefault()
	opening, _ := clockMinutes(hours.Opening)
	closing, _ := clockMinutes(hours.Closing)
	if startMin < opening || endMin > closing {
		return models.TimeRange{}, appErrors.Clone(appErrors.ErrOutOfOperatingHours,
			fmt.Sprintf("time range %s-%s is outside operating hours %s-%s", start, end, hours.Opening, hours.Closing))
	}

	return models.TimeRange{Start: start, End: end}, nil
}

// clockMinutes parses a strict zero-padded HH:MM value into minutes after midnight.
func clockMinutes(v string) (int, bool) {
	if len(v) != 5 || v[2] != ':' {
		return 0, false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if v[i] < '0' || v[i] > '9' {
			return 0, false
		}
	}
	hh, _ := strconv.Atoi(v[:2])
	mm, _ := strconv.Atoi(v[3:])
	if hh > 23 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}

// booking is a validated candidate placement of a course.
type booking struct {
	CourseID string
	Day      models.DayOfWeek
	Range    models.TimeRange
}

// bookingRequest is the shape shared by slot creation and availability checks.
type bookingRequest struct {
	CourseID  string            `validate:"required"`
	DayOfWeek *models.DayOfWeek `validate:"required,min=0,max=6"`
	StartTime string            `validate:"required"`
	EndTime   string            `validate:"required"`
}

// prepareBooking runs every pure check on a candidate before any storage is touched.
func prepareBooking(validate *validator.Validate, hours OperatingHours, req bookingRequest, message string) (booking, error) {
	if err := validate.Struct(req); err != nil {
		return booking{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	rng, err := ValidateTimeRange(req.StartTime, req.EndTime, hours)
	if err != nil {
		return booking{}, err
	}
	return booking{CourseID: req.CourseID, Day: *req.DayOfWeek, Range: rng}, nil
}
