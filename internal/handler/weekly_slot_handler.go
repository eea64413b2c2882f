package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type weeklySlotService interface {
	Create(ctx context.Context, schoolID string, req service.CreateWeeklySlotRequest) (*models.SlotDetail, error)
	Update(ctx context.Context, schoolID, id string, req service.UpdateWeeklySlotRequest) (*models.SlotDetail, error)
	Delete(ctx context.Context, schoolID, id string) error
	Get(ctx context.Context, schoolID, id string) (*models.SlotDetail, error)
	List(ctx context.Context, schoolID string, req service.ListWeeklySlotsRequest) ([]models.SlotDetail, *models.Pagination, error)
}

type availabilityChecker interface {
	Check(ctx context.Context, schoolID string, req service.CheckAvailabilityRequest) (*service.AvailabilityResult, error)
}

// WeeklySlotHandler manages weekly slot endpoints.
type WeeklySlotHandler struct {
	slots        weeklySlotService
	availability availabilityChecker
}

// NewWeeklySlotHandler constructs handler.
func NewWeeklySlotHandler(slots weeklySlotService, availability availabilityChecker) *WeeklySlotHandler {
	return &WeeklySlotHandler{slots: slots, availability: availability}
}

// List godoc
// @Summary List weekly slots
// @Tags Schedules
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param teacherId query string false "Filter by teacher"
// @Param classroomId query string false "Filter by classroom"
// @Param dayOfWeek query int false "Filter by day (0=Sunday)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules [get]
func (h *WeeklySlotHandler) List(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	day, err := parseDayQuery(c, "dayOfWeek")
	if err != nil {
		response.Error(c, err)
		return
	}

	req := service.ListWeeklySlotsRequest{
		WeeklySlotFilter: models.WeeklySlotFilter{
			CourseID:    c.Query("courseId"),
			TeacherID:   c.Query("teacherId"),
			ClassroomID: c.Query("classroomId"),
			DayOfWeek:   day,
		},
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		req.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		req.Size = limit
	}

	slots, pagination, err := h.slots.List(c.Request.Context(), schoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, pagination)
}

// Get godoc
// @Summary Get weekly slot
// @Tags Schedules
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/{id} [get]
func (h *WeeklySlotHandler) Get(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := slotIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	slot, err := h.slots.Get(c.Request.Context(), schoolID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Create godoc
// @Summary Book a weekly slot
// @Description Rejects the booking with SCHEDULE_CONFLICT when the course's teacher or classroom is already booked at an overlapping time on that day.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.CreateWeeklySlotRequest true "Weekly slot payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules [post]
func (h *WeeklySlotHandler) Create(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateWeeklySlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.slots.Create(c.Request.Context(), schoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Update godoc
// @Summary Move a weekly slot
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body service.UpdateWeeklySlotRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/{id} [patch]
func (h *WeeklySlotHandler) Update(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := slotIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateWeeklySlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.slots.Update(c.Request.Context(), schoolID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Delete godoc
// @Summary Delete a weekly slot
// @Tags Schedules
// @Param id path string true "Slot ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/{id} [delete]
func (h *WeeklySlotHandler) Delete(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := slotIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.slots.Delete(c.Request.Context(), schoolID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CheckAvailability godoc
// @Summary Check whether a booking would succeed
// @Tags Schedules
// @Produce json
// @Param courseId query string true "Course ID"
// @Param dayOfWeek query int true "Day (0=Sunday)"
// @Param startTime query string true "Start time HH:MM"
// @Param endTime query string true "End time HH:MM"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/check-availability [get]
func (h *WeeklySlotHandler) CheckAvailability(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	day, err := parseDayQuery(c, "dayOfWeek")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.availability.Check(c.Request.Context(), schoolID, service.CheckAvailabilityRequest{
		CourseID:  c.Query("courseId"),
		DayOfWeek: day,
		StartTime: c.Query("startTime"),
		EndTime:   c.Query("endTime"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
