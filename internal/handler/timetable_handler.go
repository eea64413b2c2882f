package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableService interface {
	ForTeacher(ctx context.Context, schoolID, teacherID string) (models.WeekTimetable, bool, error)
	ForStudent(ctx context.Context, schoolID, studentID string) (models.WeekTimetable, bool, error)
	ForClassroom(ctx context.Context, schoolID, classroomID string) (models.WeekTimetable, bool, error)
}

type timetableExporter interface {
	ContentType() string
	WriteTimetable(w io.Writer, week models.WeekTimetable) error
}

type projection func(ctx context.Context, schoolID, ownerID string) (models.WeekTimetable, bool, error)

// TimetableHandler serves day-grouped weekly timetables.
type TimetableHandler struct {
	timetables timetableService
	exporter   timetableExporter
}

// NewTimetableHandler constructs handler.
func NewTimetableHandler(timetables timetableService, exporter timetableExporter) *TimetableHandler {
	return &TimetableHandler{timetables: timetables, exporter: exporter}
}

// Teacher godoc
// @Summary Teacher timetable
// @Description Slots of every course the teacher teaches, grouped by day "0" (Sunday) to "6" (Saturday).
// @Tags Timetables
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/teacher/{teacherId} [get]
func (h *TimetableHandler) Teacher(c *gin.Context) {
	h.serve(c, "teacherId", h.timetables.ForTeacher)
}

// Student godoc
// @Summary Student timetable
// @Description Slots of courses held in classrooms the student is actively enrolled in.
// @Tags Timetables
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/student/{studentId} [get]
func (h *TimetableHandler) Student(c *gin.Context) {
	h.serve(c, "studentId", h.timetables.ForStudent)
}

// Classroom godoc
// @Summary Classroom timetable
// @Tags Timetables
// @Produce json
// @Param classroomId path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/classroom/{classroomId} [get]
func (h *TimetableHandler) Classroom(c *gin.Context) {
	h.serve(c, "classroomId", h.timetables.ForClassroom)
}

// ExportTeacher godoc
// @Summary Export teacher timetable as CSV
// @Tags Timetables
// @Produce text/csv
// @Param teacherId path string true "Teacher ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/teacher/{teacherId}/export [get]
func (h *TimetableHandler) ExportTeacher(c *gin.Context) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	teacherID, err := requiredParam(c, "teacherId")
	if err != nil {
		response.Error(c, err)
		return
	}
	week, _, err := h.timetables.ForTeacher(c.Request.Context(), schoolID, teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.WriteTimetable(&buf, week); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export timetable"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "timetable-teacher-"+teacherID+".csv"))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, h.exporter.ContentType(), buf.Bytes())
}

func (h *TimetableHandler) serve(c *gin.Context, param string, project projection) {
	schoolID, err := schoolFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	ownerID, err := requiredParam(c, param)
	if err != nil {
		response.Error(c, err)
		return
	}
	week, hit, err := project(c.Request.Context(), schoolID, ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, week, nil, middleware.ExtractMeta(c))
}
