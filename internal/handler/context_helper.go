package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// schoolFromContext returns the tenant bound by the JWT middleware.
func schoolFromContext(c *gin.Context) (string, error) {
	schoolID := middleware.SchoolID(c)
	if schoolID == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "request is not bound to a school")
	}
	return schoolID, nil
}

func slotIDParam(c *gin.Context) (string, error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "invalid weekly slot id")
	}
	return id, nil
}

func requiredParam(c *gin.Context, name string) (string, error) {
	value := strings.TrimSpace(c.Param(name))
	if value == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, name+" is required")
	}
	return value, nil
}

// parseDayQuery reads an optional 0-6 day index from the query string.
func parseDayQuery(c *gin.Context, key string) (*models.DayOfWeek, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || !models.DayOfWeek(n).Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be an integer between 0 and 6")
	}
	day := models.DayOfWeek(n)
	return &day, nil
}
