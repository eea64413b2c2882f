package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/handler"
	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
)

type routeDeps struct {
	verifier   *service.TokenVerifier
	limiter    *middleware.SchoolRateLimiter
	slots      *handler.WeeklySlotHandler
	timetables *handler.TimetableHandler
}

func registerRoutes(api *gin.RouterGroup, deps routeDeps) {
	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	everyone := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleStudent, models.RoleParent)
	limited := middleware.RateLimit(deps.limiter)

	schedules := api.Group("/schedules", middleware.JWT(deps.verifier))
	schedules.GET("", staff, deps.slots.List)
	schedules.POST("", admin, limited, deps.slots.Create)
	schedules.GET("/check-availability", admin, deps.slots.CheckAvailability)
	schedules.GET("/:id", staff, deps.slots.Get)
	schedules.PATCH("/:id", admin, limited, deps.slots.Update)
	schedules.DELETE("/:id", admin, limited, deps.slots.Delete)

	schedules.GET("/teacher/:teacherId", staff, deps.timetables.Teacher)
	schedules.GET("/teacher/:teacherId/export", staff, deps.timetables.ExportTeacher)
	schedules.GET("/student/:studentId", everyone, deps.timetables.Student)
	schedules.GET("/classroom/:classroomId", staff, deps.timetables.Classroom)
}
