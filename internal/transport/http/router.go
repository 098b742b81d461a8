package httptransport

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/marketboard/ad-scheduler/internal/transport/http/handler"
	"github.com/marketboard/ad-scheduler/internal/transport/http/middleware"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(
	logger *slog.Logger,
	scheduleHandler *handler.ScheduleHandler,
	timeSlotHandler *handler.TimeSlotHandler,
	clockHandler *handler.ClockHandler,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	schedules := r.Group("/schedules")
	schedules.POST("", scheduleHandler.Create)
	schedules.GET("", scheduleHandler.List)
	schedules.GET("/stats", scheduleHandler.Stats)
	schedules.GET("/:id", scheduleHandler.GetByID)
	schedules.GET("/:id/logs", scheduleHandler.ListLogs)
	schedules.DELETE("/:id", scheduleHandler.Cancel)

	timeslots := r.Group("/timeslots")
	timeslots.GET("/free", timeSlotHandler.ListFree)
	timeslots.GET("/availability", timeSlotHandler.Availability)

	r.PUT("/campaigns/:id/timeslots", timeSlotHandler.Replace)

	clock := r.Group("/clock")
	clock.POST("/start", clockHandler.Start)
	clock.POST("/stop", clockHandler.Stop)
	clock.GET("/status", clockHandler.Status)

	return r
}
