package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marketboard/ad-scheduler/internal/scheduler"
)

type ClockHandler struct {
	clock  *scheduler.TriggerClock
	logger *slog.Logger
}

func NewClockHandler(clock *scheduler.TriggerClock, logger *slog.Logger) *ClockHandler {
	return &ClockHandler{clock: clock, logger: logger.With("component", "clock_handler")}
}

func (h *ClockHandler) Start(ctx *gin.Context) {
	msg := h.clock.Start()
	ctx.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *ClockHandler) Stop(ctx *gin.Context) {
	msg := h.clock.Stop()
	ctx.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *ClockHandler) Status(ctx *gin.Context) {
	status := h.clock.Status()
	ctx.JSON(http.StatusOK, gin.H{
		"running":      status.Running,
		"active_tasks": status.ActiveTasks,
		"uptime":       status.Uptime.String(),
	})
}
