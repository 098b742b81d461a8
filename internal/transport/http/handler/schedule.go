package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketboard/ad-scheduler/internal/domain"
	"github.com/marketboard/ad-scheduler/internal/usecase"
)

type ScheduleHandler struct {
	uc     *usecase.ScheduleUsecase
	logger *slog.Logger
}

func NewScheduleHandler(uc *usecase.ScheduleUsecase, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{uc: uc, logger: logger.With("component", "schedule_handler")}
}

type createScheduleRequest struct {
	CampaignID string `json:"campaign_id" binding:"required,uuid"`
	TimeSlotID string `json:"time_slot_id" binding:"required,uuid"`
	Date       string `json:"date"         binding:"required"`
}

type scheduleResponse struct {
	ID            string     `json:"id"`
	CampaignID    string     `json:"campaign_id"`
	TimeSlotID    string     `json:"time_slot_id"`
	ScheduledDate string     `json:"scheduled_date"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	ExecutedAt    *time.Time `json:"executed_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toScheduleResponse(s *domain.Schedule) scheduleResponse {
	return scheduleResponse{
		ID:            s.ID,
		CampaignID:    s.CampaignID,
		TimeSlotID:    s.TimeSlotID,
		ScheduledDate: s.ScheduledDate.Format("2006-01-02"),
		ScheduledAt:   s.ScheduledAt,
		Status:        string(s.Status),
		RetryCount:    s.RetryCount,
		MaxRetries:    s.MaxRetries,
		NextRetryAt:   s.NextRetryAt,
		FailureReason: s.FailureReason,
		ExecutedAt:    s.ExecutedAt,
		CompletedAt:   s.CompletedAt,
		CreatedAt:     s.CreatedAt,
	}
}

func (h *ScheduleHandler) Create(ctx *gin.Context) {
	var req createScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidDate})
		return
	}

	s, err := h.uc.CreateSchedule(ctx.Request.Context(), usecase.CreateScheduleInput{
		CampaignID: req.CampaignID,
		TimeSlotID: req.TimeSlotID,
		Date:       date,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTimeSlotNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errTimeSlotNotFound})
		default:
			h.logger.Error("create schedule", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusCreated, toScheduleResponse(s))
}

func (h *ScheduleHandler) GetByID(ctx *gin.Context) {
	s, err := h.uc.GetSchedule(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrScheduleNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errScheduleNotFound})
			return
		}
		h.logger.Error("get schedule", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	ctx.JSON(http.StatusOK, toScheduleResponse(s))
}

func (h *ScheduleHandler) List(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))

	result, err := h.uc.ListSchedules(ctx.Request.Context(), usecase.ListSchedulesInput{
		Status: ctx.Query("status"),
		Cursor: ctx.Query("cursor"),
		Limit:  limit,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidStatus):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidStatus})
			return
		case errors.Is(err, domain.ErrInvalidCursor):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidCursor})
			return
		}
		h.logger.Error("list schedules", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]scheduleResponse, 0, len(result.Schedules))
	for _, s := range result.Schedules {
		items = append(items, toScheduleResponse(s))
	}
	ctx.JSON(http.StatusOK, gin.H{"schedules": items, "next_cursor": result.NextCursor})
}

func (h *ScheduleHandler) Cancel(ctx *gin.Context) {
	err := h.uc.CancelSchedule(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrScheduleNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errScheduleNotFound})
		case errors.Is(err, domain.ErrScheduleNotCancellable):
			ctx.JSON(http.StatusConflict, gin.H{"error": errNotCancellable})
		default:
			h.logger.Error("cancel schedule", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *ScheduleHandler) Stats(ctx *gin.Context) {
	counts, err := h.uc.GetScheduleStats(ctx.Request.Context())
	if err != nil {
		h.logger.Error("schedule stats", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	stats := make(map[string]int, len(counts))
	for status, n := range counts {
		stats[string(status)] = n
	}
	ctx.JSON(http.StatusOK, gin.H{"stats": stats})
}

type executionLogResponse struct {
	ID           string         `json:"id"`
	ScheduleID   *string        `json:"schedule_id,omitempty"`
	CampaignID   *string        `json:"campaign_id,omitempty"`
	Action       string         `json:"action"`
	Status       string         `json:"status"`
	Message      string         `json:"message"`
	ErrorDetails map[string]any `json:"error_details,omitempty"`
	Metrics      map[string]any `json:"metrics,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (h *ScheduleHandler) ListLogs(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))

	entries, err := h.uc.ListScheduleLogs(ctx.Request.Context(), ctx.Param("id"), limit)
	if err != nil {
		if errors.Is(err, domain.ErrScheduleNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errScheduleNotFound})
			return
		}
		h.logger.Error("list schedule logs", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]executionLogResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, executionLogResponse{
			ID:           e.ID,
			ScheduleID:   e.ScheduleID,
			CampaignID:   e.CampaignID,
			Action:       string(e.Action),
			Status:       string(e.Status),
			Message:      e.Message,
			ErrorDetails: e.ErrorDetails,
			Metrics:      e.Metrics,
			CreatedAt:    e.CreatedAt,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"logs": items})
}
