package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketboard/ad-scheduler/internal/domain"
	"github.com/marketboard/ad-scheduler/internal/usecase"
)

type TimeSlotHandler struct {
	uc     *usecase.AvailabilityUsecase
	logger *slog.Logger
}

func NewTimeSlotHandler(uc *usecase.AvailabilityUsecase, logger *slog.Logger) *TimeSlotHandler {
	return &TimeSlotHandler{uc: uc, logger: logger.With("component", "timeslot_handler")}
}

type timeSlotResponse struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	Start      string    `json:"start_time"`
	End        string    `json:"end_time"`
	Weekdays   []int     `json:"weekdays"`
	Priority   int       `json:"priority"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

func toTimeSlotResponse(s *domain.TimeSlot) timeSlotResponse {
	return timeSlotResponse{
		ID:         s.ID,
		CampaignID: s.CampaignID,
		Start:      s.Start.String(),
		End:        s.End.String(),
		Weekdays:   s.Weekdays,
		Priority:   s.Priority,
		Active:     s.Active,
		CreatedAt:  s.CreatedAt,
	}
}

// ListFree handles GET /timeslots/free?date=YYYY-MM-DD&campaign_type=…
func (h *TimeSlotHandler) ListFree(ctx *gin.Context) {
	date, err := time.Parse("2006-01-02", ctx.Query("date"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidDate})
		return
	}

	slots, err := h.uc.ListFreeSlotsForDate(ctx.Request.Context(), date, ctx.Query("campaign_type"))
	if err != nil {
		h.logger.Error("list free slots", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]timeSlotResponse, 0, len(slots))
	for _, s := range slots {
		items = append(items, toTimeSlotResponse(s))
	}
	ctx.JSON(http.StatusOK, gin.H{"slots": items})
}

// Availability handles
// GET /timeslots/availability?date=YYYY-MM-DD&start=HH:MM&end=HH:MM&campaign_type=…
func (h *TimeSlotHandler) Availability(ctx *gin.Context) {
	date, err := time.Parse("2006-01-02", ctx.Query("date"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidDate})
		return
	}
	start, err := domain.ParseTimeOfDay(ctx.Query("start"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidTimeOfDay})
		return
	}
	end, err := domain.ParseTimeOfDay(ctx.Query("end"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidTimeOfDay})
		return
	}

	result, err := h.uc.IsAvailable(ctx.Request.Context(), ctx.Query("campaign_type"), date, start, end)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSlotWindow) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidSlotWindow})
			return
		}
		h.logger.Error("check availability", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	conflicts := make([]scheduleResponse, 0, len(result.Conflicts))
	for _, s := range result.Conflicts {
		conflicts = append(conflicts, toScheduleResponse(s))
	}
	ctx.JSON(http.StatusOK, gin.H{"available": result.Available, "conflicts": conflicts})
}

type replaceTimeSlotsRequest struct {
	Slots []timeSlotInput `json:"slots" binding:"required,dive"`
}

type timeSlotInput struct {
	Start    string `json:"start_time" binding:"required"`
	End      string `json:"end_time"   binding:"required"`
	Weekdays []int  `json:"weekdays"   binding:"required,min=1,dive,min=0,max=6"`
	Priority int    `json:"priority"`
	Active   *bool  `json:"active"`
}

// Replace handles PUT /campaigns/:id/timeslots with replace-all
// semantics.
func (h *TimeSlotHandler) Replace(ctx *gin.Context) {
	var req replaceTimeSlotsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inputs := make([]usecase.TimeSlotInput, 0, len(req.Slots))
	for _, s := range req.Slots {
		active := true
		if s.Active != nil {
			active = *s.Active
		}
		inputs = append(inputs, usecase.TimeSlotInput{
			Start:    s.Start,
			End:      s.End,
			Weekdays: s.Weekdays,
			Priority: s.Priority,
			Active:   active,
		})
	}

	slots, err := h.uc.ReplaceTimeSlots(ctx.Request.Context(), ctx.Param("id"), inputs)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCampaignNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errCampaignNotFound})
		case errors.Is(err, domain.ErrInvalidTimeOfDay):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidTimeOfDay})
		case errors.Is(err, domain.ErrInvalidSlotWindow):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidSlotWindow})
		case errors.Is(err, domain.ErrInvalidWeekdays):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidWeekdays})
		default:
			h.logger.Error("replace time slots", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	items := make([]timeSlotResponse, 0, len(slots))
	for _, s := range slots {
		items = append(items, toTimeSlotResponse(s))
	}
	ctx.JSON(http.StatusOK, gin.H{"slots": items})
}
