package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Anzil-km/attention-nudge/config"
	"github.com/Anzil-km/attention-nudge/models"
	"github.com/Anzil-km/attention-nudge/services"
	"github.com/Anzil-km/attention-nudge/utils"
)

type CoordinationHandler struct {
	service        *services.CoordinationService
	vapidPublicKey string
	nudgeTimeout   time.Duration
	watchInterval  time.Duration
	logger         *utils.Logger
}

func NewCoordinationHandler(service *services.CoordinationService, cfg *config.Config, logger *utils.Logger) *CoordinationHandler {
	return &CoordinationHandler{
		service:        service,
		vapidPublicKey: cfg.VAPIDPublicKey,
		nudgeTimeout:   cfg.NudgeTimeout,
		watchInterval:  cfg.WatchInterval,
		logger:         logger.With("component", "CoordinationHandler"),
	}
}

// UpdateStatus handles POST /update-status
func (h *CoordinationHandler) UpdateStatus(c *gin.Context) {
	var req models.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidBody(c, err)
		return
	}

	if err := h.service.UpdateStatus(c.Request.Context(), req.Role, req.IsVisible, req.Subscription); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetStatus handles GET /get-status?watch=<identity>
func (h *CoordinationHandler) GetStatus(c *gin.Context) {
	view, err := h.service.GetStatus(c.Request.Context(), c.Query("watch"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Register handles POST /register
func (h *CoordinationHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidBody(c, err)
		return
	}

	if err := h.service.RegisterSubscription(c.Request.Context(), req.Room, req.Subscription); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Registered"})
}

// Nudge handles POST /nudge. The whole fan-out runs under the nudge timeout.
func (h *CoordinationHandler) Nudge(c *gin.Context) {
	var req models.NudgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidBody(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.nudgeTimeout)
	defer cancel()

	report, err := h.service.Nudge(ctx, req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.NudgeResponse{
		Message:   "Nudge sent",
		NudgeID:   report.NudgeID,
		Delivered: report.Delivered,
		Pruned:    report.Pruned,
	})
}

// VAPIDPublicKey handles GET /vapid-public-key
func (h *CoordinationHandler) VAPIDPublicKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publicKey": h.vapidPublicKey})
}
