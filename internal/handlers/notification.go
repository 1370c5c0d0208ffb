package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focus-planner/internal/auth"
	"focus-planner/internal/dto"
	"focus-planner/internal/service"
)

type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) Get(c *gin.Context) {
	setting, err := h.svc.GetSetting(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

// Put replaces the caller's setting wholesale.
func (h *NotificationHandler) Put(c *gin.Context) {
	var req dto.NotificationSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	setting, err := h.svc.SaveSetting(c.Request.Context(), auth.UserIDFromContext(c), service.SettingInput{
		PhoneNumber: req.PhoneNumber,
		Frequency:   req.Frequency,
		Time:        req.Time,
		DayOfWeek:   req.DayOfWeek,
		Enabled:     req.Enabled,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteSetting(c.Request.Context(), auth.UserIDFromContext(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
