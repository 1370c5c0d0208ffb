package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"focus-planner/internal/auth"
	"focus-planner/internal/service"
)

const cronSecretHeader = "X-Cron-Secret"

type ReminderHandler struct {
	svc *service.ReminderService
}

func NewReminderHandler(svc *service.ReminderService) *ReminderHandler {
	return &ReminderHandler{svc: svc}
}

// Run is the external cron trigger. The secret comes from X-Cron-Secret or
// a bearer token.
func (h *ReminderHandler) Run(c *gin.Context) {
	secret := strings.TrimSpace(c.GetHeader(cronSecretHeader))
	if secret == "" {
		secret = auth.BearerToken(c)
	}
	summary, err := h.svc.Run(c.Request.Context(), secret)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
