package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focus-planner/internal/auth"
	"focus-planner/internal/handlers"
)

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, svc Services, sessions auth.Resolver) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	reminderHandler := handlers.NewReminderHandler(svc.Reminders)
	r.POST("/internal/reminders/run", reminderHandler.Run)

	protected := r.Group("/api/v1", auth.RequireSession(sessions))
	registerTaskRoutes(protected, handlers.NewTaskHandler(svc.Tasks, svc.Rebalancer))
	registerNotificationRoutes(protected, handlers.NewNotificationHandler(svc.Notifications))
}

func registerTaskRoutes(api *gin.RouterGroup, h *handlers.TaskHandler) {
	api.GET("/tasks", h.List)
	api.POST("/tasks", h.Create)
	api.POST("/tasks/rebalance", h.Rebalance)
	api.GET("/tasks/:id", h.Get)
	api.PATCH("/tasks/:id/completed", h.SetCompleted)
	api.PATCH("/tasks/:id/active", h.SetActive)
	api.PATCH("/tasks/:id/order", h.Reorder)
	api.DELETE("/tasks/:id", h.Delete)
}

func registerNotificationRoutes(api *gin.RouterGroup, h *handlers.NotificationHandler) {
	api.GET("/notification-settings", h.Get)
	api.PUT("/notification-settings", h.Put)
	api.DELETE("/notification-settings", h.Delete)
}
