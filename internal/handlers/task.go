package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"focus-planner/internal/auth"
	"focus-planner/internal/dto"
	"focus-planner/internal/service"
)

type TaskHandler struct {
	svc        *service.TaskService
	rebalancer *service.RebalanceService
	now        func() time.Time
}

func NewTaskHandler(svc *service.TaskService, rebalancer *service.RebalanceService) *TaskHandler {
	return &TaskHandler{svc: svc, rebalancer: rebalancer, now: time.Now}
}

// List returns one partition: ?active=<bool>&completed=<bool>, both default false.
func (h *TaskHandler) List(c *gin.Context) {
	active, ok := queryBool(c, "active")
	if !ok {
		return
	}
	completed, ok := queryBool(c, "completed")
	if !ok {
		return
	}
	list, err := h.svc.ListTasks(c.Request.Context(), auth.UserIDFromContext(c), active, completed)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListTasksResponse{Items: dto.NewTaskResponses(list, h.now())})
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := h.svc.CreateTask(c.Request.Context(), auth.UserIDFromContext(c), req.Title)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewTaskResponse(*task, h.now()))
}

func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.svc.GetTask(c.Request.Context(), auth.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTaskResponse(*task, h.now()))
}

func (h *TaskHandler) SetCompleted(c *gin.Context) {
	var req dto.SetCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := h.svc.SetCompleted(c.Request.Context(), auth.UserIDFromContext(c), c.Param("id"), *req.Completed)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTaskResponse(*task, h.now()))
}

func (h *TaskHandler) SetActive(c *gin.Context) {
	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := h.svc.SetActive(c.Request.Context(), auth.UserIDFromContext(c), c.Param("id"), *req.Active)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTaskResponse(*task, h.now()))
}

// Reorder reports applied=false with the unchanged task when the requested
// key is already taken in the task's list.
func (h *TaskHandler) Reorder(c *gin.Context) {
	var req dto.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	owner := auth.UserIDFromContext(c)
	taskID := c.Param("id")

	if req.SortOrder == nil {
		task, err := h.svc.MoveBetween(ctx, owner, taskID, req.BeforeID, req.AfterID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.ReorderResponse{Task: dto.NewTaskResponse(*task, h.now()), Applied: true})
		return
	}

	task, applied, err := h.svc.Reorder(ctx, owner, taskID, *req.SortOrder)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ReorderResponse{Task: dto.NewTaskResponse(*task, h.now()), Applied: applied})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteTask(c.Request.Context(), auth.UserIDFromContext(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Rebalance renumbers both lists. On failure the counts of whichever
// partition committed are still reported.
func (h *TaskHandler) Rebalance(c *gin.Context) {
	res, err := h.rebalancer.Rebalance(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		log.Printf("[error] rebalance: %v", err)
		c.JSON(http.StatusInternalServerError, dto.RebalanceErrorResponse{RebalanceResult: res, Error: "rebalance incomplete"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func queryBool(c *gin.Context, name string) (bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return false, false
	}
	return v, true
}
