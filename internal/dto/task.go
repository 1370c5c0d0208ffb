package dto

import (
	"time"

	"focus-planner/internal/model"
	"focus-planner/internal/service"
)

type CreateTaskRequest struct {
	Title string `json:"title"`
}

type SetCompletedRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// ReorderRequest sets sortOrder directly, or places the task between two
// neighbours when sortOrder is absent.
type ReorderRequest struct {
	SortOrder *int64 `json:"sortOrder"`
	BeforeID  string `json:"beforeId"`
	AfterID   string `json:"afterId"`
}

// TaskResponse is a task plus the whole seconds it has spent in the active list.
type TaskResponse struct {
	model.Task
	ActiveAgeSeconds int64 `json:"activeAgeSeconds"`
}

func NewTaskResponse(task model.Task, now time.Time) TaskResponse {
	return TaskResponse{Task: task, ActiveAgeSeconds: int64(task.Age(now) / time.Second)}
}

func NewTaskResponses(tasks []model.Task, now time.Time) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, NewTaskResponse(task, now))
	}
	return out
}

type ReorderResponse struct {
	Task    TaskResponse `json:"task"`
	Applied bool         `json:"applied"`
}

type ListTasksResponse struct {
	Items []TaskResponse `json:"items"`
}

// RebalanceErrorResponse carries the partial counts of a failed rebalance.
type RebalanceErrorResponse struct {
	service.RebalanceResult
	Error string `json:"error"`
}
