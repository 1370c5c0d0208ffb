package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"focus-planner/internal/apperr"
	"focus-planner/internal/model"
	"focus-planner/internal/repository"
)

const maxTitleLength = 500

// TaskService wraps task lifecycle and ordering rules.
type TaskService struct {
	taskRepo   *repository.TaskRepository
	rebalancer *RebalanceService
}

func NewTaskService(taskRepo *repository.TaskRepository, rebalancer *RebalanceService) *TaskService {
	return &TaskService{taskRepo: taskRepo, rebalancer: rebalancer}
}

func (s *TaskService) CreateTask(ctx context.Context, ownerID, title string) (*model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Invalid("title", "title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, apperr.Invalid("title", fmt.Sprintf("title is longer than %d characters", maxTitleLength))
	}
	return s.taskRepo.Create(ctx, ownerID, title)
}

func (s *TaskService) ListTasks(ctx context.Context, ownerID string, active, completed bool) ([]model.Task, error) {
	return s.taskRepo.List(ctx, ownerID, active, completed)
}

func (s *TaskService) GetTask(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	return s.taskRepo.Get(ctx, taskID, ownerID)
}

func (s *TaskService) SetCompleted(ctx context.Context, ownerID, taskID string, completed bool) (*model.Task, error) {
	return s.taskRepo.SetCompleted(ctx, taskID, ownerID, completed)
}

func (s *TaskService) SetActive(ctx context.Context, ownerID, taskID string, active bool) (*model.Task, error) {
	return s.taskRepo.SetActive(ctx, taskID, ownerID, active)
}

// Reorder writes sortOrder directly. applied is false when the key is taken
// by another task in the same partition; the list is left as it was.
func (s *TaskService) Reorder(ctx context.Context, ownerID, taskID string, sortOrder int64) (task *model.Task, applied bool, err error) {
	if sortOrder <= 0 {
		return nil, false, apperr.Invalid("sortOrder", "sort order must be positive")
	}
	task, applied, err = s.taskRepo.Reorder(ctx, taskID, ownerID, sortOrder)
	if err == nil && !applied {
		log.Printf("[warn] sort key %d already used in %s partition of %s", sortOrder, model.PartitionOf(task.IsActive), ownerID)
	}
	return task, applied, err
}

// MoveBetween places the task between beforeID (shown above it) and afterID
// (shown below it); either may be empty for the ends of the list. When the
// neighbours leave no integer gap the partition is rebalanced and the move
// retried once.
func (s *TaskService) MoveBetween(ctx context.Context, ownerID, taskID, beforeID, afterID string) (*model.Task, error) {
	if beforeID == "" && afterID == "" {
		return nil, apperr.Invalid("position", "beforeId or afterId is required")
	}
	if beforeID == taskID || afterID == taskID {
		return nil, apperr.Invalid("position", "a task cannot be its own neighbour")
	}

	for attempt := 0; ; attempt++ {
		key, err := s.midpoint(ctx, ownerID, taskID, beforeID, afterID)
		if err != nil && !errors.Is(err, errNoGap) {
			return nil, err
		}

		if err == nil {
			task, applied, err := s.taskRepo.Reorder(ctx, taskID, ownerID, key)
			if err != nil || applied {
				return task, err
			}
		}

		if attempt > 0 {
			return nil, fmt.Errorf("move task %s: no free sort key after rebalance", taskID)
		}
		log.Printf("[info] sort keys exhausted for %s, rebalancing", ownerID)
		if _, err := s.rebalancer.Rebalance(ctx, ownerID); err != nil {
			return nil, err
		}
	}
}

var errNoGap = errors.New("no gap between neighbours")

// midpoint picks a key between the task's new neighbours. A lone beforeID
// places the task directly below that neighbour and a lone afterID directly
// above it, so the other side is whatever task currently sits there.
func (s *TaskService) midpoint(ctx context.Context, ownerID, taskID, beforeID, afterID string) (int64, error) {
	task, err := s.taskRepo.Get(ctx, taskID, ownerID)
	if err != nil {
		return 0, err
	}
	list, err := s.taskRepo.List(ctx, ownerID, task.IsActive, false)
	if err != nil {
		return 0, err
	}
	others := make([]model.Task, 0, len(list))
	for _, t := range list {
		if t.ID != taskID {
			others = append(others, t)
		}
	}

	position := func(id string) (int, error) {
		if id == "" {
			return -1, nil
		}
		for i, t := range others {
			if t.ID == id {
				return i, nil
			}
		}
		if _, err := s.taskRepo.Get(ctx, id, ownerID); err != nil {
			return 0, err
		}
		return 0, apperr.Invalid("position", fmt.Sprintf("task %s is not in the same list", id))
	}

	bi, err := position(beforeID)
	if err != nil {
		return 0, err
	}
	ai, err := position(afterID)
	if err != nil {
		return 0, err
	}

	var lo, hi int64
	switch {
	case bi >= 0 && ai >= 0:
		if ai != bi+1 {
			return 0, apperr.Invalid("position", "beforeId and afterId must be adjacent, in that order")
		}
		lo, hi = others[bi].SortOrder, others[ai].SortOrder
	case bi >= 0:
		lo = others[bi].SortOrder
		if bi+1 < len(others) {
			hi = others[bi+1].SortOrder
		} else {
			hi = lo + 2*model.SortGap
		}
	default:
		hi = others[ai].SortOrder
		if ai > 0 {
			lo = others[ai-1].SortOrder
		}
	}

	if hi-lo < 2 {
		return 0, errNoGap
	}
	return lo + (hi-lo)/2, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	return s.taskRepo.Delete(ctx, taskID, ownerID)
}
