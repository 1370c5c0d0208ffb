package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/singleflight"

	"focus-planner/internal/model"
	"focus-planner/internal/repository"
)

// RebalanceResult counts the tasks whose sort key changed per partition.
type RebalanceResult struct {
	ActiveTasksFixed int `json:"activeTasksFixed"`
	MasterTasksFixed int `json:"masterTasksFixed"`
}

// RebalanceService renumbers a user's active and backlog lists to
// 1000, 2000, 3000... Each partition is its own transaction.
type RebalanceService struct {
	taskRepo *repository.TaskRepository
	sf       singleflight.Group
}

func NewRebalanceService(taskRepo *repository.TaskRepository) *RebalanceService {
	return &RebalanceService{taskRepo: taskRepo}
}

// Rebalance renumbers both partitions of ownerID. A failure in one partition
// does not undo the other; the counts of whatever committed are returned
// together with the aggregate error. Concurrent calls for the same owner
// share a single run.
func (s *RebalanceService) Rebalance(ctx context.Context, ownerID string) (RebalanceResult, error) {
	type outcome struct {
		res RebalanceResult
		err error
	}
	v, _, _ := s.sf.Do(ownerID, func() (interface{}, error) {
		res, err := s.rebalance(ctx, ownerID)
		return outcome{res: res, err: err}, nil
	})
	out := v.(outcome)
	return out.res, out.err
}

func (s *RebalanceService) rebalance(ctx context.Context, ownerID string) (RebalanceResult, error) {
	var (
		res  RebalanceResult
		errs []error
	)

	active, err := s.taskRepo.Renumber(ctx, ownerID, model.PartitionActive, model.SortGap)
	if err != nil {
		errs = append(errs, fmt.Errorf("%s partition: %w", model.PartitionActive, err))
	} else {
		res.ActiveTasksFixed = active
	}

	master, err := s.taskRepo.Renumber(ctx, ownerID, model.PartitionBacklog, model.SortGap)
	if err != nil {
		errs = append(errs, fmt.Errorf("%s partition: %w", model.PartitionBacklog, err))
	} else {
		res.MasterTasksFixed = master
	}

	if len(errs) > 0 {
		return res, fmt.Errorf("rebalance %s: %w", ownerID, errors.Join(errs...))
	}

	log.Printf("[info] rebalanced %s: active=%d master=%d", ownerID, res.ActiveTasksFixed, res.MasterTasksFixed)
	return res, nil
}
