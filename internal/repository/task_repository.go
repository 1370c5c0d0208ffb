package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"focus-planner/internal/apperr"
	"focus-planner/internal/model"
	"focus-planner/internal/storage"
)

// TaskRepository handles CRUD and ordering for tasks on any storage backend.
type TaskRepository struct {
	store   storage.Store
	dialect storage.Dialect
	c       storage.TaskColumns
	cols    []string
	sb      sq.StatementBuilderType
	now     func() time.Time
}

func NewTaskRepository(store storage.Store) *TaskRepository {
	d := store.Dialect()
	c := d.Task
	return &TaskRepository{
		store:   store,
		dialect: d,
		c:       c,
		cols: []string{
			c.ID, c.OwnerID, c.Title, c.IsActive, c.IsCompleted,
			c.SortOrder, c.CreatedAt, c.CompletedAt, c.AddedToActiveAt,
		},
		sb:  d.Builder(),
		now: time.Now,
	}
}

// WithClock replaces the time source used for stamps.
func (r *TaskRepository) WithClock(now func() time.Time) *TaskRepository {
	r.now = now
	return r
}

func (r *TaskRepository) scan(row storage.Row) model.Task {
	return model.Task{
		ID:              row.String(r.c.ID),
		OwnerID:         row.String(r.c.OwnerID),
		Title:           row.String(r.c.Title),
		IsActive:        row.Bool(r.c.IsActive),
		IsCompleted:     row.Bool(r.c.IsCompleted),
		SortOrder:       row.Int64(r.c.SortOrder),
		CreatedAt:       fromMillis(row.Int64(r.c.CreatedAt)),
		CompletedAt:     nullTime(row.NullInt64(r.c.CompletedAt)),
		AddedToActiveAt: nullTime(row.NullInt64(r.c.AddedToActiveAt)),
	}
}

func (r *TaskRepository) scanAll(rows []storage.Row) []model.Task {
	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, r.scan(row))
	}
	return tasks
}

// partition selects one owner's tasks in one (isActive, isCompleted) list in display order.
func (r *TaskRepository) partition(ownerID string, isActive, isCompleted bool) sq.SelectBuilder {
	return r.sb.Select(r.cols...).
		From(storage.TaskTable).
		Where(sq.Eq{r.c.OwnerID: ownerID, r.c.IsActive: isActive, r.c.IsCompleted: isCompleted}).
		OrderBy(r.c.SortOrder+" ASC", r.c.CreatedAt+" ASC", r.c.ID+" ASC")
}

// lockOwner serializes key-assigning transactions of one owner on backends
// that run transactions concurrently.
func (r *TaskRepository) lockOwner(ctx context.Context, q storage.Querier, ownerID string) error {
	if r.dialect.LockOwner == "" {
		return nil
	}
	if _, err := q.Prepare(r.dialect.LockOwner).Run(ctx, ownerID); err != nil {
		return fmt.Errorf("lock owner %s: %w", ownerID, err)
	}
	return nil
}

// List returns one partition of the owner's tasks ordered by sort key.
func (r *TaskRepository) List(ctx context.Context, ownerID string, isActive, isCompleted bool) ([]model.Task, error) {
	rows, err := all(ctx, r.store, r.partition(ownerID, isActive, isCompleted))
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return r.scanAll(rows), nil
}

// ListOpen returns up to limit incomplete tasks from either partition, oldest first.
func (r *TaskRepository) ListOpen(ctx context.Context, ownerID string, limit int) ([]model.Task, error) {
	query := r.sb.Select(r.cols...).
		From(storage.TaskTable).
		Where(sq.Eq{r.c.OwnerID: ownerID, r.c.IsCompleted: false}).
		OrderBy(r.c.CreatedAt+" ASC", r.c.ID+" ASC").
		Limit(uint64(limit))
	rows, err := all(ctx, r.store, query)
	if err != nil {
		return nil, fmt.Errorf("list open tasks: %w", err)
	}
	return r.scanAll(rows), nil
}

func (r *TaskRepository) Get(ctx context.Context, taskID, ownerID string) (*model.Task, error) {
	return r.get(ctx, r.store, taskID, ownerID)
}

func (r *TaskRepository) get(ctx context.Context, q storage.Querier, taskID, ownerID string) (*model.Task, error) {
	row, err := get(ctx, q, r.sb.Select(r.cols...).
		From(storage.TaskTable).
		Where(sq.Eq{r.c.ID: taskID, r.c.OwnerID: ownerID}))
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	if row == nil {
		return nil, apperr.NotFound("task", taskID)
	}
	task := r.scan(row)
	return &task, nil
}

func (r *TaskRepository) trailingKey(ctx context.Context, q storage.Querier, ownerID string, isActive bool) (int64, error) {
	row, err := get(ctx, q, r.sb.Select(fmt.Sprintf("COALESCE(MAX(%s), 0) AS max_sort", r.c.SortOrder)).
		From(storage.TaskTable).
		Where(sq.Eq{r.c.OwnerID: ownerID, r.c.IsActive: isActive}))
	if err != nil {
		return 0, fmt.Errorf("max sort key: %w", err)
	}
	var max int64
	if row != nil {
		max = row.Int64("max_sort")
	}
	return max + model.SortGap, nil
}

func (r *TaskRepository) setSort(taskID, ownerID string, sortOrder int64) sq.UpdateBuilder {
	return r.sb.Update(storage.TaskTable).
		Set(r.c.SortOrder, sortOrder).
		Where(sq.Eq{r.c.ID: taskID, r.c.OwnerID: ownerID})
}

// Create inserts a backlog task after the current last one.
func (r *TaskRepository) Create(ctx context.Context, ownerID, title string) (*model.Task, error) {
	task := model.Task{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: r.now().UTC().Truncate(time.Millisecond),
	}

	err := r.store.WithTransaction(ctx, func(q storage.Querier) error {
		if err := r.lockOwner(ctx, q, ownerID); err != nil {
			return err
		}
		key, err := r.trailingKey(ctx, q, ownerID, false)
		if err != nil {
			return err
		}
		task.SortOrder = key

		_, err = run(ctx, q, r.sb.Insert(storage.TaskTable).
			Columns(r.cols...).
			Values(task.ID, task.OwnerID, task.Title, task.IsActive, task.IsCompleted,
				task.SortOrder, toMillis(task.CreatedAt), nil, nil))
		if err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// SetCompleted stamps completedAt on the false->true transition and clears it on reopen.
func (r *TaskRepository) SetCompleted(ctx context.Context, taskID, ownerID string, completed bool) (*model.Task, error) {
	var task *model.Task
	err := r.store.WithTransaction(ctx, func(q storage.Querier) error {
		var err error
		task, err = r.get(ctx, q, taskID, ownerID)
		if err != nil {
			return err
		}

		switch {
		case completed && !task.IsCompleted:
			now := r.now().UTC().Truncate(time.Millisecond)
			task.CompletedAt = &now
		case !completed:
			task.CompletedAt = nil
		}
		task.IsCompleted = completed

		_, err = run(ctx, q, r.sb.Update(storage.TaskTable).
			Set(r.c.IsCompleted, task.IsCompleted).
			Set(r.c.CompletedAt, nullMillis(task.CompletedAt)).
			Where(sq.Eq{r.c.ID: taskID, r.c.OwnerID: ownerID}))
		if err != nil {
			return fmt.Errorf("complete task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// SetActive moves a task between the backlog and active partitions. The task
// gets a trailing key in the destination partition; addedToActiveAt is stamped
// on promotion and cleared on demotion.
func (r *TaskRepository) SetActive(ctx context.Context, taskID, ownerID string, active bool) (*model.Task, error) {
	var task *model.Task
	err := r.store.WithTransaction(ctx, func(q storage.Querier) error {
		if err := r.lockOwner(ctx, q, ownerID); err != nil {
			return err
		}
		var err error
		task, err = r.get(ctx, q, taskID, ownerID)
		if err != nil {
			return err
		}
		if task.IsActive == active {
			return nil
		}

		key, err := r.trailingKey(ctx, q, ownerID, active)
		if err != nil {
			return err
		}
		task.IsActive = active
		task.SortOrder = key
		task.AddedToActiveAt = nil
		if active {
			now := r.now().UTC().Truncate(time.Millisecond)
			task.AddedToActiveAt = &now
		}

		_, err = run(ctx, q, r.sb.Update(storage.TaskTable).
			Set(r.c.IsActive, task.IsActive).
			Set(r.c.AddedToActiveAt, nullMillis(task.AddedToActiveAt)).
			Set(r.c.SortOrder, task.SortOrder).
			Where(sq.Eq{r.c.ID: taskID, r.c.OwnerID: ownerID}))
		if err != nil {
			return fmt.Errorf("move task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Reorder overwrites the sort key. A key already used by another task in the
// same partition leaves the row untouched and reports applied=false.
func (r *TaskRepository) Reorder(ctx context.Context, taskID, ownerID string, sortOrder int64) (task *model.Task, applied bool, err error) {
	err = r.store.WithTransaction(ctx, func(q storage.Querier) error {
		if err := r.lockOwner(ctx, q, ownerID); err != nil {
			return err
		}
		var err error
		task, err = r.get(ctx, q, taskID, ownerID)
		if err != nil {
			return err
		}
		if task.SortOrder == sortOrder {
			applied = true
			return nil
		}

		clash, err := get(ctx, q, r.sb.Select(r.c.ID).
			From(storage.TaskTable).
			Where(sq.Eq{r.c.OwnerID: ownerID, r.c.IsActive: task.IsActive, r.c.SortOrder: sortOrder}).
			Where(sq.NotEq{r.c.ID: taskID}).
			Limit(1))
		if err != nil {
			return fmt.Errorf("check sort key: %w", err)
		}
		if clash != nil {
			return nil
		}

		if _, err := run(ctx, q, r.setSort(taskID, ownerID, sortOrder)); err != nil {
			return fmt.Errorf("reorder task: %w", err)
		}
		task.SortOrder = sortOrder
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return task, applied, nil
}

// Delete removes the task permanently.
func (r *TaskRepository) Delete(ctx context.Context, taskID, ownerID string) error {
	res, err := run(ctx, r.store, r.sb.Delete(storage.TaskTable).
		Where(sq.Eq{r.c.ID: taskID, r.c.OwnerID: ownerID}))
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if res.AffectedCount == 0 {
		return apperr.NotFound("task", taskID)
	}
	return nil
}

// Count returns how many tasks the owner has across all partitions.
func (r *TaskRepository) Count(ctx context.Context, ownerID string) (int64, error) {
	row, err := get(ctx, r.store, r.sb.Select("COUNT(*) AS n").
		From(storage.TaskTable).
		Where(sq.Eq{r.c.OwnerID: ownerID}))
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	if row == nil {
		return 0, nil
	}
	return row.Int64("n"), nil
}

// Renumber rewrites the incomplete tasks of one partition to keys
// gap, 2*gap, 3*gap... preserving their order, all inside one transaction.
// It returns how many rows changed key.
func (r *TaskRepository) Renumber(ctx context.Context, ownerID string, partition model.Partition, gap int64) (int, error) {
	var fixed int
	err := r.store.WithTransaction(ctx, func(q storage.Querier) error {
		fixed = 0
		if err := r.lockOwner(ctx, q, ownerID); err != nil {
			return err
		}

		query := r.partition(ownerID, partition.IsActive(), false)
		if r.dialect.ForUpdate != "" {
			query = query.Suffix(r.dialect.ForUpdate)
		}
		rows, err := all(ctx, q, query)
		if err != nil {
			return fmt.Errorf("load %s partition: %w", partition, err)
		}

		for i, row := range rows {
			task := r.scan(row)
			want := int64(i+1) * gap
			if task.SortOrder == want {
				continue
			}
			if _, err := run(ctx, q, r.setSort(task.ID, ownerID, want)); err != nil {
				return fmt.Errorf("renumber task %s: %w", task.ID, err)
			}
			fixed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return fixed, nil
}
