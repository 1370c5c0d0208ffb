package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"focus-planner/internal/apperr"
	"focus-planner/internal/model"
	"focus-planner/internal/repository"
)

func newTaskService(t *testing.T) (*TaskService, *repository.TaskRepository) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	repo := repository.NewTaskRepository(newTestStore(t)).WithClock(func() time.Time {
		clock.Advance(time.Millisecond)
		return clock.Now()
	})
	return NewTaskService(repo, NewRebalanceService(repo)), repo
}

func TestCreateTask_Validation(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		title string
	}{
		{"empty", ""},
		{"whitespace", "   \t "},
		{"too long", strings.Repeat("я", maxTitleLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTask(ctx, "u1", tt.title)
			var verr *apperr.ValidationError
			if !errors.As(err, &verr) || verr.Field != "title" {
				t.Fatalf("expected title validation error, got %v", err)
			}
		})
	}

	task, err := svc.CreateTask(ctx, "u1", "  buy milk ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Title != "buy milk" || task.IsActive || task.IsCompleted {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestReorder_RejectsNonPositiveKey(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()
	task, _ := svc.CreateTask(ctx, "u1", "a")

	for _, key := range []int64{0, -5} {
		_, _, err := svc.Reorder(ctx, "u1", task.ID, key)
		var verr *apperr.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("key %d: expected validation error, got %v", key, err)
		}
	}
}

func TestReorder_CollisionIsReported(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()
	a, _ := svc.CreateTask(ctx, "u1", "a")
	b, _ := svc.CreateTask(ctx, "u1", "b")

	task, applied, err := svc.Reorder(ctx, "u1", b.ID, a.SortOrder)
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if applied {
		t.Fatal("colliding key was applied")
	}
	if task.SortOrder != b.SortOrder {
		t.Fatalf("sort key changed on collision: %d", task.SortOrder)
	}
}

func titles(tasks []model.Task) string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Title
	}
	return strings.Join(out, ",")
}

func TestMoveBetween_UsesMidpoint(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()
	a, _ := svc.CreateTask(ctx, "u1", "a")
	b, _ := svc.CreateTask(ctx, "u1", "b")
	c, _ := svc.CreateTask(ctx, "u1", "c")

	moved, err := svc.MoveBetween(ctx, "u1", c.ID, a.ID, b.ID)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.SortOrder != 1500 {
		t.Fatalf("sort key: got %d want 1500", moved.SortOrder)
	}

	moved, err = svc.MoveBetween(ctx, "u1", b.ID, "", a.ID)
	if err != nil {
		t.Fatalf("move to top: %v", err)
	}
	if moved.SortOrder != 500 {
		t.Fatalf("top key: got %d want 500", moved.SortOrder)
	}

	list, _ := svc.ListTasks(ctx, "u1", false, false)
	if got := titles(list); got != "b,a,c" {
		t.Fatalf("order: got %s", got)
	}
}

func TestMoveBetween_LoneNeighbourUsesAdjacentTask(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()
	a, _ := svc.CreateTask(ctx, "u1", "a")
	b, _ := svc.CreateTask(ctx, "u1", "b")
	c, _ := svc.CreateTask(ctx, "u1", "c")

	// Below a, which is not last: lands between a and b.
	moved, err := svc.MoveBetween(ctx, "u1", c.ID, a.ID, "")
	if err != nil {
		t.Fatalf("move below a: %v", err)
	}
	if moved.SortOrder != 1500 {
		t.Fatalf("sort key: got %d want 1500", moved.SortOrder)
	}
	list, _ := svc.ListTasks(ctx, "u1", false, false)
	if got := titles(list); got != "a,c,b" {
		t.Fatalf("order: got %s", got)
	}

	// Above b, which is not first: lands between c and b.
	moved, err = svc.MoveBetween(ctx, "u1", a.ID, "", b.ID)
	if err != nil {
		t.Fatalf("move above b: %v", err)
	}
	if moved.SortOrder != 1750 {
		t.Fatalf("sort key: got %d want 1750", moved.SortOrder)
	}
	list, _ = svc.ListTasks(ctx, "u1", false, false)
	if got := titles(list); got != "c,a,b" {
		t.Fatalf("order: got %s", got)
	}

	// Below the last task: trails it by one gap.
	moved, err = svc.MoveBetween(ctx, "u1", c.ID, b.ID, "")
	if err != nil {
		t.Fatalf("move below b: %v", err)
	}
	if moved.SortOrder != b.SortOrder+model.SortGap {
		t.Fatalf("sort key: got %d want %d", moved.SortOrder, b.SortOrder+model.SortGap)
	}
}

func TestMoveBetween_RejectsBadNeighbours(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()
	a, _ := svc.CreateTask(ctx, "u1", "a")
	b, _ := svc.CreateTask(ctx, "u1", "b")
	c, _ := svc.CreateTask(ctx, "u1", "c")
	d, _ := svc.CreateTask(ctx, "u1", "d")

	var verr *apperr.ValidationError
	if _, err := svc.MoveBetween(ctx, "u1", d.ID, a.ID, c.ID); !errors.As(err, &verr) {
		t.Fatalf("non-adjacent neighbours: expected validation error, got %v", err)
	}
	if _, err := svc.MoveBetween(ctx, "u1", d.ID, b.ID, a.ID); !errors.As(err, &verr) {
		t.Fatalf("reversed neighbours: expected validation error, got %v", err)
	}

	var nf *apperr.NotFoundError
	if _, err := svc.MoveBetween(ctx, "u1", d.ID, "missing", ""); !errors.As(err, &nf) {
		t.Fatalf("unknown neighbour: expected not found, got %v", err)
	}

	list, _ := svc.ListTasks(ctx, "u1", false, false)
	if got := titles(list); got != "a,b,c,d" {
		t.Fatalf("rejected moves changed order: %s", got)
	}
}

func TestMoveBetween_RebalancesWhenGapIsExhausted(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()
	a, _ := svc.CreateTask(ctx, "u1", "a")
	b, _ := svc.CreateTask(ctx, "u1", "b")
	c, _ := svc.CreateTask(ctx, "u1", "c")

	if _, applied, err := svc.Reorder(ctx, "u1", b.ID, a.SortOrder+1); err != nil || !applied {
		t.Fatalf("squeeze: applied=%v err=%v", applied, err)
	}

	moved, err := svc.MoveBetween(ctx, "u1", c.ID, a.ID, b.ID)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.SortOrder != 1500 {
		t.Fatalf("sort key after rebalance: got %d want 1500", moved.SortOrder)
	}

	list, _ := svc.ListTasks(ctx, "u1", false, false)
	if got := titles(list); got != "a,c,b" {
		t.Fatalf("order: got %s", got)
	}
}

func TestMoveBetween_RejectsNeighbourFromAnotherList(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()
	a, _ := svc.CreateTask(ctx, "u1", "a")
	b, _ := svc.CreateTask(ctx, "u1", "b")
	if _, err := svc.SetActive(ctx, "u1", b.ID, true); err != nil {
		t.Fatalf("activate: %v", err)
	}

	_, err := svc.MoveBetween(ctx, "u1", a.ID, b.ID, "")
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.MoveBetween(ctx, "u1", a.ID, "", "")
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error without neighbours, got %v", err)
	}
}

func TestTaskService_ForeignTaskIsNotFound(t *testing.T) {
	svc, _ := newTaskService(t)
	ctx := context.Background()
	task, _ := svc.CreateTask(ctx, "u1", "mine")

	var nf *apperr.NotFoundError
	if _, err := svc.GetTask(ctx, "u2", task.ID); !errors.As(err, &nf) {
		t.Fatalf("get: expected not found, got %v", err)
	}
	if _, err := svc.SetCompleted(ctx, "u2", task.ID, true); !errors.As(err, &nf) {
		t.Fatalf("complete: expected not found, got %v", err)
	}
	if err := svc.DeleteTask(ctx, "u2", task.ID); !errors.As(err, &nf) {
		t.Fatalf("delete: expected not found, got %v", err)
	}
	if _, err := svc.GetTask(ctx, "u1", task.ID); err != nil {
		t.Fatalf("owner lost task: %v", err)
	}
}
