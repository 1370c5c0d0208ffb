package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"focus-planner/internal/apperr"
	"focus-planner/internal/config"
	"focus-planner/internal/model"
	"focus-planner/internal/storage"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

// backends returns the embedded store always and the networked one when
// TEST_POSTGRES_DSN is set, so every test below runs against both.
func backends(t *testing.T) map[string]storage.Store {
	t.Helper()
	ctx := context.Background()
	out := map[string]storage.Store{}

	lite, err := OpenStore(ctx, config.StorageConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = lite.Close() })
	out["sqlite"] = lite

	if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
		pg, err := OpenStore(ctx, config.StorageConfig{Driver: "postgres", PostgresDSN: dsn})
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		if err := pg.Exec(ctx, `DELETE FROM task; DELETE FROM notification_setting`); err != nil {
			t.Fatalf("reset postgres: %v", err)
		}
		t.Cleanup(func() { _ = pg.Close() })
		out["postgres"] = pg
	}
	return out
}

func forEachBackend(t *testing.T, fn func(t *testing.T, store storage.Store)) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) { fn(t, store) })
	}
}

func mustCreate(t *testing.T, repo *TaskRepository, owner, title string) *model.Task {
	t.Helper()
	task, err := repo.Create(context.Background(), owner, title)
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return task
}

func TestTaskRepository_CreateAssignsTrailingBacklogKeys(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		clock := newClock()
		repo := NewTaskRepository(store).WithClock(clock.Now)

		a := mustCreate(t, repo, "u1", "first")
		b := mustCreate(t, repo, "u1", "second")
		other := mustCreate(t, repo, "u2", "someone else")

		if a.IsActive || a.IsCompleted {
			t.Fatalf("new task must be in backlog: %+v", a)
		}
		if a.SortOrder != 1000 || b.SortOrder != 2000 {
			t.Fatalf("keys: got %d, %d want 1000, 2000", a.SortOrder, b.SortOrder)
		}
		if other.SortOrder != 1000 {
			t.Fatalf("owners must not share sequences: got %d", other.SortOrder)
		}
		if !a.CreatedAt.Equal(clock.Now()) {
			t.Fatalf("createdAt: got %v want %v", a.CreatedAt, clock.Now())
		}

		list, err := repo.List(context.Background(), "u1", false, false)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
			t.Fatalf("unexpected order: %+v", list)
		}
	})
}

func TestTaskRepository_SetCompletedToggles(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()
		clock := newClock()
		repo := NewTaskRepository(store).WithClock(clock.Now)
		task := mustCreate(t, repo, "u1", "write report")

		clock.Advance(time.Hour)
		done, err := repo.SetCompleted(ctx, task.ID, "u1", true)
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		if !done.IsCompleted || done.CompletedAt == nil || !done.CompletedAt.Equal(clock.Now()) {
			t.Fatalf("completedAt not stamped: %+v", done)
		}

		stored, err := repo.Get(ctx, task.ID, "u1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if stored.CompletedAt == nil || !stored.CompletedAt.Equal(clock.Now()) {
			t.Fatalf("stored completedAt: %v", stored.CompletedAt)
		}

		reopened, err := repo.SetCompleted(ctx, task.ID, "u1", false)
		if err != nil {
			t.Fatalf("reopen: %v", err)
		}
		if reopened.IsCompleted || reopened.CompletedAt != nil {
			t.Fatalf("reopen must clear completedAt: %+v", reopened)
		}

		stored, err = repo.Get(ctx, task.ID, "u1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if stored.IsCompleted != task.IsCompleted || stored.CompletedAt != nil {
			t.Fatalf("double toggle should restore original state: %+v", stored)
		}
	})
}

func TestTaskRepository_SetCompletedForeignOwner(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		repo := NewTaskRepository(store)
		task := mustCreate(t, repo, "u1", "mine")

		_, err := repo.SetCompleted(context.Background(), task.ID, "intruder", true)
		var nf *apperr.NotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})
}

func TestTaskRepository_SetActiveMovesBetweenPartitions(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()
		clock := newClock()
		repo := NewTaskRepository(store).WithClock(clock.Now)
		a := mustCreate(t, repo, "u1", "a")
		b := mustCreate(t, repo, "u1", "b")

		clock.Advance(time.Minute)
		activeA, err := repo.SetActive(ctx, a.ID, "u1", true)
		if err != nil {
			t.Fatalf("activate a: %v", err)
		}
		if !activeA.IsActive || activeA.AddedToActiveAt == nil || !activeA.AddedToActiveAt.Equal(clock.Now()) {
			t.Fatalf("activation not stamped: %+v", activeA)
		}
		if activeA.SortOrder != 1000 {
			t.Fatalf("first active key: got %d want 1000", activeA.SortOrder)
		}

		activeB, err := repo.SetActive(ctx, b.ID, "u1", true)
		if err != nil {
			t.Fatalf("activate b: %v", err)
		}
		if activeB.SortOrder != 2000 {
			t.Fatalf("second active key: got %d want 2000", activeB.SortOrder)
		}

		// Re-activating an active task keeps its stamp.
		clock.Advance(time.Hour)
		again, err := repo.SetActive(ctx, a.ID, "u1", true)
		if err != nil {
			t.Fatalf("activate again: %v", err)
		}
		if !again.AddedToActiveAt.Equal(activeA.AddedToActiveAt.UTC()) {
			t.Fatalf("stamp changed on no-op activation: %v vs %v", again.AddedToActiveAt, activeA.AddedToActiveAt)
		}

		back, err := repo.SetActive(ctx, a.ID, "u1", false)
		if err != nil {
			t.Fatalf("deactivate: %v", err)
		}
		if back.IsActive || back.AddedToActiveAt != nil {
			t.Fatalf("deactivation must clear the stamp: %+v", back)
		}

		active, err := repo.List(ctx, "u1", true, false)
		if err != nil {
			t.Fatalf("list active: %v", err)
		}
		if len(active) != 1 || active[0].ID != b.ID {
			t.Fatalf("active partition: %+v", active)
		}
	})
}

func TestTaskRepository_ReorderCollisionIsNoop(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()
		repo := NewTaskRepository(store)
		a := mustCreate(t, repo, "u1", "a")
		b := mustCreate(t, repo, "u1", "b")

		moved, applied, err := repo.Reorder(ctx, b.ID, "u1", 500)
		if err != nil {
			t.Fatalf("reorder: %v", err)
		}
		if !applied || moved.SortOrder != 500 {
			t.Fatalf("reorder not applied: %+v applied=%v", moved, applied)
		}

		same, applied, err := repo.Reorder(ctx, a.ID, "u1", 500)
		if err != nil {
			t.Fatalf("colliding reorder: %v", err)
		}
		if applied || same.SortOrder != 1000 {
			t.Fatalf("collision must be a no-op: %+v applied=%v", same, applied)
		}

		list, err := repo.List(ctx, "u1", false, false)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if list[0].ID != b.ID || list[1].ID != a.ID {
			t.Fatalf("unexpected order: %+v", list)
		}
	})
}

func TestTaskRepository_DeleteMissingLeavesTableUnchanged(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()
		repo := NewTaskRepository(store)
		task := mustCreate(t, repo, "u1", "keep me")
		mustCreate(t, repo, "u1", "and me")

		for _, tc := range []struct{ id, owner string }{
			{"does-not-exist", "u1"},
			{task.ID, "someone-else"},
		} {
			err := repo.Delete(ctx, tc.id, tc.owner)
			var nf *apperr.NotFoundError
			if !errors.As(err, &nf) {
				t.Fatalf("delete %s/%s: expected NotFoundError, got %v", tc.id, tc.owner, err)
			}
		}

		n, err := repo.Count(ctx, "u1")
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 2 {
			t.Fatalf("row count changed: got %d want 2", n)
		}

		if err := repo.Delete(ctx, task.ID, "u1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := repo.Get(ctx, task.ID, "u1"); err == nil {
			t.Fatalf("task still present after delete")
		}
	})
}

func TestTaskRepository_ListOpenOldestFirst(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()
		clock := newClock()
		repo := NewTaskRepository(store).WithClock(clock.Now)

		var ids []string
		for _, title := range []string{"t1", "t2", "t3", "t4"} {
			ids = append(ids, mustCreate(t, repo, "u1", title).ID)
			clock.Advance(time.Minute)
		}
		if _, err := repo.SetActive(ctx, ids[2], "u1", true); err != nil {
			t.Fatalf("activate: %v", err)
		}
		if _, err := repo.SetCompleted(ctx, ids[0], "u1", true); err != nil {
			t.Fatalf("complete: %v", err)
		}

		open, err := repo.ListOpen(ctx, "u1", 2)
		if err != nil {
			t.Fatalf("list open: %v", err)
		}
		if len(open) != 2 || open[0].ID != ids[1] || open[1].ID != ids[2] {
			t.Fatalf("unexpected open tasks: %+v", open)
		}
	})
}

func TestTaskRepository_RenumberPreservesOrder(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()
		repo := NewTaskRepository(store)
		a := mustCreate(t, repo, "u1", "a")
		b := mustCreate(t, repo, "u1", "b")
		c := mustCreate(t, repo, "u1", "c")

		if _, _, err := repo.Reorder(ctx, c.ID, "u1", 1001); err != nil {
			t.Fatalf("reorder: %v", err)
		}

		fixed, err := repo.Renumber(ctx, "u1", model.PartitionBacklog, model.SortGap)
		if err != nil {
			t.Fatalf("renumber: %v", err)
		}
		if fixed != 2 {
			t.Fatalf("fixed: got %d want 2", fixed)
		}

		list, err := repo.List(ctx, "u1", false, false)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		wantIDs := []string{a.ID, c.ID, b.ID}
		for i, task := range list {
			if task.ID != wantIDs[i] || task.SortOrder != int64(i+1)*1000 {
				t.Fatalf("position %d: got %s/%d want %s/%d", i, task.ID, task.SortOrder, wantIDs[i], (i+1)*1000)
			}
		}
	})
}

func TestTaskRepository_ConcurrentCreateAndRenumberKeepKeysDistinct(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		ctx := context.Background()
		repo := NewTaskRepository(store)
		for i := 0; i < 5; i++ {
			mustCreate(t, repo, "u1", "seed")
		}

		var g errgroup.Group
		for i := 0; i < 10; i++ {
			g.Go(func() error {
				_, err := repo.Create(ctx, "u1", "racer")
				return err
			})
			g.Go(func() error {
				_, err := repo.Renumber(ctx, "u1", model.PartitionBacklog, model.SortGap)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("concurrent writes: %v", err)
		}

		list, err := repo.List(ctx, "u1", false, false)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 15 {
			t.Fatalf("got %d tasks want 15", len(list))
		}
		seen := map[int64]string{}
		for _, task := range list {
			if other, ok := seen[task.SortOrder]; ok {
				t.Fatalf("key %d shared by %s and %s", task.SortOrder, other, task.ID)
			}
			seen[task.SortOrder] = task.ID
		}
	})
}
