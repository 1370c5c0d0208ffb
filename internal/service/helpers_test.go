package service

import (
	"context"
	"testing"
	"time"

	"focus-planner/internal/config"
	"focus-planner/internal/repository"
	"focus-planner/internal/storage"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := repository.OpenStore(context.Background(), config.StorageConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
