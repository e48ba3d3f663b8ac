package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	apperrors "github.com/kbukum/flowgen/errors"
	"github.com/kbukum/flowgen/logger"
	"github.com/kbukum/flowgen/observability"
)

type record struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	client, err := New(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

func TestTypedStore_SaveLoadList(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[record](client, "flowgen:tasks", 0)
	ctx := context.Background()

	for i, id := range []string{"b", "a", "c"} {
		r := record{ID: id, Status: "running"}
		// scores put "a" first even though it is saved second
		score := map[string]float64{"a": 1, "b": 2, "c": 3}[id]
		if err := store.Save(ctx, id, &r, score); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	got, err := store.Load(ctx, "a")
	if err != nil || got == nil || got.ID != "a" {
		t.Fatalf("Load: %+v, %v", got, err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 || list[0].ID != "a" || list[1].ID != "b" || list[2].ID != "c" {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestTypedStore_LoadMissing(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[record](client, "p", 0)
	got, err := store.Load(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got %+v, %v", got, err)
	}
}

func TestTypedStore_UpdateKeepsSingleIndexEntry(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[record](client, "p", 0)
	ctx := context.Background()

	_ = store.Save(ctx, "a", &record{ID: "a", Status: "running"}, 1)
	_ = store.Save(ctx, "a", &record{ID: "a", Status: "completed"}, 1)

	list, _ := store.List(ctx)
	if len(list) != 1 || list[0].Status != "completed" {
		t.Fatalf("expected one updated record, got %+v", list)
	}
}

func TestTypedStore_DeleteAndClear(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[record](client, "p", 0)
	ctx := context.Background()

	_ = store.Save(ctx, "a", &record{ID: "a"}, 1)
	_ = store.Save(ctx, "b", &record{ID: "b"}, 2)

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if mini.Exists("p:a") {
		t.Fatal("expected value removed")
	}
	list, _ := store.List(ctx)
	if len(list) != 1 || list[0].ID != "b" {
		t.Fatalf("unexpected list after delete: %+v", list)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if mini.Exists("p:b") || mini.Exists("p:index") {
		t.Fatal("expected all keys removed")
	}
}

func TestTypedStore_ListPrunesExpired(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[record](client, "p", time.Minute)
	ctx := context.Background()

	_ = store.Save(ctx, "a", &record{ID: "a"}, 1)
	mini.FastForward(2 * time.Minute)

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected expired record to be skipped, got %+v", list)
	}
	members, _ := mini.ZMembers("p:index")
	if len(members) != 0 {
		t.Fatalf("expected index pruned, got %v", members)
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	mini := miniredis.RunT(t)
	c := NewComponent(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())

	if h := c.Health(context.Background()); h.Status != observability.HealthStatusDegraded {
		t.Fatalf("expected degraded before start, got %s", h.Status)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := c.Health(context.Background()); h.Status != observability.HealthStatusUp {
		t.Fatalf("expected up, got %s (%s)", h.Status, h.Message)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestComponent_StartUnreachable(t *testing.T) {
	mini := miniredis.RunT(t)
	addr := mini.Addr()
	mini.Close()

	c := NewComponent(Config{Enabled: true, Addr: addr}, logger.Nop())
	err := c.Start(context.Background())
	if !apperrors.IsCode(err, apperrors.ErrCodeConnectionFailed) {
		t.Fatalf("expected connection failure, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Enabled: true, TTL: -time.Second}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected negative ttl error")
	}
	disabled := Config{}
	if err := disabled.Validate(); err != nil {
		t.Fatalf("disabled config should validate: %v", err)
	}
}
