package component

import (
	"context"
	"errors"
	"testing"

	"github.com/kbukum/flowgen/observability"
)

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	status   observability.HealthStatus
	order    *[]string
}

func (m *mockComponent) Name() string { return m.name }

func (m *mockComponent) Start(context.Context) error {
	if m.order != nil {
		*m.order = append(*m.order, "start:"+m.name)
	}
	return m.startErr
}

func (m *mockComponent) Stop(context.Context) error {
	if m.order != nil {
		*m.order = append(*m.order, "stop:"+m.name)
	}
	return m.stopErr
}

func (m *mockComponent) Health(context.Context) observability.Health {
	status := m.status
	if status == "" {
		status = observability.HealthStatusUp
	}
	return observability.Health{Name: m.name, Status: status}
}

func (m *mockComponent) Describe() Description {
	return Description{Type: "mock", Details: m.name}
}

func TestRegistry_StartStopOrder(t *testing.T) {
	var order []string
	r := NewRegistry()
	for _, name := range []string{"redis", "sse", "http"} {
		if err := r.Register(&mockComponent{name: name, order: &order}); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}

	want := []string{"start:redis", "start:sse", "start:http", "stop:http", "stop:sse", "stop:redis"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&mockComponent{name: "sse"})
	if err := r.Register(&mockComponent{name: "sse"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if r.Get("sse") == nil || r.Get("missing") != nil {
		t.Fatal("unexpected Get result")
	}
}

func TestRegistry_StartFailureStopsOnlyStarted(t *testing.T) {
	var order []string
	r := NewRegistry()
	_ = r.Register(&mockComponent{name: "a", order: &order})
	_ = r.Register(&mockComponent{name: "b", order: &order, startErr: errors.New("boom")})
	_ = r.Register(&mockComponent{name: "c", order: &order})

	if err := r.StartAll(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	_ = r.StopAll(context.Background())

	want := []string{"start:a", "start:b", "stop:a"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
}

func TestRegistry_StopErrorsJoined(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&mockComponent{name: "a", stopErr: errors.New("x")})
	_ = r.Register(&mockComponent{name: "b", stopErr: errors.New("y")})
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil {
		t.Fatal("expected joined error")
	}
}

func TestRegistry_Health(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&mockComponent{name: "sse"})
	_ = r.Register(&mockComponent{name: "redis", status: observability.HealthStatusDegraded})

	sh := r.Health(context.Background(), "flowgen", "dev")
	if sh.Status != observability.HealthStatusDegraded {
		t.Fatalf("expected degraded, got %s", sh.Status)
	}
	if len(sh.Components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(sh.Components))
	}
}
