package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/flowgen/backend"
	apperrors "github.com/kbukum/flowgen/errors"
	"github.com/kbukum/flowgen/graph"
	"github.com/kbukum/flowgen/guard"
	"github.com/kbukum/flowgen/ledger"
	"github.com/kbukum/flowgen/logger"
	"github.com/kbukum/flowgen/provider"
	"github.com/kbukum/flowgen/runner"
)

// fakeClock is advanced only by the fake sleeper.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sleepRecorder struct {
	mu     sync.Mutex
	clock  *fakeClock
	delays []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	r.clock.Advance(d)
	return ctx.Err()
}

func (r *sleepRecorder) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

type behavior struct {
	status runner.Status
	err    error
	block  chan struct{}
	panics bool
}

type fakeExecutor struct {
	mu        sync.Mutex
	calls     []string
	behaviors map[string]behavior
}

func (f *fakeExecutor) Expected(graph.Node) int { return 1 }

func (f *fakeExecutor) Run(_ context.Context, nodeID string) runner.Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, nodeID)
	b := f.behaviors[nodeID]
	f.mu.Unlock()

	if b.block != nil {
		<-b.block
	}
	if b.panics {
		panic("boom")
	}
	out := runner.Outcome{NodeID: nodeID, NodeType: graph.TypeImageGenerator, Status: runner.StatusSuccess}
	if b.status != "" {
		out.Status = b.status
		out.Err = b.err
		return out
	}
	out.Artifacts = []graph.Artifact{{Kind: graph.ArtifactImage, Value: "https://cdn/" + nodeID + ".png"}}
	return out
}

func (f *fakeExecutor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type harness struct {
	sched  *Scheduler
	exec   *fakeExecutor
	guard  *guard.Guard
	ledger *ledger.Ledger
	sleep  *sleepRecorder
	clock  *fakeClock
}

func newHarness(t *testing.T, snap graph.Snapshot, cfg Config) *harness {
	t.Helper()
	store := graph.NewStore()
	if err := store.Load(snap); err != nil {
		t.Fatalf("Load: %v", err)
	}
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	h := &harness{
		exec:   &fakeExecutor{behaviors: map[string]behavior{}},
		guard:  guard.New(guard.WithClock(clock.Now)),
		ledger: ledger.New(ledger.WithClock(clock.Now)),
		sleep:  &sleepRecorder{clock: clock},
		clock:  clock,
	}
	h.sched = New(cfg, store, h.exec, h.guard, h.ledger,
		WithLogger(logger.Nop()),
		WithSleeper(h.sleep.Sleep),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.sched.Stop(ctx); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	return h
}

func imageNodes(ids ...string) []graph.Node {
	nodes := make([]graph.Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, graph.Node{ID: id, Type: graph.TypeImageGenerator, Name: "Image " + id})
	}
	return nodes
}

func TestRunBatch_RepeatOrderAndDelays(t *testing.T) {
	h := newHarness(t, graph.Snapshot{Nodes: imageNodes("A", "B")}, Config{})

	res, err := h.sched.RunBatch(context.Background(), []string{"A", "B"}, 2)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	want := []string{"A", "B", "A", "B"}
	calls := h.exec.Calls()
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
		if res.Attempts[i].NodeID != want[i] || res.Attempts[i].Status != AttemptSucceeded {
			t.Fatalf("attempt %d = %+v", i, res.Attempts[i])
		}
	}
	if res.Attempts[2].Pass != 2 {
		t.Fatalf("third attempt should be pass 2, got %d", res.Attempts[2].Pass)
	}

	delays := h.sleep.Delays()
	wantDelays := []time.Duration{300 * time.Millisecond, 500 * time.Millisecond, 300 * time.Millisecond}
	if len(delays) != len(wantDelays) {
		t.Fatalf("delays = %v, want %v", delays, wantDelays)
	}
	for i := range wantDelays {
		if delays[i] != wantDelays[i] {
			t.Fatalf("delays = %v, want %v", delays, wantDelays)
		}
	}
	if len(h.ledger.List()) != 4 {
		t.Fatalf("expected 4 ledger records, got %d", len(h.ledger.List()))
	}
	if h.guard.Len() != 0 {
		t.Fatalf("guard leaked %d entries", h.guard.Len())
	}
}

func TestRunBatch_DependencyOrder(t *testing.T) {
	snap := graph.Snapshot{
		Nodes: append(imageNodes("B", "C"), graph.Node{ID: "A", Type: graph.TypePromptInput}),
		Edges: []graph.Edge{
			{Source: "A", SourceHandle: graph.HandleText, Target: "B", TargetHandle: graph.HandlePrompt},
			{Source: "B", SourceHandle: graph.HandleImage, Target: "C", TargetHandle: graph.HandleReduxImage},
		},
	}
	h := newHarness(t, snap, Config{})

	res, err := h.sched.RunBatch(context.Background(), []string{"C", "A", "B"}, 1)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if !res.Resolved {
		t.Fatal("expected a resolved order")
	}
	want := []string{"A", "B", "C"}
	for i, id := range h.exec.Calls() {
		if id != want[i] {
			t.Fatalf("calls = %v, want %v", h.exec.Calls(), want)
		}
	}
	if len(res.Levels) != 3 || res.Levels[2][0] != "C" {
		t.Fatalf("levels = %v", res.Levels)
	}
}

func TestRunBatch_FailuresDoNotAbort(t *testing.T) {
	h := newHarness(t, graph.Snapshot{Nodes: imageNodes("A", "B", "C")}, Config{})
	h.exec.behaviors["A"] = behavior{status: runner.StatusValidationFailed, err: apperrors.ValidationFailed("A", "prompt", "not connected")}
	h.exec.behaviors["B"] = behavior{status: runner.StatusExternalFailed, err: apperrors.ExternalCall("images", errors.New("502"))}
	h.exec.behaviors["C"] = behavior{panics: true}

	res, err := h.sched.RunBatch(context.Background(), []string{"A", "B", "C"}, 1)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	want := []AttemptStatus{AttemptValidationFailed, AttemptExternalFailed, AttemptExternalFailed}
	for i, st := range want {
		if res.Attempts[i].Status != st {
			t.Fatalf("attempt %d status = %s, want %s", i, res.Attempts[i].Status, st)
		}
		if res.Attempts[i].Err == nil {
			t.Fatalf("attempt %d has no error", i)
		}
	}
	for _, rec := range h.ledger.List() {
		if rec.Status != ledger.StatusFailed {
			t.Fatalf("record %s status = %s", rec.NodeID, rec.Status)
		}
	}
	if h.guard.Len() != 0 {
		t.Fatalf("guard leaked %d entries", h.guard.Len())
	}
}

func TestRunBatch_Validation(t *testing.T) {
	h := newHarness(t, graph.Snapshot{Nodes: imageNodes("A")}, Config{})

	if _, err := h.sched.RunBatch(context.Background(), nil, 1); !apperrors.IsCode(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("empty ids: got %v", err)
	}
	if _, err := h.sched.RunBatch(context.Background(), []string{"A"}, 0); !apperrors.IsCode(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("zero repeat: got %v", err)
	}
	if len(h.exec.Calls()) != 0 {
		t.Fatal("invalid batches must not run nodes")
	}
}

func TestRunBatch_UnknownNodeIsRecorded(t *testing.T) {
	h := newHarness(t, graph.Snapshot{Nodes: imageNodes("A")}, Config{})

	res, err := h.sched.RunBatch(context.Background(), []string{"ghost", "A"}, 1)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if res.Attempts[0].Status != AttemptValidationFailed || !apperrors.IsCode(res.Attempts[0].Err, apperrors.ErrCodeNotFound) {
		t.Fatalf("ghost attempt = %+v", res.Attempts[0])
	}
	if res.Attempts[1].Status != AttemptSucceeded {
		t.Fatalf("A attempt = %+v", res.Attempts[1])
	}
}

func TestRunBatch_Timeout(t *testing.T) {
	h := newHarness(t, graph.Snapshot{Nodes: imageNodes("A", "B")}, Config{RunTimeout: 20 * time.Millisecond})
	release := make(chan struct{})
	h.exec.behaviors["A"] = behavior{block: release}

	res, err := h.sched.RunBatch(context.Background(), []string{"A", "B"}, 1)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if res.Attempts[0].Status != AttemptTimedOut || !apperrors.IsCode(res.Attempts[0].Err, apperrors.ErrCodeTimeout) {
		t.Fatalf("A attempt = %+v", res.Attempts[0])
	}
	if res.Attempts[1].Status != AttemptSucceeded {
		t.Fatalf("B attempt = %+v", res.Attempts[1])
	}
	// the abandoned run still holds its slot until it finishes
	if !h.guard.InProgress("A") {
		t.Fatal("timed-out run should still be in progress")
	}
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.sched.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if h.guard.InProgress("A") {
		t.Fatal("guard not released after the late run finished")
	}
	if running := h.ledger.Running(); len(running) != 0 {
		t.Fatalf("ledger still running: %+v", running)
	}
}

func TestStop_RefusesNewWork(t *testing.T) {
	h := newHarness(t, graph.Snapshot{Nodes: imageNodes("A")}, Config{})
	if err := h.sched.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if _, err := h.sched.RunSingleNode(context.Background(), "A"); !apperrors.IsCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Fatalf("RunSingleNode after Stop: %v", err)
	}
	if h.guard.Len() != 0 || len(h.ledger.List()) != 0 {
		t.Fatalf("refused run leaked state: guard=%d records=%d", h.guard.Len(), len(h.ledger.List()))
	}
	if _, err := h.sched.Submit([]string{"A"}, 1); !apperrors.IsCode(err, apperrors.ErrCodeServiceUnavailable) {
		t.Fatalf("Submit after Stop: %v", err)
	}

	res, err := h.sched.RunBatch(context.Background(), []string{"A"}, 1)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(res.Attempts) != 1 || res.Attempts[0].Status != AttemptAbandoned {
		t.Fatalf("attempts = %+v", res.Attempts)
	}
	if len(h.exec.Calls()) != 0 {
		t.Fatalf("executor called after Stop: %v", h.exec.Calls())
	}
}

func TestRunBatch_CancelStopsScheduling(t *testing.T) {
	h := newHarness(t, graph.Snapshot{Nodes: imageNodes("A", "B")}, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	h.sched.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	res, err := h.sched.RunBatch(ctx, []string{"A", "B"}, 2)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !res.Cancelled || len(res.Attempts) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if calls := h.exec.Calls(); len(calls) != 1 || calls[0] != "A" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestRunSingleNode_BusyAndThrottled(t *testing.T) {
	h := newHarness(t, graph.Snapshot{Nodes: imageNodes("A")}, Config{})
	release := make(chan struct{})
	h.exec.behaviors["A"] = behavior{block: release}

	run, err := h.sched.RunSingleNode(context.Background(), "A")
	if err != nil {
		t.Fatalf("RunSingleNode: %v", err)
	}

	_, err = h.sched.RunSingleNode(context.Background(), "A")
	if !apperrors.IsCode(err, apperrors.ErrCodeNodeBusy) {
		t.Fatalf("within window: got %v", err)
	}
	h.clock.Advance(time.Second)
	_, err = h.sched.RunSingleNode(context.Background(), "A")
	if !apperrors.IsCode(err, apperrors.ErrCodeNodeBusy) {
		t.Fatalf("while running: got %v", err)
	}
	if len(h.ledger.List()) != 1 {
		t.Fatalf("refused runs must not create records, got %d", len(h.ledger.List()))
	}

	close(release)
	out, err := run.Wait(context.Background())
	if err != nil || !out.OK() {
		t.Fatalf("Wait: %+v, %v", out, err)
	}
	if h.guard.InProgress("A") {
		t.Fatal("guard not released")
	}
	rec, _ := h.ledger.Get(run.TaskID)
	if rec.Status != ledger.StatusCompleted || rec.Completed != 1 || rec.Total != 1 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestRunSingleNode_IgnoresCallerCancel(t *testing.T) {
	h := newHarness(t, graph.Snapshot{Nodes: imageNodes("A")}, Config{})
	release := make(chan struct{})
	h.exec.behaviors["A"] = behavior{block: release}

	ctx, cancel := context.WithCancel(context.Background())
	run, err := h.sched.RunSingleNode(ctx, "A")
	if err != nil {
		t.Fatalf("RunSingleNode: %v", err)
	}
	cancel()
	close(release)

	<-run.Done()
	if !run.Result().OK() {
		t.Fatalf("run should complete after caller cancel: %+v", run.Result())
	}
}

func TestSubmit_TracksProgress(t *testing.T) {
	h := newHarness(t, graph.Snapshot{Nodes: imageNodes("A", "B")}, Config{})

	id, err := h.sched.Submit([]string{"A", "B"}, 1)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		b, ok := h.sched.Batch(id)
		if !ok {
			t.Fatal("batch not tracked")
		}
		if b.Done() {
			if len(b.Attempts) != 2 || b.Count(AttemptSucceeded) != 2 {
				t.Fatalf("batch = %+v", b)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("batch did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := h.sched.Submit([]string{"A"}, 1000); !apperrors.IsCode(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("repeat above max: got %v", err)
	}
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_, eventType string, _ any) error {
	p.mu.Lock()
	p.types = append(p.types, eventType)
	p.mu.Unlock()
	return nil
}

func TestRunBatch_PublishesProgress(t *testing.T) {
	h := newHarness(t, graph.Snapshot{Nodes: imageNodes("A")}, Config{})
	pub := &recordingPublisher{}
	h.sched.events = pub

	if _, err := h.sched.RunBatch(context.Background(), []string{"A"}, 1); err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	want := []string{"batch.started", "batch.attempt", "batch.finished"}
	if len(pub.types) != len(want) {
		t.Fatalf("events = %v", pub.types)
	}
	for i := range want {
		if pub.types[i] != want[i] {
			t.Fatalf("events = %v", pub.types)
		}
	}
}

// The validation short-circuit with the real runner: no backend call, and
// the guard slot is free again once the run resolves.
func TestRunSingleNode_ValidationReleasesGuard(t *testing.T) {
	store := graph.NewStore()
	if err := store.Load(graph.Snapshot{Nodes: imageNodes("A")}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	calls := 0
	backends := &backend.Backends{
		Images: provider.Func("images", func(context.Context, backend.ImageRequest) (backend.ImageResponse, error) {
			calls++
			return backend.ImageResponse{ImageURL: "https://cdn/x.png"}, nil
		}),
	}
	opts := []runner.Option{runner.WithSeeds(graph.StaticSeeds)}
	for _, st := range runner.Strategies(backends) {
		opts = append(opts, runner.WithStrategy(st))
	}
	r := runner.New(store, opts...)
	g := guard.New()
	l := ledger.New()
	s := New(Config{}, store, r, g, l, WithLogger(logger.Nop()))

	run, err := s.RunSingleNode(context.Background(), "A")
	if err != nil {
		t.Fatalf("RunSingleNode: %v", err)
	}
	<-run.Done()

	if run.Result().Status != runner.StatusValidationFailed {
		t.Fatalf("status = %s", run.Result().Status)
	}
	if calls != 0 {
		t.Fatalf("backend called %d times", calls)
	}
	if g.Len() != 0 {
		t.Fatal("guard entry leaked")
	}
	rec, _ := l.Get(run.TaskID)
	if rec.Status != ledger.StatusFailed || rec.Error == "" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.BetweenNodes != 300*time.Millisecond || cfg.BetweenPasses != 500*time.Millisecond || cfg.RunTimeout != 5*time.Minute {
		t.Fatalf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	cfg.RunTimeout = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative timeout")
	}
}
