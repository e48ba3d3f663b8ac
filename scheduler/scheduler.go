package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/kbukum/flowgen/errors"
	"github.com/kbukum/flowgen/graph"
	"github.com/kbukum/flowgen/guard"
	"github.com/kbukum/flowgen/ledger"
	"github.com/kbukum/flowgen/logger"
	"github.com/kbukum/flowgen/observability"
	"github.com/kbukum/flowgen/runner"
	"github.com/kbukum/flowgen/sse"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Scheduler sequences node runs.
type Scheduler struct {
	cfg     Config
	store   *graph.Store
	exec    runner.Executor
	guard   *guard.Guard
	ledger  *ledger.Ledger
	log     *logger.Logger
	metrics *observability.Metrics
	events  sse.Publisher
	sleep   Sleeper

	// base is cancelled by Stop; batches submitted in the background use it.
	base   context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	batches map[string]*BatchResult
	order   []string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithMetrics records task and batch metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithPublisher publishes batch progress on the "batches" topic.
func WithPublisher(p sse.Publisher) Option {
	return func(s *Scheduler) { s.events = p }
}

// WithSleeper replaces the delay function used between nodes and passes.
func WithSleeper(fn Sleeper) Option {
	return func(s *Scheduler) { s.sleep = fn }
}

// New creates a scheduler. The guard and ledger are shared with any other
// code that triggers runs in the same process.
func New(cfg Config, store *graph.Store, exec runner.Executor, g *guard.Guard, l *ledger.Ledger, opts ...Option) *Scheduler {
	cfg.ApplyDefaults()
	base, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cfg:     cfg,
		store:   store,
		exec:    exec,
		guard:   g,
		ledger:  l,
		log:     logger.Get("scheduler"),
		sleep:   Sleep,
		base:    base,
		cancel:  cancel,
		batches: make(map[string]*BatchResult),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config { return s.cfg }

// Run is one dispatched node run.
type Run struct {
	TaskID string
	NodeID string

	done    chan struct{}
	outcome runner.Outcome
}

// Done is closed after the ledger record is finished and the guard slot
// released.
func (r *Run) Done() <-chan struct{} { return r.done }

// Result returns the run outcome. It is only meaningful after Done.
func (r *Run) Result() runner.Outcome { return r.outcome }

// Wait blocks until the run finishes or ctx is done.
func (r *Run) Wait(ctx context.Context) (runner.Outcome, error) {
	select {
	case <-r.done:
		return r.outcome, nil
	case <-ctx.Done():
		return runner.Outcome{}, ctx.Err()
	}
}

// RunSingleNode starts one run of nodeID and returns without waiting for
// it. Guard refusals return a NODE_BUSY error. The run ignores cancellation
// of ctx; only its values are carried over.
func (s *Scheduler) RunSingleNode(ctx context.Context, nodeID string) (*Run, error) {
	node, ok := s.store.GetNode(nodeID)
	if !ok {
		return nil, apperrors.NotFound("node", nodeID)
	}
	if d := s.guard.Acquire(nodeID); !d.OK {
		s.log.Debug("run refused", logger.Fields(logger.FieldNodeID, nodeID, "reason", string(d.Reason)))
		return nil, apperrors.NodeBusy(nodeID, string(d.Reason))
	}

	if err := s.enter(); err != nil {
		s.guard.Release(nodeID)
		return nil, err
	}

	rec := s.ledger.Begin(nodeID, node.DisplayName(), s.exec.Expected(node))
	s.metrics.TaskStarted(ctx)
	run := &Run{TaskID: rec.ID, NodeID: nodeID, done: make(chan struct{})}

	go func() {
		defer s.runs.Done()
		defer close(run.done)
		defer s.guard.Release(nodeID)

		out := s.execute(context.WithoutCancel(ctx), nodeID)
		status := ledger.StatusCompleted
		if !out.OK() {
			status = ledger.StatusFailed
		}
		s.ledger.FinishTask(rec.ID, status, len(out.Artifacts), out.Err)
		s.metrics.TaskFinished(ctx)
		run.outcome = out
	}()
	return run, nil
}

// execute turns an executor panic into a failed outcome so the deferred
// release still runs and the process survives.
func (s *Scheduler) execute(ctx context.Context, nodeID string) (out runner.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("node run panicked", logger.Fields(logger.FieldNodeID, nodeID, "panic", fmt.Sprint(r)))
			out = runner.Outcome{
				NodeID: nodeID,
				Status: runner.StatusExternalFailed,
				Err:    apperrors.Internal(fmt.Errorf("panic: %v", r)),
			}
		}
	}()
	return s.exec.Run(ctx, nodeID)
}

// Running reports how many runs started here have not finished.
func (s *Scheduler) Running() int { return s.guard.Len() }

// enter registers one unit of background work. It fails once Stop has
// been called, so runs.Add never races runs.Wait.
func (s *Scheduler) enter() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return apperrors.ServiceUnavailable("scheduler")
	}
	s.runs.Add(1)
	return nil
}

// Stop refuses new work, cancels background batches and waits for
// dispatched runs to finish or ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
