package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/flowgen/dag"
	apperrors "github.com/kbukum/flowgen/errors"
	"github.com/kbukum/flowgen/logger"
	"github.com/kbukum/flowgen/observability"
	"github.com/kbukum/flowgen/runner"
	"github.com/kbukum/flowgen/validation"
)

// EventsTopic is the event stream topic batch progress is published on.
const EventsTopic = "batches"

// AttemptStatus is the outcome of one node attempt within a batch.
type AttemptStatus string

const (
	AttemptSucceeded        AttemptStatus = "succeeded"
	AttemptValidationFailed AttemptStatus = "validation_failed"
	AttemptExternalFailed   AttemptStatus = "external_failed"
	AttemptSkipped          AttemptStatus = "skipped"
	AttemptTimedOut         AttemptStatus = "timed_out"
	AttemptAbandoned        AttemptStatus = "abandoned"
)

// Attempt is one node run inside a batch.
type Attempt struct {
	Pass     int           `json:"pass"`
	NodeID   string        `json:"nodeId"`
	TaskID   string        `json:"taskId,omitempty"`
	Status   AttemptStatus `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"durationNs"`

	Err error `json:"-"`
}

// BatchResult describes a batch, finished or in flight.
type BatchResult struct {
	ID         string     `json:"id"`
	Order      []string   `json:"order"`
	Resolved   bool       `json:"resolved"`
	Levels     [][]string `json:"levels,omitempty"`
	Repeat     int        `json:"repeat"`
	Attempts   []Attempt  `json:"attempts"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Cancelled  bool       `json:"cancelled,omitempty"`
}

// Done reports whether the batch has stopped scheduling.
func (b *BatchResult) Done() bool { return b.FinishedAt != nil }

// Count returns how many attempts ended with status.
func (b *BatchResult) Count(status AttemptStatus) int {
	n := 0
	for _, a := range b.Attempts {
		if a.Status == status {
			n++
		}
	}
	return n
}

func (b *BatchResult) clone() *BatchResult {
	c := *b
	c.Order = append([]string(nil), b.Order...)
	c.Levels = make([][]string, len(b.Levels))
	for i, l := range b.Levels {
		c.Levels[i] = append([]string(nil), l...)
	}
	c.Attempts = append([]Attempt(nil), b.Attempts...)
	return &c
}

type batchEvent struct {
	BatchID string   `json:"batchId"`
	Attempt *Attempt `json:"attempt,omitempty"`
	Order   []string `json:"order,omitempty"`
}

// RunBatch runs ids in dependency order, repeat times, and returns once the
// last attempt has finished. Node failures are recorded and skipped past.
// Cancelling ctx stops scheduling further attempts; the partial result is
// returned with ctx's error.
func (s *Scheduler) RunBatch(ctx context.Context, ids []string, repeat int) (*BatchResult, error) {
	b, err := s.newBatch(ids, repeat)
	if err != nil {
		return nil, err
	}
	return s.runBatch(ctx, b)
}

// Submit validates a batch and runs it in the background. The returned id
// can be passed to Batch to follow progress. Stop cancels submitted
// batches.
func (s *Scheduler) Submit(ids []string, repeat int) (string, error) {
	if err := s.enter(); err != nil {
		return "", err
	}
	b, err := s.newBatch(ids, repeat)
	if err != nil {
		s.runs.Done()
		return "", err
	}
	go func() {
		defer s.runs.Done()
		_, _ = s.runBatch(s.base, b)
	}()
	return b.ID, nil
}

// Batch returns a snapshot of a batch started by RunBatch or Submit.
func (s *Scheduler) Batch(id string) (*BatchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, false
	}
	return b.clone(), true
}

func (s *Scheduler) newBatch(ids []string, repeat int) (*BatchResult, error) {
	err := validation.New().
		NotEmpty("node_ids", len(ids)).
		Min("repeat", repeat, 1).
		Custom(repeat <= s.cfg.MaxRepeat, "repeat", fmt.Sprintf("must be at most %d", s.cfg.MaxRepeat)).
		Validate()
	if err != nil {
		return nil, err
	}

	edges := s.store.Edges()
	res := dag.Resolve(ids, edges)
	b := &BatchResult{
		ID:        uuid.NewString(),
		Order:     res.Order,
		Resolved:  res.Resolved,
		Levels:    dag.Levels(ids, edges),
		Repeat:    repeat,
		StartedAt: time.Now(),
	}
	s.track(b)
	return b, nil
}

func (s *Scheduler) runBatch(ctx context.Context, b *BatchResult) (*BatchResult, error) {
	ctx, span := observability.StartSpan(ctx, "scheduler.batch")
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrBatchID, b.ID)

	log := s.log.WithFields(logger.Fields(logger.FieldBatchID, b.ID))
	log.Info("batch started", logger.Fields("order", b.Order, "levels", len(b.Levels), "repeat", b.Repeat))
	if !b.Resolved {
		log.Warn("dependency order unresolved, using request order", logger.Fields("order", b.Order))
	}
	s.publish("batch.started", batchEvent{BatchID: b.ID, Order: b.Order})

	err := s.walk(ctx, b, log)

	s.mu.Lock()
	now := time.Now()
	b.FinishedAt = &now
	b.Cancelled = err != nil
	result := b.clone()
	s.mu.Unlock()

	fields := logger.Fields(
		"attempts", len(result.Attempts),
		"succeeded", result.Count(AttemptSucceeded),
		logger.FieldDuration, now.Sub(b.StartedAt).Milliseconds(),
	)
	if err != nil {
		observability.SetSpanError(ctx, err)
		log.Warn("batch cancelled", logger.MergeWithError(fields, err))
	} else {
		log.Info("batch finished", fields)
	}
	s.publish("batch.finished", batchEvent{BatchID: b.ID})
	return result, err
}

func (s *Scheduler) walk(ctx context.Context, b *BatchResult, log *logger.Logger) error {
	for pass := 1; pass <= b.Repeat; pass++ {
		log.Debug("pass started", logger.Fields(logger.FieldPass, pass))
		for i, id := range b.Order {
			if err := ctx.Err(); err != nil {
				return err
			}
			a := s.runOneAndWait(ctx, pass, id)
			s.mu.Lock()
			b.Attempts = append(b.Attempts, a)
			s.mu.Unlock()
			s.metrics.RecordBatchAttempt(ctx, string(a.Status))
			s.publish("batch.attempt", batchEvent{BatchID: b.ID, Attempt: &a})

			if a.Status != AttemptSucceeded {
				log.Warn("batch attempt failed", logger.MergeWithError(logger.Fields(
					logger.FieldPass, pass,
					logger.FieldNodeID, id,
					logger.FieldStatus, string(a.Status),
				), a.Err))
			}

			if i < len(b.Order)-1 {
				if err := s.sleep(ctx, s.cfg.BetweenNodes); err != nil {
					return err
				}
			}
		}
		if pass < b.Repeat {
			if err := s.sleep(ctx, s.cfg.BetweenPasses); err != nil {
				return err
			}
		}
	}
	return nil
}

// runOneAndWait dispatches nodeID and waits for its completion signal, up
// to the run timeout. A timed-out run keeps going; only the wait ends.
func (s *Scheduler) runOneAndWait(ctx context.Context, pass int, nodeID string) Attempt {
	start := time.Now()
	a := Attempt{Pass: pass, NodeID: nodeID}
	finish := func(status AttemptStatus, err error) Attempt {
		a.Status = status
		a.Err = err
		if err != nil {
			a.Error = err.Error()
		}
		a.Duration = time.Since(start)
		return a
	}

	run, err := s.RunSingleNode(ctx, nodeID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNodeBusy) {
			return finish(AttemptSkipped, err)
		}
		if apperrors.IsCode(err, apperrors.ErrCodeServiceUnavailable) {
			return finish(AttemptAbandoned, err)
		}
		return finish(AttemptValidationFailed, err)
	}
	a.TaskID = run.TaskID

	timer := time.NewTimer(s.cfg.RunTimeout)
	defer timer.Stop()
	select {
	case <-run.Done():
		out := run.Result()
		return finish(attemptStatus(out), out.Err)
	case <-timer.C:
		s.log.Error("node run timed out", logger.Fields(
			logger.FieldNodeID, nodeID,
			logger.FieldTaskID, run.TaskID,
			"timeout", s.cfg.RunTimeout.String(),
		))
		return finish(AttemptTimedOut, apperrors.RunTimeout(nodeID, s.cfg.RunTimeout))
	case <-ctx.Done():
		return finish(AttemptAbandoned, ctx.Err())
	}
}

func attemptStatus(out runner.Outcome) AttemptStatus {
	switch out.Status {
	case runner.StatusSuccess:
		return AttemptSucceeded
	case runner.StatusValidationFailed:
		return AttemptValidationFailed
	default:
		return AttemptExternalFailed
	}
}

func (s *Scheduler) track(b *BatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[b.ID] = b
	s.order = append(s.order, b.ID)
	// forget the oldest finished batches beyond the limit
	for len(s.order) > s.cfg.KeepBatches {
		oldest := s.batches[s.order[0]]
		if oldest != nil && !oldest.Done() {
			break
		}
		delete(s.batches, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Scheduler) publish(eventType string, ev batchEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(EventsTopic, eventType, ev); err != nil {
		s.log.Warn("publish batch event failed", logger.Fields("event", eventType, logger.FieldError, err.Error()))
	}
}
