// Package ledger records node run attempts for progress reporting.
//
// A record is appended when a run begins and flipped to completed or failed
// exactly once when it ends. Records are kept until explicitly cleared.
package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the state of a task record.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is one run attempt of one node.
type Record struct {
	ID         string     `json:"id"`
	NodeID     string     `json:"nodeId"`
	NodeName   string     `json:"nodeName"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Completed  int        `json:"completed"`
	Total      int        `json:"total"`
	Status     Status     `json:"status"`
	Error      string     `json:"error,omitempty"`
}

// Terminal reports whether the record has left the running state.
func (r Record) Terminal() bool { return r.Status != StatusRunning }

// EventType names a ledger change.
type EventType string

const (
	EventStarted  EventType = "task.started"
	EventFinished EventType = "task.finished"
	EventRemoved  EventType = "task.removed"
	EventCleared  EventType = "tasks.cleared"
)

// Event describes one ledger change. Record is nil for EventCleared.
type Event struct {
	Type   EventType `json:"type"`
	Record *Record   `json:"record,omitempty"`
}

// Listener receives ledger events in order, outside the ledger lock.
type Listener func(Event)

// Ledger is the in-memory task list.
type Ledger struct {
	mu        sync.Mutex
	records   []Record
	listeners map[int]Listener
	nextSub   int
	now       func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{listeners: make(map[int]Listener), now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Subscribe registers fn and returns a function that removes it.
func (l *Ledger) Subscribe(fn Listener) (unsubscribe func()) {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.listeners[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.listeners, id)
		l.mu.Unlock()
	}
}

// Begin appends a running record for nodeID.
func (l *Ledger) Begin(nodeID, nodeName string, total int) Record {
	rec := Record{
		ID:        uuid.NewString(),
		NodeID:    nodeID,
		NodeName:  nodeName,
		StartedAt: l.now(),
		Total:     total,
		Status:    StatusRunning,
	}
	l.mu.Lock()
	l.records = append(l.records, rec)
	listeners := l.snapshotListeners()
	l.mu.Unlock()

	l.emit(listeners, Event{Type: EventStarted, Record: &rec})
	return rec
}

// Finish flips the most recent running record of nodeID to status. It
// returns false when the node has no running record.
func (l *Ledger) Finish(nodeID string, status Status, completed int, cause error) (Record, bool) {
	l.mu.Lock()
	idx := -1
	for i := len(l.records) - 1; i >= 0; i-- {
		if l.records[i].NodeID == nodeID && l.records[i].Status == StatusRunning {
			idx = i
			break
		}
	}
	if idx < 0 {
		l.mu.Unlock()
		return Record{}, false
	}
	rec := l.finishAt(idx, status, completed, cause)
	listeners := l.snapshotListeners()
	l.mu.Unlock()

	l.emit(listeners, Event{Type: EventFinished, Record: &rec})
	return rec, true
}

// FinishTask flips the running record id to status.
func (l *Ledger) FinishTask(id string, status Status, completed int, cause error) (Record, bool) {
	l.mu.Lock()
	idx := l.indexOf(id)
	if idx < 0 || l.records[idx].Status != StatusRunning {
		l.mu.Unlock()
		return Record{}, false
	}
	rec := l.finishAt(idx, status, completed, cause)
	listeners := l.snapshotListeners()
	l.mu.Unlock()

	l.emit(listeners, Event{Type: EventFinished, Record: &rec})
	return rec, true
}

func (l *Ledger) finishAt(idx int, status Status, completed int, cause error) Record {
	now := l.now()
	rec := &l.records[idx]
	rec.Status = status
	rec.Completed = completed
	rec.FinishedAt = &now
	if cause != nil {
		rec.Error = cause.Error()
	}
	return *rec
}

// List returns every record, oldest first.
func (l *Ledger) List() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

// Running returns the records still running.
func (l *Ledger) Running() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Record
	for _, r := range l.records {
		if r.Status == StatusRunning {
			out = append(out, r)
		}
	}
	return out
}

// Get returns the record with id.
func (l *Ledger) Get(id string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if idx := l.indexOf(id); idx >= 0 {
		return l.records[idx], true
	}
	return Record{}, false
}

// Remove deletes one record.
func (l *Ledger) Remove(id string) bool {
	l.mu.Lock()
	idx := l.indexOf(id)
	if idx < 0 {
		l.mu.Unlock()
		return false
	}
	rec := l.records[idx]
	l.records = append(l.records[:idx], l.records[idx+1:]...)
	listeners := l.snapshotListeners()
	l.mu.Unlock()

	l.emit(listeners, Event{Type: EventRemoved, Record: &rec})
	return true
}

// Clear deletes every record and returns how many were removed.
func (l *Ledger) Clear() int {
	l.mu.Lock()
	n := len(l.records)
	l.records = nil
	listeners := l.snapshotListeners()
	l.mu.Unlock()

	l.emit(listeners, Event{Type: EventCleared})
	return n
}

// Restore loads records saved by an earlier process. Records that were
// still running can never finish and are marked failed.
func (l *Ledger) Restore(records []Record) {
	now := l.now()
	restored := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Status == StatusRunning {
			r.Status = StatusFailed
			r.Error = "interrupted by restart"
			r.FinishedAt = &now
		}
		restored = append(restored, r)
	}
	l.mu.Lock()
	l.records = append(restored, l.records...)
	l.mu.Unlock()
}

func (l *Ledger) indexOf(id string) int {
	for i := range l.records {
		if l.records[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(l.listeners))
	for i := 0; i < l.nextSub; i++ {
		if fn, ok := l.listeners[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (l *Ledger) emit(listeners []Listener, ev Event) {
	for _, fn := range listeners {
		fn(ev)
	}
}
