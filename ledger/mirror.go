package ledger

import (
	"context"
	"time"

	"github.com/kbukum/flowgen/logger"
	"github.com/kbukum/flowgen/redis"
)

const mirrorTimeout = 2 * time.Second

// RedisMirror copies ledger records into Redis so they survive a restart.
type RedisMirror struct {
	store *redis.TypedStore[Record]
	log   *logger.Logger
}

// NewRedisMirror creates a mirror writing under "<prefix>:tasks".
func NewRedisMirror(client *redis.Client, log *logger.Logger) *RedisMirror {
	cfg := client.Config()
	return &RedisMirror{
		store: redis.NewTypedStore[Record](client, cfg.KeyPrefix+":"+Topic, cfg.TTL),
		log:   log.WithComponent("ledger.mirror"),
	}
}

// Load returns the mirrored records in start order.
func (m *RedisMirror) Load(ctx context.Context) ([]Record, error) {
	return m.store.List(ctx)
}

// Listener returns the Listener that applies ledger events to Redis.
// Failures are logged; the in-memory ledger stays authoritative.
func (m *RedisMirror) Listener() Listener {
	return func(ev Event) {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()

		var err error
		switch ev.Type {
		case EventStarted, EventFinished:
			err = m.store.Save(ctx, ev.Record.ID, ev.Record, float64(ev.Record.StartedAt.UnixNano()))
		case EventRemoved:
			err = m.store.Delete(ctx, ev.Record.ID)
		case EventCleared:
			err = m.store.Clear(ctx)
		}
		if err != nil {
			m.log.Warn("mirror ledger event failed", logger.Fields("event", string(ev.Type), logger.FieldError, err.Error()))
		}
	}
}

// Sync writes records to Redis, overwriting what is there.
func (m *RedisMirror) Sync(ctx context.Context, records []Record) error {
	for i := range records {
		r := &records[i]
		if err := m.store.Save(ctx, r.ID, r, float64(r.StartedAt.UnixNano())); err != nil {
			return err
		}
	}
	return nil
}
