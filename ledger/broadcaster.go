package ledger

import (
	"github.com/kbukum/flowgen/logger"
	"github.com/kbukum/flowgen/sse"
)

// Topic is the event stream topic ledger events are published on.
const Topic = "tasks"

// Broadcaster returns a Listener publishing every event to pub.
func Broadcaster(pub sse.Publisher, log *logger.Logger) Listener {
	return func(ev Event) {
		if err := pub.Publish(Topic, string(ev.Type), ev); err != nil {
			log.Warn("publish ledger event failed", logger.Fields("event", string(ev.Type), logger.FieldError, err.Error()))
		}
	}
}
