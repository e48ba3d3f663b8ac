package sse

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/flowgen/logger"
)

// EventConnected is the first event written on every stream.
const EventConnected = "connected"

// KeepAliveInterval is how often a comment line is written to idle streams.
var KeepAliveInterval = 30 * time.Second

// ServeSSE streams events for one client until the request ends or the hub stops.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, clientID, filter string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Streams outlive the server's WriteTimeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		logger.Get("sse").Debug("could not clear write deadline", logger.Fields(logger.FieldError, err.Error()))
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	client := NewClient(clientID, filter)
	if !hub.Register(client) {
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	writeEvent(w, EventConnected, []byte(fmt.Sprintf(`{"client_id":%q,"filter":%q}`, clientID, client.Filter())))
	flusher.Flush()

	keepAlive := time.NewTicker(KeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-client.Events():
			if !ok {
				return
			}
			writeEvent(w, ev.Type, ev.Data)
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, eventType string, data []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
}
