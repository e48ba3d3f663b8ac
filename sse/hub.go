package sse

import (
	"encoding/json"
	"path/filepath"
	"sync"

	"github.com/kbukum/flowgen/logger"
)

const clientBuffer = 256

// Event is one message delivered to clients.
type Event struct {
	Topic string
	Type  string
	Data  []byte
}

// Client is a connected SSE subscriber.
type Client struct {
	id     string
	filter string
	events chan Event
}

// NewClient creates a client receiving events whose topic matches filter.
// An empty filter matches every topic.
func NewClient(id, filter string) *Client {
	if filter == "" {
		filter = "*"
	}
	return &Client{id: id, filter: filter, events: make(chan Event, clientBuffer)}
}

func (c *Client) ID() string           { return c.id }
func (c *Client) Filter() string       { return c.filter }
func (c *Client) Events() <-chan Event { return c.events }

// Matches reports whether the client wants events on topic.
func (c *Client) Matches(topic string) bool {
	ok, err := filepath.Match(c.filter, topic)
	return err == nil && ok
}

// Send queues ev without blocking. It returns false when the client is too slow.
func (c *Client) Send(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}

// Publisher is what producers depend on.
type Publisher interface {
	Publish(topic, eventType string, payload any) error
}

// Hub fans events out to registered clients from a single goroutine.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	log        *logger.Logger
}

var _ Publisher = (*Hub)(nil)

// NewHub creates a hub. Call Run in a goroutine before publishing.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, clientBuffer),
		done:       make(chan struct{}),
		log:        logger.WithComponent("sse"),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client registered", logger.Fields("client_id", c.id, "filter", c.filter, "clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.events)
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

// Stop shuts the hub down and closes every client. Safe to call twice.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds c. It returns false if the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c and closes its channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish marshals payload to JSON and queues it for clients matching topic.
// Events published after Stop are dropped.
func (h *Hub) Publish(topic, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- Event{Topic: topic, Type: eventType, Data: data}:
	case <-h.done:
	}
	return nil
}

func (h *Hub) deliver(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if !c.Matches(ev.Topic) {
			continue
		}
		if !c.Send(ev) {
			h.log.Warn("client buffer full, dropping event", logger.Fields("client_id", c.id, "type", ev.Type))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.events)
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
