package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"safeclaw/internal/session"

	"github.com/google/uuid"
)

// Message types pushed to observers.
const (
	MsgConnected = "connected"
	MsgChange    = "change"
)

// DefaultBuffer is the per-observer queue length.
const DefaultBuffer = 64

// Message is the wire form of a push. It carries no session state; clients
// re-fetch the snapshot when they receive one.
type Message struct {
	Type   string         `json:"type"`
	Action session.Action `json:"action,omitempty"`
}

// Observer is one connected dashboard client.
type Observer struct {
	ID   string
	send chan []byte
}

// Messages yields encoded messages until the observer is unsubscribed.
func (o *Observer) Messages() <-chan []byte {
	return o.send
}

// Gauge tracks the number of connected observers.
type Gauge interface {
	Set(float64)
}

// Hub fans out change notifications to every connected observer.
type Hub struct {
	mu        sync.RWMutex
	observers map[*Observer]struct{}
	buffer    int
	gauge     Gauge
	logger    *slog.Logger
}

// New creates a hub. gauge may be nil.
func New(logger *slog.Logger, buffer int, gauge Gauge) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		observers: make(map[*Observer]struct{}),
		buffer:    buffer,
		gauge:     gauge,
		logger:    logger,
	}
}

// Subscribe registers a new observer and queues the connectivity marker.
func (h *Hub) Subscribe() *Observer {
	o := &Observer{
		ID:   uuid.New().String(),
		send: make(chan []byte, h.buffer),
	}
	o.send <- encode(Message{Type: MsgConnected})

	h.mu.Lock()
	h.observers[o] = struct{}{}
	n := len(h.observers)
	h.mu.Unlock()

	h.setGauge(n)
	h.logger.Debug("observer subscribed", "observer", o.ID, "observers", n)
	return o
}

// Unsubscribe removes an observer and closes its queue. Calling it twice is a no-op.
func (h *Hub) Unsubscribe(o *Observer) {
	h.mu.Lock()
	_, ok := h.observers[o]
	if ok {
		delete(h.observers, o)
		close(o.send)
	}
	n := len(h.observers)
	h.mu.Unlock()

	if ok {
		h.setGauge(n)
		h.logger.Debug("observer unsubscribed", "observer", o.ID, "observers", n)
	}
}

// Publish queues a change for every observer without blocking. An observer
// whose queue is full misses this message but stays subscribed; it is only
// removed when its own connection closes.
func (h *Hub) Publish(change session.Change) {
	data := encode(Message{Type: MsgChange, Action: change.Action})

	h.mu.RLock()
	defer h.mu.RUnlock()
	for o := range h.observers {
		select {
		case o.send <- data:
		default:
			h.logger.Warn("observer queue full, dropping notification", "observer", o.ID, "action", change.Action)
		}
	}
}

// Count returns the number of connected observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

func (h *Hub) setGauge(n int) {
	if h.gauge != nil {
		h.gauge.Set(float64(n))
	}
}

func encode(msg Message) []byte {
	data, _ := json.Marshal(msg)
	return data
}
