package broadcast

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"taskboard-api/logging"
)

// EventType names a push-channel event.
type EventType string

const (
	TaskAdded   EventType = "taskAdded"
	TaskUpdated EventType = "taskUpdated"
	TaskDeleted EventType = "taskDeleted"
)

// Event is one push-channel notification. Email identifies the tenant
// whose board changed; every connected client receives every event and
// filters on its own side.
type Event struct {
	Type    EventType   `json:"-"`
	Email   string      `json:"email"`
	Payload interface{} `json:"payload"`
}

// clientBufferSize bounds how far a slow reader may fall behind before
// events are dropped. A dropped taskUpdated is superseded by the next
// snapshot, so small buffers are safe.
const clientBufferSize = 8

// Broker fans committed mutations out to all connected clients over
// Server-Sent Events. Delivery is fire-and-forget, at most once per
// client; there is no replay buffer.
type Broker struct {
	mu      sync.Mutex
	clients map[string]chan Event
}

func NewBroker() *Broker {
	return &Broker{clients: make(map[string]chan Event)}
}

// Subscribe registers a new client and returns its id and event channel.
func (b *Broker) Subscribe() (string, <-chan Event) {
	id := uuid.New().String()
	ch := make(chan Event, clientBufferSize)
	b.mu.Lock()
	b.clients[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.clients[id]; ok {
		delete(b.clients, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers the event to every connected client. A client whose
// buffer is full misses the event and converges on the next snapshot.
func (b *Broker) Publish(event Event) {
	b.mu.Lock()
	for id, ch := range b.clients {
		select {
		case ch <- event:
		default:
			logging.Logger.Warnf("Event ID: BROADCAST_DROPPED, Description: Client %s buffer full, dropped '%s' event", id, event.Type)
		}
	}
	b.mu.Unlock()
}

// ClientCount reports how many clients are currently subscribed.
func (b *Broker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// ServeHTTP streams broker events to one client as Server-Sent Events.
// The subscription lives for the lifetime of the request context.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)
	logging.Logger.Infof("Event ID: CLIENT_CONNECTED, Description: Push channel client %s connected", id)
	defer logging.Logger.Infof("Event ID: CLIENT_DISCONNECTED, Description: Push channel client %s disconnected", id)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				logging.Logger.Errorf("Event ID: BROADCAST_ENCODE_FAILED, Description: Failed to encode '%s' event: %v", event.Type, err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
