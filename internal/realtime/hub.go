// Package realtime streams comment events to websocket subscribers of a post.
package realtime

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/memoria-social/backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

type subscriber struct {
	id     string
	postID string
	send   chan models.CommentEvent
	once   sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub fans comment events out to the subscribers of each post. A subscriber
// whose buffer is full is dropped so publishing never blocks a mutation.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]*subscriber
	upgrader    websocket.Upgrader
	buffer      int
	logger      *slog.Logger
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[string]map[string]*subscriber),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		buffer: sendBuffer,
		logger: logger,
	}
}

// Subscribe registers interest in postID. The returned channel is closed
// when cancel is called or when the subscriber falls too far behind.
func (h *Hub) Subscribe(postID string) (<-chan models.CommentEvent, func()) {
	sub := &subscriber{
		id:     uuid.NewString(),
		postID: postID,
		send:   make(chan models.CommentEvent, h.buffer),
	}

	h.mu.Lock()
	if h.subscribers[postID] == nil {
		h.subscribers[postID] = make(map[string]*subscriber)
	}
	h.subscribers[postID][sub.id] = sub
	h.mu.Unlock()

	return sub.send, func() { h.remove(sub) }
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	if subs, ok := h.subscribers[sub.postID]; ok {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(h.subscribers, sub.postID)
		}
	}
	h.mu.Unlock()
	sub.close()
}

// Publish implements services.Publisher
func (h *Hub) Publish(event models.CommentEvent) {
	var slow []*subscriber

	h.mu.RLock()
	for _, sub := range h.subscribers[event.PostID] {
		select {
		case sub.send <- event:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.logger.Warn("dropping slow live subscriber", "post_id", sub.postID, "subscriber_id", sub.id)
		h.remove(sub)
	}
}

// SubscriberCount returns the number of live subscribers of postID
func (h *Hub) SubscriberCount(postID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[postID])
}

// ServeWS upgrades the request and streams postID's events until the
// client goes away. Client messages are read only to notice disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, postID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	events, cancel := h.Subscribe(postID)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscriber too slow"))
				return nil
			}
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("live write failed", "post_id", postID, "error", err)
				return nil
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-done:
			return nil
		}
	}
}
