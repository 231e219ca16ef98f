package watch

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"genforge/internal/scheduler"
)

// Event is one progress update pushed to watchers.
type Event struct {
	RunID     string    `json:"run_id"`
	Path      string    `json:"path"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	At        time.Time `json:"at"`
}

// Hub fans scheduler progress out to websocket watchers. Losing a watcher
// never affects the run: writes are best-effort and broken connections are
// dropped on the next broadcast.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	// wmu serializes writes; gorilla connections allow only one
	// concurrent writer, and progress callbacks arrive from every worker.
	wmu sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the watcher until it
// disconnects. Watchers are read-only; inbound messages are discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("watch: upgrade failed: %v", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast pushes an event to every connected watcher.
func (h *Hub) Broadcast(ev Event) {
	if h == nil {
		return
	}
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	var broken []*websocket.Conn
	h.wmu.Lock()
	for _, c := range conns {
		if err := c.WriteJSON(ev); err != nil {
			broken = append(broken, c)
		}
	}
	h.wmu.Unlock()

	for _, c := range broken {
		h.drop(c)
	}
}

// Progress adapts the hub into a scheduler progress callback for one run.
func (h *Hub) Progress(runID string) scheduler.ProgressFunc {
	return func(path string, completed, total int) {
		h.Broadcast(Event{
			RunID:     runID,
			Path:      path,
			Completed: completed,
			Total:     total,
			At:        time.Now(),
		})
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
	h.mu.Unlock()
}

// Watchers reports the current connection count.
func (h *Hub) Watchers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
