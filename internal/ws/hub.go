package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/trades-marketplace/internal/goroutine"
	"github.com/ignatzorin/trades-marketplace/internal/logger"
)

var errHubStopped = errors.New("ws: хаб остановлен")

// Notification: формат сообщения, которое получает клиент.
type Notification struct {
	Type   string    `json:"type"`
	Data   any       `json:"data"`
	SentAt time.Time `json:"sent_at"`
}

type delivery struct {
	userID  uuid.UUID
	payload []byte
}

// Hub доставляет уведомления о заявках и оплатах в открытые подключения пользователей.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]struct{}
	queue   chan delivery
	done    chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]map[*client]struct{}),
		queue:   make(chan delivery, 64),
		done:    make(chan struct{}),
	}
}

// Run доставляет уведомления до отмены ctx, затем закрывает все подключения.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-h.queue:
			h.deliver(d)
		}
	}
}

// Serve обслуживает подключение пользователя, пока оно открыто и ctx не отменён.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, userID uuid.UUID) {
	c := newClient(conn, userID)
	if !h.add(c) {
		c.close()
		return
	}
	defer h.remove(c)

	stop := context.AfterFunc(ctx, c.close)
	defer stop()

	goroutine.Go("ws.write", c.writeLoop)
	c.readLoop()
	c.close()
}

// Send ставит уведомление в очередь. Пользователь без подключений его просто не получит.
func (h *Hub) Send(userID uuid.UUID, event string, data any) error {
	payload, err := json.Marshal(Notification{Type: event, Data: data, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать уведомление %s: %w", event, err)
	}

	select {
	case <-h.done:
		return errHubStopped
	default:
	}

	select {
	case h.queue <- delivery{userID: userID, payload: payload}:
		return nil
	case <-h.done:
		return errHubStopped
	}
}

// Connected возвращает число открытых подключений пользователя.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		return false
	default:
	}

	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.clients[c.userID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

func (h *Hub) deliver(d delivery) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[d.userID] {
		if !c.enqueue(d.payload) {
			logger.Log.WithField("user_id", d.userID).Warn("ws: клиент не успевает читать, соединение закрывается")
			c.close()
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	close(h.done)
	all := h.clients
	h.clients = make(map[uuid.UUID]map[*client]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for c := range set {
			c.close()
		}
	}
}
