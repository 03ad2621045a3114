package websocket

import (
	"sync"

	"go.uber.org/zap"

	"github.com/attendify/notify-agent/internal/modules/notification/domain"
	"github.com/attendify/notify-agent/internal/modules/notification/infrastructure/metrics"
)

// Hub maintains the set of downstream clients and relays snapshots to them.
// The most recent payload is kept so late joiners start from current state.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Payloads to relay to every client.
	broadcast chan []byte

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	latest []byte

	logger  *zap.Logger
	metrics *metrics.Metrics

	// Channel to signal termination
	stop     chan struct{}
	stopOnce sync.Once
}

func NewHub(logger *zap.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),

		clients: make(map[*Client]bool),
		logger:  logger,
		metrics: m,
		stop:    make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.metrics.RelayClientAdded()
			h.logger.Debug("relay client registered",
				zap.String("client", client.id.String()), zap.String("user", client.userID.String()))
			if h.latest != nil {
				h.deliver(client, h.latest)
			}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Debug("relay client unregistered", zap.String("client", client.id.String()))
			}
		case message := <-h.broadcast:
			h.latest = message
			for client := range h.clients {
				h.deliver(client, message)
			}
		case <-h.stop:
			h.logger.Info("stopping relay hub", zap.Int("clients", len(h.clients)))
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

// deliver queues message for client, dropping the client if its buffer is full.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		h.logger.Warn("dropping slow relay client", zap.String("client", client.id.String()))
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.metrics.RelayClientRemoved()
}

// Broadcast relays an already encoded payload to every client.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.stop:
	}
}

// Publish is a store listener: it encodes the snapshot and broadcasts it.
func (h *Hub) Publish(snapshot []domain.Notification) {
	payload, err := domain.EncodeSnapshot(snapshot)
	if err != nil {
		h.logger.Error("failed to encode relay snapshot", zap.Error(err))
		return
	}
	h.Broadcast(payload)
}

func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.stop:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}
