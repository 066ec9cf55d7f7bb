package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"lugares/internal/domain/entity"
)

const (
	sendBufferSize = 32
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

// Client is one websocket connection following a single restaurant.
type Client struct {
	ID           string
	RestaurantID string
	Conn         *websocket.Conn
	Send         chan []byte
}

type roomMessage struct {
	restaurantID string
	payload      []byte
}

type directMessage struct {
	client  *Client
	payload []byte
}

// Manager fans rating updates out to the clients subscribed to each restaurant.
// Only the Start loop touches rooms and Send channels.
type Manager struct {
	rooms      map[string]map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	broadcast  chan roomMessage
	direct     chan directMessage
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		rooms:      make(map[string]map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		broadcast:  make(chan roomMessage, 256),
		direct:     make(chan directMessage, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Start runs the manager's main loop in a goroutine
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				room := m.rooms[client.RestaurantID]
				if room == nil {
					room = make(map[string]*Client)
					m.rooms[client.RestaurantID] = room
				}
				room[client.ID] = client
				m.mutex.Unlock()
				m.logger.Debug("websocket client subscribed",
					slog.String("client_id", client.ID),
					slog.String("restaurant_id", client.RestaurantID),
				)

			case client := <-m.Unregister:
				m.remove(client)

			case msg := <-m.broadcast:
				m.mutex.RLock()
				room := m.rooms[msg.restaurantID]
				var slow []*Client
				for _, client := range room {
					select {
					case client.Send <- msg.payload:
					default:
						slow = append(slow, client)
					}
				}
				m.mutex.RUnlock()
				for _, client := range slow {
					m.logger.Warn("dropping slow websocket client", slog.String("client_id", client.ID))
					m.remove(client)
				}

			case msg := <-m.direct:
				m.mutex.RLock()
				_, ok := m.rooms[msg.client.RestaurantID][msg.client.ID]
				if ok {
					select {
					case msg.client.Send <- msg.payload:
					default:
					}
				}
				m.mutex.RUnlock()

			case <-ctx.Done():
				close(m.done)
				m.mutex.Lock()
				for id, room := range m.rooms {
					for _, client := range room {
						close(client.Send)
					}
					delete(m.rooms, id)
				}
				m.mutex.Unlock()
				return
			}
		}
	}()
}

func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room := m.rooms[client.RestaurantID]
	if _, ok := room[client.ID]; !ok {
		return
	}
	delete(room, client.ID)
	if len(room) == 0 {
		delete(m.rooms, client.RestaurantID)
	}
	close(client.Send)
}

// Subscribers reports how many clients currently follow a restaurant.
func (m *Manager) Subscribers(restaurantID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms[restaurantID])
}

// Attach registers an upgraded connection and starts its pumps.
func (m *Manager) Attach(conn *websocket.Conn, restaurantID string) *Client {
	client := &Client{
		ID:           uuid.New().String(),
		RestaurantID: restaurantID,
		Conn:         conn,
		Send:         make(chan []byte, sendBufferSize),
	}

	select {
	case m.Register <- client:
	case <-m.done:
		close(client.Send)
	}

	go client.ReadPump(m)
	go client.WritePump()

	return client
}

// RatingUpdated notifies a restaurant's subscribers of its new aggregate.
// It never blocks the caller; when the queue is full the event is dropped.
func (m *Manager) RatingUpdated(restaurantID string, result entity.RatingResult) {
	payload, err := json.Marshal(RatingUpdatedMessage{
		Type:         MessageTypeRatingUpdated,
		RestaurantID: restaurantID,
		Average:      result.Average,
		Count:        result.Count,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		m.logger.Error("marshal rating update", slog.String("error", err.Error()))
		return
	}

	select {
	case m.broadcast <- roomMessage{restaurantID: restaurantID, payload: payload}:
	default:
		m.logger.Warn("rating update dropped, broadcast queue full", slog.String("restaurant_id", restaurantID))
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		select {
		case m.Unregister <- c:
		case <-m.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4096)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Debug("websocket read failed", slog.String("client_id", c.ID), slog.String("error", err.Error()))
			}
			break
		}

		m.HandleClientMessage(c, message)
	}
}

// WritePump sends messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
