package websocket

import (
	"encoding/json"
	"log/slog"
	"time"
)

// WebSocket Message Types
const (
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
	MessageTypeError         = "error"
	MessageTypeRatingUpdated = "rating.updated"
)

// WSMessage is the envelope for client-initiated messages and their replies.
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// RatingUpdatedMessage is pushed after every committed rating.
type RatingUpdatedMessage struct {
	Type         string  `json:"type"`
	RestaurantID string  `json:"restaurantId"`
	Average      float64 `json:"average"`
	Count        int     `json:"count"`
	Timestamp    string  `json:"timestamp"`
}

// HandleClientMessage processes incoming WebSocket messages. Subscribers are
// read-only, so only keepalive pings are understood.
func (m *Manager) HandleClientMessage(client *Client, messageBytes []byte) {
	var wsMessage WSMessage

	if err := json.Unmarshal(messageBytes, &wsMessage); err != nil {
		m.sendErrorToClient(client, "Invalid message format")
		return
	}

	switch wsMessage.Type {
	case MessageTypePing:
		m.sendToClient(client, WSMessage{
			Type:      MessageTypePong,
			Data:      map[string]string{"status": "alive"},
			Timestamp: time.Now().Format(time.RFC3339),
		})

	default:
		m.logger.Debug("unknown websocket message type",
			slog.String("client_id", client.ID),
			slog.String("type", wsMessage.Type),
		)
		m.sendErrorToClient(client, "Unknown message type")
	}
}

func (m *Manager) sendErrorToClient(client *Client, message string) {
	m.sendToClient(client, WSMessage{
		Type:      MessageTypeError,
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (m *Manager) sendToClient(client *Client, message WSMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		return
	}

	select {
	case m.direct <- directMessage{client: client, payload: payload}:
	default:
	}
}
