// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// Notification events (client -> server)
	EventTypeNotificationRead    EventType = "notification:read"
	EventTypeNotificationList    EventType = "notification:list"
	EventTypeNotificationRefresh EventType = "notification:refresh"

	// Notification events (server -> client)
	EventTypeNotificationCount EventType = "notification:count"

	// Session events
	EventTypeSessionSignedIn  EventType = "session:signed_in"
	EventTypeSessionSignedOut EventType = "session:signed_out"

	// Subscription events
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"
)

// WSMessage is the envelope for every frame in both directions.
type WSMessage struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	ID        string      `json:"id,omitempty"`
}

// Subscription channels that clients can subscribe to
type ChannelType string

const (
	ChannelNotifications ChannelType = "notifications"
	ChannelSession       ChannelType = "session"
)

// SubscribeRequest sent by client to subscribe to specific channels
type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// UnsubscribeRequest sent by client to unsubscribe from channels
type UnsubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NotificationCountData carries the unread total for the session
type NotificationCountData struct {
	Count int `json:"count"`
}

// NotificationReadData is sent by the client to mark one notification read
type NotificationReadData struct {
	NotificationID string `json:"notification_id"`
}

// SessionEventData for session events
type SessionEventData struct {
	SessionID string `json:"session_id"`
	Device    string `json:"device,omitempty"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
}

// NewMessage stamps a server frame with the current time and a fresh ID.
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		ID:        uuid.NewString(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage decodes a client frame. Frames without a type are rejected.
func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, errors.New("message has no type")
	}
	return &msg, nil
}
